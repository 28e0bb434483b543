package feed

import (
	"encoding/binary"
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/audio"
)

const (
	fftSize  = 1024
	rawBands = 32

	minFreq = 43.0
	maxFreq = 9000.0

	agcDecay    = 0.995
	agcFloor    = 1e-3
	volumeRange = 60.0 // dB mapped onto 0-255
	avgSmooth   = 0.2
	beatRatio   = 1.4
	beatFloor   = 40.0
	bassBands   = 4
)

// Analysis is the result of one analyzer pass.
type Analysis struct {
	Frame audio.Frame
	Raw   [rawBands]uint8
}

// Analyzer keeps the most recent mono window and turns it into band
// levels and volume.
type Analyzer struct {
	mu     sync.Mutex
	rate   int
	ring   []float64
	w      int
	filled int

	edges   []int
	peak    float64
	avg     float64
	bassAvg float64
}

// NewAnalyzer analyzes audio sampled at rate.
func NewAnalyzer(rate int) *Analyzer {
	return &Analyzer{
		rate:  rate,
		ring:  make([]float64, fftSize),
		edges: bandEdges(rate),
		peak:  agcFloor,
	}
}

// bandEdges returns rawBands+1 log-spaced FFT bin boundaries.
func bandEdges(rate int) []int {
	top := min(maxFreq, float64(rate)/2)
	edges := make([]int, rawBands+1)
	for i := range edges {
		f := minFreq * math.Pow(top/minFreq, float64(i)/rawBands)
		edges[i] = int(f * fftSize / float64(rate))
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			edges[i] = edges[i-1] + 1
		}
	}
	return edges
}

// PushPCM16 adds interleaved 16-bit little-endian samples, mixed to mono.
func (a *Analyzer) PushPCM16(p []byte, channels int) {
	channels = max(channels, 1)
	frame := channels * 2
	a.mu.Lock()
	defer a.mu.Unlock()
	for off := 0; off+frame <= len(p); off += frame {
		var sum float64
		for ch := range channels {
			sum += float64(int16(binary.LittleEndian.Uint16(p[off+ch*2:])))
		}
		a.push(sum / float64(channels) / 32768)
	}
}

// PushFloat32 adds mono samples in [-1, 1].
func (a *Analyzer) PushFloat32(s []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, v := range s {
		a.push(float64(v))
	}
}

func (a *Analyzer) push(v float64) {
	a.ring[a.w] = v
	a.w = (a.w + 1) % len(a.ring)
	a.filled = min(a.filled+1, len(a.ring))
}

// Analyze runs one FFT over the current window.
func (a *Analyzer) Analyze() Analysis {
	a.mu.Lock()
	defer a.mu.Unlock()

	x := make([]float64, fftSize)
	for i := range x {
		x[i] = a.ring[(a.w+i)%fftSize]
	}

	var sq float64
	for _, v := range x {
		sq += v * v
	}
	rms := math.Sqrt(sq / fftSize)

	window.Apply(x, window.Hann)
	bins := fft.FFTReal(x)

	mags := make([]float64, fftSize/2)
	var majorBin int
	for i := 1; i < len(mags); i++ {
		mags[i] = cmplx.Abs(bins[i]) / (fftSize / 2)
		if mags[i] > mags[majorBin] {
			majorBin = i
		}
	}

	var bands [rawBands]float64
	var loudest float64
	for b := range rawBands {
		lo, hi := a.edges[b], min(a.edges[b+1], len(mags))
		var sum float64
		for i := lo; i < hi; i++ {
			sum += mags[i]
		}
		if hi > lo {
			bands[b] = sum / float64(hi-lo)
		}
		loudest = max(loudest, bands[b])
	}
	a.peak = max(loudest, a.peak*agcDecay, agcFloor)

	var res Analysis
	for b, v := range bands {
		res.Raw[b] = uint8(math.Round(min(v/a.peak, 1) * 255))
	}
	for i := range res.Frame.Bands {
		res.Frame.Bands[i] = uint8((int(res.Raw[2*i]) + int(res.Raw[2*i+1])) / 2)
	}

	level := 0.0
	if rms > 0 {
		level = max(0, min((20*math.Log10(rms)+volumeRange)/volumeRange, 1)) * 255
	}
	a.avg += (level - a.avg) * avgSmooth

	var bass float64
	for _, v := range res.Raw[:bassBands] {
		bass += float64(v)
	}
	bass /= bassBands
	beat := bass > beatFloor && bass > a.bassAvg*beatRatio
	a.bassAvg += (bass - a.bassAvg) * avgSmooth

	res.Frame.SampleRaw = math.Round(level)
	res.Frame.SampleAGC = math.Round(level)
	res.Frame.SampleAvg = a.avg
	res.Frame.MultAGC = 1
	res.Frame.FFTMagnitude = mags[majorBin]
	res.Frame.FFTMajorPeak = float64(majorBin) * float64(a.rate) / fftSize
	if beat {
		res.Frame.SamplePeak = 1
	}
	return res
}
