package effect

import (
	"math"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/audio"
)

const (
	numSegments     = 8
	bandsPerSegment = audio.NumBands / numSegments
)

// zoneHue maps a band index to the bass, mid or high palette.
func zoneHue(band int) float64 {
	switch {
	case band < 5:
		return 320
	case band < 11:
		return 280
	default:
		return 200
	}
}

func clampBand(b int) int {
	return max(0, min(b, audio.NumBands-1))
}

// segment is one eighth of the strip with its aggregated band intensity.
type segment struct {
	start, end       int
	startBin, endBin int
	intensity        float64
}

func segments(n int, bands [audio.NumBands]uint8) []segment {
	per := n / numSegments
	out := make([]segment, numSegments)
	for s := range out {
		startBin := s * bandsPerSegment
		endBin := startBin + bandsPerSegment
		var sum float64
		for b := startBin; b < endBin; b++ {
			sum += float64(bands[b])
		}
		start := s * per
		out[s] = segment{
			start:     start,
			end:       min(start+per, n),
			startBin:  startBin,
			endBin:    endBin,
			intensity: math.Min(sum/bandsPerSegment, 255),
		}
	}
	return out
}

func (s segment) ratio(volumeFactor float64) float64 {
	return math.Min(s.intensity/255*volumeFactor, 1)
}

func renderSpectrumBars(r *Renderer, in Input, _ Params) {
	n := r.n
	center := n / 2
	div := max(center, 1)
	shift := int(math.Mod(float64(r.state.Time)*0.15, float64(n*2)))
	for i := range r.buf {
		off := (i + shift) % (2 * n)
		if off >= n {
			off = 2*n - off - 1
		}
		dist := off - center
		if dist < 0 {
			dist = -dist
		}
		bin := clampBand(dist * audio.NumBands / div)
		b := float64(in.Frame.Bands[bin]) / 255
		r.buf[i] = HSV(zoneHue(bin), 0.7+b*0.3, b)
	}
}

func renderVUMeter(r *Renderer, in Input, p Params) {
	r.buf.blackout()
	last := float64(max(r.n-1, 1))
	for _, seg := range segments(r.n, in.Frame.Bands) {
		lit := int(seg.ratio(p.VolumeFactor) * float64(seg.end-seg.start))
		for i := seg.start; i < seg.start+lit && i < seg.end; i++ {
			pos := float64(i) / last
			b := (1 - pos*0.2) * seg.intensity / 255
			r.buf[i] = HSV(260+pos*60, 0.7+pos*0.3, b)
		}
	}
}

func renderFrequencyWave(r *Renderer, in Input, p Params) {
	r.buf.fade(0.90)
	for _, seg := range segments(r.n, in.Frame.Bands) {
		center := (seg.start + seg.end) / 2
		binNorm := float64(seg.startBin+seg.endBin) / 2 / audio.NumBands
		hue := 320 - binNorm*120
		half := (seg.end - seg.start) / 2
		litHalf := min(int(seg.ratio(p.VolumeFactor)*float64(half)), half)
		for i := seg.start; i < seg.end; i++ {
			d := i - center
			if d < 0 {
				d = -d
			}
			if d >= litHalf {
				continue
			}
			rel := float64(d) / float64(max(half, 1))
			b := (1 - rel*0.2) * seg.intensity / 255
			r.buf[i] = HSV(hue, 0.7+rel*0.3, b)
		}
	}
}

func renderWhiteSegments(r *Renderer, in Input, p Params) {
	r.buf.blackout()
	for _, seg := range segments(r.n, in.Frame.Bands) {
		lit := int(seg.ratio(p.VolumeFactor) * float64(seg.end-seg.start))
		c := White(seg.intensity / 255)
		for i := seg.start; i < seg.start+lit && i < seg.end; i++ {
			r.buf[i] = c
		}
	}
}
