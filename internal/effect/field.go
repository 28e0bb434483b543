package effect

import (
	"math"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/audio"
)

func bandMean(bands [audio.NumBands]uint8, from, to int) float64 {
	var sum float64
	for _, b := range bands[from:to] {
		sum += float64(b)
	}
	return sum / float64(to-from)
}

func renderRainbowSpectrum(r *Renderer, in Input, _ Params) {
	beat := in.Frame.Beat()
	for i := range r.buf {
		pos := float64(i) / float64(r.n)
		var influence float64
		for j, band := range in.Frame.Bands {
			d := math.Abs(float64(j)/audio.NumBands - pos)
			if d < 0.2 {
				influence += float64(band) / 255 * (1 - d/0.2)
			}
		}
		b := 0.3 + math.Min(influence*0.7, 0.7)
		if beat {
			b = 1
		}
		r.buf[i] = HSV(pos*360, 1, b)
	}
}

func renderFire(r *Renderer, in Input, _ Params) {
	bass := bandMean(in.Frame.Bands, 0, 5) / 255
	beat := in.Frame.Beat()
	for i := range r.buf {
		intensity := bass * (1 - float64(i)/float64(r.n)*0.5)
		if beat {
			intensity = 1
		}
		intensity = math.Min(intensity, 1)
		r.buf[i] = RGB{R: 255, G: channel(intensity * 150)}
	}
}

func renderBlurz(r *Renderer, in Input, _ Params) {
	r.buf.fade(0.85)
	perBin := float64(r.n) / audio.NumBands
	for bin, v := range in.Frame.Bands {
		if v <= 100 {
			continue
		}
		pos := min(int((float64(bin)+0.5)*perBin), r.n-1)
		hue := float64(bin) / audio.NumBands * 360
		r.buf[pos] = HSV(hue, 1, math.Min(1, float64(v)/255))
	}
}

func renderColorWave(r *Renderer, in Input, _ Params) {
	st := r.state
	bands := in.Frame.Bands
	volume := float64(in.Frame.Volume()) / 255

	bass := bandMean(bands, 0, 5)
	mids := bandMean(bands, 5, 11)
	highs := bandMean(bands, 11, 16)
	hue := (bass*320 + mids*280 + highs*200) / (bass + mids + highs + 1)
	st.HueOffset = st.HueOffset*0.9 + hue*0.1

	sat, val := 0.7+volume*0.3, 0.5+volume*0.5
	if in.Frame.Beat() {
		sat, val = 1, 1
	}
	phase := float64(st.Time) * 0.1
	for i := range r.buf {
		wave := math.Sin(float64(i)/float64(r.n)*6.28 + phase)
		r.buf[i] = HSV(st.HueOffset+wave*40, sat, val)
	}
}

func renderWaterfall(r *Renderer, in Input, _ Params) {
	copy(r.buf[1:], r.buf[:r.n-1])

	peak, idx := uint8(0), 0
	for i, b := range in.Frame.Bands {
		if b > peak {
			peak, idx = b, i
		}
	}
	fn := float64(idx) / audio.NumBands
	var hue float64
	if fn < 0.5 {
		hue = 190 + fn*2*90
	} else {
		hue = 280 + (fn-0.5)*2*90
	}
	b := math.Min(1, float64(peak)/255)
	r.buf[0] = HSV(math.Mod(hue, 360), 0.7+b*0.3, b)
}

func renderBeatPulse(r *Renderer, in Input, _ Params) {
	st := r.state
	beat := in.Frame.Beat()
	if beat {
		st.HueOffset = math.Mod(st.HueOffset+30, 360)
	}
	b := float64(in.Frame.Volume()) / 255 * (math.Sin(float64(st.Time)*0.2)*0.2 + 0.5)
	if beat {
		b = 0.7
	}
	for i := range r.buf {
		r.buf[i] = HSV(st.HueOffset+float64(i*2), 1, b)
	}
}
