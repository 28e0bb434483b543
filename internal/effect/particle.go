package effect

import (
	"math"
	"time"
)

const (
	arrowSpeed       = 2.0
	arrowLength      = 8
	arrowMinInterval = 400 * time.Millisecond

	marqueeSpeed  = 0.3
	marqueeLength = 10

	rippleDecayExp = 0.7
)

func renderPixels(r *Renderer, in Input, _ Params) {
	st := r.state
	agc := in.Frame.Volume()
	volume := float64(agc) / 255

	r.buf.fade(0.75)
	st.History.Push(uint8(agc))

	for range int(volume*8) + 1 {
		pos := r.randIntN(r.n)
		k := r.randIntN(st.History.Len())
		hue := float64((int(st.History.At(k)) + k*16) % 360)
		r.buf[pos] = HSV(hue, 1, volume*1.5)
	}
}

func renderPuddles(r *Renderer, in Input, _ Params) {
	volume := in.Frame.Volume()
	r.buf.fade(0.88)
	if volume <= 50 {
		return
	}
	pos := r.randIntN(r.n)
	size := int(float64(volume)/255*8) + 1
	c := HSV(float64(r.state.Time*2%360), 1, 1)
	for i := pos; i < pos+size && i < r.n; i++ {
		r.buf[i] = c
	}
}

func renderRipple(r *Renderer, in Input, _ Params) {
	st := r.state
	volume := float64(in.Frame.Volume()) / 255
	half := r.n / 2

	r.buf.fade(0.95)
	if in.Frame.Beat() && volume > 0.15 {
		st.Ripples = append(st.Ripples, RippleParticle{
			Pos:        half,
			Hue:        float64(st.Time * 5 % 360),
			Brightness: math.Min(1, volume*1.5+0.3),
		})
	}

	live := st.Ripples[:0]
	for _, rp := range st.Ripples {
		rp.Radius += 0.5
		radius := int(rp.Radius)
		if half > 0 && radius < half {
			decay := math.Pow(rp.Radius/float64(half), rippleDecayExp)
			c := HSV(rp.Hue, 1, clamp01(rp.Brightness*(1-decay)))
			for _, pos := range [2]int{rp.Pos - radius, rp.Pos + radius} {
				if pos >= 0 && pos < r.n {
					r.buf[pos] = c
				}
			}
		}
		if rp.Radius < float64(half) {
			live = append(live, rp)
		}
	}
	st.Ripples = live
}

func renderWhiteArrow(r *Renderer, in Input, _ Params) {
	st := r.state
	r.buf.blackout()

	if in.Frame.Beat() && (st.LastArrow.IsZero() || in.Now.Sub(st.LastArrow) >= arrowMinInterval) {
		st.Arrows = append(st.Arrows, ArrowParticle{Brightness: 1})
		st.LastArrow = in.Now
	}

	live := st.Arrows[:0]
	for _, a := range st.Arrows {
		a.Pos += arrowSpeed
		head := int(a.Pos)
		for i := max(0, head-arrowLength); i < min(r.n, head+1); i++ {
			tail := 1 - float64(head-i)/arrowLength
			r.buf[i] = White(a.Brightness * clamp01(tail*tail))
		}
		if a.Pos < float64(r.n+arrowLength) {
			live = append(live, a)
		}
	}
	st.Arrows = live
}

func renderWhiteMarquee(r *Renderer, _ Input, _ Params) {
	r.buf.blackout()
	pos := math.Mod(float64(r.state.Time)*marqueeSpeed, float64(r.n+marqueeLength))
	for i := range r.buf {
		d := math.Abs(float64(i) - pos)
		if d <= marqueeLength {
			f := 1 - d/marqueeLength
			r.buf[i] = White(f * f)
		}
	}
}
