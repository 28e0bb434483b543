package effect

func renderOff(r *Renderer, _ Input, _ Params) {
	r.buf.blackout()
}

func renderRainbow(r *Renderer, _ Input, p Params) {
	for i := range r.buf {
		idx := i*256/r.n + r.state.RainbowPhase
		r.buf[i] = Wheel(uint8(idx&255), p.RainbowBrightness)
	}
	r.state.RainbowPhase = (r.state.RainbowPhase + 1) % 256
}
