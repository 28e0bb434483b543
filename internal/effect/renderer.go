package effect

import (
	"errors"
	"time"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/audio"
)

// ErrEmptyStrip is returned for a strip with no pixels.
var ErrEmptyStrip = errors.New("strip must have at least one pixel")

// Params carries the configuration an effect reads each frame.
type Params struct {
	// VolumeFactor scales banded level meters; 1 when the source applies AGC.
	VolumeFactor      float64
	RainbowBrightness int
}

// Input is one frame of render input.
type Input struct {
	Frame audio.Frame
	Now   time.Time
}

type renderFunc func(r *Renderer, in Input, p Params)

var renderers = [numIDs]renderFunc{
	Off:             renderOff,
	Rainbow:         renderRainbow,
	SpectrumBars:    renderSpectrumBars,
	VUMeter:         renderVUMeter,
	RainbowSpectrum: renderRainbowSpectrum,
	Fire:            renderFire,
	FrequencyWave:   renderFrequencyWave,
	Blurz:           renderBlurz,
	Pixels:          renderPixels,
	Puddles:         renderPuddles,
	Ripple:          renderRipple,
	ColorWave:       renderColorWave,
	Waterfall:       renderWaterfall,
	BeatPulse:       renderBeatPulse,
	WhiteSegments:   renderWhiteSegments,
	WhiteArrow:      renderWhiteArrow,
	WhiteMarquee:    renderWhiteMarquee,
}

// Renderer turns audio frames into pixel buffers for a fixed-length strip.
// It owns the effect State and the previous frame, which fading effects
// build on. A Renderer is driven by a single goroutine.
type Renderer struct {
	n     int
	state *State
	buf   Strip
}

// NewRenderer creates a renderer for numPixels LEDs. The seed drives the
// random placement used by particle effects.
func NewRenderer(numPixels int, seed uint64) (*Renderer, error) {
	if numPixels < 1 {
		return nil, ErrEmptyStrip
	}
	return &Renderer{
		n:     numPixels,
		state: newState(seed),
		buf:   make(Strip, numPixels),
	}, nil
}

// Len returns the strip length.
func (r *Renderer) Len() int { return r.n }

// State exposes the effect state.
func (r *Renderer) State() *State { return r.state }

// Reset clears the effect state and the previous frame.
func (r *Renderer) Reset() {
	r.state.Reset()
	r.buf.blackout()
}

// Blackout turns every pixel off and returns the buffer.
func (r *Renderer) Blackout() Strip {
	r.buf.blackout()
	return r.buf
}

// Render advances effect id by one frame. Ids outside the catalog render
// as Default. The returned buffer is reused by the next call.
func (r *Renderer) Render(id ID, in Input, p Params) Strip {
	if !id.Valid() {
		id = Default
	}
	if id.RequiresAudio() {
		r.state.Time++
	}
	renderers[id](r, in, p)
	return r.buf
}

func (r *Renderer) randIntN(n int) int {
	if n <= 1 {
		return 0
	}
	return r.state.rng.IntN(n)
}
