package effect

import (
	"math/rand/v2"
	"time"
)

// RippleParticle is a ring expanding from a fixed center.
type RippleParticle struct {
	Pos        int
	Radius     float64
	Hue        float64
	Brightness float64
}

// ArrowParticle is a comet head travelling along the strip.
type ArrowParticle struct {
	Pos        float64
	Brightness float64
}

// State is the mutable memory shared by all effects of one renderer. It
// survives effect switches; call Reset to start over.
type State struct {
	Time         uint64
	HueOffset    float64
	History      History
	Ripples      []RippleParticle
	Arrows       []ArrowParticle
	LastArrow    time.Time
	RainbowPhase int

	rng *rand.Rand
}

func newState(seed uint64) *State {
	return &State{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Reset clears counters, particles and history. The random source is kept.
func (s *State) Reset() {
	rng := s.rng
	*s = State{rng: rng}
}
