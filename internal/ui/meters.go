package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/harmonica"
)

type springField struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

func newSpringField(fps int, frequency, damping float64) springField {
	return springField{spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping)}
}

func (s *springField) resize(n int) {
	if len(s.pos) == n {
		return
	}
	s.pos = make([]float64, n)
	s.vel = make([]float64, n)
}

func (s *springField) step(i int, target float64) float64 {
	p, v := s.spring.Update(s.pos[i], s.vel[i], target)
	s.pos[i] = p
	s.vel[i] = v
	return p
}

var barGlyphs = []rune(" ▁▂▃▄▅▆▇█")

// bandMeter draws the 16 bands as one row of spring-smoothed bars.
type bandMeter struct {
	springs springField
	levels  []float64
}

func newBandMeter() bandMeter {
	return bandMeter{springs: newSpringField(tickFPS, 8.0, 0.8)}
}

func (b *bandMeter) update(bands []int) {
	b.springs.resize(len(bands))
	if len(b.levels) != len(bands) {
		b.levels = make([]float64, len(bands))
	}
	for i, v := range bands {
		b.levels[i] = math.Max(0, math.Min(b.springs.step(i, float64(v)/255), 1))
	}
}

func (b *bandMeter) view(p colorProfile) string {
	var sb strings.Builder
	st := newANSIState(p)
	for _, lvl := range b.levels {
		st.set(&sb, heatColor(lvl))
		g := barGlyphs[int(math.Round(lvl*float64(len(barGlyphs)-1)))]
		sb.WriteRune(g)
		sb.WriteRune(g)
	}
	st.reset(&sb)
	return sb.String()
}
