package ui

import (
	"math"
	"strings"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/sink"
)

// Simulator display modes.
const (
	displayHorizontal = "horizontal"
	displayVertical   = "vertical"
	displayGrid       = "grid"
)

var displayModes = []string{displayHorizontal, displayVertical, displayGrid}

func nextDisplayMode(mode string) string {
	for i, m := range displayModes {
		if m == mode {
			return displayModes[(i+1)%len(displayModes)]
		}
	}
	return displayHorizontal
}

// shades stand in for color on terminals without color support.
var shades = []rune(" ░▒▓█")

const ledGlyph = '●'

// renderStrip draws the pixels as LED cells laid out for mode inside a
// width by height area.
func renderStrip(px []sink.Color, mode string, width, height int, p colorProfile) string {
	if len(px) == 0 {
		return ""
	}
	width = max(width, 1)
	height = max(height, 1)

	var rows [][]sink.Color
	sep := ""
	switch mode {
	case displayVertical:
		n := min(len(px), height)
		cols := (len(px) + n - 1) / n
		rows = make([][]sink.Color, n)
		for c := range cols {
			for r := range n {
				if i := c*n + r; i < len(px) {
					rows[r] = append(rows[r], px[i])
				}
			}
		}
		sep = " "
	case displayGrid:
		side := int(math.Ceil(math.Sqrt(float64(len(px)))))
		rows = chunk(px, side)
		sep = " "
	default:
		rows = chunk(px, width)
	}

	var sb strings.Builder
	st := newANSIState(p)
	for r, row := range rows {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for i, c := range row {
			if i > 0 && sep != "" {
				st.reset(&sb)
				sb.WriteString(sep)
			}
			writeLED(&sb, &st, c)
		}
		st.reset(&sb)
	}
	return sb.String()
}

func writeLED(sb *strings.Builder, st *ansiState, c sink.Color) {
	if st.profile == colorNone {
		i := int(math.Round(luminance(c) * float64(len(shades)-1)))
		sb.WriteRune(shades[i])
		return
	}
	if c == (sink.Color{}) {
		st.set(sb, sink.Color{R: 40, G: 40, B: 40})
		sb.WriteRune('·')
		return
	}
	st.set(sb, c)
	sb.WriteRune(ledGlyph)
}

func chunk(px []sink.Color, n int) [][]sink.Color {
	var rows [][]sink.Color
	for len(px) > n {
		rows = append(rows, px[:n])
		px = px[n:]
	}
	return append(rows, px)
}
