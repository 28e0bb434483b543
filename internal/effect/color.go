package effect

import "math"

// RGB is one pixel color.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

// Strip is an ordered pixel buffer.
type Strip []RGB

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func channel(v float64) uint8 {
	n := int(v)
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}

// HSV converts hue in degrees plus saturation and value in 0..1 to RGB.
func HSV(h, s, v float64) RGB {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s = clamp01(s)
	v = clamp01(v)

	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return RGB{R: channel((r + m) * 255), G: channel((g + m) * 255), B: channel((b + m) * 255)}
}

// White returns a gray level for brightness in 0..1.
func White(brightness float64) RGB {
	v := channel(255 * clamp01(brightness))
	return RGB{R: v, G: v, B: v}
}

// Wheel maps a 0-255 position onto the classic red-green-blue color wheel,
// scaled by brightness/255.
func Wheel(pos uint8, brightness int) RGB {
	f := float64(brightness) / 255
	p := int(pos)
	switch {
	case p < 85:
		return RGB{R: channel(float64(p*3) * f), G: channel(float64(255-p*3) * f)}
	case p < 170:
		p -= 85
		return RGB{R: channel(float64(255-p*3) * f), B: channel(float64(p*3) * f)}
	default:
		p -= 170
		return RGB{G: channel(float64(p*3) * f), B: channel(float64(255-p*3) * f)}
	}
}

// Scale multiplies each channel by factor, truncating.
func (c RGB) Scale(factor float64) RGB {
	return RGB{
		R: channel(float64(c.R) * factor),
		G: channel(float64(c.G) * factor),
		B: channel(float64(c.B) * factor),
	}
}

func (s Strip) blackout() {
	clear(s)
}

func (s Strip) fade(factor float64) {
	for i, c := range s {
		s[i] = c.Scale(factor)
	}
}
