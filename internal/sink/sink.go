package sink

import (
	"errors"
	"fmt"
	"strings"
)

// Sink accepts per-pixel writes and a flush that displays them.
type Sink interface {
	SetPixel(i int, r, g, b uint8)
	Show() error
	NumPixels() int
}

// Color is one displayed pixel.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// ColorOrder is the byte order a strip expects on the wire.
type ColorOrder uint8

const (
	OrderRGB ColorOrder = iota
	OrderGRB
)

// ParseColorOrder parses "rgb" or "grb".
func ParseColorOrder(s string) (ColorOrder, error) {
	switch strings.ToLower(s) {
	case "rgb":
		return OrderRGB, nil
	case "grb", "":
		return OrderGRB, nil
	default:
		return OrderGRB, fmt.Errorf("unknown color order %q", s)
	}
}

func (o ColorOrder) put(dst []byte, r, g, b uint8) {
	if o == OrderGRB {
		dst[0], dst[1], dst[2] = g, r, b
		return
	}
	dst[0], dst[1], dst[2] = r, g, b
}

// Clear turns every pixel of s off and flushes.
func Clear(s Sink) error {
	for i := range s.NumPixels() {
		s.SetPixel(i, 0, 0, 0)
	}
	return s.Show()
}

type multi []Sink

// Multi fans writes out to every sink. Its length is the shortest sink's.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) SetPixel(i int, r, g, b uint8) {
	for _, s := range m {
		s.SetPixel(i, r, g, b)
	}
}

func (m multi) Show() error {
	var errs []error
	for _, s := range m {
		if err := s.Show(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) NumPixels() int {
	if len(m) == 0 {
		return 0
	}
	n := m[0].NumPixels()
	for _, s := range m[1:] {
		n = min(n, s.NumPixels())
	}
	return n
}
