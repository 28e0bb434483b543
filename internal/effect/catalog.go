package effect

import (
	"errors"
	"fmt"
)

// ErrUnknown is returned when an effect name is not in the catalog.
var ErrUnknown = errors.New("unknown effect")

// ID identifies one catalog effect.
type ID uint8

const (
	Off ID = iota
	Rainbow
	SpectrumBars
	VUMeter
	RainbowSpectrum
	Fire
	FrequencyWave
	Blurz
	Pixels
	Puddles
	Ripple
	ColorWave
	Waterfall
	BeatPulse
	WhiteSegments
	WhiteArrow
	WhiteMarquee

	numIDs
)

// Default is used when an id falls outside the catalog.
const Default = SpectrumBars

// Info describes a catalog entry.
type Info struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	RequiresAudio bool   `json:"requires_audio"`
	WhiteOnly     bool   `json:"white_only"`
}

var catalog = [numIDs]Info{
	Off:             {Name: "off", Description: "All LEDs off"},
	Rainbow:         {Name: "rainbow", Description: "Cycling rainbow wheel, no audio needed"},
	SpectrumBars:    {Name: "spectrum_bars", Description: "Frequency bars mirrored from the strip center", RequiresAudio: true},
	VUMeter:         {Name: "vu_meter", Description: "Eight segment level meter", RequiresAudio: true},
	RainbowSpectrum: {Name: "rainbow_spectrum", Description: "Static rainbow brightened by nearby bands", RequiresAudio: true},
	Fire:            {Name: "fire", Description: "Bass driven fire gradient", RequiresAudio: true},
	FrequencyWave:   {Name: "frequency_wave", Description: "Segments growing outward from their centers", RequiresAudio: true},
	Blurz:           {Name: "blurz", Description: "Fading dots for loud bands", RequiresAudio: true},
	Pixels:          {Name: "pixels", Description: "Random pixels colored by volume history", RequiresAudio: true},
	Puddles:         {Name: "puddles", Description: "Color puddles on loud passages", RequiresAudio: true},
	Ripple:          {Name: "ripple", Description: "Beat triggered ripples from the center", RequiresAudio: true},
	ColorWave:       {Name: "color_wave", Description: "Sine wave hue shifted by band balance", RequiresAudio: true},
	Waterfall:       {Name: "waterfall", Description: "Dominant band scrolling along the strip", RequiresAudio: true},
	BeatPulse:       {Name: "beat_pulse", Description: "Whole strip pulsing with the beat", RequiresAudio: true},
	WhiteSegments:   {Name: "white_segments", Description: "White eight segment level meter", RequiresAudio: true, WhiteOnly: true},
	WhiteArrow:      {Name: "white_arrow", Description: "White arrows fired on beats", RequiresAudio: true, WhiteOnly: true},
	WhiteMarquee:    {Name: "white_marquee", Description: "White marquee sweeping the strip", RequiresAudio: true, WhiteOnly: true},
}

var byName = func() map[string]ID {
	m := make(map[string]ID, numIDs)
	for id, info := range catalog {
		m[info.Name] = ID(id)
	}
	return m
}()

// Parse returns the id for a catalog name.
func Parse(name string) (ID, error) {
	id, ok := byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return id, nil
}

// Valid reports whether id is a catalog entry.
func (id ID) Valid() bool { return id < numIDs }

func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("effect(%d)", uint8(id))
	}
	return catalog[id].Name
}

// Info returns the catalog metadata for id.
func (id ID) Info() Info {
	if !id.Valid() {
		return catalog[Default]
	}
	return catalog[id]
}

// RequiresAudio reports whether the effect renders from audio frames.
func (id ID) RequiresAudio() bool { return id.Info().RequiresAudio }

// All returns every catalog id in display order.
func All() []ID {
	ids := make([]ID, numIDs)
	for i := range ids {
		ids[i] = ID(i)
	}
	return ids
}

// Names returns every catalog name in display order.
func Names() []string {
	names := make([]string, numIDs)
	for i, info := range catalog {
		names[i] = info.Name
	}
	return names
}

// Catalog returns metadata for every effect.
func Catalog() []Info {
	out := make([]Info, numIDs)
	copy(out, catalog[:])
	return out
}
