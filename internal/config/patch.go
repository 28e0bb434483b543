package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoRecognizedKeys is returned for an update that names no known section.
	ErrNoRecognizedKeys = errors.New("no recognized configuration section")
	// ErrInvalid wraps validation failures of an update.
	ErrInvalid = errors.New("invalid configuration")
)

// Sections are the top-level keys an update may carry.
var Sections = []string{"hardware", "runtime", "effects", "audio", "network", "simulator"}

// envelopeKey wraps updates sent by some management front ends.
const envelopeKey = "led_config"

// legacyKeys moves keys of the old flat schema onto their current paths.
// Later entries win when two of them name the same setting.
var legacyKeys = []struct{ from, to string }{
	{"num_leds", "hardware.num_leds"},
	{"pin", "hardware.pin"},
	{"audio_port", "network.audio_port"},
	{"audio_format", "network.audio_format"},
	{"api_port", "network.api_port"},
	{"display_mode", "simulator.display_mode"},
	{"rotation.period", "runtime.rotation_period"},
	{"rainbow", "effects.rainbow"},
	{"rotation_period", "runtime.rotation_period"},
	{"volume_compensation", "audio.volume_compensation"},
	{"auto_gain", "audio.auto_gain"},
	{"rainbow_speed", "effects.rainbow.speed"},
	{"rainbow_brightness", "effects.rainbow.brightness"},
}

// legacyEffectKeys switch the current effect as part of an update.
var legacyEffectKeys = []string{"current_effect", "static_effect"}

// Change reports which rotation-relevant settings an update touched.
type Change struct {
	Playlist       bool
	RotationPeriod bool
}

// Normalize unwraps an optional led_config envelope, expands dot-path
// keys such as "runtime.rotation_period" into nested maps and moves
// flat keys like "rotation_period" to their section.
func Normalize(doc map[string]any) (map[string]any, error) {
	if inner, ok := doc[envelopeKey].(map[string]any); ok {
		doc = inner
	}
	out, err := expand(doc)
	if err != nil {
		return nil, err
	}
	for _, k := range legacyKeys {
		v, ok := take(out, strings.Split(k.from, "."))
		if !ok {
			continue
		}
		place(out, strings.Split(k.to, "."), v)
	}
	return out, nil
}

// LegacyEffect returns the effect named by a current_effect or
// static_effect key of an update, or "" if there is none.
func LegacyEffect(doc map[string]any) string {
	doc, err := Normalize(doc)
	if err != nil {
		return ""
	}
	for _, k := range legacyEffectKeys {
		if name, ok := doc[k].(string); ok && name != "" {
			return name
		}
	}
	return ""
}

// take removes the value at path, dropping parents it leaves empty.
func take(m map[string]any, path []string) (any, bool) {
	v, ok := m[path[0]]
	if !ok {
		return nil, false
	}
	if len(path) == 1 {
		delete(m, path[0])
		return v, true
	}
	sub, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok = take(sub, path[1:])
	if ok && len(sub) == 0 {
		delete(m, path[0])
	}
	return v, ok
}

func expand(doc map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(doc))
	for key, v := range doc {
		if m, ok := v.(map[string]any); ok {
			nested, err := expand(m)
			if err != nil {
				return nil, err
			}
			v = nested
		}
		parts := strings.Split(key, ".")
		if slices.Contains(parts, "") {
			return nil, fmt.Errorf("malformed key %q", key)
		}
		place(out, parts, v)
	}
	return out, nil
}

// place stores v at path, merging into a map already there.
func place(dst map[string]any, path []string, v any) {
	for _, p := range path[:len(path)-1] {
		next, ok := dst[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			dst[p] = next
		}
		dst = next
	}
	leaf := path[len(path)-1]
	if existing, ok := dst[leaf].(map[string]any); ok {
		if m, ok := v.(map[string]any); ok {
			merge(existing, m)
			return
		}
	}
	dst[leaf] = v
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				merge(dm, sm)
				continue
			}
		}
		dst[k] = v
	}
}

// Apply returns a copy of c with a partial document merged in. Lists
// replace lists; keys outside the schema are ignored. The result must
// validate as a whole or c is returned unchanged with an error.
func (c Config) Apply(patch map[string]any) (Config, Change, error) {
	doc, err := Normalize(patch)
	if err != nil {
		return c, Change{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !slices.ContainsFunc(Sections, func(s string) bool { _, ok := doc[s]; return ok }) {
		return c, Change{}, ErrNoRecognizedKeys
	}

	base, err := toMap(c)
	if err != nil {
		return c, Change{}, err
	}
	for _, s := range Sections {
		if v, ok := doc[s]; ok {
			merge(base, map[string]any{s: v})
		}
	}

	var next Config
	data, err := yaml.Marshal(base)
	if err != nil {
		return c, Change{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := yaml.Unmarshal(data, &next); err != nil {
		return c, Change{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := next.Validate(); err != nil {
		return c, Change{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return next, Change{
		Playlist:       !slices.Equal(c.Runtime.EffectsPlaylist, next.Runtime.EffectsPlaylist),
		RotationPeriod: c.Runtime.RotationPeriod != next.Runtime.RotationPeriod,
	}, nil
}

func toMap(c Config) (map[string]any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return m, nil
}
