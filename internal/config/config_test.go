package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

const sampleJSON = `{
  "hardware": {"num_leds": 60, "pin": 18, "supported_effects": ["off", "rainbow", "fire", "ripple"]},
  "runtime": {"effects_playlist": ["off", "rainbow"], "rotation_period": 2.0},
  "audio": {"volume_compensation": 1.0, "auto_gain": false},
  "effects": {"rainbow": {"speed": 20, "brightness": 200}},
  "network": {"audio_port": 31337, "audio_format": "auto", "api_port": 5000},
  "simulator": {"display_mode": "horizontal"}
}`

func sample(t *testing.T) Config {
	t.Helper()
	c, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return c
}

func TestParseJSONKeepsDefaults(t *testing.T) {
	c := sample(t)
	if c.Hardware.NumLEDs != 60 || c.Runtime.RotationPeriod != 2 {
		t.Fatalf("unexpected values: %+v", c)
	}
	if c.Hardware.Output != OutputSimulator || c.Network.MQTT.ControlTopic != "glimmer/control" {
		t.Fatalf("defaults lost: %+v", c)
	}
	if got := c.EffectivePlaylist().Names(); !reflect.DeepEqual(got, []string{"off", "rainbow"}) {
		t.Fatalf("EffectivePlaylist = %v", got)
	}
}

func TestParseYAML(t *testing.T) {
	doc := `
hardware:
  num_leds: 30
  supported_effects: [off, fire]
runtime:
  effects_playlist: [fire]
  rotation_period: 5
audio: {volume_compensation: 2.5, auto_gain: true}
effects: {rainbow: {speed: 10, brightness: 255}}
network: {audio_port: 31337, audio_format: wled}
`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.VolumeFactor() != 1 {
		t.Fatalf("VolumeFactor() = %v, want 1 with auto gain", c.VolumeFactor())
	}
	if c.Hardware.SupportedEffects[0] != "off" {
		t.Fatalf("off should stay a string, got %q", c.Hardware.SupportedEffects[0])
	}
}

func TestParseMissingKeys(t *testing.T) {
	_, err := Parse([]byte(`{"hardware": {"num_leds": 10}}`))
	if !errors.Is(err, ErrMissingKeys) {
		t.Fatalf("err = %v, want ErrMissingKeys", err)
	}
	if !strings.Contains(err.Error(), "runtime.effects_playlist") {
		t.Fatalf("error should name the missing key: %v", err)
	}
}

func TestValidateRejectsUnsupportedOnlyPlaylist(t *testing.T) {
	c := sample(t)
	c.Runtime.EffectsPlaylist = []string{"blurz"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for a playlist outside supported effects")
	}
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"rotation", func(c *Config) { c.Runtime.RotationPeriod = 0.5 }},
		{"compensation", func(c *Config) { c.Audio.VolumeCompensation = 5.1 }},
		{"speed", func(c *Config) { c.Effects.Rainbow.Speed = 0 }},
		{"brightness", func(c *Config) { c.Effects.Rainbow.Brightness = 256 }},
		{"port", func(c *Config) { c.Network.AudioPort = 70000 }},
		{"format", func(c *Config) { c.Network.AudioFormat = "artnet" }},
		{"display", func(c *Config) { c.Simulator.DisplayMode = "spiral" }},
		{"leds", func(c *Config) { c.Hardware.NumLEDs = 0 }},
		{"serial", func(c *Config) { c.Hardware.Output = OutputSerial }},
		{"unknown effect", func(c *Config) { c.Runtime.EffectsPlaylist = []string{"lasers"} }},
	}
	for _, tc := range tests {
		c := sample(t)
		tc.mut(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestApplyNested(t *testing.T) {
	c := sample(t)
	next, ch, err := c.Apply(map[string]any{
		"runtime": map[string]any{"effects_playlist": []any{"fire", "ripple"}},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !ch.Playlist || ch.RotationPeriod {
		t.Fatalf("Change = %+v", ch)
	}
	if !reflect.DeepEqual(next.Runtime.EffectsPlaylist, []string{"fire", "ripple"}) {
		t.Fatalf("playlist = %v", next.Runtime.EffectsPlaylist)
	}
	if next.Runtime.RotationPeriod != 2 || next.Hardware.NumLEDs != 60 {
		t.Fatal("untouched fields must survive")
	}
	if c.Runtime.EffectsPlaylist[0] != "off" {
		t.Fatal("Apply must not modify the receiver")
	}
}

func TestApplyDotPaths(t *testing.T) {
	c := sample(t)
	next, ch, err := c.Apply(map[string]any{
		"runtime.rotation_period":    float64(10),
		"effects.rainbow.brightness": float64(50),
		"audio":                      map[string]any{"auto_gain": true},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if next.Runtime.RotationPeriod != 10 || next.Effects.Rainbow.Brightness != 50 || !next.Audio.AutoGain {
		t.Fatalf("unexpected result: %+v", next)
	}
	if !ch.RotationPeriod || ch.Playlist {
		t.Fatalf("Change = %+v", ch)
	}
}

func TestApplyEnvelope(t *testing.T) {
	c := sample(t)
	next, _, err := c.Apply(map[string]any{
		"led_config": map[string]any{"simulator": map[string]any{"display_mode": "grid"}},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if next.Simulator.DisplayMode != "grid" {
		t.Fatalf("display_mode = %q", next.Simulator.DisplayMode)
	}
}

func TestApplyLegacyFlatKeys(t *testing.T) {
	c := sample(t)
	tests := []struct {
		name  string
		patch map[string]any
		check func(Config) bool
	}{
		{"num_leds", map[string]any{"num_leds": 30}, func(c Config) bool { return c.Hardware.NumLEDs == 30 }},
		{"pin", map[string]any{"pin": 12}, func(c Config) bool { return c.Hardware.Pin == 12 }},
		{"audio_port", map[string]any{"audio_port": 21324}, func(c Config) bool { return c.Network.AudioPort == 21324 }},
		{"audio_format", map[string]any{"audio_format": "wled"}, func(c Config) bool { return c.Network.AudioFormat == "wled" }},
		{"api_port", map[string]any{"api_port": 8080}, func(c Config) bool { return c.Network.APIPort == 8080 }},
		{"display_mode", map[string]any{"display_mode": "grid"}, func(c Config) bool { return c.Simulator.DisplayMode == "grid" }},
		{"rotation_period", map[string]any{"rotation_period": 7.0}, func(c Config) bool { return c.Runtime.RotationPeriod == 7 }},
		{"volume_compensation", map[string]any{"volume_compensation": 2.0}, func(c Config) bool { return c.Audio.VolumeCompensation == 2 }},
		{"auto_gain", map[string]any{"auto_gain": true}, func(c Config) bool { return c.Audio.AutoGain }},
		{"rainbow_speed", map[string]any{"rainbow_speed": 40}, func(c Config) bool { return c.Effects.Rainbow.Speed == 40 }},
		{"rainbow_brightness", map[string]any{"rainbow_brightness": 90}, func(c Config) bool { return c.Effects.Rainbow.Brightness == 90 }},
		{"rainbow section", map[string]any{"rainbow": map[string]any{"speed": 5}}, func(c Config) bool {
			return c.Effects.Rainbow.Speed == 5 && c.Effects.Rainbow.Brightness == 200
		}},
		{"rainbow dot path", map[string]any{"rainbow.brightness": 10}, func(c Config) bool { return c.Effects.Rainbow.Brightness == 10 }},
		{"rotation section", map[string]any{"rotation": map[string]any{"period": 4.0}}, func(c Config) bool { return c.Runtime.RotationPeriod == 4 }},
		{"flat beats section", map[string]any{"runtime": map[string]any{}, "rotation_period": 9.0}, func(c Config) bool {
			return c.Runtime.RotationPeriod == 9
		}},
	}
	for _, tc := range tests {
		next, _, err := c.Apply(tc.patch)
		if err != nil {
			t.Fatalf("%s: Apply: %v", tc.name, err)
		}
		if !tc.check(next) {
			t.Fatalf("%s: update not applied: %+v", tc.name, next)
		}
	}

	_, ch, err := c.Apply(map[string]any{"rotation_period": 3.0, "volume_compensation": 2.0})
	if err != nil || !ch.RotationPeriod {
		t.Fatalf("Change = %+v, err = %v", ch, err)
	}
	if _, _, err := c.Apply(map[string]any{"rotation_period": 0.1}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestLegacyEffect(t *testing.T) {
	tests := []struct {
		doc  map[string]any
		want string
	}{
		{map[string]any{"current_effect": "fire"}, "fire"},
		{map[string]any{"static_effect": "ripple", "audio": map[string]any{}}, "ripple"},
		{map[string]any{"led_config": map[string]any{"current_effect": "off"}}, "off"},
		{map[string]any{"current_effect": 3}, ""},
		{map[string]any{"runtime.rotation_period": 2}, ""},
	}
	for _, tc := range tests {
		if got := LegacyEffect(tc.doc); got != tc.want {
			t.Fatalf("LegacyEffect(%v) = %q, want %q", tc.doc, got, tc.want)
		}
	}
}

func TestApplyRejects(t *testing.T) {
	c := sample(t)
	tests := []struct {
		name  string
		patch map[string]any
		want  error
	}{
		{"no section", map[string]any{"brightness": 3}, ErrNoRecognizedKeys},
		{"empty playlist", map[string]any{"runtime": map[string]any{"effects_playlist": []any{}}}, ErrInvalid},
		{"unknown effect", map[string]any{"runtime.effects_playlist": []any{"lasers"}}, ErrInvalid},
		{"short rotation", map[string]any{"runtime.rotation_period": 0.2}, ErrInvalid},
		{"compensation", map[string]any{"audio.volume_compensation": 9.0}, ErrInvalid},
		{"speed", map[string]any{"effects.rainbow.speed": 101}, ErrInvalid},
		{"wrong type", map[string]any{"hardware.num_leds": "many"}, ErrInvalid},
		{"malformed key", map[string]any{"runtime..rotation_period": 3}, ErrInvalid},
	}
	for _, tc := range tests {
		next, _, err := c.Apply(tc.patch)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
		if !reflect.DeepEqual(next, c) {
			t.Fatalf("%s: rejected update changed the config", tc.name)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := sample(t)
	path := filepath.Join(t.TempDir(), "config.json")
	if err := Save(path, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, c) {
		t.Fatalf("Load(Save(c)) = %+v, want %+v", got, c)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not exist", err)
	}
}

func TestStoreUpdateIsAtomic(t *testing.T) {
	s := NewStore(sample(t))
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(func(c Config) (Config, error) {
				c.Effects.Rainbow.Speed = i + 1
				return c, nil
			})
		}()
	}
	wg.Wait()
	if v := s.Snapshot().Effects.Rainbow.Speed; v < 1 || v > 20 {
		t.Fatalf("speed = %d", v)
	}

	before := s.Snapshot()
	_, err := s.Update(func(c Config) (Config, error) {
		c.Hardware.NumLEDs = 1
		return c, errors.New("boom")
	})
	if err == nil || s.Snapshot() != before {
		t.Fatal("failed update must not publish")
	}
}

func TestSaverCoalescesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s := NewSaver(path, time.Hour, nil)
	c := sample(t)
	for v := 1.0; v <= 5; v += 0.5 {
		c.Audio.VolumeCompensation = v
		s.Save(c)
	}
	if s.Writes() != 0 {
		t.Fatalf("writes = %d before the delay", s.Writes())
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Audio.VolumeCompensation != 5 || s.Writes() != 1 {
		t.Fatalf("compensation = %v, writes = %d", got.Audio.VolumeCompensation, s.Writes())
	}
	if err := s.Flush(); err != nil || s.Writes() != 1 {
		t.Fatalf("empty flush wrote: %v, %d", err, s.Writes())
	}
}

func TestSaverWritesAfterDelay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s := NewSaver(path, 10*time.Millisecond, nil)
	s.Save(sample(t))
	deadline := time.Now().Add(2 * time.Second)
	for s.Writes() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("config was never written")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
}
