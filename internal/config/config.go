package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/audio"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/effect"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/playlist"
)

// Output sinks.
const (
	OutputSimulator = "simulator"
	OutputSerial    = "serial"
)

var displayModes = []string{"horizontal", "vertical", "grid"}

// Config is the full controller configuration.
type Config struct {
	Hardware  Hardware  `yaml:"hardware" json:"hardware"`
	Runtime   Runtime   `yaml:"runtime" json:"runtime"`
	Audio     Audio     `yaml:"audio" json:"audio"`
	Effects   Effects   `yaml:"effects" json:"effects"`
	Network   Network   `yaml:"network" json:"network"`
	Simulator Simulator `yaml:"simulator" json:"simulator"`
}

type Hardware struct {
	NumLEDs          int      `yaml:"num_leds" json:"num_leds"`
	Pin              int      `yaml:"pin" json:"pin"`
	SupportedEffects []string `yaml:"supported_effects" json:"supported_effects"`
	Output           string   `yaml:"output" json:"output"`
	SerialPort       string   `yaml:"serial_port" json:"serial_port"`
	SerialBaud       int      `yaml:"serial_baud" json:"serial_baud"`
	ColorOrder       string   `yaml:"color_order" json:"color_order"`
	MIDIInput        string   `yaml:"midi_input" json:"midi_input"`
}

type Runtime struct {
	EffectsPlaylist []string `yaml:"effects_playlist" json:"effects_playlist"`
	RotationPeriod  float64  `yaml:"rotation_period" json:"rotation_period"`
}

type Audio struct {
	VolumeCompensation float64 `yaml:"volume_compensation" json:"volume_compensation"`
	AutoGain           bool    `yaml:"auto_gain" json:"auto_gain"`
}

type Effects struct {
	Rainbow Rainbow `yaml:"rainbow" json:"rainbow"`
}

type Rainbow struct {
	Speed      int `yaml:"speed" json:"speed"` // milliseconds per frame
	Brightness int `yaml:"brightness" json:"brightness"`
}

type Network struct {
	AudioPort   int    `yaml:"audio_port" json:"audio_port"`
	AudioFormat string `yaml:"audio_format" json:"audio_format"`
	APIPort     int    `yaml:"api_port" json:"api_port"`
	MDNS        bool   `yaml:"mdns" json:"mdns"`
	MQTT        MQTT   `yaml:"mqtt" json:"mqtt"`
}

// MQTT configures the optional control channel. An empty broker disables it.
type MQTT struct {
	Broker        string `yaml:"broker" json:"broker"`
	ClientID      string `yaml:"client_id" json:"client_id"`
	ControlTopic  string `yaml:"control_topic" json:"control_topic"`
	ResponseTopic string `yaml:"response_topic" json:"response_topic"`
}

type Simulator struct {
	DisplayMode string `yaml:"display_mode" json:"display_mode"`
}

// Default returns the optional settings a config file may omit.
func Default() Config {
	return Config{
		Hardware: Hardware{
			Pin:        18,
			Output:     OutputSimulator,
			SerialBaud: 115200,
			ColorOrder: "grb",
		},
		Network: Network{
			APIPort: 5000,
			MQTT: MQTT{
				ControlTopic:  "glimmer/control",
				ResponseTopic: "glimmer/status",
			},
		},
		Simulator: Simulator{DisplayMode: "horizontal"},
	}
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	c.Hardware.SupportedEffects = slices.Clone(c.Hardware.SupportedEffects)
	c.Runtime.EffectsPlaylist = slices.Clone(c.Runtime.EffectsPlaylist)
	return c
}

// Supported returns the hardware effect set.
func (c Config) Supported() playlist.Playlist {
	p, _ := playlist.FromNames(c.Hardware.SupportedEffects)
	return p
}

// Playlist returns the configured playlist.
func (c Config) Playlist() playlist.Playlist {
	p, _ := playlist.FromNames(c.Runtime.EffectsPlaylist)
	return p
}

// EffectivePlaylist is the configured playlist restricted to supported effects.
func (c Config) EffectivePlaylist() playlist.Playlist {
	return c.Playlist().Intersect(c.Supported())
}

// RotationInterval returns the playlist rotation period.
func (c Config) RotationInterval() time.Duration {
	return time.Duration(c.Runtime.RotationPeriod * float64(time.Second))
}

// RainbowInterval returns the rainbow frame delay.
func (c Config) RainbowInterval() time.Duration {
	return time.Duration(c.Effects.Rainbow.Speed) * time.Millisecond
}

// VolumeFactor is the compensation applied to audio volume. Auto gain
// disables it.
func (c Config) VolumeFactor() float64 {
	if c.Audio.AutoGain {
		return 1
	}
	return c.Audio.VolumeCompensation
}

// AudioProtocol returns the configured telemetry protocol.
func (c Config) AudioProtocol() audio.Protocol {
	p, _ := audio.ParseProtocol(c.Network.AudioFormat)
	return p
}

// Validate reports every constraint violation.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Hardware.NumLEDs < 1 {
		bad("hardware.num_leds must be at least 1, got %d", c.Hardware.NumLEDs)
	}
	if c.Hardware.Pin < 0 {
		bad("hardware.pin must not be negative, got %d", c.Hardware.Pin)
	}
	if err := checkNames("hardware.supported_effects", c.Hardware.SupportedEffects); err != nil {
		errs = append(errs, err)
	}
	switch c.Hardware.Output {
	case OutputSimulator:
	case OutputSerial:
		if c.Hardware.SerialPort == "" {
			bad("hardware.serial_port is required for serial output")
		}
		if c.Hardware.SerialBaud <= 0 {
			bad("hardware.serial_baud must be positive, got %d", c.Hardware.SerialBaud)
		}
	default:
		bad("hardware.output must be %q or %q, got %q", OutputSimulator, OutputSerial, c.Hardware.Output)
	}
	if c.Hardware.ColorOrder != "rgb" && c.Hardware.ColorOrder != "grb" {
		bad("hardware.color_order must be rgb or grb, got %q", c.Hardware.ColorOrder)
	}

	if err := checkNames("runtime.effects_playlist", c.Runtime.EffectsPlaylist); err != nil {
		errs = append(errs, err)
	} else if c.EffectivePlaylist().Len() == 0 {
		bad("runtime.effects_playlist has no effect listed in hardware.supported_effects")
	}
	if c.Runtime.RotationPeriod < 1 {
		bad("runtime.rotation_period must be at least 1.0, got %v", c.Runtime.RotationPeriod)
	}

	if v := c.Audio.VolumeCompensation; v < 0.1 || v > 5 {
		bad("audio.volume_compensation must be within [0.1, 5.0], got %v", v)
	}
	if v := c.Effects.Rainbow.Speed; v < 1 || v > 100 {
		bad("effects.rainbow.speed must be within [1, 100], got %d", v)
	}
	if v := c.Effects.Rainbow.Brightness; v < 0 || v > 255 {
		bad("effects.rainbow.brightness must be within [0, 255], got %d", v)
	}

	if !validPort(c.Network.AudioPort) {
		bad("network.audio_port must be within [1, 65535], got %d", c.Network.AudioPort)
	}
	if !validPort(c.Network.APIPort) {
		bad("network.api_port must be within [1, 65535], got %d", c.Network.APIPort)
	}
	if _, err := audio.ParseProtocol(c.Network.AudioFormat); err != nil || c.Network.AudioFormat == "" {
		bad("network.audio_format must be auto, wled or eqstreamer, got %q", c.Network.AudioFormat)
	}
	if c.Network.MQTT.Broker != "" && c.Network.MQTT.ControlTopic == "" {
		bad("network.mqtt.control_topic is required when a broker is set")
	}

	if !slices.Contains(displayModes, c.Simulator.DisplayMode) {
		bad("simulator.display_mode must be one of %v, got %q", displayModes, c.Simulator.DisplayMode)
	}
	return errors.Join(errs...)
}

func checkNames(field string, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("%s must not be empty", field)
	}
	for _, name := range names {
		if _, err := effect.Parse(name); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	return nil
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}
