package audio

import (
	"fmt"
	"strings"
)

// NumBands is the number of frequency bands carried by every Frame.
const NumBands = 16

// Source identifies the wire format a Frame was decoded from.
type Source uint8

const (
	SourceUnknown Source = iota
	SourceEQStreamer
	SourceWLEDv1
	SourceWLEDv2
)

func (s Source) String() string {
	switch s {
	case SourceEQStreamer:
		return "eqstreamer"
	case SourceWLEDv1:
		return "wled_v1"
	case SourceWLEDv2:
		return "wled_v2"
	default:
		return "unknown"
	}
}

// Frame is one decoded audio telemetry record.
type Frame struct {
	Source  Source
	Version uint8 // EQ-Streamer protocol version byte
	Bands   [NumBands]uint8

	SampleRaw    float64
	SampleAGC    float64
	SampleAvg    float64
	SamplePeak   uint8
	FFTMagnitude float64
	FFTMajorPeak float64
	MultAGC      float64
}

// Beat reports whether the source flagged a beat in this frame.
func (f Frame) Beat() bool {
	return f.SamplePeak > 0
}

// Volume returns the AGC volume truncated to 0-255.
func (f Frame) Volume() int {
	return clampByte(int(f.SampleAGC))
}

// Compensated returns a copy of f with its AGC volume scaled by factor and
// clamped to 0-255.
func (f Frame) Compensated(factor float64) Frame {
	v := float64(int(f.SampleAGC)) * factor
	f.SampleAGC = float64(clampByte(int(v)))
	return f
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// Protocol selects how incoming datagrams are parsed.
type Protocol uint8

const (
	ProtocolAuto Protocol = iota
	ProtocolWLED
	ProtocolEQStreamer
)

func (p Protocol) String() string {
	switch p {
	case ProtocolWLED:
		return "wled"
	case ProtocolEQStreamer:
		return "eqstreamer"
	default:
		return "auto"
	}
}

// ParseProtocol parses a configured audio format name.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ProtocolAuto, nil
	case "wled":
		return ProtocolWLED, nil
	case "eqstreamer":
		return ProtocolEQStreamer, nil
	default:
		return ProtocolAuto, fmt.Errorf("unknown audio format %q", s)
	}
}
