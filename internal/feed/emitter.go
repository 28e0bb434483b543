package feed

import (
	"fmt"
	"net"
	"strings"
	"sync/atomic"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/audio"
)

// Format is the datagram format sent to the controller.
type Format uint8

const (
	FormatWLEDv2 Format = iota
	FormatWLEDv1
	FormatEQStreamer
)

// eqVersion is the version byte written into EQ-Streamer packets.
const eqVersion = 1

func (f Format) String() string {
	switch f {
	case FormatWLEDv1:
		return "wled1"
	case FormatEQStreamer:
		return "eq"
	default:
		return "wled2"
	}
}

// ParseFormat accepts eq, wled1 and wled2.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wled2", "wled":
		return FormatWLEDv2, nil
	case "wled1":
		return FormatWLEDv1, nil
	case "eq", "eqstreamer":
		return FormatEQStreamer, nil
	}
	return FormatWLEDv2, fmt.Errorf("unknown format %q (want eq, wled1 or wled2)", s)
}

// Encode builds the datagram for one analysis.
func Encode(f Format, a Analysis) []byte {
	switch f {
	case FormatEQStreamer:
		return audio.EncodeEQStreamer(eqVersion, a.Raw)
	case FormatWLEDv1:
		return audio.EncodeWLEDv1(a.Frame)
	default:
		return audio.EncodeWLEDv2(a.Frame)
	}
}

// Emitter sends analyses to one UDP address.
type Emitter struct {
	conn   net.Conn
	format Format
	sent   atomic.Uint64
}

// Dial connects to addr (host:port).
func Dial(addr string, f Format) (*Emitter, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Emitter{conn: conn, format: f}, nil
}

// Send writes one datagram.
func (e *Emitter) Send(a Analysis) error {
	if _, err := e.conn.Write(Encode(e.format, a)); err != nil {
		return err
	}
	e.sent.Add(1)
	return nil
}

// Sent returns the number of datagrams written.
func (e *Emitter) Sent() uint64 {
	return e.sent.Load()
}

// RemoteAddr is the destination address.
func (e *Emitter) RemoteAddr() net.Addr {
	return e.conn.RemoteAddr()
}

func (e *Emitter) Close() error {
	return e.conn.Close()
}
