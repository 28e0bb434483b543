package sink

import (
	"fmt"
	"io"
	"log/slog"

	"go.bug.st/serial"
)

const adalightHeaderLen = 6

// Adalight streams frames in the Adalight serial protocol understood by
// common microcontroller LED bridges: "Ada", count-1 as big endian u16,
// a checksum byte, then three bytes per pixel.
type Adalight struct {
	w     io.Writer
	order ColorOrder
	n     int
	frame []byte
	log   *slog.Logger
}

// NewAdalight writes frames for n pixels to w.
func NewAdalight(w io.Writer, n int, order ColorOrder) *Adalight {
	frame := make([]byte, adalightHeaderLen+3*n)
	hi, lo := byte((n-1)>>8), byte(n-1)
	copy(frame, "Ada")
	frame[3], frame[4], frame[5] = hi, lo, hi^lo^0x55
	return &Adalight{w: w, order: order, n: n, frame: frame}
}

// OpenSerial opens a serial device and wraps it in an Adalight sink.
func OpenSerial(name string, baud, n int, order ColorOrder, log *slog.Logger) (*Adalight, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	return serialSink(p, name, baud, n, order, log), nil
}

func serialSink(w io.Writer, name string, baud, n int, order ColorOrder, log *slog.Logger) *Adalight {
	if log == nil {
		log = slog.Default()
	}
	a := NewAdalight(w, n, order)
	a.log = log.With("component", "serial", "device", name)
	a.log.Info("port opened", "baud", baud, "pixels", n)
	return a
}

func (a *Adalight) SetPixel(i int, r, g, b uint8) {
	if i < 0 || i >= a.n {
		return
	}
	off := adalightHeaderLen + 3*i
	a.order.put(a.frame[off:off+3], r, g, b)
}

func (a *Adalight) Show() error {
	if _, err := a.w.Write(a.frame); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

func (a *Adalight) NumPixels() int { return a.n }

// Close closes the underlying device if it can be closed.
func (a *Adalight) Close() error {
	c, ok := a.w.(io.Closer)
	if !ok {
		return nil
	}
	err := c.Close()
	if a.log != nil {
		a.log.Info("port closed", "err", err)
	}
	return err
}
