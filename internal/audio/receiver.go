package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync/atomic"
	"time"
)

const (
	maxDatagram = 2048

	// DefaultPollTimeout bounds how long Receive blocks on the socket.
	DefaultPollTimeout = 100 * time.Millisecond
	// DefaultActiveTimeout is how long a receiver stays active after the
	// last accepted frame.
	DefaultActiveTimeout = 3 * time.Second
)

// Receiver reads telemetry datagrams from a UDP socket and tracks liveness.
// Receive must be called from a single goroutine; the liveness accessors
// are safe from any goroutine.
type Receiver struct {
	conn        net.PacketConn
	proto       Protocol
	pollTimeout time.Duration
	log         *slog.Logger
	now         func() time.Time

	buf [maxDatagram]byte

	lastAccepted atomic.Int64 // unix nanos, 0 if never
	accepted     atomic.Uint64
}

// Listen opens a UDP socket on port and wraps it in a Receiver.
func Listen(port int, proto Protocol, log *slog.Logger) (*Receiver, error) {
	conn, err := net.ListenPacket("udp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen udp %d: %w", port, err)
	}
	r := NewReceiver(conn, proto, log)
	r.log.Info("audio receiver listening", "port", port, "protocol", proto.String())
	return r, nil
}

// NewReceiver wraps an existing packet connection.
func NewReceiver(conn net.PacketConn, proto Protocol, log *slog.Logger) *Receiver {
	if log == nil {
		log = slog.Default()
	}
	return &Receiver{
		conn:        conn,
		proto:       proto,
		pollTimeout: DefaultPollTimeout,
		log:         log.With("component", "audio"),
		now:         time.Now,
	}
}

// Receive waits up to the poll timeout for one datagram. It reports false
// on timeout, socket error or an undecodable packet.
func (r *Receiver) Receive() (Frame, bool) {
	if err := r.conn.SetReadDeadline(r.now().Add(r.pollTimeout)); err != nil {
		r.log.Warn("set read deadline", "err", err)
	}
	n, _, err := r.conn.ReadFrom(r.buf[:])
	if err != nil {
		if !errors.Is(err, os.ErrDeadlineExceeded) && !errors.Is(err, net.ErrClosed) {
			r.log.Warn("udp receive error", "err", err)
		}
		return Frame{}, false
	}
	f, ok := Decode(r.buf[:n], r.proto)
	if !ok {
		r.log.Debug("dropped datagram", "len", n)
		return Frame{}, false
	}
	r.accepted.Add(1)
	r.lastAccepted.Store(r.now().UnixNano())
	return f, true
}

// PacketCount returns the number of accepted frames.
func (r *Receiver) PacketCount() uint64 {
	return r.accepted.Load()
}

// LastPacket returns when the last frame was accepted, or the zero time.
func (r *Receiver) LastPacket() time.Time {
	ns := r.lastAccepted.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// IsActive reports whether a frame was accepted within DefaultActiveTimeout.
func (r *Receiver) IsActive() bool {
	return r.ActiveWithin(DefaultActiveTimeout)
}

// ActiveWithin reports whether a frame was accepted less than timeout ago.
func (r *Receiver) ActiveWithin(timeout time.Duration) bool {
	ns := r.lastAccepted.Load()
	if ns == 0 {
		return false
	}
	return r.now().Sub(time.Unix(0, ns)) < timeout
}

// LocalAddr returns the bound socket address.
func (r *Receiver) LocalAddr() net.Addr {
	return r.conn.LocalAddr()
}

// Close closes the socket.
func (r *Receiver) Close() error {
	return r.conn.Close()
}
