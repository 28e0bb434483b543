package audio

import (
	"net"
	"testing"
	"time"
)

func newLoopback(t *testing.T) (*Receiver, net.Conn) {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	r := NewReceiver(conn, ProtocolAuto, nil)
	r.pollTimeout = time.Second
	t.Cleanup(func() { r.Close() })

	out, err := net.Dial("udp", conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { out.Close() })
	return r, out
}

func TestReceiverAcceptsFrame(t *testing.T) {
	r, out := newLoopback(t)
	if r.IsActive() {
		t.Fatal("receiver should start inactive")
	}
	if _, err := out.Write(eqPacket(func(int) uint8 { return 200 })); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, ok := r.Receive()
	if !ok {
		t.Fatal("expected frame")
	}
	if f.Volume() != 200 {
		t.Fatalf("Volume() = %d, want 200", f.Volume())
	}
	if r.PacketCount() != 1 {
		t.Fatalf("PacketCount() = %d, want 1", r.PacketCount())
	}
	if !r.IsActive() {
		t.Fatal("expected active right after acceptance")
	}
}

func TestReceiverDropsMalformedWithoutCounting(t *testing.T) {
	r, out := newLoopback(t)
	if _, err := out.Write([]byte("nope")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := r.Receive(); ok {
		t.Fatal("expected no frame")
	}
	if r.PacketCount() != 0 || r.IsActive() {
		t.Fatal("malformed packet must not touch liveness")
	}
}

func TestReceiverTimeout(t *testing.T) {
	r, _ := newLoopback(t)
	r.pollTimeout = 20 * time.Millisecond
	if _, ok := r.Receive(); ok {
		t.Fatal("expected timeout without data")
	}
}

func TestReceiverActiveWindow(t *testing.T) {
	r, _ := newLoopback(t)
	now := time.Unix(1000, 0)
	r.now = func() time.Time { return now }
	r.lastAccepted.Store(now.UnixNano())

	now = now.Add(2999 * time.Millisecond)
	if !r.IsActive() {
		t.Fatal("expected active before 3s")
	}
	now = now.Add(time.Millisecond)
	if r.IsActive() {
		t.Fatal("expected inactive at 3s")
	}
}
