package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestFromEntry(t *testing.T) {
	e := &mdns.ServiceEntry{
		Name:       "strip._glimmer._tcp.local.",
		AddrV4:     net.IPv4(192, 168, 1, 20),
		Port:       5000,
		InfoFields: []string{"path=/api", "audio_port=31337"},
	}
	c, ok := fromEntry(e)
	if !ok {
		t.Fatal("entry rejected")
	}
	if c.APIPort != 5000 || c.AudioAddr() != "192.168.1.20:31337" {
		t.Fatalf("controller = %+v, audio addr %s", c, c.AudioAddr())
	}
}

func TestFromEntryNeedsAudioPort(t *testing.T) {
	e := &mdns.ServiceEntry{AddrV4: net.IPv4(10, 0, 0, 1), Port: 5000}
	if _, ok := fromEntry(e); ok {
		t.Fatal("entry without audio_port should be skipped")
	}
	if _, ok := fromEntry(nil); ok {
		t.Fatal("nil entry accepted")
	}
}
