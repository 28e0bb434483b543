// Package discovery advertises the controller on the local network and
// lets audio feeders find it.
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service a controller advertises.
const ServiceType = "_glimmer._tcp"

// Config describes what to advertise.
type Config struct {
	Instance  string
	APIPort   int
	AudioPort int
	ID        string
}

// Advertiser answers mDNS queries until Shutdown.
type Advertiser struct {
	server *mdns.Server
}

// Advertise starts answering for cfg on every non-loopback IPv4 address.
func Advertise(cfg Config, log *slog.Logger) (*Advertiser, error) {
	if log == nil {
		log = slog.Default()
	}
	ips, err := localIPs()
	if err != nil {
		return nil, fmt.Errorf("list local addresses: %w", err)
	}
	txt := []string{
		"path=/api",
		"audio_port=" + strconv.Itoa(cfg.AudioPort),
	}
	if cfg.ID != "" {
		txt = append(txt, "id="+cfg.ID)
	}
	service, err := mdns.NewMDNSService(cfg.Instance, ServiceType, "", "", cfg.APIPort, ips, txt)
	if err != nil {
		return nil, fmt.Errorf("create mdns service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("start mdns server: %w", err)
	}
	log.Info("advertising mdns service", "component", "discovery",
		"instance", cfg.Instance, "type", ServiceType, "port", cfg.APIPort)
	return &Advertiser{server: server}, nil
}

// Shutdown stops answering queries.
func (a *Advertiser) Shutdown() error {
	return a.server.Shutdown()
}

// Controller is one controller found on the network.
type Controller struct {
	Name      string
	Host      net.IP
	APIPort   int
	AudioPort int
}

// AudioAddr is the host:port audio telemetry should be sent to.
func (c Controller) AudioAddr() string {
	return net.JoinHostPort(c.Host.String(), strconv.Itoa(c.AudioPort))
}

// Browse queries the network once and returns the controllers that
// answered within timeout.
func Browse(timeout time.Duration) ([]Controller, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	var found []Controller
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if c, ok := fromEntry(e); ok {
				found = append(found, c)
			}
		}
	}()

	err := mdns.Query(&mdns.QueryParam{
		Service: ServiceType,
		Domain:  "local",
		Timeout: timeout,
		Entries: entries,
	})
	close(entries)
	<-done
	if err != nil {
		return nil, fmt.Errorf("mdns query: %w", err)
	}
	return found, nil
}

func fromEntry(e *mdns.ServiceEntry) (Controller, bool) {
	if e == nil || e.AddrV4 == nil {
		return Controller{}, false
	}
	c := Controller{Name: e.Name, Host: e.AddrV4, APIPort: e.Port}
	for _, field := range e.InfoFields {
		if v, ok := strings.CutPrefix(field, "audio_port="); ok {
			c.AudioPort, _ = strconv.Atoi(v)
		}
	}
	return c, c.AudioPort > 0
}

func localIPs() ([]net.IP, error) {
	var ips []net.IP
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil && !ipnet.IP.IsLoopback() {
				ips = append(ips, ipnet.IP)
			}
		}
	}
	return ips, nil
}
