package discovery

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/pion/mdns"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"
)

// Advertiser answers mDNS queries for the host's local name so peers can
// reach it as e.g. turbotransfer.local.
type Advertiser struct {
	name   string
	ip     net.IP
	logger *zap.Logger

	mu   sync.Mutex
	conn *mdns.Conn
}

func NewAdvertiser(name, ip string, logger *zap.Logger) (*Advertiser, error) {
	parsed := net.ParseIP(ip).To4()
	if parsed == nil {
		return nil, fmt.Errorf("Discovery: %q is not an IPv4 address", ip)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advertiser{name: LocalName(name), ip: parsed, logger: logger}, nil
}

// LocalName normalizes name into a ".local" host name without the trailing dot.
func LocalName(name string) string {
	name = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(name)), ".")
	if name == "" {
		name = "turbotransfer"
	}
	if !strings.HasSuffix(name, ".local") {
		name += ".local"
	}
	return name
}

func (a *Advertiser) Name() string { return a.name }

// Start joins the mDNS multicast group and begins answering.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp4", mdns.DefaultAddress)
	if err != nil {
		return fmt.Errorf("Discovery: resolve multicast address: %w", err)
	}
	l, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("Discovery: listen: %w", err)
	}

	conn, err := mdns.Server(ipv4.NewPacketConn(l), &mdns.Config{
		LocalNames:   []string{a.name},
		LocalAddress: a.ip,
	})
	if err != nil {
		l.Close()
		return fmt.Errorf("Discovery: start responder: %w", err)
	}
	a.conn = conn
	a.logger.Info("Discovery: advertising", zap.String("name", a.name), zap.String("ip", a.ip.String()))
	return nil
}

func (a *Advertiser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("Discovery: close: %w", err)
	}
	a.logger.Info("Discovery: stopped")
	return nil
}
