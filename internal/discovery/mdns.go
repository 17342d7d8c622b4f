// ABOUTME: mDNS discovery of the HCI controller bridge
// ABOUTME: Browses for bridges when no controller address is configured
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// DefaultService is the service type controller bridges advertise
const DefaultService = "_hci-bridge._tcp"

// Config holds discovery configuration
type Config struct {
	Service string
	// Timeout bounds one browse round
	Timeout time.Duration
}

// Manager handles mDNS browsing
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	bridges chan *BridgeInfo
}

// BridgeInfo describes a discovered controller bridge
type BridgeInfo struct {
	Name string
	Host string
	Port int
	Path string
}

// Addr returns host:port for dialing
func (b *BridgeInfo) Addr() string {
	return net.JoinHostPort(b.Host, fmt.Sprint(b.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Service == "" {
		config.Service = DefaultService
	}
	if config.Timeout == 0 {
		config.Timeout = 3 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		bridges: make(chan *BridgeInfo, 10),
	}
}

// Browse searches for controller bridges until stopped
func (m *Manager) Browse() error {
	go m.browseLoop()
	return nil
}

// browseLoop continuously browses for bridges
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)

		go func() {
			for entry := range entries {
				bridge, ok := bridgeFromEntry(entry)
				if !ok {
					continue
				}

				log.Printf("Discovered controller bridge: %s at %s", bridge.Name, bridge.Addr())

				select {
				case m.bridges <- bridge:
				case <-m.ctx.Done():
					return
				}
			}
		}()

		params := &mdns.QueryParam{
			Service: m.config.Service,
			Domain:  "local",
			Timeout: m.config.Timeout,
			Entries: entries,
		}

		if err := mdns.Query(params); err != nil {
			log.Printf("mDNS query failed: %v", err)
		}
		close(entries)
	}
}

// Bridges returns the channel of discovered bridges
func (m *Manager) Bridges() <-chan *BridgeInfo {
	return m.bridges
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}

// Find browses until the first bridge shows up or ctx ends
func (m *Manager) Find(ctx context.Context) (*BridgeInfo, error) {
	if err := m.Browse(); err != nil {
		return nil, err
	}
	defer m.Stop()

	select {
	case bridge := <-m.bridges:
		return bridge, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no controller bridge found: %w", ctx.Err())
	}
}

// bridgeFromEntry converts a service entry; entries without an IPv4
// address are skipped
func bridgeFromEntry(entry *mdns.ServiceEntry) (*BridgeInfo, bool) {
	if entry == nil || entry.AddrV4 == nil || entry.Port == 0 {
		return nil, false
	}

	bridge := &BridgeInfo{
		Name: entry.Name,
		Host: entry.AddrV4.String(),
		Port: entry.Port,
	}
	for _, field := range entry.InfoFields {
		if path, ok := strings.CutPrefix(field, "path="); ok {
			bridge.Path = path
		}
	}
	return bridge, true
}
