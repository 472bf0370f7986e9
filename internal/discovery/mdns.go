package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// BridgeServiceType is the mDNS service type advertised by egon bridges
	BridgeServiceType = "_egon-bridge._tcp"

	// BridgeServiceDomain is the mDNS domain
	BridgeServiceDomain = "local."

	// TXT record keys published by a bridge
	TXTMac      = "mac"
	TXTModule   = "module"
	TXTVersion  = "version"
	TXTFirmware = "firmware"
)

// Bridge is a running egon bridge found over mDNS
type Bridge struct {
	// Instance is the mDNS instance name (e.g. "egon-001EC0112233")
	Instance string

	// Hostname is the advertising host (e.g. "pi.local.")
	Hostname string

	// IP is the bridge's IPv4 address, IPv6 when no IPv4 is advertised
	IP string

	// Port is the bridge HTTP/WebSocket port
	Port int

	// MAC of the web module the bridge is polling
	MAC string

	// ModuleIP is the web module address the bridge talks to
	ModuleIP string

	// Metadata holds all TXT record entries
	Metadata map[string]string

	// DiscoveredAt is when the bridge was seen
	DiscoveredAt time.Time
}

// String returns a human-readable representation of the bridge
func (b *Bridge) String() string {
	return fmt.Sprintf("Egon bridge %s at %s:%d (module %s)", b.Instance, b.IP, b.Port, b.ModuleIP)
}

// WebSocketURL returns the URL of the bridge's state stream
func (b *Bridge) WebSocketURL() string {
	return fmt.Sprintf("ws://%s/ws", joinHostPort(b.IP, b.Port))
}

// BridgeTXT builds the TXT records a bridge advertises
func BridgeTXT(desc *Descriptor, bridgeVersion string) []string {
	txt := []string{
		TXTModule + "=" + desc.IPAddr,
		TXTVersion + "=" + bridgeVersion,
	}
	if desc.MAC != "" {
		txt = append(txt, TXTMac+"="+desc.MAC)
	}
	if desc.Version != "" {
		txt = append(txt, TXTFirmware+"="+desc.Version)
	}
	return txt
}

// BridgeInstanceName derives a stable mDNS instance name from the module
func BridgeInstanceName(desc *Descriptor) string {
	id := strings.ReplaceAll(desc.MAC, ":", "")
	if id == "" {
		id = strings.ReplaceAll(desc.IPAddr, ".", "-")
	}
	return "egon-" + strings.ToUpper(id)
}

// BridgeScanner browses mDNS for egon bridges
type BridgeScanner struct {
	// Timeout is the maximum time to browse
	Timeout time.Duration
}

// NewBridgeScanner creates a scanner with a 3-second browse window
func NewBridgeScanner() *BridgeScanner {
	return &BridgeScanner{Timeout: 3 * time.Second}
}

// Scan browses for bridges until the timeout or ctx expires
func (s *BridgeScanner) Scan(ctx context.Context) ([]*Bridge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu      sync.Mutex
		bridges = make([]*Bridge, 0)
		done    = make(chan struct{})
	)

	go func() {
		defer close(done)
		for entry := range entries {
			if b := parseBridgeEntry(entry); b != nil {
				mu.Lock()
				bridges = append(bridges, b)
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, BridgeServiceType, BridgeServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// The resolver closes entries once the browse context ends
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return bridges, nil
}

// parseBridgeEntry converts a zeroconf entry to a Bridge.
// Returns nil when the entry carries no usable address.
func parseBridgeEntry(entry *zeroconf.ServiceEntry) *Bridge {
	if entry == nil {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port == 0 {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	return &Bridge{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		MAC:          metadata[TXTMac],
		ModuleIP:     metadata[TXTModule],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

func joinHostPort(host string, port int) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]:" + strconv.Itoa(port)
	}
	return host + ":" + strconv.Itoa(port)
}
