package discovery

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

const (
	// ProbeMessage is the ASCII payload broadcast to find web modules
	ProbeMessage = "EGO-N?"

	// replyPrefix starts every genuine module reply
	replyPrefix = "EGO-N,"

	// minReplyPairs is the minimum number of KEY=VALUE pairs in a reply
	minReplyPairs = 7
)

// Reply keys that must be present in a module reply
const (
	KeyMAC     = "MAC"
	KeyPort    = "PORT"
	KeyIPAddr  = "IPADDR"
	KeyMask    = "MASK"
	KeyGateway = "GATEWAY"
	KeyDNS1    = "DNS1"
	KeyVersion = "VERSION"
)

var requiredKeys = []string{KeyMAC, KeyPort, KeyIPAddr, KeyMask, KeyGateway, KeyDNS1, KeyVersion}

// ErrMalformedReply is wrapped by every ParseReply failure
var ErrMalformedReply = errors.New("malformed discovery reply")

// Descriptor identifies a discovered web module. It is only ever built by
// ParseReply and is read-only afterwards.
type Descriptor struct {
	MAC     string
	Port    string
	IPAddr  string
	Mask    string
	Gateway string
	DNS1    string
	Version string

	// IP is IPAddr parsed
	IP netip.Addr
}

// NewDescriptor builds a descriptor for a module whose address is already
// known (e.g. passed on the command line), skipping discovery.
func NewDescriptor(ipAddr string) (*Descriptor, error) {
	ip, err := netip.ParseAddr(strings.TrimSpace(ipAddr))
	if err != nil {
		return nil, fmt.Errorf("invalid module address %q: %w", ipAddr, err)
	}
	return &Descriptor{IPAddr: ip.String(), IP: ip}, nil
}

// String returns a human-readable representation of the module
func (d *Descriptor) String() string {
	if d.MAC == "" {
		return fmt.Sprintf("Egon module at %s", d.IPAddr)
	}
	return fmt.Sprintf("Egon module %s at %s (firmware %s)", d.MAC, d.IPAddr, d.Version)
}

// ParseReply parses a discovery reply into a Descriptor.
//
// The reply must start with "EGO-N," followed by at least seven KEY=VALUE
// pairs including MAC, PORT, IPADDR, MASK, GATEWAY, DNS1 and VERSION, and
// IPADDR must be a valid address. Keys are case sensitive.
func ParseReply(msg string) (*Descriptor, error) {
	msg = strings.TrimRight(msg, "\x00\r\n ")

	if !strings.HasPrefix(msg, replyPrefix) {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrMalformedReply, replyPrefix)
	}

	pairs := make(map[string]string)
	for _, field := range strings.Split(msg[len(replyPrefix):], ",") {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		pairs[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if len(pairs) < minReplyPairs {
		return nil, fmt.Errorf("%w: %d key/value pairs, need at least %d", ErrMalformedReply, len(pairs), minReplyPairs)
	}

	for _, key := range requiredKeys {
		if _, ok := pairs[key]; !ok {
			return nil, fmt.Errorf("%w: missing key %s", ErrMalformedReply, key)
		}
	}

	ip, err := netip.ParseAddr(pairs[KeyIPAddr])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid IPADDR %q", ErrMalformedReply, pairs[KeyIPAddr])
	}

	return &Descriptor{
		MAC:     pairs[KeyMAC],
		Port:    pairs[KeyPort],
		IPAddr:  ip.String(),
		Mask:    pairs[KeyMask],
		Gateway: pairs[KeyGateway],
		DNS1:    pairs[KeyDNS1],
		Version: pairs[KeyVersion],
		IP:      ip,
	}, nil
}
