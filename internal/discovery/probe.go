package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jimm98y/EgonAPI/internal/logging"
)

const (
	// DefaultTargetPort is the UDP port the web module listens on for probes
	DefaultTargetPort = 2007

	// DefaultLocalPort is the port replies are received on
	DefaultLocalPort = DefaultTargetPort + 1

	// DefaultTimeout is how long to wait for a reply
	DefaultTimeout = 10 * time.Second

	// DefaultBroadcastAddress is used when nothing else is configured
	DefaultBroadcastAddress = "192.168.1.255"

	maxDatagramSize = 1500
)

// Prober sends one discovery probe and waits for a reply.
type Prober interface {
	Probe(ctx context.Context, broadcastAddr string) (*Descriptor, error)
}

// UDPProber performs discovery over a real UDP socket
type UDPProber struct {
	// TargetPort is the port the probe is sent to (default 2007)
	TargetPort int

	// LocalPort is the port the socket binds to. 0 picks an ephemeral port.
	LocalPort int

	// Timeout bounds the wait for a valid reply (default 10s)
	Timeout time.Duration
}

// NewUDPProber creates a prober with default ports and timeout
func NewUDPProber() *UDPProber {
	return &UDPProber{
		TargetPort: DefaultTargetPort,
		LocalPort:  DefaultLocalPort,
		Timeout:    DefaultTimeout,
	}
}

// Probe broadcasts the probe message and returns the first well-formed
// reply. Echoes of the probe and malformed replies are skipped. When the
// timeout elapses without a valid reply, Probe returns (nil, nil).
func (p *UDPProber) Probe(ctx context.Context, broadcastAddr string) (*Descriptor, error) {
	target, err := netip.ParseAddr(broadcastAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid broadcast address %q: %w", broadcastAddr, err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: p.LocalPort})
	if err != nil {
		return nil, fmt.Errorf("failed to bind discovery socket on port %d: %w", p.LocalPort, err)
	}
	defer func() { _ = conn.Close() }()

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("failed to set discovery deadline: %w", err)
	}

	// Cancellation unblocks the pending read by moving the deadline
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	dst := net.UDPAddrFromAddrPort(netip.AddrPortFrom(target.Unmap(), uint16(p.TargetPort)))
	probe := []byte(ProbeMessage)
	if _, err := conn.WriteToUDP(probe, dst); err != nil {
		return nil, fmt.Errorf("failed to send discovery probe to %s: %w", dst, err)
	}
	logging.LogDiscoveryPacket(dst.String(), "sent", probe)

	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				logging.Info("No module answered discovery probe",
					zap.String("broadcast", broadcastAddr),
					zap.Duration("timeout", timeout),
				)
				return nil, nil
			}
			return nil, fmt.Errorf("discovery receive failed: %w", err)
		}

		msg := string(buf[:n])
		logging.LogDiscoveryPacket(from.String(), "received", buf[:n])

		if msg == ProbeMessage {
			continue
		}

		desc, err := ParseReply(msg)
		if err != nil {
			logging.Debug("Discarding discovery reply",
				zap.String("remote_addr", from.String()),
				zap.Error(err),
			)
			continue
		}

		logging.Info("Module discovered",
			zap.String("ip", desc.IPAddr),
			zap.String("mac", desc.MAC),
			zap.String("version", desc.Version),
		)
		return desc, nil
	}
}
