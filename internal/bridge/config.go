package bridge

import (
	"fmt"
	"time"
)

const (
	// DefaultPort is the HTTP/WebSocket port of the bridge
	DefaultPort = 8472

	// DefaultPollInterval is how often the module state is polled
	DefaultPollInterval = 2 * time.Second

	// DefaultNATSSubject is the subject prefix; the module MAC is appended
	DefaultNATSSubject = "egon.state"

	// DefaultSendBuffer is the per-client outbound queue length
	DefaultSendBuffer = 32
)

// Config holds the bridge configuration
type Config struct {
	Host         string
	Port         int
	PollInterval time.Duration
	Advertise    bool   // Register the bridge over mDNS
	NATSURL      string // Publish state events to NATS when set
	NATSSubject  string
	SendBuffer   int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.NATSSubject == "" {
		c.NATSSubject = DefaultNATSSubject
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = DefaultSendBuffer
	}
	return c
}

// Addr returns the listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
