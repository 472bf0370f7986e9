package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/jimm98y/EgonAPI/internal/logging"
	"github.com/jimm98y/EgonAPI/internal/version"
)

// Publisher receives every state event the bridge produces
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NATSPublisher publishes events as JSON to "<subject>.<mac>"
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// ConnectNATS dials natsURL and returns a publisher for subject
func ConnectNATS(natsURL, subject string, extraOpts ...nats.Option) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("egon-bridge/" + version.Version),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logging.Warn("NATS error", zap.Error(err))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logging.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	opts = append(opts, extraOpts...)

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logging.Info("Connected to NATS",
		zap.String("url", nc.ConnectedUrl()),
		zap.String("subject", subject),
	)
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

// Publish sends ev to the module's subject
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	subject := eventSubject(p.subject, ev.Module)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}

// eventSubject appends the module MAC as one subject token. Colons are
// dropped so the token reads the same as the mDNS instance name.
func eventSubject(prefix, mac string) string {
	token := strings.ToLower(strings.ReplaceAll(mac, ":", ""))
	if token == "" {
		token = "unknown"
	}
	return prefix + "." + token
}
