package discovery

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Coordinator serializes discoveries. Replies land on one receive port and
// cannot be attributed to a particular caller, so at most one probe may be
// in flight at a time.
type Coordinator struct {
	permit *semaphore.Weighted
}

var (
	defaultCoordinator     *Coordinator
	defaultCoordinatorOnce sync.Once
)

// NewCoordinator creates an independent coordinator. Most callers want
// Default instead; independent coordinators only make sense when they use
// distinct receive ports.
func NewCoordinator() *Coordinator {
	return &Coordinator{permit: semaphore.NewWeighted(1)}
}

// Default returns the process-wide coordinator, creating it on first use.
func Default() *Coordinator {
	defaultCoordinatorOnce.Do(func() {
		defaultCoordinator = NewCoordinator()
	})
	return defaultCoordinator
}

// Discover runs p while holding the coordinator's only permit. Waiting for
// the permit honors ctx.
func (c *Coordinator) Discover(ctx context.Context, p Prober, broadcastAddr string) (*Descriptor, error) {
	if err := c.permit.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.permit.Release(1)

	return p.Probe(ctx, broadcastAddr)
}

// Discover probes broadcastAddr with the default ports through the
// process-wide coordinator. A nil descriptor with a nil error means no
// module answered within timeout.
func Discover(ctx context.Context, broadcastAddr string, timeout time.Duration) (*Descriptor, error) {
	p := NewUDPProber()
	if timeout > 0 {
		p.Timeout = timeout
	}
	return Default().Discover(ctx, p, broadcastAddr)
}
