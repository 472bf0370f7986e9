package egon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/jimm98y/EgonAPI/internal/discovery"
	"github.com/jimm98y/EgonAPI/internal/logging"
	"github.com/jimm98y/EgonAPI/internal/webmodule"
)

const (
	// DefaultRetryInterval is the fixed delay between configuration attempts
	DefaultRetryInterval = 3 * time.Second

	// DefaultRetryAttempts is the total number of configuration attempts,
	// including the first one
	DefaultRetryAttempts = 10
)

var errEmptyGroup = errors.New("group reported no element states")

// Client drives one web module: configuration bootstrap, state polling and
// action dispatch. It is safe for concurrent use; polls are serialized.
type Client struct {
	desc     *discovery.Descriptor
	web      *webmodule.Client
	sessions *SessionManager

	https         bool
	baseURL       string
	httpClient    *http.Client
	retryInterval time.Duration
	retryAttempts int

	// pollMu covers the whole authorize, refresh, fetch and diff sequence
	pollMu sync.Mutex
}

// Option configures a Client
type Option func(*Client)

// WithHTTPS talks to the module's secured interface on port 4536
func WithHTTPS() Option {
	return func(c *Client) { c.https = true }
}

// WithHTTPClient replaces the pooled HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the module root derived from the descriptor
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithRetry sets the configuration retry policy. attempts counts the first
// try and is clamped to at least 1.
func WithRetry(interval time.Duration, attempts int) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		c.retryInterval = interval
		c.retryAttempts = attempts
	}
}

// NewClient creates a client for a discovered (or manually addressed) module
func NewClient(desc *discovery.Descriptor, user, password string, opts ...Option) *Client {
	c := &Client{
		desc:          desc,
		retryInterval: DefaultRetryInterval,
		retryAttempts: DefaultRetryAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.baseURL != "" {
		c.web = webmodule.NewClientWithURL(c.baseURL)
	} else {
		c.web = webmodule.NewClient(desc.IPAddr, c.https)
	}
	if c.httpClient != nil {
		c.web.HTTPClient = c.httpClient
	}

	c.sessions = NewSessionManager(c.web, user, password)
	return c
}

// Descriptor returns the module this client talks to
func (c *Client) Descriptor() *discovery.Descriptor {
	return c.desc
}

// Authorize performs a fresh login. Bad credentials and an unreachable
// module both report false.
func (c *Client) Authorize(ctx context.Context) bool {
	_, ok := c.sessions.Authorize(ctx)
	return ok
}

// GetConfiguration fetches the element inventory and the membership of
// every group.
//
// The inventory fetch is retried at a fixed interval until the retry budget
// is spent, then ErrConfigurationUnavailable is returned. A duplicate
// element id fails immediately with ErrDuplicateElement. Each group's
// state is retried with the same policy; a group that never reports any
// states is left out of the result.
func (c *Client) GetConfiguration(ctx context.Context) (*Configuration, error) {
	session, ok := c.sessions.Authorize(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrConfigurationUnavailable, ErrUnauthorized)
	}

	var (
		data     *webmodule.Data
		elements []Element
		dupErr   error
	)
	err := c.retry(ctx, "configuration", func() error {
		d, err := c.web.Configuration(ctx, session.Token)
		if err != nil {
			return err
		}

		elems := make([]Element, len(d.Elements))
		for i, e := range d.Elements {
			elems[i] = ElementFromData(e)
		}
		if _, err := NewConfiguration(elems, nil); err != nil {
			dupErr = err
			return backoff.Permanent(err)
		}

		data, elements = d, elems
		return nil
	})
	if dupErr != nil {
		return nil, dupErr
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrConfigurationUnavailable, err)
	}

	groups := make([]Group, 0, len(data.Groups))
	for _, g := range data.Groups {
		var states []webmodule.XMLElementState
		err := c.retry(ctx, "group "+g.ID, func() error {
			d, err := c.web.State(ctx, session.Token, g.ID)
			if err != nil {
				return err
			}
			if len(d.ElementStates) == 0 {
				return errEmptyGroup
			}
			states = d.ElementStates
			return nil
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logging.Warn("Dropping group without element states",
				zap.String("group_id", g.ID),
				zap.String("group_name", g.Name),
				zap.Error(err),
			)
			continue
		}
		groups = append(groups, GroupFromData(g, states))
	}

	cfg, err := NewConfiguration(elements, groups)
	if err != nil {
		return nil, err
	}

	logging.Info("Configuration loaded",
		zap.String("module", c.desc.IPAddr),
		zap.Int("elements", cfg.Len()),
		zap.Int("groups", len(groups)),
	)
	return cfg, nil
}

// GetCurrentState polls all element states, writes them into cfg and
// returns the elements whose value changed.
//
// Concurrent calls on the same client run one after another. The poll is
// never retried: a failed login is ErrUnauthorized and a failed fetch is
// ErrStateUnavailable. The keep-alive refresh is best effort.
func (c *Client) GetCurrentState(ctx context.Context, cfg *Configuration) (StateDelta, error) {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	session, ok := c.sessions.Authorize(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	if !c.web.Refresh(ctx, session.Token) {
		logging.Debug("Session refresh not acknowledged", zap.String("module", c.desc.IPAddr))
	}

	data, err := c.web.State(ctx, session.Token, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStateUnavailable, err)
	}

	delta := cfg.apply(data.ElementStates)
	for _, change := range delta {
		logging.LogStateChange(change.Element.ID, change.Element.Name, change.Element.Value, change.Value)
	}
	return delta, nil
}

// ExecuteAction logs in and sends action to one element. It reports true
// only when the module answered "OK". The action is not validated.
func (c *Client) ExecuteAction(ctx context.Context, elementID string, action Action) bool {
	session, ok := c.sessions.Authorize(ctx)
	if !ok {
		return false
	}

	success := c.web.ExecuteAction(ctx, session.Token, elementID, string(action))
	logging.Info("Action executed",
		zap.String("element_id", elementID),
		zap.String("action", string(action)),
		zap.Bool("success", success),
	)
	return success
}

// Initialize loads the configuration and polls once so element values are
// current. A failed first poll is logged and the configuration is still
// returned with the values from config.html.
func (c *Client) Initialize(ctx context.Context) (*Configuration, error) {
	cfg, err := c.GetConfiguration(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := c.GetCurrentState(ctx, cfg); err != nil {
		logging.Warn("Initial state poll failed", zap.Error(err))
	}
	return cfg, nil
}

// retry runs op until it succeeds or the attempt budget is spent, sleeping
// the constant back-off interval between attempts. Only cancellation of ctx
// cuts the budget short; a *backoff.PermanentError stops at once.
func (c *Client) retry(ctx context.Context, what string, op func() error) error {
	policy := backoff.NewConstantBackOff(c.retryInterval)
	policy.Reset()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}

		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return permanent.Err
		}
		if attempt >= c.retryAttempts {
			return err
		}

		next := policy.NextBackOff()
		logging.Debug("Retrying module request",
			zap.String("request", what),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.retryAttempts),
			zap.Duration("next", next),
			zap.Bool("retryable", webmodule.IsRetryable(err)),
			zap.Error(err),
		)

		if timer == nil {
			timer = time.NewTimer(next)
		} else {
			timer.Reset(next)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}
