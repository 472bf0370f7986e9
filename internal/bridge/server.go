package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jimm98y/EgonAPI/internal/discovery"
	"github.com/jimm98y/EgonAPI/internal/egon"
	"github.com/jimm98y/EgonAPI/internal/logging"
	"github.com/jimm98y/EgonAPI/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Module is the part of egon.Client the bridge drives
type Module interface {
	Descriptor() *discovery.Descriptor
	Initialize(ctx context.Context) (*egon.Configuration, error)
	GetCurrentState(ctx context.Context, cfg *egon.Configuration) (egon.StateDelta, error)
	ExecuteAction(ctx context.Context, elementID string, action egon.Action) bool
}

// Server polls one module and streams its state changes
type Server struct {
	config     Config
	module     Module
	hub        *Hub
	publishers []Publisher
	upgrader   websocket.Upgrader
	now        func() time.Time

	ctx   context.Context
	ready chan struct{}
	addr  net.Addr

	// streamMu orders snapshots against broadcasts
	streamMu sync.Mutex

	mu       sync.RWMutex
	cfg      *egon.Configuration
	lastPoll time.Time
	lastErr  error
}

// Option configures a Server
type Option func(*Server)

// WithPublisher adds a publisher that receives every state event
func WithPublisher(p Publisher) Option {
	return func(s *Server) {
		s.publishers = append(s.publishers, p)
	}
}

// New creates a bridge for module
func New(config Config, module Module, opts ...Option) *Server {
	s := &Server{
		config: config.withDefaults(),
		module: module,
		hub:    NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		now:   time.Now,
		ctx:   context.Background(),
		ready: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready is closed once the server is listening
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listen address. Valid after Ready is closed.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Hub returns the client hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run initializes the module, serves HTTP and polls until ctx is done
func (s *Server) Run(ctx context.Context) error {
	s.ctx = ctx

	cfg, err := s.module.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize module: %w", err)
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	if s.config.NATSURL != "" {
		p, err := ConnectNATS(s.config.NATSURL, s.config.NATSSubject)
		if err != nil {
			return err
		}
		s.publishers = append(s.publishers, p)
	}
	defer s.closePublishers()

	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	s.addr = listener.Addr()

	logging.Info("Starting egon bridge",
		zap.String("addr", s.addr.String()),
		zap.String("module", s.moduleIP()),
		zap.Duration("poll_interval", s.config.PollInterval),
		zap.Int("publishers", len(s.publishers)),
	)

	if s.config.Advertise {
		if tcp, ok := s.addr.(*net.TCPAddr); ok {
			mdns, err := Advertise(s.module.Descriptor(), tcp.Port)
			if err != nil {
				logging.Warn("mDNS advertisement failed", zap.Error(err))
			} else {
				defer mdns.Shutdown()
			}
		}
	}

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(listener)
	}()
	close(s.ready)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.shutdown(httpServer)
		case err := <-errChan:
			s.hub.Close()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("http server failed: %w", err)
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Poll fetches the module state once and streams a non-empty delta
func (s *Server) Poll(ctx context.Context) egon.StateDelta {
	cfg := s.configuration()
	if cfg == nil {
		return nil
	}

	delta, err := s.module.GetCurrentState(ctx, cfg)
	at := s.now()

	s.mu.Lock()
	s.lastPoll = at
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			logging.Warn("State poll failed", zap.Error(err))
		}
		return nil
	}
	if len(delta) == 0 {
		return nil
	}

	ev := NewStateEvent(s.moduleID(), delta, at)

	s.streamMu.Lock()
	s.hub.Broadcast(ev)
	s.streamMu.Unlock()

	for _, p := range s.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			logging.Warn("Failed to publish state event", zap.Error(err))
		}
	}
	return delta
}

// Handler returns the bridge HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /configuration", s.handleConfiguration)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	cfg := s.configuration()
	if cfg == nil {
		http.Error(w, "module not initialized", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Failed to upgrade to WebSocket", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	client := newClient(s.hub, conn, s.config.SendBuffer)

	// A client that attached after a broadcast has its changes in the snapshot
	s.streamMu.Lock()
	client.sendEvent(NewSnapshotEvent(s.moduleID(), cfg, s.now()))
	s.hub.attach(client)
	s.streamMu.Unlock()

	go client.writePump()
	client.readPump(s.handleCommand)
}

func (s *Server) handleCommand(c *Client, cmd Command) {
	module := s.moduleID()

	if cmd.Type != CommandAction {
		c.sendEvent(newErrorEvent(module, fmt.Sprintf("unknown command %q", cmd.Type), s.now()))
		return
	}
	action := egon.Action(strings.TrimSpace(cmd.Action))
	if cmd.ID == "" || action == "" {
		c.sendEvent(newErrorEvent(module, "action requires id and action", s.now()))
		return
	}
	if _, known := egon.ParseAction(string(action)); !known {
		logging.Debug("Passing through unrecognized action", zap.String("action", string(action)))
	}

	ok := s.module.ExecuteAction(s.ctx, cmd.ID, action)
	c.sendEvent(newActionResult(module, cmd.ID, action, ok, s.now()))
}

func (s *Server) handleConfiguration(w http.ResponseWriter, _ *http.Request) {
	cfg := s.configuration()
	if cfg == nil {
		http.Error(w, "module not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, cfg.View())
}

// Health is the /healthz body
type Health struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Module    string    `json:"module"`
	MAC       string    `json:"mac,omitempty"`
	Clients   int       `json:"clients"`
	LastPoll  time.Time `json:"last_poll,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	h := Health{
		Status:   "ok",
		Version:  version.Version,
		Module:   s.moduleIP(),
		MAC:      s.moduleID(),
		Clients:  s.hub.Len(),
		LastPoll: s.lastPoll,
	}
	if s.lastErr != nil {
		h.Status = "degraded"
		h.LastError = s.lastErr.Error()
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, h)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

func (s *Server) configuration() *egon.Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Server) moduleID() string {
	if d := s.module.Descriptor(); d != nil {
		return d.MAC
	}
	return ""
}

func (s *Server) moduleIP() string {
	if d := s.module.Descriptor(); d != nil {
		return d.IPAddr
	}
	return ""
}

func (s *Server) shutdown(httpServer *http.Server) error {
	logging.Info("Shutting down bridge...")

	// Hijacked WebSocket connections are not closed by http.Server
	s.hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		_ = httpServer.Close()
	}
	return nil
}

func (s *Server) closePublishers() {
	for _, p := range s.publishers {
		if err := p.Close(); err != nil {
			logging.Warn("Failed to close publisher", zap.Error(err))
		}
	}
}
