package bridge

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/jimm98y/EgonAPI/internal/logging"
)

// Hub fans events out to attached WebSocket clients
type Hub struct {
	clients map[*Client]struct{}
	mu      sync.RWMutex
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	logging.Info("ws client attached", zap.String("remote_addr", c.remote), zap.Int("clients", len(h.clients)))
}

func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(c)
}

func (h *Hub) detachLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
	logging.Info("ws client detached", zap.String("remote_addr", c.remote), zap.Int("clients", len(h.clients)))
}

// Broadcast queues ev for every client. A client whose send buffer is
// full is detached.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logging.Error("broadcast marshal error", zap.Error(err))
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		if !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logging.Warn("websocket send buffer full", zap.String("remote_addr", c.remote))
		h.detach(c)
	}
}

// Len returns the number of attached clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close detaches every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.detachLocked(c)
	}
}
