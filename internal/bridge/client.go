package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jimm98y/EgonAPI/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 1 << 16
)

// Client is one attached WebSocket connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	remote string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, buf int) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		remote: conn.RemoteAddr().String(),
		send:   make(chan []byte, buf),
	}
}

// enqueue reports false when the send buffer is full. Sends after close are
// dropped and reported as delivered.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) sendEvent(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logging.Error("websocket marshal error", zap.Error(err))
		return
	}
	if !c.enqueue(data) {
		logging.Warn("websocket send buffer full", zap.String("remote_addr", c.remote))
		go c.hub.detach(c)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

func (c *Client) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logging.Warn("websocket write error", zap.String("remote_addr", c.remote), zap.Error(err))
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logging.Warn("websocket ping error", zap.String("remote_addr", c.remote), zap.Error(err))
				return
			}
		}
	}
}

// readPump decodes commands until the connection fails, then detaches
func (c *Client) readPump(handle func(*Client, Command)) {
	defer c.hub.detach(c)

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Debug("websocket read ended", zap.String("remote_addr", c.remote), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.sendEvent(newErrorEvent("", "malformed command", time.Now()))
			continue
		}
		handle(c, cmd)
	}
}
