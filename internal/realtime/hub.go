// Package realtime pushes booking and customer changes to open browser tabs.
package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

// Event types published by the workshop modules.
const (
	TypeBookingCreated  = "booking_created"
	TypeBookingUpdated  = "booking_updated"
	TypeCustomerUpdated = "customer_updated"
)

// Event is the payload broadcast to connected clients.
type Event struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Action string `json:"action"`
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

type client struct {
	conn *ws.Conn
	mu   sync.Mutex
	done chan struct{}
}

func (c *client) write(messageType int, data []byte) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("realtime: write panic: %v", r)
		}
	}()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// Hub tracks connected clients of this process.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	logger   *slog.Logger
	upgrader ws.Upgrader
}

// NewHub creates a Hub. Upgrades are restricted to same-origin requests.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) register(c *client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	return len(h.clients)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if !ok {
		return
	}
	close(c.done)
	_ = c.conn.Close()
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends evt to every client, dropping clients whose write fails.
func (h *Hub) Broadcast(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("realtime marshal failed", slog.Any("error", err))
		return
	}
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(ws.TextMessage, data); err != nil {
			h.logger.Debug("realtime client dropped", slog.Any("error", err))
			h.unregister(c)
		}
	}
}

// ServeHTTP upgrades the connection and keeps it alive with pings until the
// client goes away. Messages from the client are read and discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("realtime upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{conn: conn, done: make(chan struct{})}
	total := h.register(c)
	h.logger.Debug("realtime client connected", slog.Int("clients", total))

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				c.mu.Lock()
				err := conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait))
				c.mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
	h.logger.Debug("realtime client disconnected")
}
