package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jiwuchat/jiwuchat-shell/internal/logging"
)

// ErrNoClients is returned by Broadcast when no frontend is connected.
var ErrNoClients = errors.New("no connected clients")

// Message is the envelope exchanged with browser frontends.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	handlersMu sync.RWMutex
	handlers   map[string]MessageHandler
}

// NewHub creates a hub. Call Run before serving connections.
func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		handlers:   make(map[string]MessageHandler),
	}
	h.Handle("ping", handlePing)
	return h
}

// Run processes registrations until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			logging.Debugf("[realtime] client %s connected", c.ID)
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.Close()
			}
			h.mu.Unlock()
			logging.Debugf("[realtime] client %s disconnected", c.ID)
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
		c.Close()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every connected client. Clients whose buffers are
// full are skipped. It returns ErrNoClients when nobody received it.
func (h *Hub) Broadcast(msg *Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.clients {
		if err := c.enqueue(data); err != nil {
			logging.Warnf("[realtime] drop %s for client %s: %v", msg.Type, c.ID, err)
			continue
		}
		sent++
	}
	if sent == 0 {
		return ErrNoClients
	}
	return nil
}

// Handle registers the handler for inbound messages of the given type.
func (h *Hub) Handle(msgType string, handler MessageHandler) {
	h.handlersMu.Lock()
	h.handlers[msgType] = handler
	h.handlersMu.Unlock()
}

func (h *Hub) handler(msgType string) MessageHandler {
	h.handlersMu.RLock()
	defer h.handlersMu.RUnlock()
	return h.handlers[msgType]
}

func handlePing(c *Client, _ *Message) {
	if err := c.SendMessage(&Message{Type: "pong", Timestamp: time.Now()}); err != nil {
		logging.Debugf("[realtime] pong to %s failed: %v", c.ID, err)
	}
}
