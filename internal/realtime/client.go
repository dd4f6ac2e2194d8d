package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jiwuchat/jiwuchat-shell/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

// Error types
var (
	ErrClientSendBufferFull = errors.New("client send buffer full")
	ErrClientClosed         = errors.New("client connection closed")
)

// MessageHandler handles one inbound message type.
type MessageHandler func(c *Client, msg *Message)

// Client is one frontend WebSocket connection.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	ID string

	closeOnce sync.Once
	closedMu  sync.RWMutex
	closed    bool
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, hub *Hub, id string) *Client {
	return &Client{
		conn: conn,
		hub:  hub,
		send: make(chan []byte, 64),
		ID:   id,
	}
}

// ServeWS registers conn with the hub and starts its pumps. The connection is
// closed right away when the hub has stopped.
func ServeWS(hub *Hub, conn *websocket.Conn, clientID string) *Client {
	c := NewClient(conn, hub, clientID)
	if !hub.add(c) {
		conn.Close()
		return c
	}
	go c.writePump()
	go c.readPump()
	return c
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer c.hub.remove(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warnf("[realtime] read error from %s: %v", c.ID, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			logging.Debugf("[realtime] bad message from %s: %v", c.ID, err)
			continue
		}
		if h := c.hub.handler(msg.Type); h != nil {
			h(c, &msg)
		} else {
			logging.Debugf("[realtime] unknown message type %q", msg.Type)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage queues msg for this client only.
func (c *Client) SendMessage(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) error {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientSendBufferFull
	}
}

// IsClosed returns whether the client connection is closed
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

// Close stops the write pump; it sends a close frame and drops the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closedMu.Lock()
		c.closed = true
		close(c.send)
		c.closedMu.Unlock()
	})
}
