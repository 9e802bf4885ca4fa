package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// EventHandler receives inbound client events. The WebSocket layer
// decodes frames; state transitions belong to the chat service behind
// this interface so the REST and duplex paths share one code path.
type EventHandler interface {
	HandleTyping(conversationID, userID uint64, isTyping bool)
	HandleDisconnect(conversationID, userID uint64)
}

// Client represents a single WebSocket connection joined to exactly
// one conversation's broadcast group.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	group          string
	conversationID uint64
	userID         uint64
	handler        EventHandler

	// mu guards closed so a Send racing the hub's unregister never
	// writes to a closed queue.
	mu     sync.Mutex
	closed bool
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, conversationID, userID uint64, handler EventHandler) *Client {
	return &Client{
		hub:            hub,
		conn:           conn,
		send:           make(chan []byte, 256),
		group:          GroupKey(conversationID),
		conversationID: conversationID,
		userID:         userID,
		handler:        handler,
	}
}

// UserID returns the authenticated user behind this connection
func (c *Client) UserID() uint64 {
	return c.userID
}

// Send queues an outbound event for this connection only. Events for
// a connection already torn down are discarded.
func (c *Client) Send(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	c.enqueue(data)
}

// enqueue reports false when the queue is full or closed
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the queue exactly once, called by the hub on
// unregister or slow-client drop
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump reads client frames and dispatches them one at a time in
// arrival order. Its deferred cleanup is the single cancellation
// path: it deregisters the connection and fires the disconnect hook
// exactly once, on normal and abnormal termination alike.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.handler.HandleDisconnect(c.conversationID, c.userID)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		event, err := DecodeInbound(data)
		if err != nil {
			// Malformed frame: ignore, same as an unrecognized kind
			continue
		}

		switch event.Kind() {
		case KindPing:
			c.Send(NewPongEvent())
		case KindTyping:
			c.handler.HandleTyping(c.conversationID, c.userID, event.TypingFlag())
		case KindUnrecognized:
			// Forward-compatible no-op
		}
	}
}

// WritePump sends queued events to the WebSocket
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message) //nolint:errcheck
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
