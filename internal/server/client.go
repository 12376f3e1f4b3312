// Package server manages individual client connections, handling read and
// write pumps, liveness refresh, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client represents one connection in the hub. The transport-facing fields
// are used by the pumps; everything below the marker is owned by the hub
// run loop and must not be touched from pump goroutines.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	addr string

	// Owned by the hub run loop.
	userID       string
	identified   bool
	rooms        map[string]struct{}
	status       string
	displayName  string
	lastActivity time.Time
	closed       bool
}

// NewClient creates a Client for the given transport connection. The user
// id starts as an anonymous placeholder and is overwritten by the first
// join_room frame.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	id := uuid.NewString()
	if conn != nil {
		conn.SetReadLimit(hub.cfg.MaxMessageSize)
	}

	return &Client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, 256),
		hub:    hub,
		addr:   addr,
		userID: "anon-" + id[:8],
		rooms:  make(map[string]struct{}),
	}
}

// ID returns the connection id assigned at accept time.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's send channel for reading outgoing frames.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// readDeadline is how long the connection may stay silent before the
// transport read fails. Kept at twice the heartbeat interval so transport
// timeouts line up with the heartbeat sweep's eviction threshold.
func (c *Client) readDeadline() time.Duration {
	return 2 * c.hub.cfg.HeartbeatInterval
}

// setupReadConnection configures read deadlines and the pong handler. A
// pong both extends the transport deadline and refreshes the connection's
// liveness timestamp in the hub.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.readDeadline())); err != nil {
		c.hub.log.Warn("error setting initial read deadline", "addr", c.addr, "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readDeadline())); err != nil {
			c.hub.log.Warn("error setting read deadline in pong handler", "addr", c.addr, "error", err)
		}
		c.hub.enqueue(func() {
			c.lastActivity = c.hub.now()
		})
		return nil
	})
}

// handleReadError logs an appropriate message for the error and reports
// whether the read loop should stop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		c.hub.log.Warn("message exceeded maximum size", "addr", c.addr, "max", c.hub.cfg.MaxMessageSize)
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		c.hub.log.Info("client disconnected", "addr", c.addr, "error", err)
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		c.hub.log.Info("client connection closed", "addr", c.addr, "error", err)
		return true
	}

	c.hub.log.Warn("websocket read error", "addr", c.addr, "error", err)
	return true
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.closeTransport()
	}()

	c.setupReadConnection()

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
			continue
		}

		select {
		case c.hub.inbound <- inboundFrame{client: c, raw: rawMessage}:
		case <-c.hub.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		c.closeTransport()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when
// the pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	case <-c.hub.ctx.Done():
		return false
	}
}

// closeTransport closes the connection, logging only unexpected errors.
func (c *Client) closeTransport() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			c.hub.log.Warn("error closing connection", "addr", c.addr, "error", err)
		}
	}
}

// handleMessage writes one outgoing frame and returns false if the
// connection should be closed.
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		c.hub.log.Warn("error setting write deadline", "addr", c.addr, "error", err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(message)
}

// writeCloseMessage sends a close frame to the client.
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			c.hub.log.Warn("error writing close message", "addr", c.addr, "error", err)
		}
	}
	return false
}

// writeTextMessage writes a frame and any queued frames behind it.
func (c *Client) writeTextMessage(message []byte) bool {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		c.hub.log.Warn("error creating writer", "addr", c.addr, "error", err)
		return false
	}

	if _, err := w.Write(message); err != nil {
		c.hub.log.Warn("error writing message", "addr", c.addr, "error", err)
		return false
	}

	if !c.writeQueuedMessages(w) {
		return false
	}

	if err := w.Close(); err != nil {
		c.hub.log.Warn("error closing writer", "addr", c.addr, "error", err)
		return false
	}
	return true
}

// writeQueuedMessages drains frames already buffered on the send channel
// into the same transport write, newline separated.
func (c *Client) writeQueuedMessages(w io.WriteCloser) bool {
	n := len(c.send)
	for i := 0; i < n; i++ {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			c.hub.log.Warn("error writing frame separator", "addr", c.addr, "error", err)
			return false
		}
		if _, err := w.Write(<-c.send); err != nil {
			c.hub.log.Warn("error writing queued message", "addr", c.addr, "error", err)
			return false
		}
	}
	return true
}

// handlePing sends a ping to keep the connection alive.
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		c.hub.log.Warn("error setting write deadline for ping", "addr", c.addr, "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.hub.log.Warn("error writing ping message", "addr", c.addr, "error", err)
		}
		return false
	}
	return true
}
