// Package server coordinates connection registration, room broadcast, and
// connection cleanup for the Parley messaging hub via the Hub type.
package server

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parleychat/parley/internal/config"
	"github.com/parleychat/parley/internal/metrics"
	"github.com/parleychat/parley/internal/protocol"
	"github.com/parleychat/parley/internal/sink"
)

// serverCapabilities is advertised in the handshake frame.
var serverCapabilities = []string{"rooms", "presence", "typing", "activity", "search_sync"}

// Hub owns every mutable table in the server: the connection table, the
// room registry, rate-limit windows, and typing timers. All of them are
// touched only from the single Run goroutine; clients talk to it through
// channels, so no locks guard the tables themselves.
type Hub struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics
	sink    sink.Sink
	origins *originChecker

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame
	commands   chan func()

	// Run-loop-owned state.
	conns        map[string]*Client
	byUser       map[string]*Client
	registry     *roomRegistry
	limiter      *rateLimiter
	typingTimers map[typingKey]*time.Timer

	now       func() time.Time
	startedAt time.Time

	// Read by the health handler outside the run loop.
	connCount         atomic.Int64
	roomCount         atomic.Int64
	messagesProcessed atomic.Uint64

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a Hub ready to manage connections. A nil logger falls
// back to slog.Default, nil metrics to an unregistered collector set, and
// a nil sink to a discarding one.
func NewHub(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, snk sink.Sink) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if snk == nil {
		snk = sink.Discard{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now
	log := logger.With("component", "hub")

	return &Hub{
		cfg:          cfg,
		log:          log,
		metrics:      m,
		sink:         snk,
		origins:      newOriginChecker(cfg.AllowedOrigins, log),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		inbound:      make(chan inboundFrame),
		commands:     make(chan func(), 256),
		conns:        make(map[string]*Client),
		byUser:       make(map[string]*Client),
		registry:     newRoomRegistry(cfg.RoomMaxMembers, cfg.MessageQueueSize, now),
		limiter:      newRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.MaxMessages, now),
		typingTimers: make(map[typingKey]*time.Timer),
		now:          now,
		startedAt:    now(),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Run starts the hub's event loop. It should be called in its own
// goroutine; it returns only after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("received nil client registration; skipping")
				continue
			}
			h.acceptClient(client)

		case client := <-h.unregister:
			h.dropClient(client, "")

		case frame := <-h.inbound:
			h.routeFrame(frame.client, frame.raw)

		case fn := <-h.commands:
			fn()

		case <-ticker.C:
			h.sweepInactive(h.now())
		}
	}
}

// GetRegisterChan returns the channel used for registering new clients.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// enqueue hands a closure to the run loop. Used by timer callbacks and
// transport-level handlers that need to touch run-loop-owned state.
func (h *Hub) enqueue(fn func()) {
	select {
	case h.commands <- fn:
	case <-h.ctx.Done():
	}
}

// acceptClient runs the connect-time admission gates and, on success,
// registers the connection and starts its pumps. Rejection closes the
// transport before any state is mutated.
func (h *Hub) acceptClient(c *Client) {
	if !h.limiter.checkAndConsume("addr:" + remoteKey(c.addr)) {
		h.metrics.RateLimitedTotal.WithLabelValues("connect").Inc()
		h.log.Warn("connection rejected by rate limiter", "addr", c.addr)
		h.closeWithCode(c, websocket.ClosePolicyViolation, "connection rate limit exceeded")
		return
	}

	if len(h.conns) >= h.cfg.MaxConnections {
		h.log.Warn("connection rejected at capacity", "addr", c.addr, "max", h.cfg.MaxConnections)
		h.closeWithCode(c, websocket.CloseTryAgainLater, "server at capacity")
		return
	}

	c.closed = false
	c.lastActivity = h.now()
	h.conns[c.id] = c
	h.byUser[c.userID] = c
	h.connCount.Store(int64(len(h.conns)))
	h.metrics.ConnectionsCurrent.Set(float64(len(h.conns)))
	h.log.Info("client registered", "addr", c.addr, "socketId", c.id, "total", len(h.conns))

	if c.conn != nil {
		h.wg.Add(2)
		go func() {
			defer h.wg.Done()
			c.writePump()
		}()
		go func() {
			defer h.wg.Done()
			c.readPump()
		}()
	}

	h.sendFrame(c, protocol.Frame(protocol.TypeConnectionEstablished, "", "", protocol.ConnectionEstablishedPayload{
		SocketID:     c.id,
		ServerTime:   h.now().UTC(),
		Capabilities: serverCapabilities,
	}))
}

// dropClient removes a connection and all state keyed to it: room
// membership on both sides, the user index, rate-limit windows, and typing
// timers. reason is carried on the user_left broadcasts to former peers.
// Safe to call twice; the second call is a no-op.
func (h *Hub) dropClient(c *Client, reason string) {
	if c == nil {
		return
	}
	if _, ok := h.conns[c.id]; !ok {
		return
	}

	delete(h.conns, c.id)
	if h.byUser[c.userID] == c {
		delete(h.byUser, c.userID)
	}
	h.limiter.forget("conn:" + c.id)
	h.cancelTypingForUser(c.userID)

	for roomID := range c.rooms {
		if _, removed, _ := h.registry.leave(roomID, c.userID); removed {
			h.broadcastToRoom(roomID, protocol.Frame(protocol.TypeUserLeft, c.userID, roomID, protocol.MemberEventPayload{
				UserID: c.userID,
				RoomID: roomID,
				Reason: reason,
			}), c.userID)
		}
	}
	c.rooms = nil

	c.closed = true
	close(c.send)

	h.connCount.Store(int64(len(h.conns)))
	h.syncRoomGauges()
	h.metrics.ConnectionsCurrent.Set(float64(len(h.conns)))
	h.log.Info("client unregistered", "addr", c.addr, "socketId", c.id, "total", len(h.conns))
}

// sendFrame queues a frame on the client's buffered send channel. A full
// buffer or closed client fails the send; callers decide whether that
// means dropping the connection.
func (h *Hub) sendFrame(c *Client, frame []byte) bool {
	if c == nil || c.closed || frame == nil {
		return false
	}
	select {
	case c.send <- frame:
		h.metrics.BroadcastsTotal.Inc()
		return true
	default:
		return false
	}
}

// sendToUser resolves a user id to its connection and sends the frame.
func (h *Hub) sendToUser(userID string, frame []byte) bool {
	c, ok := h.byUser[userID]
	if !ok {
		return false
	}
	if h.sendFrame(c, frame) {
		return true
	}
	h.disconnectSlow(c)
	return false
}

// broadcastToRoom delivers a frame to every current member of the room
// except excludeUserID. Members whose send buffers are full are dropped,
// mirroring how the hub treats any unresponsive connection.
func (h *Hub) broadcastToRoom(roomID string, frame []byte, excludeUserID string) {
	rm := h.registry.get(roomID)
	if rm == nil {
		return
	}

	var slow []*Client
	for userID := range rm.members {
		if userID == excludeUserID {
			continue
		}
		c, ok := h.byUser[userID]
		if !ok {
			continue
		}
		if !h.sendFrame(c, frame) {
			slow = append(slow, c)
		}
	}

	for _, c := range slow {
		h.disconnectSlow(c)
	}
}

// broadcastGlobal delivers a frame to every connection except excludeUserID.
func (h *Hub) broadcastGlobal(frame []byte, excludeUserID string) {
	var slow []*Client
	for _, c := range h.conns {
		if c.userID == excludeUserID {
			continue
		}
		if !h.sendFrame(c, frame) {
			slow = append(slow, c)
		}
	}

	for _, c := range slow {
		h.disconnectSlow(c)
	}
}

// disconnectSlow removes a connection whose send buffer stayed full.
func (h *Hub) disconnectSlow(c *Client) {
	h.log.Warn("client removed due to full send buffer", "addr", c.addr, "socketId", c.id)
	h.dropClient(c, "")
	c.closeTransport()
}

// closeWithCode writes a close frame and closes the transport, used on the
// rejection paths where the connection was never registered.
func (h *Hub) closeWithCode(c *Client, code int, reason string) {
	if c.conn == nil {
		return
	}
	deadline := h.now().Add(5 * time.Second)
	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !isExpectedCloseError(err) {
		h.log.Warn("error writing close frame", "addr", c.addr, "error", err)
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		h.log.Warn("error closing rejected connection", "addr", c.addr, "error", err)
	}
}

// syncRoomGauges refreshes the room counters after any membership change.
func (h *Hub) syncRoomGauges() {
	count := h.registry.count()
	h.roomCount.Store(int64(count))
	h.metrics.RoomsCurrent.Set(float64(count))
}

// shutdownClients closes every active connection with reason
// "server shutdown" as the run loop exits.
func (h *Hub) shutdownClients() {
	h.log.Info("shutting down all client connections", "count", len(h.conns))

	deadline := h.now().Add(5 * time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown")
	for _, c := range h.conns {
		if c.conn == nil {
			continue
		}
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !isExpectedCloseError(err) {
			h.log.Warn("error writing shutdown close frame", "addr", c.addr, "error", err)
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			h.log.Warn("error closing client connection", "addr", c.addr, "error", err)
		}
	}
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to complete or for the timeout. It is idempotent.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")
	h.stopOnce.Do(h.cancel)

	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached; pump goroutines still running",
			"connections", len(h.conns))
		return context.DeadlineExceeded
	}
}

// remoteKey reduces a remote address to its host so that connect-time rate
// limiting groups connections from one origin address.
func remoteKey(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
