// Package server exposes HTTP handlers: the WebSocket upgrade endpoint and
// the health query.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

// Health statuses reported by the health query.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthDetails carries the health query counters.
type HealthDetails struct {
	ConnectedUsers    int64  `json:"connectedUsers"`
	ActiveRooms       int64  `json:"activeRooms"`
	MessagesProcessed uint64 `json:"messagesProcessed"`
	Uptime            int64  `json:"uptime"`
}

// HealthStatus is the health query response.
type HealthStatus struct {
	Status  string        `json:"status"`
	Details HealthDetails `json:"details"`
}

// Health reports the hub's load state: degraded above 90% of the
// configured connection limit, unhealthy above 100%.
func (h *Hub) Health() HealthStatus {
	connected := h.connCount.Load()

	status := StatusHealthy
	limit := int64(h.cfg.MaxConnections)
	switch {
	case connected > limit:
		status = StatusUnhealthy
	case connected*10 > limit*9:
		status = StatusDegraded
	}

	return HealthStatus{
		Status: status,
		Details: HealthDetails{
			ConnectedUsers:    connected,
			ActiveRooms:       h.roomCount.Load(),
			MessagesProcessed: h.messagesProcessed.Load(),
			Uptime:            int64(h.now().Sub(h.startedAt).Seconds()),
		},
	}
}

// WebSocketHandler returns the handler for WebSocket upgrade requests. It
// validates the method and origin, upgrades the connection, and hands the
// new client to the hub, which runs the admission gates.
func (h *Hub) WebSocketHandler() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.origins.check,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
			return
		}

		client := NewClient(conn, h, r.RemoteAddr)

		select {
		case h.register <- client:
		case <-h.ctx.Done():
			client.closeTransport()
		}
	}
}

// HealthHandler returns the health query endpoint.
func (h *Hub) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h.Health()); err != nil {
			h.log.Warn("error writing health response", "error", err)
		}
	}
}
