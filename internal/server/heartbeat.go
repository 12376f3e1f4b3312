// Package server implements the heartbeat sweep that detects and evicts
// unresponsive connections.
package server

import "time"

// evictionReason is carried on user_left broadcasts for swept connections.
const evictionReason = "inactive connection"

// sweepInactive evicts every connection whose last activity is older than
// twice the heartbeat interval. The evicted client gets no direct notice;
// its former room peers receive user_left, and its rate-limit state is
// released. Liveness is refreshed by pong acknowledgments and by any
// successfully routed frame.
func (h *Hub) sweepInactive(now time.Time) {
	cutoff := 2 * h.cfg.HeartbeatInterval

	var stale []*Client
	for _, c := range h.conns {
		if now.Sub(c.lastActivity) > cutoff {
			stale = append(stale, c)
		}
	}

	for _, c := range stale {
		h.metrics.EvictionsTotal.Inc()
		h.log.Info("evicting inactive connection",
			"addr", c.addr, "socketId", c.id, "userId", c.userID,
			"idle", now.Sub(c.lastActivity))
		h.dropClient(c, evictionReason)
		c.closeTransport()
	}
}
