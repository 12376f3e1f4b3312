// Package server implements the presence and typing subsystem: ephemeral
// per-user status that exists only as the broadcasts it triggers.
package server

import (
	"time"

	"github.com/parleychat/parley/internal/protocol"
)

// typingKey identifies one pending typing auto-stop timer.
type typingKey struct {
	userID string
	roomID string
}

// handlePresence updates the connection's ephemeral status and broadcasts
// presence_update to the named room, or to every room the user belongs to
// when no room is given.
func (h *Hub) handlePresence(c *Client, env *protocol.Envelope) error {
	p, err := protocol.DecodePresence(env)
	if err != nil {
		return err
	}

	c.status = p.Status
	if p.DisplayName != "" {
		c.displayName = p.DisplayName
	}

	if p.RoomID != "" {
		h.broadcastToRoom(p.RoomID, h.presenceFrame(c, p.RoomID), c.userID)
		return nil
	}
	for roomID := range c.rooms {
		h.broadcastToRoom(roomID, h.presenceFrame(c, roomID), c.userID)
	}
	return nil
}

func (h *Hub) presenceFrame(c *Client, roomID string) []byte {
	return protocol.Frame(protocol.TypePresenceUpdate, c.userID, roomID, protocol.PresenceUpdatePayload{
		UserID:      c.userID,
		Status:      c.status,
		RoomID:      roomID,
		DisplayName: c.displayName,
	})
}

// handleTyping broadcasts the typing indicator to room peers. A start event
// schedules an auto-stop broadcast; a newer start replaces any pending
// stop timer so peers never see a spurious stop while the user keeps
// typing.
func (h *Hub) handleTyping(c *Client, env *protocol.Envelope) error {
	p, err := protocol.DecodeTyping(env)
	if err != nil {
		return err
	}

	if _, member := c.rooms[p.RoomID]; !member {
		return &protocol.WireError{
			Code:    protocol.CodeInvalidPayload,
			Message: "not a member of room " + p.RoomID,
		}
	}

	h.broadcastToRoom(p.RoomID, h.typingFrame(c.userID, p.RoomID, p.IsTyping), c.userID)

	key := typingKey{userID: c.userID, roomID: p.RoomID}
	h.cancelTyping(key.userID, key.roomID)
	if p.IsTyping {
		h.typingTimers[key] = time.AfterFunc(h.cfg.TypingTimeout, func() {
			h.enqueue(func() { h.expireTyping(key) })
		})
	}
	return nil
}

func (h *Hub) typingFrame(userID, roomID string, isTyping bool) []byte {
	return protocol.Frame(protocol.TypeTypingIndicator, userID, roomID, protocol.TypingIndicatorPayload{
		UserID:   userID,
		RoomID:   roomID,
		IsTyping: isTyping,
	})
}

// expireTyping fires the scheduled auto-stop broadcast, unless the timer
// was cancelled between scheduling and the run loop picking this up.
func (h *Hub) expireTyping(key typingKey) {
	if _, ok := h.typingTimers[key]; !ok {
		return
	}
	delete(h.typingTimers, key)
	h.broadcastToRoom(key.roomID, h.typingFrame(key.userID, key.roomID, false), key.userID)
}

// cancelTyping stops and forgets a pending auto-stop timer without
// broadcasting.
func (h *Hub) cancelTyping(userID, roomID string) {
	key := typingKey{userID: userID, roomID: roomID}
	if t, ok := h.typingTimers[key]; ok {
		t.Stop()
		delete(h.typingTimers, key)
	}
}

// cancelTypingForUser drops every pending timer for a user, used when the
// connection goes away.
func (h *Hub) cancelTypingForUser(userID string) {
	for key, t := range h.typingTimers {
		if key.userID == userID {
			t.Stop()
			delete(h.typingTimers, key)
		}
	}
}
