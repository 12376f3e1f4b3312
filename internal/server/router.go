// Package server routes validated inbound envelopes to the room registry,
// presence subsystem, and message queues. Every error raised while handling
// one connection's frame is converted to an error frame for that connection
// and never escapes the dispatch boundary.
package server

import (
	"github.com/parleychat/parley/internal/protocol"
	"github.com/parleychat/parley/internal/sink"
)

// routeFrame handles one inbound frame inside the run loop. Frames from a
// single connection arrive here in receipt order, so processing and the
// broadcasts it triggers are strictly ordered per connection.
func (h *Hub) routeFrame(c *Client, raw []byte) {
	if c == nil || c.closed {
		return
	}

	if !h.limiter.checkAndConsume("conn:" + c.id) {
		h.metrics.RateLimitedTotal.WithLabelValues("message").Inc()
		h.replyError(c, &protocol.WireError{
			Code:    protocol.CodeRateLimited,
			Message: "message rate limit exceeded",
		})
		return
	}

	env, err := protocol.ParseEnvelope(raw)
	if err != nil {
		h.replyError(c, err)
		return
	}

	switch env.Type {
	case protocol.TypeJoinRoom:
		err = h.handleJoinRoom(c, env)
	case protocol.TypeLeaveRoom:
		err = h.handleLeaveRoom(c, env)
	case protocol.TypeMessage:
		err = h.handleMessage(c, env)
	case protocol.TypePresence:
		err = h.handlePresence(c, env)
	case protocol.TypeTyping:
		err = h.handleTyping(c, env)
	case protocol.TypeSearchSync:
		err = h.handleSearchSync(c, env)
	case protocol.TypeActivity:
		err = h.handleActivity(c, env)
	}
	if err != nil {
		h.replyError(c, err)
		return
	}

	c.lastActivity = h.now()
	h.messagesProcessed.Add(1)
	h.metrics.MessagesTotal.Inc()
}

// replyError answers the sender with an error frame. The connection stays
// open and no state is mutated.
func (h *Hub) replyError(c *Client, err error) {
	h.metrics.ErrorFramesTotal.Inc()
	h.sendFrame(c, protocol.ErrorFrame(protocol.AsWireError(err)))
}

// handleJoinRoom adopts the claimed user identity on a connection's first
// join, then delegates to the room registry. The joining user receives a
// room_joined confirmation; every other current member receives
// user_joined.
func (h *Hub) handleJoinRoom(c *Client, env *protocol.Envelope) error {
	p, err := protocol.DecodeJoinRoom(env)
	if err != nil {
		return err
	}

	if !c.identified && p.UserID != c.userID {
		if h.byUser[c.userID] == c {
			delete(h.byUser, c.userID)
		}
		c.userID = p.UserID
		h.byUser[c.userID] = c
	}
	c.identified = true

	rm, added, err := h.registry.join(p.RoomID, c.userID, p.Metadata)
	if err != nil {
		return err
	}

	c.rooms[p.RoomID] = struct{}{}
	h.syncRoomGauges()

	if added {
		h.broadcastToRoom(p.RoomID, protocol.Frame(protocol.TypeUserJoined, c.userID, p.RoomID, protocol.MemberEventPayload{
			UserID: c.userID,
			RoomID: p.RoomID,
		}), c.userID)
	}

	h.sendFrame(c, protocol.Frame(protocol.TypeRoomJoined, c.userID, p.RoomID, protocol.RoomJoinedPayload{
		RoomID:     p.RoomID,
		Members:    rm.memberList(),
		MaxMembers: rm.maxMembers,
	}))
	return nil
}

// handleLeaveRoom removes membership on both sides and notifies remaining
// members. Leaving a room the user is not in is a no-op confirmation.
func (h *Hub) handleLeaveRoom(c *Client, env *protocol.Envelope) error {
	p, err := protocol.DecodeLeaveRoom(env)
	if err != nil {
		return err
	}

	_, removed, deleted := h.registry.leave(p.RoomID, c.userID)
	delete(c.rooms, p.RoomID)
	h.cancelTyping(c.userID, p.RoomID)
	h.syncRoomGauges()

	if removed && !deleted {
		h.broadcastToRoom(p.RoomID, protocol.Frame(protocol.TypeUserLeft, c.userID, p.RoomID, protocol.MemberEventPayload{
			UserID: c.userID,
			RoomID: p.RoomID,
		}), c.userID)
	}

	h.sendFrame(c, protocol.Frame(protocol.TypeRoomLeft, c.userID, p.RoomID, protocol.RoomLeftPayload{
		RoomID: p.RoomID,
	}))
	return nil
}

// handleMessage stages the message for the persistence sink and broadcasts
// the full envelope to all current room members, sender included.
func (h *Hub) handleMessage(c *Client, env *protocol.Envelope) error {
	p, err := protocol.DecodeMessage(env)
	if err != nil {
		return err
	}

	if _, member := c.rooms[p.RoomID]; !member {
		return &protocol.WireError{
			Code:    protocol.CodeInvalidPayload,
			Message: "not a member of room " + p.RoomID,
		}
	}
	rm := h.registry.get(p.RoomID)
	if rm == nil {
		return &protocol.WireError{
			Code:    protocol.CodeInvalidPayload,
			Message: "unknown room " + p.RoomID,
		}
	}

	messageType := p.MessageType
	if messageType == "" {
		messageType = "text"
	}

	rec := sink.Record{
		MessageID:   protocol.NewMessageID(),
		RoomID:      p.RoomID,
		UserID:      c.userID,
		Content:     p.Content,
		MessageType: messageType,
		Timestamp:   h.now().UTC(),
	}
	if rm.queue.append(rec) {
		h.metrics.QueueDroppedTotal.Inc()
	}

	// Fire and forget: a slow sink must never stall frame handling.
	go func() {
		if err := h.sink.Publish(h.ctx, rec); err != nil {
			h.log.Warn("sink publish failed", "roomId", rec.RoomID, "messageId", rec.MessageID, "error", err)
		}
	}()

	h.broadcastToRoom(p.RoomID, protocol.Frame(protocol.TypeMessage, c.userID, p.RoomID, protocol.BroadcastMessagePayload{
		MessageID:   rec.MessageID,
		RoomID:      p.RoomID,
		UserID:      c.userID,
		Content:     p.Content,
		MessageType: messageType,
	}), "")
	return nil
}

// handleSearchSync rebroadcasts a result-count summary to the room,
// excluding the sender; the result set itself stays with the sender.
func (h *Hub) handleSearchSync(c *Client, env *protocol.Envelope) error {
	p, err := protocol.DecodeSearchSync(env)
	if err != nil {
		return err
	}

	if _, member := c.rooms[p.RoomID]; !member {
		return &protocol.WireError{
			Code:    protocol.CodeInvalidPayload,
			Message: "not a member of room " + p.RoomID,
		}
	}

	h.broadcastToRoom(p.RoomID, protocol.Frame(protocol.TypeSearchSync, c.userID, p.RoomID, protocol.SearchSyncSummaryPayload{
		UserID:      c.userID,
		Query:       p.Query,
		ResultCount: len(p.Results),
	}), c.userID)
	return nil
}

// handleActivity fans an activity frame out to its audience: the named
// room, or every connection when the audience is global.
func (h *Hub) handleActivity(c *Client, env *protocol.Envelope) error {
	p, err := protocol.DecodeActivity(env)
	if err != nil {
		return err
	}

	frame := protocol.Frame(protocol.TypeActivity, c.userID, p.RoomID, protocol.ActivityBroadcastPayload{
		UserID:       c.userID,
		ActivityType: p.ActivityType,
		Data:         p.Data,
		Audience:     p.Audience,
	})

	if p.Audience == protocol.AudienceGlobal {
		h.broadcastGlobal(frame, "")
		return nil
	}

	if _, member := c.rooms[p.RoomID]; !member {
		return &protocol.WireError{
			Code:    protocol.CodeInvalidPayload,
			Message: "not a member of room " + p.RoomID,
		}
	}
	h.broadcastToRoom(p.RoomID, frame, "")
	return nil
}
