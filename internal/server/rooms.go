// Package server implements the room registry: room lifecycle, capacity
// bounds, and membership bookkeeping.
package server

import (
	"time"

	"github.com/parleychat/parley/internal/protocol"
)

// room groups users for shared broadcasts. Rooms are created lazily on
// first join and deleted as soon as membership reaches zero; a later join
// recreates the room fresh.
type room struct {
	id         string
	members    map[string]struct{}
	createdAt  time.Time
	name       string
	private    bool
	maxMembers int
	queue      *messageQueue
}

// memberList returns the current member user ids.
func (r *room) memberList() []string {
	members := make([]string, 0, len(r.members))
	for userID := range r.members {
		members = append(members, userID)
	}
	return members
}

// roomRegistry owns the room table. Like every mutable table in this
// package it is touched only from the hub run loop.
type roomRegistry struct {
	rooms             map[string]*room
	defaultMaxMembers int
	queueSize         int
	now               func() time.Time
}

func newRoomRegistry(defaultMaxMembers, queueSize int, now func() time.Time) *roomRegistry {
	if now == nil {
		now = time.Now
	}
	return &roomRegistry{
		rooms:             make(map[string]*room),
		defaultMaxMembers: defaultMaxMembers,
		queueSize:         queueSize,
		now:               now,
	}
}

// join adds userID to the room, creating it lazily if needed. A full room
// is rejected without touching membership. Joining a room the user is
// already in is a no-op; added reports whether membership actually grew.
func (reg *roomRegistry) join(roomID, userID string, meta *protocol.RoomMetadata) (rm *room, added bool, err error) {
	rm, ok := reg.rooms[roomID]
	if !ok {
		rm = &room{
			id:         roomID,
			members:    make(map[string]struct{}),
			createdAt:  reg.now(),
			maxMembers: reg.defaultMaxMembers,
			queue:      newMessageQueue(reg.queueSize),
		}
		if meta != nil {
			rm.name = meta.Name
			rm.private = meta.Private
			if meta.MaxMembers > 0 {
				rm.maxMembers = meta.MaxMembers
			}
		}
		reg.rooms[roomID] = rm
	}

	if _, member := rm.members[userID]; member {
		return rm, false, nil
	}

	if len(rm.members) >= rm.maxMembers {
		return nil, false, &protocol.WireError{
			Code:    protocol.CodeRoomFull,
			Message: "room " + roomID + " is at capacity",
		}
	}

	rm.members[userID] = struct{}{}
	return rm, true, nil
}

// leave removes userID from the room. When the last member leaves the room
// is deleted. removed reports whether the user was actually a member.
func (reg *roomRegistry) leave(roomID, userID string) (rm *room, removed, deleted bool) {
	rm, ok := reg.rooms[roomID]
	if !ok {
		return nil, false, false
	}

	if _, member := rm.members[userID]; !member {
		return rm, false, false
	}

	delete(rm.members, userID)
	if len(rm.members) == 0 {
		delete(reg.rooms, roomID)
		return rm, true, true
	}
	return rm, true, false
}

// get returns the room or nil.
func (reg *roomRegistry) get(roomID string) *room {
	return reg.rooms[roomID]
}

// count reports the number of live rooms.
func (reg *roomRegistry) count() int {
	return len(reg.rooms)
}
