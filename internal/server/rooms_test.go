package server

import (
	"testing"
	"time"

	"github.com/parleychat/parley/internal/protocol"
)

func testRegistry(maxMembers int) *roomRegistry {
	return newRoomRegistry(maxMembers, 10, func() time.Time { return time.Unix(1000, 0) })
}

// TestRoomLazyCreation verifies that a room is created on first join with
// the supplied metadata.
func TestRoomLazyCreation(t *testing.T) {
	reg := testRegistry(100)

	rm, added, err := reg.join("r1", "alice", &protocol.RoomMetadata{Name: "Readers", MaxMembers: 5})
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if !added {
		t.Fatal("first join did not add the user")
	}
	if rm.name != "Readers" || rm.maxMembers != 5 {
		t.Fatalf("metadata not applied: name=%q maxMembers=%d", rm.name, rm.maxMembers)
	}
	if reg.count() != 1 {
		t.Fatalf("expected 1 room, got %d", reg.count())
	}
}

// TestRoomJoinIdempotent verifies that joining a room twice does not grow
// membership and is not reported as a new addition.
func TestRoomJoinIdempotent(t *testing.T) {
	reg := testRegistry(100)

	reg.join("r1", "alice", nil)
	rm, added, err := reg.join("r1", "alice", nil)
	if err != nil {
		t.Fatalf("repeat join failed: %v", err)
	}
	if added {
		t.Fatal("repeat join reported a new addition")
	}
	if len(rm.members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(rm.members))
	}
}

// TestRoomCapacityRejected verifies that a join attempt beyond maxMembers
// is rejected without mutating membership.
func TestRoomCapacityRejected(t *testing.T) {
	reg := testRegistry(2)

	reg.join("r1", "alice", nil)
	reg.join("r1", "bob", nil)

	_, _, err := reg.join("r1", "carol", nil)
	we, ok := err.(*protocol.WireError)
	if !ok || we.Code != protocol.CodeRoomFull {
		t.Fatalf("expected room_full error, got %v", err)
	}

	rm := reg.get("r1")
	if len(rm.members) != 2 {
		t.Fatalf("membership changed on rejected join: %d members", len(rm.members))
	}
	if _, member := rm.members["carol"]; member {
		t.Fatal("rejected user was added to membership")
	}
}

// TestRoomDeletedWhenEmpty verifies that the last leave deletes the room
// and a later join recreates it fresh, without the old metadata.
func TestRoomDeletedWhenEmpty(t *testing.T) {
	reg := testRegistry(100)

	reg.join("r1", "alice", &protocol.RoomMetadata{Name: "Old", MaxMembers: 3})

	_, removed, deleted := reg.leave("r1", "alice")
	if !removed || !deleted {
		t.Fatalf("expected removed and deleted, got removed=%v deleted=%v", removed, deleted)
	}
	if reg.count() != 0 {
		t.Fatalf("expected no rooms, got %d", reg.count())
	}

	rm, _, err := reg.join("r1", "bob", nil)
	if err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	if rm.name != "" || rm.maxMembers != 100 {
		t.Fatalf("recreated room kept stale metadata: name=%q maxMembers=%d", rm.name, rm.maxMembers)
	}
}

// TestRoomLeaveNonMember verifies that leaving without being a member is a
// harmless no-op.
func TestRoomLeaveNonMember(t *testing.T) {
	reg := testRegistry(100)
	reg.join("r1", "alice", nil)

	_, removed, deleted := reg.leave("r1", "bob")
	if removed || deleted {
		t.Fatal("non-member leave mutated the room")
	}
	if _, _, deleted := reg.leave("missing", "bob"); deleted {
		t.Fatal("leave on a missing room reported a delete")
	}
}
