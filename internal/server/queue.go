// Package server provides the bounded per-room staging buffer that holds
// recently routed messages for the external persistence collaborator.
package server

import "github.com/parleychat/parley/internal/sink"

// messageQueue is a bounded FIFO of staged messages. Appending beyond
// capacity evicts the oldest entry. Contents are lost on restart; this is
// a staging area, not a durability layer.
type messageQueue struct {
	capacity int
	entries  []sink.Record
}

func newMessageQueue(capacity int) *messageQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &messageQueue{
		capacity: capacity,
		entries:  make([]sink.Record, 0, capacity),
	}
}

// append stages a record and reports whether an older entry was dropped to
// make room.
func (q *messageQueue) append(rec sink.Record) (dropped bool) {
	if len(q.entries) >= q.capacity {
		copy(q.entries, q.entries[1:])
		q.entries[len(q.entries)-1] = rec
		return true
	}
	q.entries = append(q.entries, rec)
	return false
}

// len reports the number of staged entries.
func (q *messageQueue) len() int {
	return len(q.entries)
}

// snapshot copies the staged entries in order, oldest first.
func (q *messageQueue) snapshot() []sink.Record {
	out := make([]sink.Record, len(q.entries))
	copy(out, q.entries)
	return out
}
