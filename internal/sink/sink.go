// Package sink defines the boundary to the external persistence
// collaborator that drains staged room messages. The hub publishes
// fire-and-forget; durability is entirely the collaborator's concern.
package sink

import (
	"context"
	"time"
)

// Record is one staged message handed to the persistence collaborator.
type Record struct {
	MessageID   string    `json:"messageId"`
	RoomID      string    `json:"roomId"`
	UserID      string    `json:"userId"`
	Content     string    `json:"content"`
	MessageType string    `json:"messageType"`
	Timestamp   time.Time `json:"timestamp"`
}

// Sink receives staged messages drained from room queues. Implementations
// must tolerate being called concurrently.
type Sink interface {
	Publish(ctx context.Context, rec Record) error
	Close() error
}

// Discard is a Sink that drops every record. It stands in when no external
// collaborator is configured.
type Discard struct{}

// Publish implements Sink.
func (Discard) Publish(context.Context, Record) error { return nil }

// Close implements Sink.
func (Discard) Close() error { return nil }
