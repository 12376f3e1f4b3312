package protocol

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// ConnectionEstablishedPayload is the handshake sent when a transport opens.
type ConnectionEstablishedPayload struct {
	SocketID     string    `json:"socketId"`
	ServerTime   time.Time `json:"serverTime"`
	Capabilities []string  `json:"capabilities"`
}

// RoomJoinedPayload confirms a join to the joining user.
type RoomJoinedPayload struct {
	RoomID     string   `json:"roomId"`
	Members    []string `json:"members"`
	MaxMembers int      `json:"maxMembers"`
}

// RoomLeftPayload confirms a leave to the leaving user.
type RoomLeftPayload struct {
	RoomID string `json:"roomId"`
}

// MemberEventPayload announces a user joining or leaving to room peers.
type MemberEventPayload struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
	Reason string `json:"reason,omitempty"`
}

// BroadcastMessagePayload is the message frame fanned out to room members.
type BroadcastMessagePayload struct {
	MessageID   string `json:"messageId"`
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	Content     string `json:"content"`
	MessageType string `json:"messageType"`
}

// PresenceUpdatePayload announces an ephemeral status change.
type PresenceUpdatePayload struct {
	UserID      string `json:"userId"`
	Status      string `json:"status"`
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName,omitempty"`
}

// TypingIndicatorPayload announces typing state to room peers.
type TypingIndicatorPayload struct {
	UserID   string `json:"userId"`
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

// SearchSyncSummaryPayload is the result-count summary rebroadcast to the
// room; the result set itself never leaves the sender.
type SearchSyncSummaryPayload struct {
	UserID      string `json:"userId"`
	Query       string `json:"query"`
	ResultCount int    `json:"resultCount"`
}

// ActivityBroadcastPayload is the activity frame fanned out to its audience.
type ActivityBroadcastPayload struct {
	UserID       string          `json:"userId"`
	ActivityType string          `json:"activityType"`
	Data         json.RawMessage `json:"data,omitempty"`
	Audience     string          `json:"audience,omitempty"`
}

// NewMessageID returns a sortable unique id for a broadcast message.
func NewMessageID() string {
	return ulid.Make().String()
}

// Frame builds and marshals an outbound envelope. Payload types above are
// all JSON-safe, so the marshal cannot fail in practice; a nil return only
// happens if a caller passes an unmarshalable payload.
func Frame(frameType, userID, roomID string, payload any) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	data, err := json.Marshal(Envelope{
		Type:      frameType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		RoomID:    roomID,
	})
	if err != nil {
		return nil
	}
	return data
}

// ErrorFrame builds the error frame answered to a misbehaving sender.
func ErrorFrame(we *WireError) []byte {
	return Frame(TypeError, "", "", we)
}
