// Package protocol defines the JSON envelope exchanged over a connection,
// the typed payloads it can carry, and the boundary validation applied to
// every inbound frame before it reaches any server state.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Inbound envelope types.
const (
	TypeJoinRoom   = "join_room"
	TypeLeaveRoom  = "leave_room"
	TypeMessage    = "message"
	TypePresence   = "presence"
	TypeTyping     = "typing"
	TypeSearchSync = "search_sync"
	TypeActivity   = "activity"
)

// Outbound envelope types.
const (
	TypeConnectionEstablished = "connection_established"
	TypeRoomJoined            = "room_joined"
	TypeRoomLeft              = "room_left"
	TypeUserJoined            = "user_joined"
	TypeUserLeft              = "user_left"
	TypePresenceUpdate        = "presence_update"
	TypeTypingIndicator       = "typing_indicator"
	TypeError                 = "error"
)

// Envelope is the uniform typed wrapper for every frame in both directions.
// Payload stays raw until the type-specific decoder validates it.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
	UserID    string          `json:"userId,omitempty"`
	RoomID    string          `json:"roomId,omitempty"`
}

// RoomMetadata carries optional room attributes supplied on join.
type RoomMetadata struct {
	Name       string `json:"name,omitempty"`
	Private    bool   `json:"private,omitempty"`
	MaxMembers int    `json:"maxMembers,omitempty"`
}

// JoinRoomPayload is the payload for join_room frames.
type JoinRoomPayload struct {
	RoomID   string        `json:"roomId"`
	UserID   string        `json:"userId"`
	Metadata *RoomMetadata `json:"metadata,omitempty"`
}

// LeaveRoomPayload is the payload for leave_room frames.
type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

// MessagePayload is the payload for message frames.
type MessagePayload struct {
	RoomID      string `json:"roomId"`
	Content     string `json:"content"`
	MessageType string `json:"messageType,omitempty"`
}

// PresencePayload is the payload for presence frames. RoomID narrows the
// broadcast to one room; empty means every room the user belongs to.
type PresencePayload struct {
	Status      string `json:"status"`
	RoomID      string `json:"roomId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// TypingPayload is the payload for typing frames.
type TypingPayload struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

// SearchSyncPayload is the payload for search_sync frames. Results are kept
// raw; only the count is rebroadcast.
type SearchSyncPayload struct {
	Query   string            `json:"query"`
	Results []json.RawMessage `json:"results"`
	RoomID  string            `json:"roomId,omitempty"`
}

// ActivityPayload is the payload for activity frames. Audience "global"
// broadcasts to every connection; otherwise RoomID is required.
type ActivityPayload struct {
	ActivityType string          `json:"activityType"`
	Data         json.RawMessage `json:"data"`
	RoomID       string          `json:"roomId,omitempty"`
	Audience     string          `json:"audience,omitempty"`
}

// ParseEnvelope unmarshals a raw inbound frame and checks that its type is
// recognized. The payload is validated separately by the type-specific
// decoders below.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &WireError{Code: CodeInvalidEnvelope, Message: "malformed envelope"}
	}

	switch env.Type {
	case TypeJoinRoom, TypeLeaveRoom, TypeMessage, TypePresence,
		TypeTyping, TypeSearchSync, TypeActivity:
		return &env, nil
	case "":
		return nil, &WireError{Code: CodeInvalidEnvelope, Message: "missing envelope type"}
	default:
		return nil, &WireError{Code: CodeUnknownType, Message: fmt.Sprintf("unknown envelope type %q", env.Type)}
	}
}

func decodePayload(env *Envelope, dst any) error {
	if len(env.Payload) == 0 {
		return &WireError{Code: CodeInvalidPayload, Message: "missing payload"}
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return &WireError{Code: CodeInvalidPayload, Message: fmt.Sprintf("malformed %s payload", env.Type)}
	}
	return nil
}

func requireField(env *Envelope, name, value string) error {
	if value == "" {
		return &WireError{
			Code:    CodeInvalidPayload,
			Message: fmt.Sprintf("%s payload requires %s", env.Type, name),
		}
	}
	return nil
}

// DecodeJoinRoom validates and extracts a join_room payload.
func DecodeJoinRoom(env *Envelope) (*JoinRoomPayload, error) {
	var p JoinRoomPayload
	if err := decodePayload(env, &p); err != nil {
		return nil, err
	}
	if err := requireField(env, "roomId", p.RoomID); err != nil {
		return nil, err
	}
	if err := requireField(env, "userId", p.UserID); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeLeaveRoom validates and extracts a leave_room payload.
func DecodeLeaveRoom(env *Envelope) (*LeaveRoomPayload, error) {
	var p LeaveRoomPayload
	if err := decodePayload(env, &p); err != nil {
		return nil, err
	}
	if err := requireField(env, "roomId", p.RoomID); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeMessage validates and extracts a message payload.
func DecodeMessage(env *Envelope) (*MessagePayload, error) {
	var p MessagePayload
	if err := decodePayload(env, &p); err != nil {
		return nil, err
	}
	if err := requireField(env, "roomId", p.RoomID); err != nil {
		return nil, err
	}
	if err := requireField(env, "content", p.Content); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodePresence validates and extracts a presence payload.
func DecodePresence(env *Envelope) (*PresencePayload, error) {
	var p PresencePayload
	if err := decodePayload(env, &p); err != nil {
		return nil, err
	}
	if err := requireField(env, "status", p.Status); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeTyping validates and extracts a typing payload.
func DecodeTyping(env *Envelope) (*TypingPayload, error) {
	var p TypingPayload
	if err := decodePayload(env, &p); err != nil {
		return nil, err
	}
	if err := requireField(env, "roomId", p.RoomID); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeSearchSync validates and extracts a search_sync payload.
func DecodeSearchSync(env *Envelope) (*SearchSyncPayload, error) {
	var p SearchSyncPayload
	if err := decodePayload(env, &p); err != nil {
		return nil, err
	}
	if err := requireField(env, "query", p.Query); err != nil {
		return nil, err
	}
	if p.RoomID == "" {
		p.RoomID = env.RoomID
	}
	if err := requireField(env, "roomId", p.RoomID); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeActivity validates and extracts an activity payload.
func DecodeActivity(env *Envelope) (*ActivityPayload, error) {
	var p ActivityPayload
	if err := decodePayload(env, &p); err != nil {
		return nil, err
	}
	if err := requireField(env, "activityType", p.ActivityType); err != nil {
		return nil, err
	}
	if p.RoomID == "" {
		p.RoomID = env.RoomID
	}
	if p.Audience != AudienceGlobal {
		if err := requireField(env, "roomId", p.RoomID); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// AudienceGlobal addresses an activity frame to every connection instead of
// a single room.
const AudienceGlobal = "global"
