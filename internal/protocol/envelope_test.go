package protocol

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func envelope(t *testing.T, frameType string, payload any) *Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &Envelope{Type: frameType, Payload: raw, Timestamp: time.Now()}
}

// TestParseEnvelope verifies recognition of the inbound type set and the
// rejection codes for malformed or unknown frames.
func TestParseEnvelope(t *testing.T) {
	for _, frameType := range []string{
		TypeJoinRoom, TypeLeaveRoom, TypeMessage, TypePresence,
		TypeTyping, TypeSearchSync, TypeActivity,
	} {
		raw, _ := json.Marshal(Envelope{Type: frameType})
		if _, err := ParseEnvelope(raw); err != nil {
			t.Errorf("recognized type %q was rejected: %v", frameType, err)
		}
	}

	cases := []struct {
		name string
		raw  []byte
		code string
	}{
		{"not json", []byte("{nope"), CodeInvalidEnvelope},
		{"missing type", []byte(`{"payload":{}}`), CodeInvalidEnvelope},
		{"unknown type", []byte(`{"type":"teleport"}`), CodeUnknownType},
	}
	for _, tc := range cases {
		_, err := ParseEnvelope(tc.raw)
		var we *WireError
		if !errors.As(err, &we) {
			t.Fatalf("%s: expected WireError, got %v", tc.name, err)
		}
		if we.Code != tc.code {
			t.Errorf("%s: expected code %q, got %q", tc.name, tc.code, we.Code)
		}
	}
}

// TestDecodeRequiredFields verifies that each decoder rejects payloads
// missing their required fields with an invalid_payload error.
func TestDecodeRequiredFields(t *testing.T) {
	cases := []struct {
		name   string
		decode func(*Envelope) error
		env    *Envelope
	}{
		{"join without roomId", func(e *Envelope) error { _, err := DecodeJoinRoom(e); return err },
			envelope(t, TypeJoinRoom, JoinRoomPayload{UserID: "alice"})},
		{"join without userId", func(e *Envelope) error { _, err := DecodeJoinRoom(e); return err },
			envelope(t, TypeJoinRoom, JoinRoomPayload{RoomID: "r1"})},
		{"leave without roomId", func(e *Envelope) error { _, err := DecodeLeaveRoom(e); return err },
			envelope(t, TypeLeaveRoom, LeaveRoomPayload{})},
		{"message without content", func(e *Envelope) error { _, err := DecodeMessage(e); return err },
			envelope(t, TypeMessage, MessagePayload{RoomID: "r1"})},
		{"presence without status", func(e *Envelope) error { _, err := DecodePresence(e); return err },
			envelope(t, TypePresence, PresencePayload{})},
		{"typing without roomId", func(e *Envelope) error { _, err := DecodeTyping(e); return err },
			envelope(t, TypeTyping, TypingPayload{IsTyping: true})},
		{"search without query", func(e *Envelope) error { _, err := DecodeSearchSync(e); return err },
			envelope(t, TypeSearchSync, SearchSyncPayload{RoomID: "r1"})},
		{"activity without type", func(e *Envelope) error { _, err := DecodeActivity(e); return err },
			envelope(t, TypeActivity, ActivityPayload{RoomID: "r1"})},
		{"missing payload", func(e *Envelope) error { _, err := DecodeMessage(e); return err },
			&Envelope{Type: TypeMessage}},
	}

	for _, tc := range cases {
		err := tc.decode(tc.env)
		var we *WireError
		if !errors.As(err, &we) {
			t.Fatalf("%s: expected WireError, got %v", tc.name, err)
		}
		if we.Code != CodeInvalidPayload {
			t.Errorf("%s: expected invalid_payload, got %q", tc.name, we.Code)
		}
	}
}

// TestDecodeActivityAudience verifies that a global activity needs no room
// while a room-scoped one does, and that the envelope-level room id is
// honored as a fallback.
func TestDecodeActivityAudience(t *testing.T) {
	global := envelope(t, TypeActivity, ActivityPayload{ActivityType: "x", Audience: AudienceGlobal})
	if _, err := DecodeActivity(global); err != nil {
		t.Fatalf("global activity without room rejected: %v", err)
	}

	scoped := envelope(t, TypeActivity, ActivityPayload{ActivityType: "x"})
	if _, err := DecodeActivity(scoped); err == nil {
		t.Fatal("room-scoped activity without room accepted")
	}

	fallback := envelope(t, TypeActivity, ActivityPayload{ActivityType: "x"})
	fallback.RoomID = "r1"
	p, err := DecodeActivity(fallback)
	if err != nil {
		t.Fatalf("envelope-level room id not honored: %v", err)
	}
	if p.RoomID != "r1" {
		t.Fatalf("expected room r1, got %q", p.RoomID)
	}
}

// TestFrameRoundTrip verifies that constructed outbound frames carry the
// type, addressing, and payload intact.
func TestFrameRoundTrip(t *testing.T) {
	raw := Frame(TypeTypingIndicator, "alice", "r1", TypingIndicatorPayload{
		UserID:   "alice",
		RoomID:   "r1",
		IsTyping: true,
	})
	if raw == nil {
		t.Fatal("Frame returned nil for a marshalable payload")
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if env.Type != TypeTypingIndicator || env.UserID != "alice" || env.RoomID != "r1" {
		t.Fatalf("frame header mismatch: %+v", env)
	}
	if env.Timestamp.IsZero() {
		t.Fatal("frame timestamp not set")
	}

	var p TypingIndicatorPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("unmarshal frame payload: %v", err)
	}
	if !p.IsTyping {
		t.Fatal("frame payload lost the typing flag")
	}
}

// TestErrorFrame verifies the error frame shape.
func TestErrorFrame(t *testing.T) {
	raw := ErrorFrame(&WireError{Code: CodeRateLimited, Message: "slow down"})

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal error frame: %v", err)
	}
	if env.Type != TypeError {
		t.Fatalf("expected error type, got %q", env.Type)
	}
	var we WireError
	if err := json.Unmarshal(env.Payload, &we); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	if we.Code != CodeRateLimited || we.Message != "slow down" {
		t.Fatalf("error payload mismatch: %+v", we)
	}
}

// TestAsWireError verifies normalization of arbitrary errors.
func TestAsWireError(t *testing.T) {
	we := &WireError{Code: CodeRoomFull, Message: "full"}
	if AsWireError(we) != we {
		t.Fatal("existing WireError was rewrapped")
	}
	if got := AsWireError(errors.New("boom")); got.Code != CodeInvalidPayload {
		t.Fatalf("expected invalid_payload for plain error, got %q", got.Code)
	}
}

// TestNewMessageID verifies that generated ids are unique and non-empty.
func TestNewMessageID(t *testing.T) {
	a, b := NewMessageID(), NewMessageID()
	if a == "" || b == "" {
		t.Fatal("empty message id")
	}
	if a == b {
		t.Fatal("message ids collided")
	}
}
