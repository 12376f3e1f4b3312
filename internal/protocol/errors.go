package protocol

// Wire error codes. The first three are the ProtocolError taxonomy; the
// rest map to capacity and rate-limit rejections. All of them are answered
// with an error frame to the offending sender only.
const (
	CodeInvalidEnvelope = "invalid_envelope"
	CodeUnknownType     = "unknown_type"
	CodeInvalidPayload  = "invalid_payload"
	CodeRoomFull        = "room_full"
	CodeServerFull      = "server_full"
	CodeRateLimited     = "rate_limited"
)

// WireError is an error that can be answered over the connection as an
// error frame. It never closes the connection or mutates state.
type WireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *WireError) Error() string {
	return e.Code + ": " + e.Message
}

// AsWireError normalizes any error into a WireError, defaulting unknown
// errors to an invalid-payload protocol error.
func AsWireError(err error) *WireError {
	if we, ok := err.(*WireError); ok {
		return we
	}
	return &WireError{Code: CodeInvalidPayload, Message: err.Error()}
}
