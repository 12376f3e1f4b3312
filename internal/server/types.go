// Package server defines shared types and utility helpers that are reused
// across client and hub logic.
package server

import "strings"

// inboundFrame carries one raw frame from a client's read pump into the
// hub run loop, preserving per-connection receipt order.
type inboundFrame struct {
	client *Client
	raw    []byte
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
