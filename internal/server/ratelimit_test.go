package server

import (
	"testing"
	"time"
)

// TestRateLimiterAllowsWithinWindow verifies that up to maxMessages calls
// inside one window are admitted and the next call is rejected.
func TestRateLimiterAllowsWithinWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := newRateLimiter(time.Second, 3, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if !rl.checkAndConsume("conn-1") {
			t.Fatalf("call %d inside the window was rejected", i+1)
		}
	}
	if rl.checkAndConsume("conn-1") {
		t.Fatal("call beyond maxMessages was admitted")
	}
}

// TestRateLimiterWindowReset verifies that an expired window is treated as
// absent: after the window elapses a new call is admitted with a reset
// count.
func TestRateLimiterWindowReset(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := newRateLimiter(time.Second, 2, func() time.Time { return now })

	rl.checkAndConsume("conn-1")
	rl.checkAndConsume("conn-1")
	if rl.checkAndConsume("conn-1") {
		t.Fatal("third call inside the window was admitted")
	}

	now = now.Add(time.Second + time.Millisecond)
	if !rl.checkAndConsume("conn-1") {
		t.Fatal("call after window expiry was rejected")
	}
	if !rl.checkAndConsume("conn-1") {
		t.Fatal("count was not reset with the new window")
	}
	if rl.checkAndConsume("conn-1") {
		t.Fatal("new window did not enforce the limit")
	}
}

// TestRateLimiterIndependentIdentifiers verifies that windows are tracked
// per identifier.
func TestRateLimiterIndependentIdentifiers(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := newRateLimiter(time.Second, 1, func() time.Time { return now })

	if !rl.checkAndConsume("a") {
		t.Fatal("first call for a was rejected")
	}
	if !rl.checkAndConsume("b") {
		t.Fatal("first call for b was rejected after a consumed its window")
	}
	if rl.checkAndConsume("a") {
		t.Fatal("second call for a was admitted")
	}
}

// TestRateLimiterForget verifies that forgetting an identifier releases
// its window.
func TestRateLimiterForget(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := newRateLimiter(time.Second, 1, func() time.Time { return now })

	rl.checkAndConsume("conn-1")
	if rl.checkAndConsume("conn-1") {
		t.Fatal("second call was admitted")
	}

	rl.forget("conn-1")
	if !rl.checkAndConsume("conn-1") {
		t.Fatal("call after forget was rejected")
	}
}
