// Package server implements a sliding-window rate limiter that protects the
// hub from abuse. It is applied at connect time keyed by remote address and
// per application message keyed by connection id.
package server

import "time"

// rateWindow tracks one identifier's window. An expired window is treated
// as absent and reinitialized on the next check.
type rateWindow struct {
	count   int
	resetAt time.Time
}

// rateLimiter holds per-identifier windows. Its state is owned by the hub
// run loop, so no locking is needed; the injected clock keeps window expiry
// testable without real sleeps.
type rateLimiter struct {
	window      time.Duration
	maxMessages int
	now         func() time.Time
	windows     map[string]*rateWindow
}

func newRateLimiter(window time.Duration, maxMessages int, now func() time.Time) *rateLimiter {
	if window <= 0 {
		window = time.Second
	}
	if maxMessages <= 0 {
		maxMessages = 1
	}
	if now == nil {
		now = time.Now
	}

	return &rateLimiter{
		window:      window,
		maxMessages: maxMessages,
		now:         now,
		windows:     make(map[string]*rateWindow),
	}
}

// checkAndConsume records one event for the identifier and reports whether
// it is admitted. A missing or expired window starts fresh with count 1.
// This limiter fails closed: once the count tops the window limit, every
// further call inside the window is rejected.
func (rl *rateLimiter) checkAndConsume(identifier string) bool {
	now := rl.now()

	w, ok := rl.windows[identifier]
	if !ok || now.After(w.resetAt) {
		rl.windows[identifier] = &rateWindow{count: 1, resetAt: now.Add(rl.window)}
		return true
	}

	w.count++
	return w.count <= rl.maxMessages
}

// forget drops the identifier's window, used when its connection goes away.
func (rl *rateLimiter) forget(identifier string) {
	delete(rl.windows, identifier)
}
