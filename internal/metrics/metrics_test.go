package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewRegistersCollectors verifies that the collector set registers
// exactly once and the collectors are usable.
func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ConnectionsCurrent.Set(3)
	m.MessagesTotal.Inc()
	m.RateLimitedTotal.WithLabelValues("connect").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("no metric families registered")
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("double registration did not panic")
		}
	}()
	reg.MustRegister(m.MessagesTotal)
}

// TestNewWithoutRegistry verifies that a nil registerer skips registration
// but still returns usable collectors.
func TestNewWithoutRegistry(t *testing.T) {
	m := New(nil)
	m.BroadcastsTotal.Inc()
	m.RoomsCurrent.Set(1)
}
