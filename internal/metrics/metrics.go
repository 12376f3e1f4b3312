// Package metrics exposes Prometheus collectors for the hub.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// newHubCounter creates a counter in the standard parley/hub namespace.
func newHubCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "parley",
		Subsystem: "hub",
		Name:      name,
		Help:      help,
	})
}

// newHubCounterVec creates a labelled counter in the standard namespace.
func newHubCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parley",
		Subsystem: "hub",
		Name:      name,
		Help:      help,
	}, labels)
}

// newHubGauge creates a gauge in the standard namespace.
func newHubGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "parley",
		Subsystem: "hub",
		Name:      name,
		Help:      help,
	})
}

// Metrics holds the hub's Prometheus collectors.
type Metrics struct {
	ConnectionsCurrent prometheus.Gauge
	RoomsCurrent       prometheus.Gauge
	MessagesTotal      prometheus.Counter
	BroadcastsTotal    prometheus.Counter
	RateLimitedTotal   *prometheus.CounterVec
	EvictionsTotal     prometheus.Counter
	QueueDroppedTotal  prometheus.Counter
	ErrorFramesTotal   prometheus.Counter
}

// New creates the collector set and registers it with reg. Passing nil
// skips registration, which keeps tests independent of the default
// registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsCurrent: newHubGauge("connections_current", "Number of active connections."),
		RoomsCurrent:       newHubGauge("rooms_current", "Number of active rooms."),
		MessagesTotal:      newHubCounter("messages_total", "Application messages routed."),
		BroadcastsTotal:    newHubCounter("broadcast_frames_total", "Frames delivered to connections."),
		RateLimitedTotal:   newHubCounterVec("rate_limited_total", "Rate-limit rejections.", []string{"scope"}),
		EvictionsTotal:     newHubCounter("evictions_total", "Connections evicted by the heartbeat sweep."),
		QueueDroppedTotal:  newHubCounter("queue_dropped_total", "Messages evicted from full room queues."),
		ErrorFramesTotal:   newHubCounter("error_frames_total", "Error frames answered to senders."),
	}

	if reg != nil {
		reg.MustRegister(
			m.ConnectionsCurrent,
			m.RoomsCurrent,
			m.MessagesTotal,
			m.BroadcastsTotal,
			m.RateLimitedTotal,
			m.EvictionsTotal,
			m.QueueDroppedTotal,
			m.ErrorFramesTotal,
		)
	}

	return m
}
