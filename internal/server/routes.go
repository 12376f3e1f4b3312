// Package server wires HTTP handlers into a ServeMux for the Parley
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: health query, WebSocket endpoint, and, when a registry is given,
// the Prometheus metrics endpoint.
func SetupRoutes(h *Hub, reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.HealthHandler())
	mux.HandleFunc("/ws", h.WebSocketHandler())
	if reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return mux
}
