// Package server wires HTTP handlers into a ServeMux for the GoChat
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures and returns the application handler: health check,
// WebSocket endpoint, test page, stats, name availability and metrics, wrapped
// in request logging and security headers. Unknown paths answer 404.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", HealthHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("GET /test", TestPageHandler)
	mux.HandleFunc("GET /stats", s.StatsHandler)
	mux.HandleFunc("GET /rooms/{room}/users/{username}", s.AvailabilityHandler)
	if s.cfg.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return withRequestLogging(s.log.Named("http"), withSecurityHeaders(mux))
}
