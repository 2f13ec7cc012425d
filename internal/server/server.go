// Package server assembles the registry, coordinator, hub and HTTP surface
// into one Server instance.
package server

import (
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Tyrowin/gochat-rooms/internal/coordinator"
	"github.com/Tyrowin/gochat-rooms/internal/metrics"
	"github.com/Tyrowin/gochat-rooms/internal/registry"
)

// Server owns the process-wide chat state. It is constructed once at startup;
// nothing in this package is held in globals.
type Server struct {
	cfg         Config
	log         *zap.Logger
	registry    *registry.Registry
	hub         *Hub
	coordinator *coordinator.Coordinator
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	origins     *originPolicy
	upgrader    websocket.Upgrader
}

// New wires a Server from cfg. Zero values in cfg are replaced by defaults.
func New(cfg Config, log *zap.Logger) *Server {
	cfg = sanitizeConfig(cfg)

	reg := registry.New()
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry, reg)

	hub := NewHub(log.Named("hub"), m)
	s := &Server{
		cfg:      cfg,
		log:      log,
		registry: reg,
		hub:      hub,
		coordinator: coordinator.New(reg, hub,
			coordinator.WithLogger(log.Named("coordinator")),
			coordinator.WithMetrics(m)),
		metrics:  m,
		gatherer: promRegistry,
		origins:  newOriginPolicy(cfg.AllowedOrigins, log),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.check,
	}
	return s
}

// Hub returns the connection hub for lifecycle control.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Registry returns the session registry.
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Config returns the effective configuration.
func (s *Server) Config() Config {
	return s.cfg
}
