// Package metrics exposes Prometheus collectors for the chat relay.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tyrowin/gochat-rooms/internal/registry"
)

const namespace = "gochat"

// Join results used as the "result" label.
const (
	JoinAccepted      = "accepted"
	JoinDuplicateName = "duplicate_name"
	JoinAlreadyJoined = "already_joined"
	JoinFailed        = "failed"
)

// Metrics groups the relay's collectors.
type Metrics struct {
	Sessions          prometheus.GaugeFunc
	Rooms             prometheus.GaugeFunc
	Connections       prometheus.Gauge
	Joins             *prometheus.CounterVec
	Messages          prometheus.Counter
	DeliveriesDropped prometheus.Counter
}

// New creates the collectors and registers them on r. Session and room
// gauges are read from reg at scrape time.
func New(r prometheus.Registerer, reg *registry.Registry) *Metrics {
	m := &Metrics{
		Sessions: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Number of joined sessions.",
		}, func() float64 { return float64(reg.Len()) }),
		Rooms: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Number of rooms with at least one session.",
		}, func() float64 { return float64(reg.Rooms()) }),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of open WebSocket connections.",
		}),
		Joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "joins_total",
			Help:      "Join attempts by result.",
		}, []string{"result"}),
		Messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Chat messages relayed to a room.",
		}),
		DeliveriesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_dropped_total",
			Help:      "Outbound events dropped because a connection's send buffer was full or closed.",
		}),
	}

	r.MustRegister(m.Sessions, m.Rooms, m.Connections, m.Joins, m.Messages, m.DeliveriesDropped)
	return m
}

// ObserveJoin counts a join attempt; err is the registry outcome.
func (m *Metrics) ObserveJoin(err error) {
	if m == nil {
		return
	}
	m.Joins.WithLabelValues(joinResult(err)).Inc()
}

// ObserveMessage counts a relayed chat message.
func (m *Metrics) ObserveMessage() {
	if m == nil {
		return
	}
	m.Messages.Inc()
}

// ConnectionOpened increments the open connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.Connections.Inc()
}

// ConnectionClosed decrements the open connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.Connections.Dec()
}

// DeliveryDropped counts an event that could not be queued for a recipient.
func (m *Metrics) DeliveryDropped() {
	if m == nil {
		return
	}
	m.DeliveriesDropped.Inc()
}

func joinResult(err error) string {
	switch {
	case err == nil:
		return JoinAccepted
	case errors.Is(err, registry.ErrDuplicateName):
		return JoinDuplicateName
	case errors.Is(err, registry.ErrAlreadyJoined):
		return JoinAlreadyJoined
	default:
		return JoinFailed
	}
}
