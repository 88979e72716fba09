// Package sessionmetrics exposes Prometheus metrics for the session
// gateway daemon: connection/session/peer gauges and per-tag request,
// response, and relayed-message counters.
package sessionmetrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "sessiond"
	subsystem = "router"
)

// Label names.
const (
	labelTag     = "tag"
	labelOutcome = "outcome"
	labelDirection = "direction"
)

// Outcome label values for ResponsesTotal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Direction label values for MessagesRelayed.
const (
	DirectionToSession = "to_session"
	DirectionToUI      = "to_ui"
)

// Collector holds all router Prometheus metrics.
//
//   - Connections/Sessions/PeerSessions track currently live entities.
//   - RequestsTotal/ResponsesTotal are labeled by wire tag, so per-operation
//     throughput and failure rate are both visible without a second metric.
//   - MessagesRelayed counts application payloads in each direction.
type Collector struct {
	// Connections tracks the number of currently accepted UIConnections.
	Connections prometheus.Gauge

	// Sessions tracks the number of currently live SessionEntry rows.
	Sessions prometheus.Gauge

	// PeerSessions tracks the number of currently live PeerEntry rows,
	// summed across all sessions.
	PeerSessions prometheus.Gauge

	// RequestsTotal counts Requests dispatched by the Router, labeled by tag.
	RequestsTotal *prometheus.CounterVec

	// ResponsesTotal counts Responses emitted by the Router, labeled by
	// tag and outcome (success/failure).
	ResponsesTotal *prometheus.CounterVec

	// MessagesRelayed counts application payloads moved through the
	// Router in each direction (UI -> session, session -> UI).
	MessagesRelayed *prometheus.CounterVec
}

// NewCollector creates a Collector with all router metrics registered
// against reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.Connections,
		c.Sessions,
		c.PeerSessions,
		c.RequestsTotal,
		c.ResponsesTotal,
		c.MessagesRelayed,
	)

	return c
}

func newMetrics() *Collector {
	return &Collector{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connections",
			Help:      "Number of currently accepted UI connections.",
		}),

		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions",
			Help:      "Number of currently live sessions.",
		}),

		PeerSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "peer_sessions",
			Help:      "Number of currently live peer sub-sessions, across all sessions.",
		}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total requests dispatched by the router, by wire tag.",
		}, []string{labelTag}),

		ResponsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "responses_total",
			Help:      "Total responses emitted by the router, by wire tag and outcome.",
		}, []string{labelTag, labelOutcome}),

		MessagesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_relayed_total",
			Help:      "Total application messages relayed through the router, by direction.",
		}, []string{labelDirection}),
	}
}

// -------------------------------------------------------------------------
// Connection lifecycle
// -------------------------------------------------------------------------

func (c *Collector) ConnectionOpened() { c.Connections.Inc() }
func (c *Collector) ConnectionClosed() { c.Connections.Dec() }

// -------------------------------------------------------------------------
// Session / peer lifecycle
// -------------------------------------------------------------------------

func (c *Collector) SessionOpened() { c.Sessions.Inc() }
func (c *Collector) SessionClosed() { c.Sessions.Dec() }

func (c *Collector) PeerSessionOpened() { c.PeerSessions.Inc() }
func (c *Collector) PeerSessionClosed() { c.PeerSessions.Dec() }

// -------------------------------------------------------------------------
// Request / response counters
// -------------------------------------------------------------------------

// IncRequest increments the request counter for the given wire tag name.
func (c *Collector) IncRequest(tag string) {
	c.RequestsTotal.WithLabelValues(tag).Inc()
}

// IncResponse increments the response counter for the given wire tag name
// and outcome (OutcomeSuccess or OutcomeFailure).
func (c *Collector) IncResponse(tag, outcome string) {
	c.ResponsesTotal.WithLabelValues(tag, outcome).Inc()
}

// -------------------------------------------------------------------------
// Message relay counters
// -------------------------------------------------------------------------

// IncMessageToSession counts one application payload sent from a UI
// connection into the session network.
func (c *Collector) IncMessageToSession() {
	c.MessagesRelayed.WithLabelValues(DirectionToSession).Inc()
}

// IncMessageToUI counts one application payload delivered from the
// session network to a UI connection.
func (c *Collector) IncMessageToUI() {
	c.MessagesRelayed.WithLabelValues(DirectionToUI).Inc()
}
