package sessionmetrics_test

import (
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"

	sessionmetrics "github.com/sessiongw/sessiond/internal/metrics"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("write counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestConnectionGaugeTracksOpenClose(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := sessionmetrics.NewCollector(reg)

	c.ConnectionOpened()
	c.ConnectionOpened()
	if got := gaugeValue(t, c.Connections); got != 2 {
		t.Fatalf("connections = %v, want 2", got)
	}

	c.ConnectionClosed()
	if got := gaugeValue(t, c.Connections); got != 1 {
		t.Fatalf("connections = %v, want 1", got)
	}
}

func TestSessionAndPeerSessionGauges(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := sessionmetrics.NewCollector(reg)

	c.SessionOpened()
	c.PeerSessionOpened()
	c.PeerSessionOpened()

	if got := gaugeValue(t, c.Sessions); got != 1 {
		t.Fatalf("sessions = %v, want 1", got)
	}
	if got := gaugeValue(t, c.PeerSessions); got != 2 {
		t.Fatalf("peer sessions = %v, want 2", got)
	}

	c.SessionClosed()
	c.PeerSessionClosed()

	if got := gaugeValue(t, c.Sessions); got != 0 {
		t.Fatalf("sessions = %v, want 0", got)
	}
	if got := gaugeValue(t, c.PeerSessions); got != 1 {
		t.Fatalf("peer sessions = %v, want 1", got)
	}
}

func TestRequestAndResponseCountersLabeledByTag(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := sessionmetrics.NewCollector(reg)

	c.IncRequest("Connect")
	c.IncRequest("Connect")
	c.IncRequest("Message")

	c.IncResponse("Connect", sessionmetrics.OutcomeSuccess)
	c.IncResponse("Connect", sessionmetrics.OutcomeFailure)

	connectReq, err := c.RequestsTotal.GetMetricWithLabelValues("Connect")
	if err != nil {
		t.Fatalf("get Connect request counter: %v", err)
	}
	if got := counterValue(t, connectReq); got != 2 {
		t.Fatalf("Connect requests = %v, want 2", got)
	}

	messageReq, err := c.RequestsTotal.GetMetricWithLabelValues("Message")
	if err != nil {
		t.Fatalf("get Message request counter: %v", err)
	}
	if got := counterValue(t, messageReq); got != 1 {
		t.Fatalf("Message requests = %v, want 1", got)
	}

	connectSuccess, err := c.ResponsesTotal.GetMetricWithLabelValues("Connect", sessionmetrics.OutcomeSuccess)
	if err != nil {
		t.Fatalf("get Connect success counter: %v", err)
	}
	if got := counterValue(t, connectSuccess); got != 1 {
		t.Fatalf("Connect success responses = %v, want 1", got)
	}

	connectFailure, err := c.ResponsesTotal.GetMetricWithLabelValues("Connect", sessionmetrics.OutcomeFailure)
	if err != nil {
		t.Fatalf("get Connect failure counter: %v", err)
	}
	if got := counterValue(t, connectFailure); got != 1 {
		t.Fatalf("Connect failure responses = %v, want 1", got)
	}
}

func TestMessagesRelayedCountersByDirection(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := sessionmetrics.NewCollector(reg)

	c.IncMessageToSession()
	c.IncMessageToSession()
	c.IncMessageToUI()

	toSession, err := c.MessagesRelayed.GetMetricWithLabelValues(sessionmetrics.DirectionToSession)
	if err != nil {
		t.Fatalf("get to_session counter: %v", err)
	}
	if got := counterValue(t, toSession); got != 2 {
		t.Fatalf("to_session = %v, want 2", got)
	}

	toUI, err := c.MessagesRelayed.GetMetricWithLabelValues(sessionmetrics.DirectionToUI)
	if err != nil {
		t.Fatalf("get to_ui counter: %v", err)
	}
	if got := counterValue(t, toUI); got != 1 {
		t.Fatalf("to_ui = %v, want 1", got)
	}
}
