// Package metrics exposes connection health as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "tether"

// Collector records connection events. It implements connection.Recorder.
type Collector struct {
	registry *prometheus.Registry

	connectionOpen    prometheus.Gauge
	transitions       *prometheus.CounterVec
	reconnectPending  prometheus.Counter
	reconnectAttempts prometheus.Counter
	countdown         prometheus.Gauge
	messagesSent      *prometheus.CounterVec
	messagesReceived  *prometheus.CounterVec
	sendRejected      *prometheus.CounterVec
	protocolErrors    prometheus.Counter
}

// NewCollector registers the connection metrics on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		connectionOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "connections_open",
			Help:      "Number of gateway channels currently open",
		}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "state_transitions_total",
			Help:      "Connection lifecycle transitions",
		}, []string{"from", "to"}),
		reconnectPending: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconnects_scheduled_total",
			Help:      "Reconnect countdowns started after an unsolicited closure",
		}),
		reconnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Reconnect dials made when a countdown reached zero",
		}),
		countdown: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "reconnect_countdown_seconds",
			Help:      "Seconds left before the next reconnect attempt",
		}),
		messagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound envelopes written to the channel",
		}, []string{"type"}),
		messagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "messages_received_total",
			Help:      "Inbound envelopes delivered to subscribers",
		}, []string{"type"}),
		sendRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "send_rejected_total",
			Help:      "Outbound envelopes dropped because the channel was not open",
		}, []string{"type"}),
		protocolErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "protocol_errors_total",
			Help:      "Inbound frames rejected by the envelope codec",
		}),
	}
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) StateChanged(from, to string) {
	c.transitions.WithLabelValues(from, to).Inc()
	// one gauge is shared by every client of an ssh-server process
	if to == "open" {
		c.connectionOpen.Inc()
	}
	if from == "open" {
		c.connectionOpen.Dec()
	}
}

func (c *Collector) MessageSent(msgType string) {
	c.messagesSent.WithLabelValues(msgType).Inc()
}

func (c *Collector) MessageReceived(msgType string) {
	c.messagesReceived.WithLabelValues(msgType).Inc()
}

func (c *Collector) SendRejected(msgType string) {
	c.sendRejected.WithLabelValues(msgType).Inc()
}

func (c *Collector) ProtocolError() {
	c.protocolErrors.Inc()
}

func (c *Collector) ReconnectScheduled() {
	c.reconnectPending.Inc()
}

func (c *Collector) ReconnectAttempted() {
	c.reconnectAttempts.Inc()
}

func (c *Collector) Countdown(remaining int) {
	c.countdown.Set(float64(remaining))
}
