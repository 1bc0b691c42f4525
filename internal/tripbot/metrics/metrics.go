// Package metrics exposes the bot's Prometheus counters. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"tripbot/internal/models"
)

type Metrics struct {
	sweeps      *prometheus.CounterVec
	inbound     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	sends       *prometheus.CounterVec
	saveErrors  prometheus.Counter
	queueDepth  prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripbot",
			Name:      "sweeps_total",
			Help:      "Sweep ticks by outcome.",
		}, []string{"outcome"}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripbot",
			Name:      "inbound_messages_total",
			Help:      "Inbound chat messages by resolution outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripbot",
			Name:      "transitions_total",
			Help:      "Applied state transitions by track and rule.",
		}, []string{"track", "rule"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripbot",
			Name:      "outbound_messages_total",
			Help:      "Outbound chat messages by result.",
		}, []string{"result"}),
		saveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tripbot",
			Name:      "store_save_errors_total",
			Help:      "Failed trip writes.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tripbot",
			Name:      "queue_depth",
			Help:      "Units of work waiting in the dispatcher queue.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sweeps, m.inbound, m.transitions, m.sends, m.saveErrors, m.queueDepth)
	}
	return m
}

func (m *Metrics) Sweep(outcome string) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Inbound(outcome string) {
	if m == nil {
		return
	}
	m.inbound.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Transition(track models.Track, rule string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(track), rule).Inc()
}

func (m *Metrics) Send(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sends.WithLabelValues(result).Inc()
}

func (m *Metrics) SaveError() {
	if m == nil {
		return
	}
	m.saveErrors.Inc()
}

func (m *Metrics) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
