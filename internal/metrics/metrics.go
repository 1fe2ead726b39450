package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeCompleted         = "completed"
	OutcomeAssistantUnstored = "assistant_unstored"
	OutcomeValidation        = "validation"
	OutcomeStorage           = "storage"
	OutcomeBackend           = "backend"
)

// Metrics owns its registry so tests and multiple routers do not collide on
// the default one.
type Metrics struct {
	Registry *prometheus.Registry

	turns          *prometheus.CounterVec
	backendLatency prometheus.Histogram
	logins         *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Chat turns by final outcome.",
		}, []string{"outcome"}),
		backendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chat_backend_latency_seconds",
			Help:    "Latency of generation backend calls.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.turns, m.backendLatency, m.logins)
	return m
}

func (m *Metrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveBackend(d time.Duration) {
	if m == nil {
		return
	}
	m.backendLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveLogin(ok bool) {
	if m == nil {
		return
	}
	result := "denied"
	if ok {
		result = "success"
	}
	m.logins.WithLabelValues(result).Inc()
}
