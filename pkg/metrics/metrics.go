// Package metrics holds the Prometheus collectors exported by the assistant.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voice_assistant"

// Assistant groups the assistant's collectors. A nil *Assistant records nothing.
type Assistant struct {
	turns        *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec
	transitions  *prometheus.CounterVec
	resolutions  *prometheus.CounterVec
	swept        *prometheus.CounterVec
}

// NewAssistant creates the collectors and registers them on reg.
func NewAssistant(reg prometheus.Registerer) *Assistant {
	m := &Assistant{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Assistant turns by turn type and outcome.",
		}, []string{"turn_type", "status"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time spent serving one assistant turn.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"turn_type"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_transitions_total",
			Help:      "Command status transitions by target status.",
		}, []string{"from", "to"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_resolutions_total",
			Help:      "Category resolutions by source.",
		}, []string{"source"}),
		swept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "maintenance_swept_total",
			Help:      "Rows changed by maintenance jobs.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.turns, m.turnDuration, m.transitions, m.resolutions, m.swept)
	return m
}

// ObserveTurn records one served turn.
func (m *Assistant) ObserveTurn(turnType, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(turnType, status).Inc()
	m.turnDuration.WithLabelValues(turnType).Observe(elapsed.Seconds())
}

// ObserveTransition records a command status change.
func (m *Assistant) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// ObserveResolution records how a category was chosen.
func (m *Assistant) ObserveResolution(source string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(source).Inc()
}

// ObserveSweep records rows changed by a maintenance job.
func (m *Assistant) ObserveSweep(job string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.WithLabelValues(job).Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
