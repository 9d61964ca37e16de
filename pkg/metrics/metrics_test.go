package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAssistant_Observe(t *testing.T) {
	m := NewAssistant(prometheus.NewRegistry())

	m.ObserveTurn("interpret", "ok", 20*time.Millisecond)
	m.ObserveTurn("interpret", "ok", 10*time.Millisecond)
	m.ObserveTransition("pending_confirmation", "confirmed")
	m.ObserveResolution("keyword")
	m.ObserveSweep("stale_pending", 3)
	m.ObserveSweep("stale_pending", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turns.WithLabelValues("interpret", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("pending_confirmation", "confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues("keyword")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.swept.WithLabelValues("stale_pending")))
}

func TestAssistant_NilIsNoop(t *testing.T) {
	var m *Assistant
	assert.NotPanics(t, func() {
		m.ObserveTurn("confirm", "error", time.Second)
		m.ObserveTransition("confirmed", "executed")
		m.ObserveResolution("speech")
		m.ObserveSweep("idle_sessions", 1)
	})
}
