package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTriageMetricsObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTriageMetrics(reg)

	m.ObserveSessionStarted()
	m.ObserveSessionStarted()
	m.ObserveSuggestion("protocol")
	m.ObserveSuggestion("protocol")
	m.ObserveSuggestion("error")
	m.ObserveTraversal("ask_user")
	m.ObserveAutoHops(2)
	m.ObserveMirrorFailure()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.sessionsStarted))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.suggestionTotal.WithLabelValues("protocol")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.suggestionTotal.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.traversalTotal.WithLabelValues("ask_user")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.mirrorFailures))
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *TriageMetrics
	assert.NotPanics(t, func() {
		m.ObserveSessionStarted()
		m.ObserveSuggestion("protocol")
		m.ObserveTraversal("complete")
		m.ObserveAutoHops(3)
		m.ObserveMirrorFailure()
	})
}
