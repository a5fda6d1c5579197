package metrics

import "github.com/prometheus/client_golang/prometheus"

// TriageMetrics exposes counters/histograms for the intake session flow.
type TriageMetrics struct {
	sessionsStarted prometheus.Counter
	suggestionTotal *prometheus.CounterVec
	traversalTotal  *prometheus.CounterVec
	autoHops        prometheus.Histogram
	mirrorFailures  prometheus.Counter
}

func NewTriageMetrics(reg prometheus.Registerer) *TriageMetrics {
	m := &TriageMetrics{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "triage",
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Total interview sessions started (including restarts)",
		}),
		suggestionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triage",
			Subsystem: "session",
			Name:      "suggestion_total",
			Help:      "Total protocol suggestion calls by outcome",
		}, []string{"outcome"}),
		traversalTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "triage",
			Subsystem: "session",
			Name:      "traversal_total",
			Help:      "Total tree traversal responses by status",
		}, []string{"status"}),
		autoHops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "triage",
			Subsystem: "session",
			Name:      "auto_continuation_hops",
			Help:      "Automatic follow-up traversal calls issued per user action",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 25},
		}),
		mirrorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "triage",
			Subsystem: "mirror",
			Name:      "failures_total",
			Help:      "Best-effort transcript mirror writes that failed",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sessionsStarted, m.suggestionTotal, m.traversalTotal, m.autoHops, m.mirrorFailures)
	return m
}

func (m *TriageMetrics) ObserveSessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *TriageMetrics) ObserveSuggestion(outcome string) {
	if m == nil {
		return
	}
	m.suggestionTotal.WithLabelValues(outcome).Inc()
}

func (m *TriageMetrics) ObserveTraversal(status string) {
	if m == nil {
		return
	}
	m.traversalTotal.WithLabelValues(status).Inc()
}

func (m *TriageMetrics) ObserveAutoHops(hops int) {
	if m == nil {
		return
	}
	m.autoHops.Observe(float64(hops))
}

func (m *TriageMetrics) ObserveMirrorFailure() {
	if m == nil {
		return
	}
	m.mirrorFailures.Inc()
}
