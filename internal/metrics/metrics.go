// Package metrics exposes Prometheus collectors for the screening service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "mindwell"
	subsystem = "screening"
)

// Metrics reports backend attempts, assessment outcomes and persistence
// results. A nil *Metrics is valid and records nothing.
type Metrics struct {
	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	assessments     *prometheus.CounterVec
	stores          *prometheus.CounterVec
}

// MustNewMetrics constructs Metrics and registers its collectors with reg.
// Registration errors panic, matching promauto.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	attempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "backend_attempts_total",
			Help:      "Backend generation attempts by backend and outcome.",
		},
		[]string{"backend", "outcome"},
	)
	attemptDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "backend_attempt_duration_seconds",
			Help:      "Time spent in a single backend attempt.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"backend"},
	)
	assessments := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "assessments_total",
			Help:      "Assessment calls by final outcome.",
		},
		[]string{"outcome"},
	)
	stores := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_total",
			Help:      "Screening record writes by status.",
		},
		[]string{"status"},
	)
	reg.MustRegister(attempts, attemptDuration, assessments, stores)
	return &Metrics{
		attempts:        attempts,
		attemptDuration: attemptDuration,
		assessments:     assessments,
		stores:          stores,
	}
}

// ObserveAttempt records one backend attempt.
func (m *Metrics) ObserveAttempt(backend, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(backend, outcome).Inc()
	m.attemptDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// ObserveAssessment records the final outcome of an assessment call.
func (m *Metrics) ObserveAssessment(outcome string) {
	if m == nil {
		return
	}
	m.assessments.WithLabelValues(outcome).Inc()
}

// ObserveStore records the result of persisting a screening.
func (m *Metrics) ObserveStore(status string) {
	if m == nil {
		return
	}
	m.stores.WithLabelValues(status).Inc()
}
