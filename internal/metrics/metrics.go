// Package metrics exposes Prometheus instrumentation for eligibility checks,
// disbursements and the audit pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bnpl"

// Disbursement outcomes.
const (
	OutcomeSuccess           = "success"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeMisconfigured     = "misconfigured"
	OutcomeConflict          = "conflict"
	OutcomeError             = "error"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry             prometheus.Gatherer
	eligibilityDecisions *prometheus.CounterVec
	eligibilityDuration  prometheus.Histogram
	disbursements        *prometheus.CounterVec
	disbursementDuration prometheus.Histogram
	disbursementRetries  prometheus.Counter
	auditDropped         prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		eligibilityDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eligibility_decisions_total",
			Help:      "Eligibility checks by outcome code.",
		}, []string{"code"}),
		eligibilityDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "eligibility_duration_seconds",
			Help:      "Time spent evaluating eligibility.",
			Buckets:   prometheus.DefBuckets,
		}),
		disbursements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disbursements_total",
			Help:      "Disbursement attempts by outcome.",
		}, []string{"outcome"}),
		disbursementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "disbursement_duration_seconds",
			Help:      "Time spent in the disbursement transaction, retries included.",
			Buckets:   prometheus.DefBuckets,
		}),
		disbursementRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disbursement_retries_total",
			Help:      "Disbursement transactions retried after a serialization failure.",
		}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_dropped_total",
			Help:      "Audit events dropped because the buffer was full.",
		}),
	}

	reg.MustRegister(
		m.eligibilityDecisions,
		m.eligibilityDuration,
		m.disbursements,
		m.disbursementDuration,
		m.disbursementRetries,
		m.auditDropped,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveEligibility records one eligibility decision.
func (m *Metrics) ObserveEligibility(code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.eligibilityDecisions.WithLabelValues(code).Inc()
	m.eligibilityDuration.Observe(elapsed.Seconds())
}

// ObserveDisbursement records one disbursement attempt.
func (m *Metrics) ObserveDisbursement(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.disbursements.WithLabelValues(outcome).Inc()
	m.disbursementDuration.Observe(elapsed.Seconds())
}

// DisbursementRetried counts a serialization retry.
func (m *Metrics) DisbursementRetried() {
	if m == nil {
		return
	}
	m.disbursementRetries.Inc()
}

// AuditDropped counts an audit event lost to back-pressure.
func (m *Metrics) AuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}
