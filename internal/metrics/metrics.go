// Package metrics exposes Prometheus instruments for access decisions,
// weighting and publication.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the accord instruments on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Access decisions by outcome and reason
	Decisions *prometheus.CounterVec

	// Weighting runs where the feature source could not serve the index
	FeatureDegraded prometheus.Counter

	// Final weights
	Weights prometheus.Histogram

	// Stream publication outcomes: published, dropped, failed
	Publish *prometheus.CounterVec

	// Ledger appends: inserted, duplicate, failed
	LedgerAppends *prometheus.CounterVec
}

// New creates a Metrics instance with all instruments registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "accord_access_decisions_total",
			Help: "Access decisions by outcome and reason",
		}, []string{"allowed", "reason"}),

		FeatureDegraded: factory.NewCounter(prometheus.CounterOpts{
			Name: "accord_feature_degraded_total",
			Help: "Weight computations that fell back to a zero feature value",
		}),

		Weights: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "accord_svt_weight",
			Help:    "Final consensus weight of accepted submissions",
			Buckets: prometheus.ExponentialBuckets(1e3, 10, 17),
		}),

		Publish: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "accord_stream_publish_total",
			Help: "Event stream publication outcomes",
		}, []string{"result"}),

		LedgerAppends: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "accord_ledger_appends_total",
			Help: "Ledger append outcomes",
		}, []string{"result"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncDecision records an access decision.
func (m *Metrics) IncDecision(allowed bool, reason string) {
	if m != nil {
		m.Decisions.WithLabelValues(strconv.FormatBool(allowed), reason).Inc()
	}
}

// IncFeatureDegraded records a degraded feature lookup.
func (m *Metrics) IncFeatureDegraded() {
	if m != nil {
		m.FeatureDegraded.Inc()
	}
}

// ObserveWeight records a final weight.
func (m *Metrics) ObserveWeight(total uint64) {
	if m != nil {
		m.Weights.Observe(float64(total))
	}
}

// IncPublish records a publication outcome.
func (m *Metrics) IncPublish(result string) {
	if m != nil {
		m.Publish.WithLabelValues(result).Inc()
	}
}

// IncLedgerAppend records a ledger append outcome.
func (m *Metrics) IncLedgerAppend(result string) {
	if m != nil {
		m.LedgerAppends.WithLabelValues(result).Inc()
	}
}
