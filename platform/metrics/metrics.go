// Package metrics owns the Prometheus collectors for the lifecycle engine.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all collectors. Each instance has a private registry, so
// constructing several (as tests do) never collides.
type Metrics struct {
	Registry *prometheus.Registry

	mutations          *prometheus.CounterVec
	mutationDuration   *prometheus.HistogramVec
	syncEvents         *prometheus.CounterVec
	valuationFallbacks prometheus.Counter
	identityLookups    *prometheus.CounterVec
}

// New creates the registry and registers every collector in it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_mutations_total",
				Help: "Lifecycle mutations by entity, operation and outcome.",
			},
			[]string{"entity", "op", "outcome"},
		),
		mutationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_mutation_duration_seconds",
				Help:    "Duration of coordinated mutations including persistence.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity", "op"},
		),
		syncEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_sync_events_total",
				Help: "Cross-surface sync events by type and origin.",
			},
			[]string{"type", "origin"},
		),
		valuationFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_valuation_fallbacks_total",
				Help: "Pipeline value computations that fell back to explicit values only.",
			},
		),
		identityLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_identity_lookups_total",
				Help: "Caller identity resolutions by result.",
			},
			[]string{"result"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveMutation records one coordinated mutation. outcome is "ok" or an error kind.
func (m *Metrics) ObserveMutation(entity, op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(entity, op, outcome).Inc()
	m.mutationDuration.WithLabelValues(entity, op).Observe(d.Seconds())
}

// IncrSyncEvent counts an event delivered through the sync hub.
// origin is "mutation" or "poll".
func (m *Metrics) IncrSyncEvent(eventType, origin string) {
	if m == nil {
		return
	}
	m.syncEvents.WithLabelValues(eventType, origin).Inc()
}

// IncrValuationFallback counts a pipeline value computed without the estimator.
func (m *Metrics) IncrValuationFallback() {
	if m == nil {
		return
	}
	m.valuationFallbacks.Inc()
}

// IncrIdentityLookup counts a session resolution. result is "hit", "miss" or "error".
func (m *Metrics) IncrIdentityLookup(result string) {
	if m == nil {
		return
	}
	m.identityLookups.WithLabelValues(result).Inc()
}

// MutationCount returns the cumulative counter for the label set.
func (m *Metrics) MutationCount(entity, op, outcome string) float64 {
	return counterValue(m.mutations.WithLabelValues(entity, op, outcome))
}

// SyncEventCount returns the cumulative counter for the label set.
func (m *Metrics) SyncEventCount(eventType, origin string) float64 {
	return counterValue(m.syncEvents.WithLabelValues(eventType, origin))
}

// ValuationFallbackCount returns the cumulative fallback counter.
func (m *Metrics) ValuationFallbackCount() float64 {
	return counterValue(m.valuationFallbacks)
}

func counterValue(c prometheus.Counter) float64 {
	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil {
		return 0
	}
	if metric.Counter != nil && metric.Counter.Value != nil {
		return *metric.Counter.Value
	}
	return 0
}
