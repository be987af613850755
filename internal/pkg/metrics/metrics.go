package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shelfscout"

// Leg names used as label values.
const (
	LegAI      = "ai"
	LegCatalog = "catalog"
)

// Search outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
)

// Metrics groups the collectors exported by the search pipeline.
type Metrics struct {
	registry         *prometheus.Registry
	searchRequests   *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	upstreamFailures *prometheus.CounterVec
	historyFailures  prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		searchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Latency of upstream calls by leg.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"leg"}),
		upstreamFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Failed upstream calls by leg.",
		}, []string{"leg"}),
		historyFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_write_failures_total",
			Help:      "Search history writes that failed and were swallowed.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveSearch(mode, outcome string) {
	if m == nil {
		return
	}
	m.searchRequests.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) ObserveUpstream(leg string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(leg).Observe(time.Since(started).Seconds())
	if err != nil {
		m.upstreamFailures.WithLabelValues(leg).Inc()
	}
}

func (m *Metrics) HistoryWriteFailed() {
	if m == nil {
		return
	}
	m.historyFailures.Inc()
}
