// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "repo_analytics"

// Metrics groups the collectors shared by ingestion and query code.
type Metrics struct {
	registry *prometheus.Registry

	RecordsProcessed *prometheus.CounterVec
	RecordErrors     *prometheus.CounterVec
	RowsWritten      *prometheus.CounterVec
	FlushFallbacks   *prometheus.CounterVec
	CacheRequests    *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry, so that
// independent instances never collide.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RecordsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Export records handled by an ingestion path.",
		}, []string{"sink"}),
		RecordErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_errors_total",
			Help:      "Export records skipped because they could not be transformed or stored.",
		}, []string{"sink"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written per destination table.",
		}, []string{"table"}),
		FlushFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flush_fallbacks_total",
			Help:      "Bulk relational writes that fell back to row-by-row writes.",
		}, []string{"buffer"}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Result cache lookups by namespace and outcome.",
		}, []string{"namespace", "result"}),
	}
	m.registry.MustRegister(
		m.RecordsProcessed,
		m.RecordErrors,
		m.RowsWritten,
		m.FlushFallbacks,
		m.CacheRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
