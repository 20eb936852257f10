// Package metrics exposes Prometheus instrumentation for the API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ImportRowsTotal      *prometheus.CounterVec
	ImportDuplicateTotal prometheus.Counter
	ExtractionFallbacks  prometheus.Counter

	RemindersSentTotal *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ImportRowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statement_import_rows_total",
			Help: "Statement rows processed by outcome (normalized, dropped, inserted, duplicate).",
		}, []string{"outcome"}),
		ImportDuplicateTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "statement_import_duplicates_total",
			Help: "Rows skipped during commit because an identical expense exists.",
		}),
		ExtractionFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "statement_extraction_fallbacks_total",
			Help: "PDF extractions that fell back to the heuristic line parser.",
		}),
		RemindersSentTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Reminders dispatched by channel.",
		}, []string{"channel"}),
	}
}

// Handler returns the scrape endpoint for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
