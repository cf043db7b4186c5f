// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Row outcomes recorded by the import pipeline
const (
	RowImported  = "imported"
	RowDuplicate = "duplicate"
	RowSkipped   = "skipped"
	RowFailed    = "failed"
)

// Metrics groups the application collectors
type Metrics struct {
	registry *prometheus.Registry

	ImportRows   *prometheus.CounterVec
	ImportRuns   *prometheus.CounterVec
	HTTPRequests *prometheus.CounterVec
}

// New creates collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ImportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gastos",
			Name:      "import_rows_total",
			Help:      "Spreadsheet rows processed by the import pipeline, by outcome.",
		}, []string{"outcome"}),
		ImportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gastos",
			Name:      "import_runs_total",
			Help:      "Import runs by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gastos",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
	}

	m.registry.MustRegister(
		m.ImportRows,
		m.ImportRuns,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
