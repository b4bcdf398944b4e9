// Package observability provides Prometheus metrics and OpenTelemetry tracing helpers.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autoqm"

// Metrics holds the application collectors
type Metrics struct {
	BudgetImports  *prometheus.CounterVec
	ItemsParsed    *prometheus.CounterVec
	ParseWarnings  prometheus.Counter
	SpecItems      prometheus.Counter
	FormsGenerated prometheus.Counter
	TempExpired    prometheus.Counter
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers all collectors on reg. A nil reg uses a fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		BudgetImports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_imports_total",
			Help:      "Budget imports by kind and status.",
		}, []string{"kind", "status"}),
		ItemsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_items_parsed_total",
			Help:      "Parsed budget line items by type.",
		}, []string{"type"}),
		ParseWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_parse_warnings_total",
			Help:      "Per-row parse warnings.",
		}),
		SpecItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spec_items_imported_total",
			Help:      "Technical specification items imported.",
		}),
		FormsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forms_generated_total",
			Help:      "Quality management forms generated.",
		}),
		TempExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "temp_files_expired_total",
			Help:      "Temporary standards workspaces removed by the cleanup job.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.BudgetImports,
		m.ItemsParsed,
		m.ParseWarnings,
		m.SpecItems,
		m.FormsGenerated,
		m.TempExpired,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveHTTP records one finished request
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
