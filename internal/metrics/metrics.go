// Package metrics exposes Prometheus instrumentation for the advisor.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"academic_advisor/internal/models"
)

const namespace = "advisor"

// Outcome labels for analyses.
const (
	OutcomeOK          = "ok"
	OutcomeConfigError = "config_error"
	OutcomeNotFound    = "not_found"
	OutcomeError       = "error"
)

// Metrics holds every advisor collector. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	analyses            *prometheus.CounterVec
	skippedObservations prometheus.Counter
	diagnostics         *prometheus.CounterVec
	candidates          prometheus.Histogram
	analysisDuration    prometheus.Histogram
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// analyses counts completed analyses by outcome
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses performed, by outcome",
		}, []string{"outcome"}),

		skippedObservations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_observations_total",
			Help:      "Grade observations dropped during reconciliation",
		}),

		diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostics emitted, by kind and code",
		}, []string{"kind", "code"}),

		candidates: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retake_candidates",
			Help:      "Retake candidates returned per plan",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),

		analysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
		}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route, method and status",
		}, []string{"route", "method", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveAnalysis records one finished analysis.
func (m *Metrics) ObserveAnalysis(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome).Inc()
	m.analysisDuration.Observe(elapsed.Seconds())
}

// ObserveReconcile records skipped observations and every diagnostic.
func (m *Metrics) ObserveReconcile(skipped int, diags []models.Diagnostic) {
	if m == nil {
		return
	}
	if skipped > 0 {
		m.skippedObservations.Add(float64(skipped))
	}
	m.ObserveDiagnostics(diags)
}

// ObserveDiagnostics counts diagnostics by kind and code.
func (m *Metrics) ObserveDiagnostics(diags []models.Diagnostic) {
	if m == nil {
		return
	}
	for _, d := range diags {
		m.diagnostics.WithLabelValues(string(d.Kind), d.Code).Inc()
	}
}

// ObserveCandidates records the size of a retake list.
func (m *Metrics) ObserveCandidates(n int) {
	if m == nil {
		return
	}
	m.candidates.Observe(float64(n))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
