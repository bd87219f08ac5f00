// Package metrics defines the Prometheus collectors for the tutor. All
// methods are safe on a nil *Metrics so callers can run without metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcomes.
const (
	OutcomeGenerated = "generated"
	OutcomeFallback  = "fallback"
)

// Metrics bundles the collectors registered with one registry.
type Metrics struct {
	registry *prometheus.Registry

	generations     *prometheus.CounterVec
	evaluations     *prometheus.CounterVec
	persistence     *prometheus.CounterVec
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates collectors on a fresh registry, including the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supertutor_generations_total",
				Help: "Content generation requests by purpose and outcome",
			},
			[]string{"purpose", "outcome"},
		),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supertutor_evaluations_total",
				Help: "Scored learner submissions by activity type and result",
			},
			[]string{"type", "correct"},
		),
		persistence: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supertutor_persistence_writes_total",
				Help: "Learner document writes by result",
			},
			[]string{"result"},
		),
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 15, 45},
			},
			[]string{"method", "endpoint"},
		),
	}
	reg.MustRegister(
		m.generations,
		m.evaluations,
		m.persistence,
		m.requestCounter,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveGeneration counts one generation outcome.
func (m *Metrics) ObserveGeneration(purpose, outcome string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(purpose, outcome).Inc()
}

// ObserveEvaluation counts one scored submission.
func (m *Metrics) ObserveEvaluation(activityType string, correct bool) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(activityType, strconv.FormatBool(correct)).Inc()
}

// ObservePersistence counts one document write.
func (m *Metrics) ObservePersistence(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.persistence.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the chi route
// pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			endpoint = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}
