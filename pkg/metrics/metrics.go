// Package metrics exposes accountd's Prometheus counters and HTTP middleware.
//
// All recording methods are safe on a nil *Metrics, so services can be built
// without instrumentation in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "accountd"

type Metrics struct {
	registry *prometheus.Registry

	resetOutcomes       *prometheus.CounterVec
	cleanupFailures     *prometheus.CounterVec
	codesSent           *prometheus.CounterVec
	codeConfirmations   *prometheus.CounterVec
	notifications       *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		resetOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_reset_total",
			Help:      "Password reset requests by outcome",
		}, []string{"outcome"}),
		cleanupFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_reset_cleanup_failures_total",
			Help:      "Post-commit cleanup steps that failed after a password change",
		}, []string{"step"}),
		codesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_codes_sent_total",
			Help:      "Verification code requests by outcome",
		}, []string{"outcome"}),
		codeConfirmations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_code_confirmations_total",
			Help:      "Verification code confirmations by outcome",
		}, []string{"outcome"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Outbox notification deliveries by type and outcome",
		}, []string{"type", "outcome"}),
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ResetOutcome(outcome string) {
	if m == nil {
		return
	}
	m.resetOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CleanupFailure(step string) {
	if m == nil {
		return
	}
	m.cleanupFailures.WithLabelValues(step).Inc()
}

func (m *Metrics) CodeSent(outcome string) {
	if m == nil {
		return
	}
	m.codesSent.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CodeConfirmed(outcome string) {
	if m == nil {
		return
	}
	m.codeConfirmations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Notification(noticeType, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(noticeType, outcome).Inc()
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latencies by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		m.httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
