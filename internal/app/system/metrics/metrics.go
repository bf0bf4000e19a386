// Package metrics exposes Prometheus collectors for HTTP traffic and rate
// limiting.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors. Methods are nil-safe so packages can accept a
// *Metrics without requiring one in tests.
type Metrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	statuses   *prometheus.CounterVec
	rlDecision *prometheus.CounterVec
	rlViolate  *prometheus.CounterVec
	gatherer   prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thesisai",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "thesisai",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		statuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thesisai",
			Name:      "http_status_category_total",
			Help:      "Responses by status category (2xx, 4xx, 5xx).",
		}, []string{"category"}),
		rlDecision: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thesisai",
			Name:      "ratelimit_decisions_total",
			Help:      "Rate limit decisions by feature and outcome.",
		}, []string{"feature", "outcome"}),
		rlViolate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thesisai",
			Name:      "ratelimit_violations_total",
			Help:      "Rate limit violations by feature and type.",
		}, []string{"feature", "type"}),
		gatherer: reg,
	}
	reg.MustRegister(m.requests, m.duration, m.statuses, m.rlDecision, m.rlViolate)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records count, duration, and status category per chi route
// pattern. Using the pattern rather than the raw path keeps label
// cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		if cat := category(status); cat != "" {
			m.statuses.WithLabelValues(cat).Inc()
		}
	})
}

// RateLimitDecision counts a limiter outcome.
func (m *Metrics) RateLimitDecision(feature, outcome string) {
	if m == nil {
		return
	}
	m.rlDecision.WithLabelValues(feature, outcome).Inc()
}

// RateLimitViolation counts a recorded violation.
func (m *Metrics) RateLimitViolation(feature, violationType string) {
	if m == nil {
		return
	}
	m.rlViolate.WithLabelValues(feature, violationType).Inc()
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func category(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return ""
}
