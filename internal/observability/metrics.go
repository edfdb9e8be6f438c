// Package observability bundles Prometheus collectors for the service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scrape pipeline. All helper
// methods are nil-safe so components can run unmetered in tests.
type Metrics struct {
	Registry           *prometheus.Registry
	SessionsTotal      *prometheus.CounterVec
	SessionDuration    prometheus.Histogram
	PagesRenderedTotal prometheus.Counter
	ReviewsTotal       prometheus.Counter
	InferenceRetries   prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	sessions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewlens_sessions_total",
			Help: "Scrape sessions by outcome.",
		},
		[]string{"outcome"},
	)
	sessionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reviewlens_session_duration_seconds",
			Help:    "Wall-clock duration of scrape sessions.",
			Buckets: prometheus.DefBuckets,
		},
	)
	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reviewlens_pages_rendered_total",
			Help: "Total pages rendered across all sessions.",
		},
	)
	reviews := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reviewlens_reviews_extracted_total",
			Help: "Total normalized reviews produced.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reviewlens_inference_retries_total",
			Help: "Model re-asks caused by malformed plan output.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewlens_errors_total",
			Help: "Session-fatal errors by kind.",
		},
		[]string{"kind"},
	)

	registry.MustRegister(sessions, sessionDuration, pages, reviews, retries, errorsTotal)

	return &Metrics{
		Registry:           registry,
		SessionsTotal:      sessions,
		SessionDuration:    sessionDuration,
		PagesRenderedTotal: pages,
		ReviewsTotal:       reviews,
		InferenceRetries:   retries,
		ErrorsTotal:        errorsTotal,
	}
}

// IncSession records a finished session with its outcome label.
func (m *Metrics) IncSession(outcome string) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSession records a session duration.
func (m *Metrics) ObserveSession(d time.Duration) {
	if m == nil {
		return
	}
	m.SessionDuration.Observe(d.Seconds())
}

// IncPages increments the rendered-pages counter.
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesRenderedTotal.Inc()
}

// AddReviews adds to the extracted-reviews counter.
func (m *Metrics) AddReviews(n int) {
	if m == nil {
		return
	}
	m.ReviewsTotal.Add(float64(n))
}

// IncInferenceRetry increments the inference retry counter.
func (m *Metrics) IncInferenceRetry() {
	if m == nil {
		return
	}
	m.InferenceRetries.Inc()
}

// IncError increments the error counter for an error kind.
func (m *Metrics) IncError(kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}
