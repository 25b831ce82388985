package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry         *prometheus.Registry
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	BooksTotal       prometheus.Counter
	ThumbnailsSaved  prometheus.Counter
	StoreResultTotal *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
	books := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_books_extracted_total",
			Help: "Total number of books extracted from listing pages.",
		},
	)
	thumbnails := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_thumbnails_saved_total",
			Help: "Total number of thumbnail images written to disk.",
		},
	)
	storeResults := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_store_results_total",
			Help: "Store attempts by outcome (inserted, failed, skipped).",
		},
		[]string{"outcome"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, books, thumbnails, storeResults, errorsTotal)

	return &Metrics{
		Registry:         registry,
		RequestsTotal:    requests,
		RequestDuration:  requestDuration,
		BooksTotal:       books,
		ThumbnailsSaved:  thumbnails,
		StoreResultTotal: storeResults,
		ErrorsTotal:      errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// IncBooks increments the extracted books counter.
func (m *Metrics) IncBooks() {
	if m == nil {
		return
	}
	m.BooksTotal.Inc()
}

// IncThumbnails increments the saved thumbnails counter.
func (m *Metrics) IncThumbnails() {
	if m == nil {
		return
	}
	m.ThumbnailsSaved.Inc()
}

// IncStore records the outcome of one store attempt.
func (m *Metrics) IncStore(outcome string) {
	if m == nil {
		return
	}
	m.StoreResultTotal.WithLabelValues(outcome).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
