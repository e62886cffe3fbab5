package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetsql_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sheetsql_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetsql_generations_total",
			Help: "SQL generation calls by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	generationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sheetsql_generation_duration_seconds",
			Help:    "Latency of calls to the generation service.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"provider"},
	)

	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetsql_uploads_total",
			Help: "Accepted uploads by file format.",
		},
		[]string{"format"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		generationsTotal,
		generationDurationSeconds,
		uploadsTotal,
	)
}

// ObserveGeneration records one call to the generation service.
func ObserveGeneration(provider, outcome string, elapsed time.Duration) {
	generationsTotal.WithLabelValues(provider, outcome).Inc()
	generationDurationSeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveUpload records an accepted upload.
func ObserveUpload(format string) {
	uploadsTotal.WithLabelValues(format).Inc()
}
