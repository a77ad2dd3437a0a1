// Package metrics provides Prometheus metrics for insightview.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "insightview"

var (
	// RequestsTotal counts API requests by route and status class.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"route", "status"},
	)

	// RequestDuration measures API request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// LoadsTotal counts dataset loads by outcome.
	LoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Total number of dataset loads",
		},
		[]string{"status"},
	)

	// LoadDuration measures how long a dataset load takes.
	LoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of dataset loads in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// Records tracks the size of the stored collection.
	Records = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Number of insight records currently stored",
		},
	)

	// SkippedElements counts dataset elements that were not objects.
	SkippedElements = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_skipped_elements_total",
			Help:      "Dataset array elements skipped during decoding",
		},
	)

	// StaleResponses counts record fetches discarded because a
	// newer filter superseded them.
	StaleResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      "Record responses discarded as stale",
		},
	)

	// FetchErrors counts failed option or record fetches.
	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed option or record fetches",
		},
		[]string{"source"},
	)
)

// RecordRequest records a served API request.
func RecordRequest(route string, status int, d time.Duration) {
	RequestsTotal.WithLabelValues(route, statusClass(status)).Inc()
	RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordLoad records a dataset load attempt. records and skipped
// are ignored when err is non-nil.
func RecordLoad(records, skipped int, d time.Duration, err error) {
	LoadDuration.Observe(d.Seconds())
	if err != nil {
		LoadsTotal.WithLabelValues("error").Inc()
		return
	}
	LoadsTotal.WithLabelValues("ok").Inc()
	Records.Set(float64(records))
	SkippedElements.Add(float64(skipped))
}

// RecordStale records a discarded stale response.
func RecordStale() {
	StaleResponses.Inc()
}

// RecordFetchError records a failed fetch from source
// ("options" or "records").
func RecordFetchError(source string) {
	FetchErrors.WithLabelValues(source).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
