// Package metrics exposes Prometheus collectors for the bookrank service.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchRequestsTotal         *prometheus.CounterVec
	fetchBytesTotal            *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	parseItemsTotal            *prometheus.CounterVec
	crawlTasksTotal            *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookrank_fetch_requests_total",
				Help: "Total outbound fetches, labeled by host and status code.",
			},
			[]string{"host", "status"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookrank_fetch_bytes_total",
				Help: "Total response bytes fetched, labeled by host.",
			},
			[]string{"host"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bookrank_fetch_duration_seconds",
				Help:    "Histogram of outbound fetch latencies, labeled by host.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"host"},
		)

		parseItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookrank_parse_items_total",
				Help: "Total ranking entries parsed, labeled by page and result.",
			},
			[]string{"page", "result"},
		)

		crawlTasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookrank_crawl_tasks_total",
				Help: "Total crawl tasks finished, labeled by page and status.",
			},
			[]string{"page", "status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// ObserveFetch records one outbound fetch.
func ObserveFetch(host string, status int, bytes int, duration time.Duration) {
	if fetchRequestsTotal == nil {
		return
	}
	fetchRequestsTotal.WithLabelValues(host, strconv.Itoa(status)).Inc()
	if bytes > 0 {
		fetchBytesTotal.WithLabelValues(host).Add(float64(bytes))
	}
	fetchDurationSeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// ObserveParsedItems records parser outcomes for a page.
func ObserveParsedItems(page string, parsed, failed int) {
	if parseItemsTotal == nil {
		return
	}
	parseItemsTotal.WithLabelValues(page, "ok").Add(float64(parsed))
	if failed > 0 {
		parseItemsTotal.WithLabelValues(page, "failed").Add(float64(failed))
	}
}

// ObserveTask records a finished crawl task.
func ObserveTask(page, status string) {
	if crawlTasksTotal == nil {
		return
	}
	crawlTasksTotal.WithLabelValues(page, status).Inc()
}

// ObserveHTTPRequest records one API request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
