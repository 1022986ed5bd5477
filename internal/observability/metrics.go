package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce       sync.Once
	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec
	activityRecorded   *prometheus.CounterVec
	activitySearches   *prometheus.CounterVec
	archivalRuns       *prometheus.CounterVec
	archivedRecords    *prometheus.CounterVec
	archivalDuration   prometheus.Histogram
	archivalSkipped    prometheus.Counter
	searchCache        *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "activity_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		activityRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_records_total",
			Help: "Activity records written to the live collection.",
		}, []string{"type", "module"})

		activitySearches = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_searches_total",
			Help: "Searches executed, by the period that served them.",
		}, []string{"period_type"})

		archivalRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_archival_runs_total",
			Help: "Archival runs by outcome.",
		}, []string{"status"})

		archivedRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_archived_records_total",
			Help: "Records moved into archive partitions.",
		}, []string{"partition"})

		archivalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "activity_archival_duration_seconds",
			Help:    "Wall time of archival runs.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		})

		archivalSkipped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activity_archival_skipped_records_total",
			Help: "Records skipped during archival because they lack created_at.",
		})

		searchCache = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_search_cache_total",
			Help: "Archive search cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			activityRecorded, activitySearches,
			archivalRuns, archivedRecords, archivalDuration, archivalSkipped,
			searchCache,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ActivityRecorded counts records written.
func ActivityRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return activityRecorded
}

// ActivitySearches counts routed searches.
func ActivitySearches() *prometheus.CounterVec {
	RegisterMetrics()
	return activitySearches
}

// ArchivalRuns counts archival runs by status.
func ArchivalRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return archivalRuns
}

// ArchivedRecords counts records moved per partition.
func ArchivedRecords() *prometheus.CounterVec {
	RegisterMetrics()
	return archivedRecords
}

// ArchivalDuration observes archival wall time.
func ArchivalDuration() prometheus.Histogram {
	RegisterMetrics()
	return archivalDuration
}

// ArchivalSkipped counts records that could not be routed.
func ArchivalSkipped() prometheus.Counter {
	RegisterMetrics()
	return archivalSkipped
}

// SearchCache counts archive search cache hits and misses.
func SearchCache() *prometheus.CounterVec {
	RegisterMetrics()
	return searchCache
}

// MetricsHandler serves the default registry over Fiber for Prometheus scrapes.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}
