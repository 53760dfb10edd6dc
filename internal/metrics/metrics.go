package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestCounter counts HTTP requests by status code, method and route
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"status", "method", "path"},
	)

	// RequestDuration measures HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contest_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status", "method", "path"},
	)

	// RequestInProgress counts HTTP requests currently being processed
	RequestInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contest_http_requests_in_progress",
			Help: "Number of HTTP requests currently being processed",
		},
		[]string{"method", "path"},
	)

	// DatabaseOperationDuration measures database operation duration
	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contest_db_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	// ScoresRecorded counts accepted score upserts
	ScoresRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contest_scores_recorded_total",
			Help: "Total number of judging scores recorded or updated",
		},
	)

	// ScoresRejected counts score requests rejected by a rule, by error kind
	ScoresRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_scores_rejected_total",
			Help: "Total number of rejected judging score requests",
		},
		[]string{"kind"},
	)

	// SubmissionsJudged counts automatic transitions to JUDGED
	SubmissionsJudged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contest_submissions_judged_total",
			Help: "Total number of submissions that became fully judged",
		},
	)

	// ResultsComputeDuration measures results aggregation time
	ResultsComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contest_results_compute_duration_seconds",
			Help:    "Results aggregation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ResultsPublished counts contests whose results were published
	ResultsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contest_results_published_total",
			Help: "Total number of published contest results",
		},
	)

	// CacheHits counts results cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contest_cache_hits_total",
			Help: "Total number of results cache hits",
		},
	)

	// CacheMisses counts results cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "contest_cache_misses_total",
			Help: "Total number of results cache misses",
		},
	)

	// LiveConnections tracks open websocket subscribers
	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "contest_live_connections",
			Help: "Number of open live results connections",
		},
	)
)

// RecordDBOperation records the duration of a database operation
func RecordDBOperation(operation string, table string, startTime time.Time) {
	duration := time.Since(startTime).Seconds()
	DatabaseOperationDuration.WithLabelValues(operation, table).Observe(duration)
}
