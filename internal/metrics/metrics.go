package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_decoder_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_decoder_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_decoder_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Decode pipeline metrics
var (
	DecodeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_decoder_decode_requests_total",
			Help: "Total number of decode requests by branch and final state",
		},
		[]string{"path", "state"}, // path: "motion", "image", "unknown"; state: "done", "failed"
	)

	DecodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_decoder_decode_duration_seconds",
			Help:    "Decode request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"path"},
	)

	DecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_decoder_decode_errors_total",
			Help: "Total number of decode faults by kind, including absorbed ones",
		},
		[]string{"kind"},
	)

	OverlaysDrawnTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_decoder_overlays_drawn_total",
			Help: "Total number of overlays composited onto motion thumbnails",
		},
	)

	BatchWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_decoder_batch_workers",
			Help: "Number of workers in the running batch decode pool",
		},
	)
)

// Motion thumbnail metrics
var (
	MotionTierAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_decoder_motion_tier_attempts_total",
			Help: "Total number of motion thumbnail extraction attempts by tier and result",
		},
		[]string{"tier", "result"}, // tier: "embedded", "frame", "service"; result: "hit", "miss", "error"
	)

	MotionTierDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_decoder_motion_tier_duration_seconds",
			Help:    "Duration of a single motion extraction tier in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"tier"},
	)

	FFmpegDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_decoder_ffmpeg_duration_seconds",
			Help:    "Duration of ffmpeg frame grabs in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"}, // "pipe" or "file"
	)
)

// Lookup cache metrics
var (
	LookupCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_decoder_lookup_cache_hits_total",
			Help: "Total number of lookup cache hits",
		},
		[]string{"cache"},
	)

	LookupCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_decoder_lookup_cache_misses_total",
			Help: "Total number of lookup cache misses",
		},
		[]string{"cache"},
	)

	LookupCacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_decoder_lookup_cache_evictions_total",
			Help: "Total number of lookup cache entries evicted under capacity pressure",
		},
		[]string{"cache"},
	)

	LookupCacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_decoder_lookup_cache_entries",
			Help: "Current number of entries in each lookup cache",
		},
		[]string{"cache"},
	)
)

// Orientation metadata metrics
var (
	OrientationLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_decoder_orientation_lookups_total",
			Help: "Total number of orientation metadata lookups by source and result",
		},
		[]string{"source", "result"}, // source: "exif", "content", "other"; result: "ok", "default"
	)
)

// Content store metrics
var (
	ContentQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_decoder_content_queries_total",
			Help: "Total number of content-attribute store queries",
		},
		[]string{"operation", "status"},
	)

	ContentQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_decoder_content_query_duration_seconds",
			Help:    "Content-attribute store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	ContentRecordsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_decoder_content_records",
			Help: "Number of records in the content-attribute store",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_decoder_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_decoder_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_decoder_filesystem_retry_attempts_total",
			Help: "Total number of filesystem retry attempts after stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_decoder_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_decoder_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_decoder_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_decoder_filesystem_retry_duration_seconds",
			Help:    "Total duration of retried filesystem operations in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation", "volume"},
	)
)
