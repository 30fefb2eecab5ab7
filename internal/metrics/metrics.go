// Package metrics defines Prometheus metrics for the motion detection
// backend: HTTP traffic, upload intake, transcode jobs, retention passes
// and the job queue.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motion_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "motion_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "motion_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Upload intake metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motion_uploads_total",
			Help: "Total number of upload attempts",
		},
		[]string{"status", "category"},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "motion_upload_bytes_total",
			Help: "Total bytes accepted into the staging directory",
		},
	)
)

// Transcode metrics
var (
	TranscodeRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motion_transcode_runs_total",
			Help: "Total number of transcode jobs by outcome",
		},
		[]string{"status"},
	)

	TranscodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "motion_transcode_duration_seconds",
			Help:    "Wall-clock duration of ffmpeg transcode runs",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)
)

// Retention metrics
var (
	RetentionRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "motion_retention_runs_total",
			Help: "Total number of retention passes",
		},
	)

	RetentionFilesDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motion_retention_files_deleted_total",
			Help: "Files evicted by retention passes",
		},
		[]string{"category"},
	)

	RetentionBytesFreed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motion_retention_bytes_freed_total",
			Help: "Bytes reclaimed by retention passes",
		},
		[]string{"category"},
	)

	RetentionCategoryBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "motion_retention_category_bytes",
			Help: "Aggregate processed file size per category after the last pass",
		},
		[]string{"category"},
	)
)

// Job queue metrics
var (
	JobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motion_jobs_enqueued_total",
			Help: "Jobs durably recorded in the queue",
		},
		[]string{"kind"},
	)

	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motion_jobs_processed_total",
			Help: "Jobs completed by the dispatcher by outcome",
		},
		[]string{"kind", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "motion_job_duration_seconds",
			Help:    "Handler execution time per job kind",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)
)

// Streaming metrics
var (
	StreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "motion_stream_requests_total",
			Help: "Video stream requests by response class",
		},
		[]string{"status"},
	)

	StreamBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "motion_stream_bytes_total",
			Help: "Bytes written to streaming clients",
		},
	)
)
