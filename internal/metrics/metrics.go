package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counter metrics (monotonically increasing)
var (
	// TransfersTotal counts transfers by outcome (started, done, stopped, failed)
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesender_transfers_total",
			Help: "Total number of transfers by outcome",
		},
		[]string{"status"},
	)

	// ChunksTotal counts chunks uploaded by strategy (sequential, parallel)
	ChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesender_chunks_total",
			Help: "Total number of file chunks uploaded",
		},
		[]string{"strategy"},
	)

	// FilesCompletedTotal counts files fully uploaded by strategy
	FilesCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesender_files_completed_total",
			Help: "Total number of files fully uploaded",
		},
		[]string{"strategy"},
	)

	// BytesUploadedTotal counts file bytes acknowledged by the server
	BytesUploadedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filesender_bytes_uploaded_total",
			Help: "Total number of file bytes uploaded",
		},
	)

	// RetriesTotal counts transport calls retried by the retry policy
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesender_retries_total",
			Help: "Total number of retried transport operations",
		},
		[]string{"operation"},
	)

	// HTTPRequestsTotal counts outgoing HTTP requests by method, path, and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesender_http_requests_total",
			Help: "Total number of outgoing HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ErrorsTotal counts engine errors by kind
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filesender_errors_total",
			Help: "Total number of transfer errors",
		},
		[]string{"kind"},
	)
)

// Histogram metrics (distributions)
var (
	// HTTPRequestDuration tracks outgoing HTTP request latency by method and path
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filesender_http_request_duration_seconds",
			Help:    "Outgoing HTTP request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	// ChunkUploadDuration tracks the time taken by a single chunk upload
	ChunkUploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filesender_chunk_upload_duration_seconds",
			Help:    "Chunk upload latency in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// TransferDuration tracks elapsed upload time of completed transfers, pauses excluded
	TransferDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filesender_transfer_duration_seconds",
			Help:    "Elapsed upload time of completed transfers in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600, 7200, 21600},
		},
	)

	// TransferSizeBytes tracks distribution of transfer sizes
	TransferSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "filesender_transfer_size_bytes",
			Help: "Distribution of transfer sizes in bytes",
			Buckets: []float64{
				1024,         // 1 KB
				10240,        // 10 KB
				102400,       // 100 KB
				1048576,      // 1 MB
				10485760,     // 10 MB
				104857600,    // 100 MB
				1073741824,   // 1 GB
				10737418240,  // 10 GB
				107374182400, // 100 GB
			},
		},
	)
)

// Gauge metrics (current values) are defined in collector.go as they read the tracker

// HTTPRequestsInFlight is the number of outgoing HTTP requests awaiting a response
var HTTPRequestsInFlight = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "filesender_http_requests_in_flight",
		Help: "Number of outgoing HTTP requests in flight",
	},
)

// WriteTextfile writes all registered metrics to filename in the
// Prometheus text format (node_exporter textfile collector).
func WriteTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, prometheus.DefaultGatherer)
}
