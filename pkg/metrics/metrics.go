// Package metrics defines the Prometheus collectors for ingestion, analytics
// queries and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion
	IngestRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ythist_ingest_records_total",
			Help: "Total number of history records seen by committed ingestion batches",
		},
		[]string{"outcome"}, // "processed", "skipped"
	)

	IngestInserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ythist_ingest_inserts_total",
			Help: "Total number of rows inserted by committed ingestion batches",
		},
		[]string{"entity"}, // "channel", "video", "view"
	)

	IngestBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ythist_ingest_batches_total",
			Help: "Total number of ingestion batches by result",
		},
		[]string{"result"}, // "committed", "rolled_back"
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ythist_ingest_duration_seconds",
			Help:    "Duration of ingestion batches in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)

	// Analytics
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ythist_query_duration_seconds",
			Help:    "Duration of analytics queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	QueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ythist_query_errors_total",
			Help: "Total number of failed analytics queries",
		},
		[]string{"query"},
	)

	// HTTP API
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ythist_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ythist_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// BatchCounts is the subset of ingestion statistics recorded as metrics.
type BatchCounts struct {
	Processed        int
	Skipped          int
	ChannelsInserted int
	VideosInserted   int
	ViewsInserted    int
}

// RecordIngestCommitted records a committed batch.
func RecordIngestCommitted(c BatchCounts, d time.Duration) {
	IngestBatches.WithLabelValues("committed").Inc()
	IngestDuration.Observe(d.Seconds())
	IngestRecords.WithLabelValues("processed").Add(float64(c.Processed))
	IngestRecords.WithLabelValues("skipped").Add(float64(c.Skipped))
	IngestInserts.WithLabelValues("channel").Add(float64(c.ChannelsInserted))
	IngestInserts.WithLabelValues("video").Add(float64(c.VideosInserted))
	IngestInserts.WithLabelValues("view").Add(float64(c.ViewsInserted))
}

// RecordIngestRolledBack records a batch that was rolled back.
func RecordIngestRolledBack(d time.Duration) {
	IngestBatches.WithLabelValues("rolled_back").Inc()
	IngestDuration.Observe(d.Seconds())
}

// ObserveQuery records the duration of an analytics query and counts it as
// an error when err is non-nil.
func ObserveQuery(query string, start time.Time, err error) {
	QueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	if err != nil {
		QueryErrors.WithLabelValues(query).Inc()
	}
}

// RecordHTTPRequest records a completed HTTP request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
