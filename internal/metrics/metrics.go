// Package metrics declares the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monwui_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "monwui_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monwui_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Indexer metrics
var (
	IndexerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monwui_indexer_runs_total",
			Help: "Total number of indexer runs started",
		},
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monwui_indexer_is_running",
			Help: "Whether an indexer run is active (1) or not (0)",
		},
	)

	IndexerPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monwui_indexer_pages_total",
			Help: "Catalog pages completed by the indexer",
		},
		[]string{"phase"},
	)

	IndexerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monwui_indexer_errors_total",
			Help: "Page-level errors that triggered a backoff retry",
		},
		[]string{"phase"},
	)

	IndexerCursor = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monwui_indexer_cursor",
			Help: "Current pagination cursor per phase",
		},
		[]string{"phase"},
	)

	IndexerCollectionsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monwui_indexer_collections_synced_total",
			Help: "Collections synced, by whether the member list came from cache or the server",
		},
		[]string{"source"}, // "cache", "live"
	)

	IndexerMembershipsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monwui_indexer_memberships_written_total",
			Help: "Membership mappings written by the indexer",
		},
		[]string{"kind"}, // "positive", "negative"
	)

	IndexerLastCycleTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monwui_indexer_last_cycle_timestamp_seconds",
			Help: "Unix timestamp of the last completed crawl cycle",
		},
	)
)

// Cache metrics
var (
	CachePurgedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monwui_cache_purged_records_total",
			Help: "Records removed by purge sweeps",
		},
		[]string{"reason"}, // "entity_ttl", "entity_capacity", "meta_ttl"
	)

	PickerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monwui_picker_requests_total",
			Help: "Pick requests by category and the path that served them",
		},
		[]string{"category", "source"}, // source: "cache", "live", "empty"
	)
)
