// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the ingest, store, broadcast, and API
// layers. Scraped at /metrics by promhttp.

var (
	// Store metrics.
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_query_duration_seconds",
			Help:    "Duration of SQLite queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_query_errors_total",
			Help: "Total number of SQLite query errors",
		},
		[]string{"operation"},
	)

	StoreSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_size_bytes",
			Help: "Current on-disk size of the SQLite store in bytes",
		},
	)

	// Ingest metrics.
	IngestEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_events_total",
			Help: "Total number of events accepted by the ingest pipeline",
		},
		[]string{"agent_type", "event_type"},
	)

	IngestRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_rejected_total",
			Help: "Total number of events rejected during contract normalization",
		},
		[]string{"reason"},
	)

	IngestDuplicatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_duplicates_total",
			Help: "Total number of events recognized as duplicates by the idempotency key",
		},
	)

	IngestBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_batch_size",
			Help:    "Number of items per /api/events/batch request",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// Session lifecycle metrics.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Current number of sessions in the active state",
		},
	)

	SessionSweepTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_sweep_transitions_total",
			Help: "Total number of session state transitions made by the idle sweeper",
		},
		[]string{"transition"}, // "idled", "ended"
	)

	// Broadcast / SSE metrics.
	BroadcastClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_clients",
			Help: "Current number of connected SSE subscribers",
		},
	)

	BroadcastFramesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_frames_sent_total",
			Help: "Total number of SSE frames fanned out to subscribers",
		},
		[]string{"type"},
	)

	BroadcastFramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_frames_dropped_total",
			Help: "Total number of SSE frames dropped due to a full subscriber buffer",
		},
		[]string{"reason"}, // "buffer_full", "publish_channel_full"
	)

	// API endpoint metrics.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// System metrics.
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordStoreQuery records a store query metric.
func RecordStoreQuery(operation string, duration time.Duration, err error) {
	StoreQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordIngestEvent records one successfully ingested event.
func RecordIngestEvent(agentType, eventType string) {
	IngestEventsTotal.WithLabelValues(agentType, eventType).Inc()
}

// RecordIngestRejected records one event rejected before it reached the store.
func RecordIngestRejected(reason string) {
	IngestRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordSweepResult records one idle-sweeper pass's transitions.
func RecordSweepResult(idled, ended int) {
	if idled > 0 {
		SessionSweepTransitions.WithLabelValues("idled").Add(float64(idled))
	}
	if ended > 0 {
		SessionSweepTransitions.WithLabelValues("ended").Add(float64(ended))
	}
}
