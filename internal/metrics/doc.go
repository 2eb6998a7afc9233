// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

/*
Package metrics provides Prometheus metrics collection and export for the
ingest, store, broadcast, and API layers.

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:3141/metrics

# Available Metrics

Every collector below is registered at startup. Only the api_requests_total,
api_request_duration_seconds and api_active_requests series are updated by
the server (through middleware.PrometheusMetrics); nothing in the server
updates the store, ingest, session-lifecycle, broadcast or rate-limit
collectors, so those stay at zero.

Store:
  - store_query_duration_seconds: Query execution time (histogram)
    Labels: operation
  - store_query_errors_total: Failed queries (counter)
    Labels: operation
  - store_size_bytes: On-disk SQLite file size (gauge)

Ingest:
  - ingest_events_total: Events accepted into the store (counter)
    Labels: agent_type, event_type
  - ingest_rejected_total: Events rejected during contract normalization (counter)
    Labels: reason
  - ingest_duplicates_total: Events recognized as duplicates (counter)
  - ingest_batch_size: Items per batch request (histogram)

Session lifecycle:
  - sessions_active: Sessions currently in the active state (gauge)
  - session_sweep_transitions_total: Idle-sweeper state transitions (counter)
    Labels: transition ("idled", "ended")

Broadcast (SSE):
  - broadcast_clients: Connected SSE subscribers (gauge)
  - broadcast_frames_sent_total: Frames fanned out (counter)
    Labels: type
  - broadcast_frames_dropped_total: Frames dropped for backpressure (counter)
    Labels: reason

API:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: In-flight requests (gauge)
  - api_rate_limit_hits_total: Rate-limited requests (counter)
    Labels: endpoint

# Usage Example

	import (
	    "github.com/tomtom215/agentmonitor/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	http.Handle("/metrics", promhttp.Handler())
	metrics.RecordIngestEvent("claude_code", "tool_use")
	metrics.RecordStoreQuery("insert_event", duration, err)

# Prometheus Configuration

	scrape_configs:
	  - job_name: 'agentmonitor'
	    static_configs:
	      - targets: ['localhost:3141']
	    metrics_path: '/metrics'
	    scrape_interval: 15s

Example PromQL queries:

	# Ingest throughput
	rate(ingest_events_total[5m])

	# API p95 latency
	histogram_quantile(0.95, rate(api_request_duration_seconds_bucket[5m]))

	# SSE frame drop rate
	rate(broadcast_frames_dropped_total[5m])

# Cardinality Management

Endpoint labels are normalized route templates (e.g. "/api/sessions/{id}"),
never raw paths with interpolated ids; agent_type is bounded by the small
set of supported agent kinds, not user input.

# See Also

  - internal/middleware: HTTP middleware wiring PrometheusMetrics
*/
package metrics
