// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

/*
Package middleware provides HTTP middleware components for the application.

This package implements infrastructure middleware for compression, performance
monitoring, request ID tracking, and Prometheus metrics integration. The
API router in internal/api combines them with chi's panic recovery and
go-chi/cors; there is no authentication layer.

Key Components:

  - Compression: Gzip compression whenever the client accepts gzip
  - Performance Monitor: Request latency tracking with percentile calculations
  - Request ID: UUID-based request tracking for distributed tracing
  - Prometheus Metrics: HTTP request/response instrumentation

Middleware Stack:

internal/api.NewRouter applies, outermost first:

	r.Use(chiMiddleware(middleware.RequestID))         // request/correlation IDs
	r.Use(chimiddleware.Recoverer)                     // panic recovery
	r.Use(newCORS())                                   // CORS headers
	r.Use(chiMiddleware(middleware.PrometheusMetrics)) // metrics
	r.Use(chiMiddleware(middleware.Compression))       // gzip

The ingest routes add a per-remote-address rate limit (go-chi/httprate)
inside that stack.

Usage Example - Compression:

	import "github.com/tomtom215/agentmonitor/internal/middleware"

	// Wrap handler with gzip compression
	http.HandleFunc("/api/v1/data",
	    middleware.Compression(handler),
	)

	// Every response is compressed, whatever its size,
	// when the request's Accept-Encoding includes gzip

Usage Example - Performance Monitoring:

	// Create performance monitor keeping the 1000 most recent requests
	perfMon := middleware.NewPerformanceMonitor(1000)

	// Wrap handler (an http.Handler)
	http.Handle("/api/v1/stats",
	    perfMon.Middleware(handler),
	)

	// Get per-endpoint performance statistics (milliseconds)
	for _, s := range perfMon.GetStats() {
	    fmt.Printf("%s p50: %d, p95: %d, p99: %d\n",
	        s.Path, s.P50Duration, s.P95Duration, s.P99Duration)
	}

Usage Example - Request ID:

	// Request ID middleware
	http.HandleFunc("/api/v1/logs",
	    middleware.RequestID(handler),
	)

	// Access request ID in handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := r.Context().Value(middleware.RequestIDKey).(string)
	    log.Printf("[%s] Processing request", requestID)
	}

Performance Characteristics:

  - Compression: 70-90% size reduction for JSON (text/json mime types)
  - Compression overhead: ~1-2ms for typical responses
  - Metrics overhead: <0.1ms per request
  - Request ID overhead: <0.01ms (UUID generation)
  - Performance monitor: slice-backed sliding window guarded by a sync.RWMutex

Compression Details:

The compression middleware:
  - Compresses every response when Accept-Encoding includes gzip; there
    is no size threshold and no content-type filter
  - Leaves requests carrying Upgrade: websocket uncompressed
  - Sets Content-Encoding: gzip and removes Content-Length
  - Flushes compressed data for streaming responses

Performance Monitor:

The performance monitor tracks:
  - Request count and total duration per endpoint (no error rate)
  - Latency percentiles (p50, p95, p99)
  - Rolling window of the maxMetrics most recent requests
  - Thread-safe concurrent access with RWMutex

Thread Safety:

All middleware components are thread-safe:
  - Compression takes a gzip writer from a sync.Pool for each request
  - Performance monitor uses sync.RWMutex
  - Request ID uses context.Context (immutable)
  - Prometheus metrics use atomic operations

See Also:

  - internal/api: HTTP handlers wrapped by middleware
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
