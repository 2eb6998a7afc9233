// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/agentmonitor/internal/middleware"
)

// chiMiddleware adapts the project's existing http.HandlerFunc middleware
// (written before the router moved to chi) to chi's func(http.Handler)
// http.Handler shape, so Compression/PrometheusMetrics/RequestID keep
// working unchanged under r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// newCORS builds a permissive CORS handler. The hub binds to loopback by
// default (spec §5's single-machine model) and has no auth layer, so the
// main cross-origin concern is the dashboard shell serving its own origin
// (file://, a dev server port, or an embedded webview) — not third-party
// sites reading another user's data.
func newCORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// ingestRateLimit bounds the write path so a misbehaving local agent hook
// cannot starve the single SQLite writer lock. Read endpoints are left
// unlimited: this is a single-user hub, not a multi-tenant service.
func ingestRateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(requestsPerMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
}
