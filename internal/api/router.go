// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/agentmonitor/internal/aggregation"
	"github.com/tomtom215/agentmonitor/internal/broadcast"
	"github.com/tomtom215/agentmonitor/internal/config"
	"github.com/tomtom215/agentmonitor/internal/ingest"
	"github.com/tomtom215/agentmonitor/internal/middleware"
	"github.com/tomtom215/agentmonitor/internal/store"
)

// Handlers holds the core collaborators every route handler calls into.
// It carries no state of its own beyond process-start time: every other
// field is a handle onto a component built and owned elsewhere.
type Handlers struct {
	store       *store.Store
	ingest      *ingest.Ingester
	aggregation *aggregation.Aggregator
	hub         *broadcast.Hub
	usageLimits map[string]config.AgentLimit
	heartbeat   time.Duration
	startedAt   time.Time
}

// NewHandlers wires the HTTP layer to the already-constructed core
// components. It never constructs them itself — Runtime (C10) owns
// their lifecycle.
func NewHandlers(
	st *store.Store,
	in *ingest.Ingester,
	agg *aggregation.Aggregator,
	hub *broadcast.Hub,
	usageLimits map[string]config.AgentLimit,
	heartbeat time.Duration,
	startedAt time.Time,
) *Handlers {
	return &Handlers{
		store:       st,
		ingest:      in,
		aggregation: agg,
		hub:         hub,
		usageLimits: usageLimits,
		heartbeat:   heartbeat,
		startedAt:   startedAt,
	}
}

// NewRouter builds the complete chi router for the hub's HTTP surface
// (spec §6). rateLimitPerMinute bounds the ingest routes only; read
// routes are left unlimited since this is a single-user, loopback-bound
// service, not a multi-tenant one.
func NewRouter(h *Handlers, rateLimitPerMinute int) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.Recoverer)
	r.Use(newCORS())
	r.Use(chiMiddleware(middleware.PrometheusMetrics))
	r.Use(chiMiddleware(middleware.Compression))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.getHealth)
		r.Get("/stream", h.getStream)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.listEvents)
			r.With(ingestRateLimit(rateLimitPerMinute)).Post("/", h.postEvent)
			r.With(ingestRateLimit(rateLimitPerMinute)).Post("/batch", h.postEventBatch)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/", h.getStats)
			r.Get("/tools", h.getToolStats)
			r.Get("/cost", h.getCostStats)
			r.Get("/usage-monitor", h.getUsageMonitor)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.listSessions)
			r.Get("/{id}", h.getSession)
			r.Get("/{id}/transcript", h.getSessionTranscript)
		})

		r.Get("/filter-options", h.getFilterOptions)

		r.Route("/otel/v1", func(r chi.Router) {
			r.With(ingestRateLimit(rateLimitPerMinute)).Post("/logs", h.postOTLPLogs)
			r.With(ingestRateLimit(rateLimitPerMinute)).Post("/metrics", h.postOTLPMetrics)
			r.With(ingestRateLimit(rateLimitPerMinute)).Post("/traces", h.postOTLPTraces)
		})
	})

	return r
}
