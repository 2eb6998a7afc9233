// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package api

import (
	"net/http"
	"time"
)

// healthResponse is the `/api/health` body (spec §6): `{status, uptime,
// db_size_bytes, sse_clients}`.
type healthResponse struct {
	Status      string  `json:"status"`
	UptimeSec   float64 `json:"uptime"`
	DBSizeBytes int64   `json:"db_size_bytes"`
	SSEClients  int     `json:"sse_clients"`
}

// getHealth handles GET /api/health. It never returns a non-200: a
// degraded store read still reports what it can, since health checks are
// meant to stay cheap and always answer.
func (h *Handlers) getHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	var dbSize int64
	if err := h.store.Ping(r.Context()); err != nil {
		status = "degraded"
	} else if size, err := h.store.SizeBytes(); err == nil {
		dbSize = size
	} else {
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, healthResponse{
		Status:      status,
		UptimeSec:   time.Since(h.startedAt).Seconds(),
		DBSizeBytes: dbSize,
		SSEClients:  h.hub.ClientCount(),
	})
}
