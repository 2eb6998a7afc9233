// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package api

import (
	"net/http"

	"github.com/tomtom215/agentmonitor/internal/broadcast"
	"github.com/tomtom215/agentmonitor/internal/logging"
)

// streamBufferSize is the per-client outgoing frame buffer; a slow
// dashboard tab whose buffer fills is dropped as a subscriber rather than
// stalling the hub.
const streamBufferSize = 64

// getStream handles GET /api/stream: one long-lived SSE connection per
// client, filtered by the agent_type/event_type query parameters.
func (h *Handlers) getStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := broadcast.Filter{
		AgentType: q.Get("agent_type"),
		EventType: q.Get("event_type"),
	}

	client, err := h.hub.Subscribe(filter, streamBufferSize)
	if err != nil {
		respondError(w, err)
		return
	}
	defer h.hub.Unsubscribe(client)

	if err := client.Serve(w, r, h.heartbeat); err != nil {
		logging.CtxWarn(r.Context()).Err(err).Msg("sse stream ended")
	}
}
