// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package api

import (
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/agentmonitor/internal/apierr"
	"github.com/tomtom215/agentmonitor/internal/domain"
	"github.com/tomtom215/agentmonitor/internal/store"
)

// postEvent handles POST /api/events: one raw event payload in, a
// Contract-normalized, persisted, broadcast record out.
func (h *Handlers) postEvent(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxEventBodyBytes))
	if err != nil {
		respondError(w, apierr.New(apierr.InvalidPayload, "could not read request body"))
		return
	}

	result, fieldErrs, ierr := h.ingest.IngestOne(r.Context(), raw)
	if ierr != nil {
		respondError(w, apierr.New(apierr.Transient, "failed to persist event"))
		return
	}
	if len(fieldErrs) > 0 {
		respondFieldErrors(w, fieldErrs)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	respondJSON(w, status, eventIngestResponse{
		ID:        result.Event.ID,
		Duplicate: result.Duplicate,
		Event:     result.Event,
	})
}

type eventIngestResponse struct {
	ID        int64        `json:"id"`
	Duplicate bool         `json:"duplicate"`
	Event     domain.Event `json:"event"`
}

// maxEventBatchBytes bounds a batch request body; a single hook or OTLP
// exporter flushing an unbounded backlog should not be able to hold the
// write lock for an unbounded amount of time.
const (
	maxEventBodyBytes  = 1 << 20  // 1 MiB per single event
	maxEventBatchBytes = 32 << 20 // 32 MiB per batch
)

// batchEventsRequest is the `/api/events/batch` request envelope: a
// named "events" array rather than a bare JSON array, so the endpoint
// can grow sibling fields later without breaking wire compatibility.
type batchEventsRequest struct {
	Events []json.RawMessage `json:"events"`
}

// postEventBatch handles POST /api/events/batch: an envelope carrying
// raw event payloads, each normalized independently (spec §4.5's partial
// batch rule — a malformed item never fails its siblings).
func (h *Handlers) postEventBatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBatchBytes))
	if err != nil {
		respondError(w, apierr.New(apierr.InvalidEnvelope, "could not read request body"))
		return
	}

	var req batchEventsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, apierr.New(apierr.InvalidEnvelope, `batch body must be a JSON object with an "events" array`))
		return
	}

	raws := make([][]byte, len(req.Events))
	for i, item := range req.Events {
		raws[i] = item
	}

	result, ierr := h.ingest.IngestBatch(r.Context(), raws)
	if ierr != nil {
		respondError(w, apierr.New(apierr.Transient, "failed to persist event batch"))
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// listEvents handles GET /api/events.
func (h *Handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	q, qerr := parseEventsQuery(r)
	if qerr != nil {
		respondError(w, qerr)
		return
	}

	events, total, err := h.store.ListEvents(r.Context(), store.EventFilter{
		AgentKind: q.AgentType,
		EventType: q.EventType,
		ToolName:  q.ToolName,
		SessionID: q.SessionID,
		Branch:    q.Branch,
		Model:     q.Model,
		Source:    q.Source,
		Since:     q.Since,
		Until:     q.Until,
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
	if err != nil {
		respondError(w, apierr.New(apierr.Transient, "failed to query events"))
		return
	}

	respondJSON(w, http.StatusOK, eventsListResponse{Events: events, Total: total})
}

type eventsListResponse struct {
	Events []domain.Event `json:"events"`
	Total  int            `json:"total"`
}
