// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/agentmonitor/internal/apierr"
	"github.com/tomtom215/agentmonitor/internal/domain"
	"github.com/tomtom215/agentmonitor/internal/sessions"
	"github.com/tomtom215/agentmonitor/internal/store"
)

// eventsPerSessionDetail bounds how much history the session-detail
// endpoint embeds inline; the transcript endpoint has no such cap.
const eventsPerSessionDetail = 200

// listSessions handles GET /api/sessions.
func (h *Handlers) listSessions(w http.ResponseWriter, r *http.Request) {
	q, qerr := parseSessionsQuery(r)
	if qerr != nil {
		respondError(w, qerr)
		return
	}

	sess, err := h.store.ListSessions(r.Context(), store.SessionFilter{
		Status:        q.Status,
		ExcludeStatus: q.ExcludeStatus,
		AgentKind:     q.AgentType,
		Limit:         q.Limit,
	})
	if err != nil {
		respondError(w, apierr.New(apierr.Transient, "failed to query sessions"))
		return
	}

	respondJSON(w, http.StatusOK, sessionsListResponse{Sessions: sess, Total: len(sess)})
}

type sessionsListResponse struct {
	Sessions []domain.Session `json:"sessions"`
	Total    int              `json:"total"`
}

// getSession handles GET /api/sessions/:id.
func (h *Handlers) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	events, err := h.store.SessionEvents(r.Context(), id, eventsPerSessionDetail)
	if err != nil {
		respondError(w, apierr.New(apierr.Transient, "failed to load session events"))
		return
	}

	respondJSON(w, http.StatusOK, sessionDetailResponse{Session: *sess, Events: events})
}

type sessionDetailResponse struct {
	Session domain.Session `json:"session"`
	Events  []domain.Event `json:"events"`
}

// getSessionTranscript handles GET /api/sessions/:id/transcript.
func (h *Handlers) getSessionTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.store.GetSession(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	events, err := h.store.SessionEvents(r.Context(), id, 0)
	if err != nil {
		respondError(w, apierr.New(apierr.Transient, "failed to load session events"))
		return
	}

	respondJSON(w, http.StatusOK, transcriptResponse{
		SessionID: id,
		Entries:   sessions.Reconstruct(events),
	})
}

type transcriptResponse struct {
	SessionID string                   `json:"session_id"`
	Entries   []domain.TranscriptEntry `json:"entries"`
}
