// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

// Package api maps the external HTTP surface (spec §6) onto the core
// operations: Ingest, Store, Sessions, Aggregation, and Broadcast.
// Handlers never implement domain logic themselves — they decode a
// request, call one core operation, and shape the response.
package api

import (
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/agentmonitor/internal/apierr"
	"github.com/tomtom215/agentmonitor/internal/logging"
)

// respondJSON writes status and v as a JSON body.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write response")
	}
}

// errorBody is the `{error, details}` shape every error response uses
// (spec §7): a string error and an optional details payload.
type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// respondError writes an *apierr.Error using its own Status() and the
// shared error body shape. Any other error is treated as Transient.
func respondError(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*apierr.Error)
	if !ok {
		logging.Error().Err(err).Msg("unclassified error reached the http layer")
		respondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	if apiErr.Status() >= http.StatusInternalServerError {
		logging.Error().Err(apiErr).Str("kind", string(apiErr.Kind)).Msg("request failed")
	}
	if apiErr.Flatten && apiErr.Details != nil {
		respondJSON(w, apiErr.Status(), flattenErrorBody(apiErr.Message, apiErr.Details))
		return
	}
	respondJSON(w, apiErr.Status(), errorBody{Error: apiErr.Message, Details: apiErr.Details})
}

// flattenErrorBody merges details' keys alongside "error" at the top
// level of the response body instead of nesting them under "details".
// details is round-tripped through JSON rather than type-asserted so any
// JSON-object-shaped payload (a struct or a map) can be flattened.
func flattenErrorBody(message string, details any) map[string]any {
	body := map[string]any{"error": message}
	raw, err := json.Marshal(details)
	if err != nil {
		return body
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return body
	}
	for k, v := range fields {
		body[k] = v
	}
	return body
}

// respondFieldErrors writes the InvalidPayload shape for Contract
// rejections: `{error, details: [{field, message}]}`.
func respondFieldErrors(w http.ResponseWriter, fieldErrs any) {
	respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid payload", Details: fieldErrs})
}
