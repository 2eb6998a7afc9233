// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package api

import (
	"net/http"
	"strings"

	"github.com/tomtom215/agentmonitor/internal/apierr"
)

// The OTLP JSON→normalized-event translation is an external collaborator
// (spec §6): it is expected to submit already-normalized events through
// the regular ingest path rather than through these routes directly.
// These handlers exist only so an OTLP exporter pointed at this hub gets
// a well-formed response instead of a 404, and so protobuf payloads are
// rejected with the contract's Unsupported kind rather than silently
// accepted and dropped.

// postOTLPLogs handles POST /api/otel/v1/logs.
func (h *Handlers) postOTLPLogs(w http.ResponseWriter, r *http.Request) {
	h.otlpStub(w, r, true)
}

// postOTLPMetrics handles POST /api/otel/v1/metrics.
func (h *Handlers) postOTLPMetrics(w http.ResponseWriter, r *http.Request) {
	h.otlpStub(w, r, true)
}

// postOTLPTraces handles POST /api/otel/v1/traces. Traces are always
// accepted and discarded; spec §6 does not require a normalized event
// for them and the collaborators section never names a trace parser.
func (h *Handlers) postOTLPTraces(w http.ResponseWriter, r *http.Request) {
	h.otlpStub(w, r, false)
}

func (h *Handlers) otlpStub(w http.ResponseWriter, r *http.Request, rejectProtobuf bool) {
	if rejectProtobuf && isProtobufContentType(r.Header.Get("Content-Type")) {
		respondError(w, apierr.New(apierr.Unsupported, "protobuf OTLP payloads are not supported"))
		return
	}
	respondJSON(w, http.StatusOK, struct{}{})
}

func isProtobufContentType(ct string) bool {
	return strings.Contains(ct, "application/x-protobuf")
}
