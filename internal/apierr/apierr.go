// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

// Package apierr defines the closed set of error kinds the core operations
// raise, and maps each to its HTTP status and JSON shape. The api package's
// respondError turns an *Error into the shape in spec §7 (a JSON object
// with a string "error" and optional "details").
package apierr

import "net/http"

// Kind is the closed set of error classifications. Duplicate is
// deliberately not an "error" in the failure sense — it is a first-class
// success mode surfaced as 200.
type Kind string

const (
	InvalidPayload  Kind = "invalid_payload"
	InvalidEnvelope Kind = "invalid_envelope"
	NotFound        Kind = "not_found"
	Unsupported     Kind = "unsupported"
	Saturated       Kind = "saturated"
	Transient       Kind = "transient"
	Fatal           Kind = "fatal"
)

var statusByKind = map[Kind]int{
	InvalidPayload:  http.StatusBadRequest,
	InvalidEnvelope: http.StatusBadRequest,
	NotFound:        http.StatusNotFound,
	Unsupported:     http.StatusUnsupportedMediaType,
	Saturated:       http.StatusServiceUnavailable,
	Transient:       http.StatusInternalServerError,
}

// FieldError is one field-level validation failure, matching the
// `[{field, message}]` shape required by the contract (spec §4.3) and
// batch rejection entries (spec §6).
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the core error type carried from a component back to the HTTP
// layer. Details is an arbitrary JSON-able payload: []FieldError for
// InvalidPayload, {"max_clients": N} for Saturated, nil otherwise.
// Flatten marks Details to be merged into the top level of the response
// body instead of nested under a "details" key.
type Error struct {
	Kind    Kind
	Message string
	Details any
	Flatten bool
}

func (e *Error) Error() string {
	return e.Message
}

// Status returns the HTTP status code for this error's kind.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithDetails attaches a details payload and returns the same error for
// chaining.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// WithFlatDetails attaches a details payload whose keys are merged into
// the top level of the JSON response body rather than nested under
// "details" (spec §4.8/§8's flat Saturated body).
func (e *Error) WithFlatDetails(details any) *Error {
	e.Details = details
	e.Flatten = true
	return e
}
