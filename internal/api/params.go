// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/agentmonitor/internal/apierr"
	"github.com/tomtom215/agentmonitor/internal/validation"
)

// eventsQuery is the validated `/api/events` query-string shape (spec §6).
type eventsQuery struct {
	AgentType string `validate:"omitempty,max=64"`
	EventType string `validate:"omitempty,max=64"`
	ToolName  string `validate:"omitempty,max=128"`
	SessionID string `validate:"omitempty,max=128"`
	Branch    string `validate:"omitempty,max=256"`
	Model     string `validate:"omitempty,max=128"`
	Source    string `validate:"omitempty,max=32"`
	Limit     int    `validate:"min=0,max=10000"`
	Offset    int    `validate:"min=0"`
	Since     *time.Time
	Until     *time.Time
}

// sessionsQuery is the validated `/api/sessions` query-string shape.
type sessionsQuery struct {
	Status        string `validate:"omitempty,oneof=active idle ended"`
	ExcludeStatus string `validate:"omitempty,oneof=active idle ended"`
	AgentType     string `validate:"omitempty,max=64"`
	Limit         int    `validate:"min=0,max=10000"`
}

// aggregationQuery is the filter shape shared by /api/stats and its
// sub-routes: an optional agent_type and an optional since cutoff.
type aggregationQuery struct {
	AgentType string `validate:"omitempty,max=64"`
	Since     *time.Time
}

// parseEventsQuery reads and validates query parameters for GET
// /api/events. limit defaults to 50 (spec §6); 0 means unbounded.
func parseEventsQuery(r *http.Request) (eventsQuery, *apierr.Error) {
	q := r.URL.Query()
	eq := eventsQuery{
		AgentType: q.Get("agent_type"),
		EventType: q.Get("event_type"),
		ToolName:  q.Get("tool_name"),
		SessionID: q.Get("session_id"),
		Branch:    q.Get("branch"),
		Model:     q.Get("model"),
		Source:    q.Get("source"),
		Limit:     50,
	}

	var err *apierr.Error
	if eq.Limit, err = intParam(q, "limit", 50); err != nil {
		return eq, err
	}
	if eq.Offset, err = intParam(q, "offset", 0); err != nil {
		return eq, err
	}
	if eq.Since, err = timeParam(q, "since"); err != nil {
		return eq, err
	}
	if eq.Until, err = timeParam(q, "until"); err != nil {
		return eq, err
	}

	return eq, validateQuery(&eq)
}

// parseSessionsQuery reads and validates query parameters for GET
// /api/sessions.
func parseSessionsQuery(r *http.Request) (sessionsQuery, *apierr.Error) {
	q := r.URL.Query()
	sq := sessionsQuery{
		Status:        q.Get("status"),
		ExcludeStatus: q.Get("exclude_status"),
		AgentType:     q.Get("agent_type"),
	}
	var err *apierr.Error
	if sq.Limit, err = intParam(q, "limit", 0); err != nil {
		return sq, err
	}
	return sq, validateQuery(&sq)
}

// parseAggregationQuery reads and validates query parameters shared by
// the /api/stats family of endpoints.
func parseAggregationQuery(r *http.Request) (aggregationQuery, *apierr.Error) {
	q := r.URL.Query()
	aq := aggregationQuery{AgentType: q.Get("agent_type")}
	var err *apierr.Error
	if aq.Since, err = timeParam(q, "since"); err != nil {
		return aq, err
	}
	return aq, validateQuery(&aq)
}

func intParam(q map[string][]string, name string, def int) (int, *apierr.Error) {
	raw := firstOf(q, name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierr.New(apierr.InvalidPayload, "invalid query parameter").
			WithDetails([]apierr.FieldError{{Field: name, Message: "must be an integer"}})
	}
	return n, nil
}

func timeParam(q map[string][]string, name string) (*time.Time, *apierr.Error) {
	raw := firstOf(q, name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apierr.New(apierr.InvalidPayload, "invalid query parameter").
			WithDetails([]apierr.FieldError{{Field: name, Message: "must be RFC3339"}})
	}
	return &t, nil
}

func firstOf(q map[string][]string, name string) string {
	if vs, ok := q[name]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// validateQuery runs the shared go-playground/validator instance over a
// query struct and translates any failure into the InvalidPayload shape.
func validateQuery(s any) *apierr.Error {
	verr := validation.ValidateStruct(s)
	if verr == nil {
		return nil
	}
	apiErr := verr.ToAPIError()
	fieldErrs := make([]apierr.FieldError, 0, len(verr.Errors()))
	for _, fe := range verr.Errors() {
		fieldErrs = append(fieldErrs, apierr.FieldError{Field: fe.Field(), Message: fe.Error()})
	}
	return apierr.New(apierr.InvalidPayload, apiErr.Message).WithDetails(fieldErrs)
}
