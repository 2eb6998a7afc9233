// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

// Package contract normalizes one raw inbound event payload into a
// domain.Event, or rejects it with field-level errors. Normalize is a pure
// function: no I/O, no clock reads beyond what the caller supplies for
// client-timestamp parsing context.
package contract

import (
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/agentmonitor/internal/apierr"
	"github.com/tomtom215/agentmonitor/internal/domain"
)

// maxDoubleEncodeDepth bounds the double-encoded-body recovery in Normalize
// (spec §4.3's "up to three levels").
const maxDoubleEncodeDepth = 3

// Normalize validates and normalizes one raw JSON payload. metadataCapBytes
// is the truncation threshold (spec's max_payload_KB × 1024). On success
// the returned field-error slice is empty; on rejection the returned event
// is nil.
func Normalize(raw []byte, metadataCapBytes int) (*domain.Event, []apierr.FieldError) {
	obj, ok := decodeEnvelope(raw)
	if !ok {
		return nil, []apierr.FieldError{{Field: "body", Message: "payload is not a JSON object"}}
	}

	var errs []apierr.FieldError

	sessionID, ok := requiredString(obj, "session_id")
	if !ok {
		errs = append(errs, apierr.FieldError{Field: "session_id", Message: "is required"})
	}

	agentKind, ok := requiredString(obj, "agent_type")
	if !ok {
		errs = append(errs, apierr.FieldError{Field: "agent_type", Message: "is required"})
	}

	eventTypeRaw, _ := requiredString(obj, "event_type")
	eventType := domain.EventType(eventTypeRaw)
	if eventTypeRaw == "" {
		errs = append(errs, apierr.FieldError{Field: "event_type", Message: "is required"})
	} else if !domain.ValidEventTypes[eventType] {
		errs = append(errs, apierr.FieldError{Field: "event_type", Message: "is not a recognized event type"})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	ev := &domain.Event{
		SessionID: sessionID,
		AgentKind: agentKind,
		EventType: eventType,
	}

	ev.Status = normalizeStatus(obj, eventType)
	ev.EventID = optionalTrimmedString(obj, "event_id")
	ev.ToolName = optionalTrimmedString(obj, "tool_name")
	ev.Model = optionalTrimmedString(obj, "model")
	ev.Project = optionalTrimmedString(obj, "project")
	ev.Branch = optionalTrimmedString(obj, "branch")

	if src := optionalTrimmedString(obj, "source"); src != nil {
		tag := domain.SourceTag(*src)
		ev.Source = &tag
	}

	ev.TokensIn = nonNegativeInt(obj, "tokens_in")
	ev.TokensOut = nonNegativeInt(obj, "tokens_out")
	ev.CacheReadTokens = nonNegativeInt(obj, "cache_read_tokens")
	ev.CacheWriteTokens = nonNegativeInt(obj, "cache_write_tokens")
	ev.DurationMs = nonNegativeIntPtr(obj, "duration_ms")

	if cost, ok := obj["cost_usd"].(float64); ok {
		ev.CostUSD = &cost
	}

	if ts, ok := obj["client_timestamp"].(string); ok && ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			utc := t.UTC()
			ev.ClientTimestamp = &utc
		} else {
			errs = append(errs, apierr.FieldError{Field: "client_timestamp", Message: "must be ISO-8601 with timezone"})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	truncated, wasTruncated := truncateMetadata(obj["metadata"], metadataCapBytes)
	ev.Metadata = truncated
	ev.PayloadTruncated = wasTruncated

	return ev, nil
}

// decodeEnvelope parses raw as a JSON object, tolerating up to
// maxDoubleEncodeDepth levels of double-encoding: a body that parses as a
// JSON string whose trimmed contents look like JSON is re-parsed.
func decodeEnvelope(raw []byte) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}

	for depth := 0; depth < maxDoubleEncodeDepth; depth++ {
		switch t := v.(type) {
		case map[string]any:
			return t, true
		case string:
			trimmed := strings.TrimSpace(t)
			if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[' && trimmed[0] != '"') {
				return nil, false
			}
			var inner any
			if err := json.Unmarshal([]byte(trimmed), &inner); err != nil {
				return nil, false
			}
			v = inner
		default:
			return nil, false
		}
	}

	obj, ok := v.(map[string]any)
	return obj, ok
}

func requiredString(obj map[string]any, key string) (string, bool) {
	s, ok := obj[key].(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

func optionalTrimmedString(obj map[string]any, key string) *string {
	s, ok := obj[key].(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func normalizeStatus(obj map[string]any, eventType domain.EventType) domain.EventStatus {
	raw, ok := obj["status"].(string)
	if ok {
		switch domain.EventStatus(strings.TrimSpace(raw)) {
		case domain.StatusSuccess, domain.StatusError, domain.StatusTimeout:
			return domain.EventStatus(strings.TrimSpace(raw))
		}
	}
	if eventType == domain.EventError {
		return domain.StatusError
	}
	return domain.StatusSuccess
}

func nonNegativeInt(obj map[string]any, key string) int64 {
	n, ok := obj[key].(float64)
	if !ok || n < 0 {
		return 0
	}
	return int64(n)
}

func nonNegativeIntPtr(obj map[string]any, key string) *int64 {
	n, ok := obj[key].(float64)
	if !ok || n < 0 {
		return nil
	}
	v := int64(n)
	return &v
}
