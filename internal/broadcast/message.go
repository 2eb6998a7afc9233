// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package broadcast

import (
	json "github.com/goccy/go-json"

	"github.com/tomtom215/agentmonitor/internal/domain"
)

// Message kinds carried on the SSE stream (spec §4.8).
const (
	MessageConnected     = "connected"
	MessageEvent         = "event"
	MessageStats         = "stats"
	MessageSessionUpdate = "session_update"
)

// Filter narrows which published messages a subscriber receives. A zero
// field on the filter never restricts; a set field must equal the
// payload's corresponding field, and a payload missing that field never
// matches a set filter (spec §4.8).
type Filter struct {
	AgentType string
	EventType string
}

// envelope is the wire shape of every SSE frame: `{"type": ..., ...}`.
type envelope struct {
	Type    string          `json:"type"`
	Event   *domain.Event   `json:"event,omitempty"`
	Session *domain.Session `json:"session,omitempty"`
	Stats   any             `json:"stats,omitempty"`
}

// NewEventMessage builds the payload and filter key for a persisted event.
func NewEventMessage(ev domain.Event) ([]byte, Filter, error) {
	payload, err := json.Marshal(envelope{Type: MessageEvent, Event: &ev})
	if err != nil {
		return nil, Filter{}, err
	}
	return payload, Filter{AgentType: ev.AgentKind, EventType: string(ev.EventType)}, nil
}

// NewSessionUpdateMessage builds the payload for a session lifecycle
// transition (live ingest or idle-sweeper driven).
func NewSessionUpdateMessage(s domain.Session) ([]byte, Filter, error) {
	payload, err := json.Marshal(envelope{Type: MessageSessionUpdate, Session: &s})
	if err != nil {
		return nil, Filter{}, err
	}
	return payload, Filter{AgentType: s.AgentKind}, nil
}

// NewStatsMessage builds the periodic unfiltered stats snapshot. Stats
// broadcasts carry no filter key: every subscriber receives them
// regardless of their agent_type/event_type filter.
func NewStatsMessage(stats any) ([]byte, error) {
	return json.Marshal(envelope{Type: MessageStats, Stats: stats})
}

// matches reports whether payload f satisfies subscriber filter sub. A
// zero value on sub never restricts that dimension.
func (sub Filter) matches(payload Filter, messageType string) bool {
	if messageType == MessageStats || messageType == MessageConnected {
		return true
	}
	if sub.AgentType != "" && sub.AgentType != payload.AgentType {
		return false
	}
	if sub.EventType != "" && sub.EventType != payload.EventType {
		return false
	}
	return true
}
