// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

// Package domain holds the core record types shared by every component:
// Agent, Session, Event, and ImportState. These are the only types the
// store persists; everything else is a projection over them.
package domain

import "time"

// SessionStatus is the closed set of session lifecycle states.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionIdle   SessionStatus = "idle"
	SessionEnded  SessionStatus = "ended"
)

// EventType is the closed set of observation kinds a client may report.
// Extending this set requires a new contract version, not a config flag.
type EventType string

const (
	EventSessionStart EventType = "session_start"
	EventSessionEnd   EventType = "session_end"
	EventToolUse      EventType = "tool_use"
	EventUserPrompt   EventType = "user_prompt"
	EventLLMRequest   EventType = "llm_request"
	EventLLMResponse  EventType = "llm_response"
	EventResponse     EventType = "response"
	EventError        EventType = "error"
	EventPlanStep     EventType = "plan_step"
	EventFileChange   EventType = "file_change"
	EventGitCommit    EventType = "git_commit"
)

// ValidEventTypes is used by Contract to reject unknown event types.
var ValidEventTypes = map[EventType]bool{
	EventSessionStart: true,
	EventSessionEnd:   true,
	EventToolUse:      true,
	EventUserPrompt:   true,
	EventLLMRequest:   true,
	EventLLMResponse:  true,
	EventResponse:     true,
	EventError:        true,
	EventPlanStep:     true,
	EventFileChange:   true,
	EventGitCommit:    true,
}

// EventStatus is the outcome of one observation.
type EventStatus string

const (
	StatusSuccess EventStatus = "success"
	StatusError   EventStatus = "error"
	StatusTimeout EventStatus = "timeout"
)

// SourceTag identifies how an event reached the ingest path.
type SourceTag string

const (
	SourceAPI    SourceTag = "api"
	SourceHook   SourceTag = "hook"
	SourceOTel   SourceTag = "otel"
	SourceImport SourceTag = "import"
)

// Agent is the stable identity of a producer of events.
type Agent struct {
	ID          string    `json:"id"`
	Kind        string    `json:"agent_type"`
	DisplayName *string   `json:"display_name,omitempty"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}

// Session is a bounded stream of activity from one agent.
type Session struct {
	ID          string            `json:"id"`
	AgentID     string            `json:"agent_id"`
	AgentKind   string            `json:"agent_type"`
	Project     *string           `json:"project,omitempty"`
	Branch      *string           `json:"branch,omitempty"`
	Status      SessionStatus     `json:"status"`
	StartedAt   time.Time         `json:"started_at"`
	EndedAt     *time.Time        `json:"ended_at,omitempty"`
	LastEventAt time.Time         `json:"last_event_at"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

// Event is an immutable observation. Once written, only cost_usd may be
// overwritten, and only by the cost-recalculation collaborator.
type Event struct {
	ID        int64   `json:"id"`
	EventID   *string `json:"event_id,omitempty"`
	SessionID string  `json:"session_id"`
	AgentKind string  `json:"agent_type"`

	EventType EventType   `json:"event_type"`
	ToolName  *string     `json:"tool_name,omitempty"`
	Status    EventStatus `json:"status"`

	TokensIn        int64    `json:"tokens_in"`
	TokensOut       int64    `json:"tokens_out"`
	CacheReadTokens int64    `json:"cache_read_tokens"`
	CacheWriteTokens int64   `json:"cache_write_tokens"`
	DurationMs      *int64   `json:"duration_ms,omitempty"`
	Model           *string  `json:"model,omitempty"`
	CostUSD         *float64 `json:"cost_usd,omitempty"`

	Project *string    `json:"project,omitempty"`
	Branch  *string    `json:"branch,omitempty"`
	Source  *SourceTag `json:"source,omitempty"`

	CreatedAt       time.Time  `json:"created_at"`
	ClientTimestamp *time.Time `json:"client_timestamp,omitempty"`

	Metadata         any  `json:"metadata,omitempty"`
	PayloadTruncated bool `json:"payload_truncated"`
}

// ImportState is bookkeeping for idempotent historical backfill, keyed by
// (source, absolute file path).
type ImportState struct {
	Source     string    `json:"source"`
	Path       string    `json:"path"`
	Hash       string    `json:"hash"`
	ImportedAt time.Time `json:"imported_at"`
	Count      int64     `json:"count"`
}

// TranscriptRole labels one projected transcript entry.
type TranscriptRole string

const (
	RoleSystem    TranscriptRole = "system"
	RoleUser      TranscriptRole = "user"
	RoleAssistant TranscriptRole = "assistant"
	RoleTool      TranscriptRole = "tool"
	RoleError     TranscriptRole = "error"
)

// TranscriptEntry is one projected step of a session's reconstructed
// transcript.
type TranscriptEntry struct {
	Role      TranscriptRole `json:"role"`
	EventType EventType      `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   any            `json:"payload"`
}
