// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package sessions

import "github.com/tomtom215/agentmonitor/internal/domain"

// roleByEventType maps each event type to the transcript role it projects
// into. lifecycle events (session_start/session_end) project as system.
var roleByEventType = map[domain.EventType]domain.TranscriptRole{
	domain.EventSessionStart: domain.RoleSystem,
	domain.EventSessionEnd:   domain.RoleSystem,
	domain.EventUserPrompt:   domain.RoleUser,
	domain.EventLLMResponse:  domain.RoleAssistant,
	domain.EventResponse:     domain.RoleAssistant,
	domain.EventToolUse:      domain.RoleTool,
	domain.EventError:        domain.RoleError,
}

// Reconstruct projects a chronologically ordered event slice into a
// finite, non-restartable transcript. Events without an explicit role
// mapping (llm_request, plan_step, file_change, git_commit) project as
// system entries, preserving them in the transcript without inventing a
// role the event doesn't carry.
func Reconstruct(events []domain.Event) []domain.TranscriptEntry {
	entries := make([]domain.TranscriptEntry, 0, len(events))
	for _, ev := range events {
		role, ok := roleByEventType[ev.EventType]
		if !ok {
			role = domain.RoleSystem
		}
		entries = append(entries, domain.TranscriptEntry{
			Role:      role,
			EventType: ev.EventType,
			Timestamp: ev.CreatedAt,
			Payload:   ev,
		})
	}
	return entries
}
