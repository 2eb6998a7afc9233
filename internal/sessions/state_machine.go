// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

// Package sessions implements the session lifecycle state machine, the
// idle sweeper, and transcript reconstruction. The state machine itself
// is a pure function over (existing session, incoming event) so it can be
// tested without a store.
package sessions

import (
	"time"

	"github.com/tomtom215/agentmonitor/internal/domain"
)

// HistoricalImportAge is the age a source=import event's client_timestamp
// must exceed, relative to now, to be treated as historical backfill
// rather than fresh activity.
const HistoricalImportAge = 1 * time.Hour

// Transition is the outcome of applying one event to a session: the new
// status, and ended_at if the transition sets it.
type Transition struct {
	Status  domain.SessionStatus
	EndedAt *time.Time
}

// OnEvent computes the next session status given the previous session
// state (nil if the session does not yet exist) and an incoming event.
// now is passed explicitly so callers can make tests deterministic.
func OnEvent(existing *domain.Session, ev *domain.Event, now time.Time) Transition {
	historical := isHistorical(ev, now)

	if existing == nil {
		if historical {
			ended := now
			return Transition{Status: domain.SessionEnded, EndedAt: &ended}
		}
		return Transition{Status: domain.SessionActive}
	}

	switch existing.Status {
	case domain.SessionEnded:
		if historical {
			// No change: historical backfill never resurrects a finalized
			// session.
			return Transition{Status: domain.SessionEnded, EndedAt: existing.EndedAt}
		}
		// A live event against an ended session resurrects it.
		return Transition{Status: domain.SessionActive}

	case domain.SessionIdle:
		if ev.EventType == domain.EventSessionEnd {
			// A duplicate session_end must not re-end an already
			// reactivated/idle session; idle stays idle here, the caller
			// is expected to have already filtered true duplicates before
			// reaching the state machine.
			return Transition{Status: domain.SessionIdle}
		}
		return Transition{Status: domain.SessionActive}

	default: // active
		if ev.EventType == domain.EventSessionEnd {
			return Transition{Status: domain.SessionIdle}
		}
		return Transition{Status: domain.SessionActive}
	}
}

func isHistorical(ev *domain.Event, now time.Time) bool {
	if ev.Source == nil || *ev.Source != domain.SourceImport {
		return false
	}
	if ev.ClientTimestamp == nil {
		return false
	}
	return now.Sub(*ev.ClientTimestamp) > HistoricalImportAge
}

// SweepResult reports how many sessions the idle sweeper changed.
type SweepResult struct {
	IdledCount int
	EndedCount int
}

// Changed reports whether the sweep produced any transition, which is the
// signal the sweeper uses to decide whether to call its OnChange hook.
func (r SweepResult) Changed() bool {
	return r.IdledCount > 0 || r.EndedCount > 0
}
