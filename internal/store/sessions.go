// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/agentmonitor/internal/apierr"
	"github.com/tomtom215/agentmonitor/internal/domain"
	"github.com/tomtom215/agentmonitor/internal/sessions"
)

func getSessionTx(ctx context.Context, tx *sql.Tx, id string) (*domain.Session, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, agent_id, agent_type, project, branch, status, started_at, ended_at, last_event_at, metadata
		FROM sessions WHERE id = ?
	`, id)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	var project, branch, endedAt, metadata sql.NullString
	var startedAt, lastEventAt string
	err := row.Scan(&s.ID, &s.AgentID, &s.AgentKind, &project, &branch, &s.Status,
		&startedAt, &endedAt, &lastEventAt, &metadata)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if project.Valid {
		s.Project = &project.String
	}
	if branch.Valid {
		s.Branch = &branch.String
	}
	s.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	s.LastEventAt, _ = time.Parse(time.RFC3339Nano, lastEventAt)
	if endedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, endedAt.String)
		s.EndedAt = &t
	}
	if metadata.Valid && metadata.String != "" {
		var m map[string]any
		if json.Unmarshal([]byte(metadata.String), &m) == nil {
			s.Metadata = m
		}
	}
	return &s, nil
}

// upsertSessionForEvent applies the session state machine for one incoming
// event, creating the session row if absent. It must run inside the same
// transaction as the event insert so session and event mutations are
// atomic together (spec §4.5 step 6).
func upsertSessionForEvent(ctx context.Context, tx *sql.Tx, ev *domain.Event, now time.Time) (*domain.Session, error) {
	existing, err := getSessionTx(ctx, tx, ev.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	transition := sessions.OnEvent(existing, ev, now)

	if existing == nil {
		s := &domain.Session{
			ID:          ev.SessionID,
			AgentID:     ev.AgentKind, // no distinct agent id in the ingest contract; agents are identified at kind granularity
			AgentKind:   ev.AgentKind,
			Project:     ev.Project,
			Branch:      ev.Branch,
			Status:      transition.Status,
			StartedAt:   now,
			LastEventAt: now,
			EndedAt:     transition.EndedAt,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (id, agent_id, agent_type, project, branch, status, started_at, ended_at, last_event_at, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, s.ID, s.AgentID, s.AgentKind, s.Project, s.Branch, s.Status,
			fmtTime(s.StartedAt), fmtTimePtr(s.EndedAt), fmtTime(s.LastEventAt), nil); err != nil {
			return nil, fmt.Errorf("insert session: %w", err)
		}
		return s, nil
	}

	existing.Status = transition.Status
	existing.EndedAt = transition.EndedAt
	existing.LastEventAt = now
	if ev.Project != nil {
		existing.Project = ev.Project
	}
	if ev.Branch != nil {
		existing.Branch = ev.Branch
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sessions SET status = ?, ended_at = ?, last_event_at = ?, project = ?, branch = ?
		WHERE id = ?
	`, existing.Status, fmtTimePtr(existing.EndedAt), fmtTime(existing.LastEventAt),
		existing.Project, existing.Branch, existing.ID); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return existing, nil
}

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

// SessionFilter narrows a ListSessions query.
type SessionFilter struct {
	Status        string
	ExcludeStatus string
	AgentKind     string
	Limit         int // 0 = unbounded
}

// GetSession returns a session by id, or nil if not found.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, agent_id, agent_type, project, branch, status, started_at, ended_at, last_event_at, metadata
		FROM sessions WHERE id = ?
	`, id)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, apierr.New(apierr.NotFound, "session not found")
	}
	return sess, nil
}

// ListSessions returns sessions matching filter, most-recently-active first.
func (s *Store) ListSessions(ctx context.Context, f SessionFilter) ([]domain.Session, error) {
	q := `SELECT id, agent_id, agent_type, project, branch, status, started_at, ended_at, last_event_at, metadata
	      FROM sessions WHERE 1=1`
	var args []any
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.ExcludeStatus != "" {
		q += ` AND status != ?`
		args = append(args, f.ExcludeStatus)
	}
	if f.AgentKind != "" {
		q += ` AND agent_type = ?`
		args = append(args, f.AgentKind)
	}
	q += ` ORDER BY last_event_at DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := []domain.Session{}
	for rows.Next() {
		var sVal domain.Session
		var project, branch, endedAt, metadata sql.NullString
		var startedAt, lastEventAt string
		if err := rows.Scan(&sVal.ID, &sVal.AgentID, &sVal.AgentKind, &project, &branch, &sVal.Status,
			&startedAt, &endedAt, &lastEventAt, &metadata); err != nil {
			return nil, err
		}
		if project.Valid {
			sVal.Project = &project.String
		}
		if branch.Valid {
			sVal.Branch = &branch.String
		}
		sVal.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		sVal.LastEventAt, _ = time.Parse(time.RFC3339Nano, lastEventAt)
		if endedAt.Valid {
			t, _ := time.Parse(time.RFC3339Nano, endedAt.String)
			sVal.EndedAt = &t
		}
		out = append(out, sVal)
	}
	return out, rows.Err()
}

// SweepIdle demotes active sessions past idleThreshold to idle, and idle
// sessions past 2x idleThreshold to ended, in two single-statement passes.
func (s *Store) SweepIdle(ctx context.Context, idleThreshold time.Duration) (sessions.SweepResult, error) {
	var result sessions.SweepResult
	now := time.Now().UTC()
	idleCutoff := now.Add(-idleThreshold).Format(time.RFC3339Nano)
	endCutoff := now.Add(-2 * idleThreshold).Format(time.RFC3339Nano)

	err := s.withWriteLock(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE sessions SET status = 'idle'
			WHERE status = 'active' AND last_event_at < ?
		`, idleCutoff)
		if err != nil {
			return fmt.Errorf("sweep idle: %w", err)
		}
		n, _ := res.RowsAffected()
		result.IdledCount = int(n)

		res, err = tx.ExecContext(ctx, `
			UPDATE sessions SET status = 'ended', ended_at = ?
			WHERE status = 'idle' AND last_event_at < ?
		`, fmtTime(now), endCutoff)
		if err != nil {
			return fmt.Errorf("sweep ended: %w", err)
		}
		n, _ = res.RowsAffected()
		result.EndedCount = int(n)
		return nil
	})
	return result, err
}
