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

	"github.com/tomtom215/agentmonitor/internal/domain"
)

// upsertAgent creates the agent row if absent, or refreshes last_seen if
// present. Must be called from within an already-held write transaction
// (see events.go's insertEventTx, shared by InsertEvent and InsertBatch,
// which is the only caller).
func upsertAgent(ctx context.Context, tx *sql.Tx, id, kind string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO agents (id, agent_type, first_seen, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_seen = excluded.last_seen
	`, id, kind, at.UTC().Format(time.RFC3339Nano), at.UTC().Format(time.RFC3339Nano))
	return err
}

// Agents returns every known agent, most-recently-seen first.
func (s *Store) Agents(ctx context.Context) ([]domain.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_type, display_name, first_seen, last_seen
		FROM agents ORDER BY last_seen DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	var out []domain.Agent
	for rows.Next() {
		var a domain.Agent
		var displayName sql.NullString
		var firstSeen, lastSeen string
		if err := rows.Scan(&a.ID, &a.Kind, &displayName, &firstSeen, &lastSeen); err != nil {
			return nil, err
		}
		if displayName.Valid {
			a.DisplayName = &displayName.String
		}
		a.FirstSeen, _ = time.Parse(time.RFC3339Nano, firstSeen)
		a.LastSeen, _ = time.Parse(time.RFC3339Nano, lastSeen)
		out = append(out, a)
	}
	return out, rows.Err()
}
