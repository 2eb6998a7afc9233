// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one idempotent, additive schema step. Migrations only add
// tables, columns, or indexes with non-destructive defaults — an existing
// column is never dropped or rewritten.
type Migration struct {
	Version     int
	Name        string
	Description string
	SQL         string
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version     INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	applied_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);`

func migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Name:        "initial_schema",
			Description: "agents, sessions, events, import_state tables and their indexes",
			SQL: `
CREATE TABLE IF NOT EXISTS agents (
	id           TEXT PRIMARY KEY,
	agent_type   TEXT NOT NULL,
	display_name TEXT,
	first_seen   TEXT NOT NULL,
	last_seen    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	agent_id       TEXT NOT NULL REFERENCES agents(id),
	agent_type     TEXT NOT NULL,
	project        TEXT,
	branch         TEXT,
	status         TEXT NOT NULL CHECK (status IN ('active','idle','ended')),
	started_at     TEXT NOT NULL,
	ended_at       TEXT,
	last_event_at  TEXT NOT NULL,
	metadata       TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_agent_type ON sessions(agent_type);

CREATE TABLE IF NOT EXISTS events (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id           TEXT UNIQUE,
	session_id         TEXT NOT NULL REFERENCES sessions(id),
	agent_type         TEXT NOT NULL,
	event_type         TEXT NOT NULL,
	tool_name          TEXT,
	status             TEXT NOT NULL,
	tokens_in          INTEGER NOT NULL DEFAULT 0,
	tokens_out         INTEGER NOT NULL DEFAULT 0,
	cache_read_tokens  INTEGER NOT NULL DEFAULT 0,
	cache_write_tokens INTEGER NOT NULL DEFAULT 0,
	duration_ms        INTEGER,
	model              TEXT,
	cost_usd           REAL,
	project            TEXT,
	branch             TEXT,
	source             TEXT,
	created_at         TEXT NOT NULL,
	client_timestamp   TEXT,
	metadata           TEXT,
	payload_truncated  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
CREATE INDEX IF NOT EXISTS idx_events_session_id ON events(session_id);
CREATE INDEX IF NOT EXISTS idx_events_event_type ON events(event_type);
CREATE INDEX IF NOT EXISTS idx_events_tool_name ON events(tool_name);
CREATE INDEX IF NOT EXISTS idx_events_agent_type ON events(agent_type);
CREATE INDEX IF NOT EXISTS idx_events_model ON events(model);

CREATE TABLE IF NOT EXISTS import_state (
	source      TEXT NOT NULL,
	path        TEXT NOT NULL,
	hash        TEXT NOT NULL,
	imported_at TEXT NOT NULL,
	count       INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (source, path)
);
`,
		},
	}
}

// migrate applies the schema_migrations bookkeeping table and then every
// migration whose version has not yet been applied, in order, inside a
// transaction each.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[int]bool{}
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("read applied migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied[v] = true
	}
	rows.Close()

	for _, m := range migrations() {
		if applied[m.Version] {
			continue
		}
		err := s.withWriteLock(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}
