// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

// Package aggregation computes read-only projections over the store:
// overall stats, per-tool analytics, cost breakdowns, distinct filter
// values, and rolling-window usage rollups. Every function here is a
// query, never a mutation, and always returns a stable shape (zeros and
// empty slices/maps, never nil) when nothing matches.
package aggregation

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Aggregator computes projections directly against the store's
// connection pool. It holds no cache: spec's expected event volumes
// (single-machine, single-user coding-agent sessions) make
// recompute-from-scratch the simplest correct option.
type Aggregator struct {
	db *sql.DB
}

// New constructs an Aggregator over db (typically Store.Conn()).
func New(db *sql.DB) *Aggregator {
	return &Aggregator{db: db}
}

// Filter narrows a Stats/ToolAnalytics/CostBreakdown query to one agent
// kind and/or a lower time bound. Either field may be left zero.
type Filter struct {
	AgentKind string
	Since     *time.Time
}

func (f Filter) whereEvents() (string, []any) {
	var clauses []string
	var args []any
	if f.AgentKind != "" {
		clauses = append(clauses, "agent_type = ?")
		args = append(args, f.AgentKind)
	}
	if f.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.Since.UTC().Format(time.RFC3339Nano))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE "
	for i, c := range clauses {
		if i > 0 {
			where += " AND "
		}
		where += c
	}
	return where, args
}

// Stats is the overall snapshot served by the stats endpoint and the
// periodic broadcast.
type Stats struct {
	TotalEvents     int64            `json:"total_events"`
	ActiveSessions  int64            `json:"active_sessions"`
	TotalSessions   int64            `json:"total_sessions"`
	TotalTokensIn   int64            `json:"total_tokens_in"`
	TotalTokensOut  int64            `json:"total_tokens_out"`
	TotalCostUSD    float64          `json:"total_cost_usd"`
	ToolBreakdown   map[string]int64 `json:"tool_breakdown"`
	AgentBreakdown  map[string]int64 `json:"agent_breakdown"`
	ModelBreakdown  map[string]int64 `json:"model_breakdown"`
	Branches        []string         `json:"branches"`
}

// Stats computes the overall snapshot, optionally narrowed by filter.
func (a *Aggregator) Stats(ctx context.Context, f Filter) (Stats, error) {
	stats := Stats{
		ToolBreakdown:  map[string]int64{},
		AgentBreakdown: map[string]int64{},
		ModelBreakdown: map[string]int64{},
		Branches:       []string{},
	}

	where, args := f.whereEvents()

	row := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(tokens_in), 0),
		       COALESCE(SUM(tokens_out), 0),
		       COALESCE(SUM(cost_usd), 0)
		FROM events`+where, args...)
	if err := row.Scan(&stats.TotalEvents, &stats.TotalTokensIn, &stats.TotalTokensOut, &stats.TotalCostUSD); err != nil {
		return Stats{}, fmt.Errorf("stats totals: %w", err)
	}

	sessionWhere, sessionArgs := sessionFilterClause(f)
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`+sessionWhere, sessionArgs...).Scan(&stats.TotalSessions); err != nil {
		return Stats{}, fmt.Errorf("total sessions: %w", err)
	}

	activeWhere, activeArgs := sessionFilterClause(f, "status = 'active'")
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`+activeWhere, activeArgs...).Scan(&stats.ActiveSessions); err != nil {
		return Stats{}, fmt.Errorf("active sessions: %w", err)
	}

	if err := scanBreakdown(ctx, a.db, `SELECT tool_name, COUNT(*) FROM events`+appendClause(where, "tool_name IS NOT NULL")+` GROUP BY tool_name`, args, stats.ToolBreakdown); err != nil {
		return Stats{}, fmt.Errorf("tool breakdown: %w", err)
	}
	if err := scanBreakdown(ctx, a.db, `SELECT agent_type, COUNT(*) FROM events`+where+` GROUP BY agent_type`, args, stats.AgentBreakdown); err != nil {
		return Stats{}, fmt.Errorf("agent breakdown: %w", err)
	}
	if err := scanBreakdown(ctx, a.db, `SELECT model, COUNT(*) FROM events`+appendClause(where, "model IS NOT NULL")+` GROUP BY model`, args, stats.ModelBreakdown); err != nil {
		return Stats{}, fmt.Errorf("model breakdown: %w", err)
	}

	branchWhere, branchArgs := f.whereEvents()
	branchWhere = appendClause(branchWhere, "branch IS NOT NULL")
	rows, err := a.db.QueryContext(ctx, `
		SELECT branch, MAX(created_at) AS last_seen FROM events`+branchWhere+`
		GROUP BY branch ORDER BY last_seen DESC
	`, branchArgs...)
	if err != nil {
		return Stats{}, fmt.Errorf("distinct branches: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var branch, lastSeen string
		if err := rows.Scan(&branch, &lastSeen); err != nil {
			return Stats{}, err
		}
		stats.Branches = append(stats.Branches, branch)
	}
	return stats, rows.Err()
}

func sessionFilterClause(f Filter, extra ...string) (string, []any) {
	var clauses []string
	var args []any
	if f.AgentKind != "" {
		clauses = append(clauses, "agent_type = ?")
		args = append(args, f.AgentKind)
	}
	if f.Since != nil {
		clauses = append(clauses, "last_event_at >= ?")
		args = append(args, f.Since.UTC().Format(time.RFC3339Nano))
	}
	clauses = append(clauses, extra...)
	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE "
	for i, c := range clauses {
		if i > 0 {
			where += " AND "
		}
		where += c
	}
	return where, args
}

func appendClause(where, clause string) string {
	if where == "" {
		return " WHERE " + clause
	}
	return where + " AND " + clause
}

func scanBreakdown(ctx context.Context, db *sql.DB, query string, args []any, into map[string]int64) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		into[key] = count
	}
	return rows.Err()
}
