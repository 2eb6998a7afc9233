// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package aggregation

import (
	"context"
	"fmt"
	"time"
)

// BranchOption is one distinct branch value plus when it was last seen,
// feeding the branch picker in the filter-options response.
type BranchOption struct {
	Value    string    `json:"value"`
	LastSeen time.Time `json:"last_seen"`
}

// FilterOptions is every distinct value the UI can filter events/sessions
// by, used to populate filter dropdowns without the client needing to
// scan the live feed itself.
type FilterOptions struct {
	AgentTypes []string       `json:"agent_types"`
	EventTypes []string       `json:"event_types"`
	ToolNames  []string       `json:"tool_names"`
	Models     []string       `json:"models"`
	Projects   []string       `json:"projects"`
	Branches   []BranchOption `json:"branches"`
	Sources    []string       `json:"sources"`
}

// FilterOptions computes every distinct value currently present across
// the events table.
func (a *Aggregator) FilterOptions(ctx context.Context) (FilterOptions, error) {
	opts := FilterOptions{
		AgentTypes: []string{},
		EventTypes: []string{},
		ToolNames:  []string{},
		Models:     []string{},
		Projects:   []string{},
		Branches:   []BranchOption{},
		Sources:    []string{},
	}

	var err error
	if opts.AgentTypes, err = a.distinctStrings(ctx, "agent_type", false); err != nil {
		return FilterOptions{}, fmt.Errorf("distinct agent_types: %w", err)
	}
	if opts.EventTypes, err = a.distinctStrings(ctx, "event_type", false); err != nil {
		return FilterOptions{}, fmt.Errorf("distinct event_types: %w", err)
	}
	if opts.ToolNames, err = a.distinctStrings(ctx, "tool_name", true); err != nil {
		return FilterOptions{}, fmt.Errorf("distinct tool_names: %w", err)
	}
	if opts.Models, err = a.distinctStrings(ctx, "model", true); err != nil {
		return FilterOptions{}, fmt.Errorf("distinct models: %w", err)
	}
	if opts.Projects, err = a.distinctStrings(ctx, "project", true); err != nil {
		return FilterOptions{}, fmt.Errorf("distinct projects: %w", err)
	}
	if opts.Sources, err = a.distinctStrings(ctx, "source", true); err != nil {
		return FilterOptions{}, fmt.Errorf("distinct sources: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT branch, MAX(created_at) FROM events
		WHERE branch IS NOT NULL GROUP BY branch ORDER BY MAX(created_at) DESC
	`)
	if err != nil {
		return FilterOptions{}, fmt.Errorf("distinct branches: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var value, lastSeen string
		if err := rows.Scan(&value, &lastSeen); err != nil {
			return FilterOptions{}, err
		}
		t, _ := time.Parse(time.RFC3339Nano, lastSeen)
		opts.Branches = append(opts.Branches, BranchOption{Value: value, LastSeen: t})
	}
	return opts, rows.Err()
}

// distinctStrings returns every distinct non-empty value of column,
// filtering out NULL when nullable is true.
func (a *Aggregator) distinctStrings(ctx context.Context, column string, nullable bool) ([]string, error) {
	q := `SELECT DISTINCT ` + column + ` FROM events`
	if nullable {
		q += ` WHERE ` + column + ` IS NOT NULL`
	}
	q += ` ORDER BY ` + column

	rows, err := a.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
