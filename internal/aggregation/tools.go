// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package aggregation

import (
	"context"
	"fmt"
)

// ToolStat is one tool's usage profile.
type ToolStat struct {
	Name          string           `json:"name"`
	TotalCalls    int64            `json:"total_calls"`
	ErrorCount    int64            `json:"error_count"`
	ErrorRate     float64          `json:"error_rate"`
	AvgDurationMs *float64         `json:"avg_duration_ms"`
	ByAgent       map[string]int64 `json:"by_agent"`
}

// ToolAnalytics returns one ToolStat per distinct tool_name seen in events
// matching f, ordered by total call count descending.
func (a *Aggregator) ToolAnalytics(ctx context.Context, f Filter) ([]ToolStat, error) {
	where, args := f.whereEvents()
	where = appendClause(where, "tool_name IS NOT NULL")

	rows, err := a.db.QueryContext(ctx, `
		SELECT tool_name,
		       COUNT(*),
		       SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END),
		       AVG(duration_ms)
		FROM events`+where+`
		GROUP BY tool_name ORDER BY COUNT(*) DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("tool analytics: %w", err)
	}
	defer rows.Close()

	stats := []ToolStat{}
	for rows.Next() {
		var name string
		var total, errors int64
		var avgDuration *float64
		if err := rows.Scan(&name, &total, &errors, &avgDuration); err != nil {
			return nil, err
		}
		stat := ToolStat{
			Name:          name,
			TotalCalls:    total,
			ErrorCount:    errors,
			AvgDurationMs: avgDuration,
			ByAgent:       map[string]int64{},
		}
		if total > 0 {
			stat.ErrorRate = float64(errors) / float64(total)
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range stats {
		byAgentWhere, byAgentArgs := f.whereEvents()
		byAgentWhere = appendClause(byAgentWhere, "tool_name = ?")
		byAgentArgs = append(byAgentArgs, stats[i].Name)
		if err := scanBreakdown(ctx, a.db, `SELECT agent_type, COUNT(*) FROM events`+byAgentWhere+` GROUP BY agent_type`, byAgentArgs, stats[i].ByAgent); err != nil {
			return nil, fmt.Errorf("tool %s by-agent breakdown: %w", stats[i].Name, err)
		}
	}

	return stats, nil
}
