// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package aggregation

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/agentmonitor/internal/config"
)

// WindowUsage is one rolling-window rollup against a configured limit.
type WindowUsage struct {
	Used        float64 `json:"used"`
	Limit       float64 `json:"limit"`
	WindowHours int     `json:"window_hours"`
	LimitType   string  `json:"limit_type"`
}

// AgentUsage carries both configured windows (session and extended) for
// one agent kind.
type AgentUsage struct {
	AgentKind string      `json:"agent_kind"`
	Session   WindowUsage `json:"session"`
	Extended  WindowUsage `json:"extended"`
}

// UsageMonitor computes, for every agent kind with a configured limit,
// how much of its session and extended rolling windows has been consumed.
func (a *Aggregator) UsageMonitor(ctx context.Context, limits map[string]config.AgentLimit, now time.Time) ([]AgentUsage, error) {
	out := []AgentUsage{}
	for kind, lim := range limits {
		session, err := a.windowUsage(ctx, kind, lim.LimitType, time.Duration(lim.WindowHours)*time.Hour, float64(lim.Limit), lim.WindowHours, now)
		if err != nil {
			return nil, fmt.Errorf("usage window for %s: %w", kind, err)
		}
		extended, err := a.windowUsage(ctx, kind, lim.LimitType, time.Duration(lim.ExtendedWindowHours)*time.Hour, float64(lim.ExtendedLimit), lim.ExtendedWindowHours, now)
		if err != nil {
			return nil, fmt.Errorf("extended usage window for %s: %w", kind, err)
		}
		out = append(out, AgentUsage{AgentKind: kind, Session: session, Extended: extended})
	}
	return out, nil
}

func (a *Aggregator) windowUsage(ctx context.Context, agentKind, limitType string, window time.Duration, limit float64, windowHours int, now time.Time) (WindowUsage, error) {
	since := now.Add(-window).UTC().Format(time.RFC3339Nano)

	var column string
	switch limitType {
	case "cost":
		column = "COALESCE(SUM(cost_usd), 0)"
	default:
		column = "COALESCE(SUM(tokens_in + tokens_out), 0)"
	}

	var used float64
	err := a.db.QueryRowContext(ctx, `
		SELECT `+column+` FROM events WHERE agent_type = ? AND created_at >= ?
	`, agentKind, since).Scan(&used)
	if err != nil {
		return WindowUsage{}, err
	}

	return WindowUsage{
		Used:        used,
		Limit:       limit,
		WindowHours: windowHours,
		LimitType:   limitType,
	}, nil
}
