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

// CostBucket is one point on the cost timeline.
type CostBucket struct {
	Bucket  string  `json:"bucket"`
	CostUSD float64 `json:"cost_usd"`
}

// CostEntry is one ranked entry in a by-project or by-model breakdown.
type CostEntry struct {
	Key     string  `json:"key"`
	CostUSD float64 `json:"cost_usd"`
}

// CostBreakdown is the response shape for the cost-breakdown endpoint.
type CostBreakdown struct {
	Timeline  []CostBucket `json:"timeline"`
	ByProject []CostEntry  `json:"by_project"`
	ByModel   []CostEntry  `json:"by_model"`
}

// sqliteHourFormat and sqliteDayFormat are strftime patterns applied to
// the stored RFC3339Nano created_at column.
const (
	sqliteHourFormat = "%Y-%m-%dT%H:00:00Z"
	sqliteDayFormat  = "%Y-%m-%d"
)

// CostBreakdowns computes the cost timeline (bucketed by hour when the
// filter's Since window is 48h or less, by day otherwise) plus top-N
// by-project and by-model cost rankings.
func (a *Aggregator) CostBreakdowns(ctx context.Context, f Filter, topN int) (CostBreakdown, error) {
	if topN <= 0 {
		topN = 10
	}

	bucketFormat := sqliteDayFormat
	if f.Since != nil && time.Since(*f.Since) <= 48*time.Hour {
		bucketFormat = sqliteHourFormat
	}

	where, args := f.whereEvents()
	where = appendClause(where, "cost_usd IS NOT NULL")

	timeline, err := a.costTimeline(ctx, where, args, bucketFormat)
	if err != nil {
		return CostBreakdown{}, err
	}

	byProject, err := a.costRanking(ctx, where, args, "project", topN)
	if err != nil {
		return CostBreakdown{}, fmt.Errorf("cost by project: %w", err)
	}

	byModel, err := a.costRanking(ctx, where, args, "model", topN)
	if err != nil {
		return CostBreakdown{}, fmt.Errorf("cost by model: %w", err)
	}

	return CostBreakdown{Timeline: timeline, ByProject: byProject, ByModel: byModel}, nil
}

func (a *Aggregator) costTimeline(ctx context.Context, where string, args []any, bucketFormat string) ([]CostBucket, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT strftime('`+bucketFormat+`', created_at) AS bucket, SUM(cost_usd)
		FROM events`+where+`
		GROUP BY bucket ORDER BY bucket ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("cost timeline: %w", err)
	}
	defer rows.Close()

	buckets := []CostBucket{}
	for rows.Next() {
		var b CostBucket
		if err := rows.Scan(&b.Bucket, &b.CostUSD); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func (a *Aggregator) costRanking(ctx context.Context, where string, args []any, column string, topN int) ([]CostEntry, error) {
	rankWhere := appendClause(where, column+" IS NOT NULL")
	rankArgs := append(append([]any{}, args...), topN)

	rows, err := a.db.QueryContext(ctx, `
		SELECT `+column+`, SUM(cost_usd) AS total FROM events`+rankWhere+`
		GROUP BY `+column+` ORDER BY total DESC LIMIT ?
	`, rankArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []CostEntry{}
	for rows.Next() {
		var e CostEntry
		if err := rows.Scan(&e.Key, &e.CostUSD); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
