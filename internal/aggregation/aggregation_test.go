// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package aggregation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/agentmonitor/internal/config"
	"github.com/tomtom215/agentmonitor/internal/domain"
	"github.com/tomtom215/agentmonitor/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func mustInsert(t *testing.T, st *store.Store, ev domain.Event) {
	t.Helper()
	if _, err := st.InsertEvent(context.Background(), ev); err != nil {
		t.Fatalf("insert event: %v", err)
	}
}

func strPtr(s string) *string    { return &s }
func costPtr(f float64) *float64 { return &f }

func TestStatsEmptyStoreReturnsStableShape(t *testing.T) {
	st := newTestStore(t)
	agg := New(st.Conn())

	stats, err := agg.Stats(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalEvents != 0 || stats.TotalSessions != 0 {
		t.Fatalf("expected zero counts on empty store, got %+v", stats)
	}
	if stats.ToolBreakdown == nil || stats.AgentBreakdown == nil || stats.ModelBreakdown == nil {
		t.Fatal("breakdown maps must never be nil")
	}
	if stats.Branches == nil {
		t.Fatal("branches slice must never be nil")
	}
}

func TestStatsAggregatesAcrossEvents(t *testing.T) {
	st := newTestStore(t)
	agg := New(st.Conn())

	mustInsert(t, st, domain.Event{
		SessionID: "s1", AgentKind: "claude_code", EventType: domain.EventToolUse,
		Status: domain.StatusSuccess, ToolName: strPtr("Read"), TokensIn: 10, TokensOut: 20,
		Model: strPtr("claude-sonnet-4-6"), CostUSD: costPtr(0.5), Branch: strPtr("main"),
	})
	mustInsert(t, st, domain.Event{
		SessionID: "s1", AgentKind: "claude_code", EventType: domain.EventToolUse,
		Status: domain.StatusError, ToolName: strPtr("Read"), TokensIn: 5, TokensOut: 5,
	})

	stats, err := agg.Stats(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalEvents != 2 {
		t.Fatalf("expected 2 events, got %d", stats.TotalEvents)
	}
	if stats.TotalTokensIn != 15 || stats.TotalTokensOut != 25 {
		t.Fatalf("unexpected token totals: %+v", stats)
	}
	if stats.ToolBreakdown["Read"] != 2 {
		t.Fatalf("expected Read tool count 2, got %+v", stats.ToolBreakdown)
	}
	if stats.TotalSessions != 1 || stats.ActiveSessions != 1 {
		t.Fatalf("expected one active session, got %+v", stats)
	}
}

func TestToolAnalyticsComputesErrorRate(t *testing.T) {
	st := newTestStore(t)
	agg := New(st.Conn())

	mustInsert(t, st, domain.Event{SessionID: "s1", AgentKind: "claude_code", EventType: domain.EventToolUse, Status: domain.StatusSuccess, ToolName: strPtr("Bash")})
	mustInsert(t, st, domain.Event{SessionID: "s1", AgentKind: "claude_code", EventType: domain.EventToolUse, Status: domain.StatusError, ToolName: strPtr("Bash")})

	stats, err := agg.ToolAnalytics(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("tool analytics: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected one tool, got %d", len(stats))
	}
	if stats[0].ErrorRate != 0.5 {
		t.Fatalf("expected error rate 0.5, got %f", stats[0].ErrorRate)
	}
}

func TestFilterOptionsOnEmptyStore(t *testing.T) {
	st := newTestStore(t)
	agg := New(st.Conn())

	opts, err := agg.FilterOptions(context.Background())
	if err != nil {
		t.Fatalf("filter options: %v", err)
	}
	if opts.AgentTypes == nil || opts.Branches == nil {
		t.Fatal("filter option slices must never be nil")
	}
}

func TestUsageMonitorSumsTokensInWindow(t *testing.T) {
	st := newTestStore(t)
	agg := New(st.Conn())

	mustInsert(t, st, domain.Event{SessionID: "s1", AgentKind: "claude_code", EventType: domain.EventToolUse, Status: domain.StatusSuccess, TokensIn: 100, TokensOut: 50})

	limits := map[string]config.AgentLimit{
		"claude_code": {WindowHours: 5, Limit: 1000, ExtendedWindowHours: 168, ExtendedLimit: 10000, LimitType: "tokens"},
	}

	usage, err := agg.UsageMonitor(context.Background(), limits, time.Now().UTC())
	if err != nil {
		t.Fatalf("usage monitor: %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("expected one agent usage entry, got %d", len(usage))
	}
	if usage[0].Session.Used != 150 {
		t.Fatalf("expected used=150, got %f", usage[0].Session.Used)
	}
}
