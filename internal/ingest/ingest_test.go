// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package ingest

import (
	"context"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/agentmonitor/internal/pricing"
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

func TestIngestOneValidEvent(t *testing.T) {
	st := newTestStore(t)
	in := New(st, nil, nil, nil, 32)

	raw, _ := json.Marshal(map[string]any{
		"session_id": "sess-1",
		"agent_type": "claude_code",
		"event_type": "tool_use",
		"tool_name":  "Read",
	})

	result, fieldErrs, err := in.IngestOne(context.Background(), raw)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(fieldErrs) != 0 {
		t.Fatalf("expected no field errors, got %v", fieldErrs)
	}
	if result.Duplicate {
		t.Fatal("first insert should not be a duplicate")
	}
	if result.Event.ID == 0 {
		t.Fatal("expected event to be assigned an id")
	}
	if result.Session == nil || result.Session.Status != "active" {
		t.Fatalf("expected an active session, got %+v", result.Session)
	}
}

func TestIngestOneRejectsMissingFields(t *testing.T) {
	st := newTestStore(t)
	in := New(st, nil, nil, nil, 32)

	raw, _ := json.Marshal(map[string]any{"event_type": "tool_use"})

	result, fieldErrs, err := in.IngestOne(context.Background(), raw)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(fieldErrs) == 0 {
		t.Fatal("expected field errors for missing session_id/agent_type")
	}
	if result.Event.ID != 0 {
		t.Fatal("rejected payload must not produce a persisted event")
	}
}

func TestIngestOneDuplicateEventID(t *testing.T) {
	st := newTestStore(t)
	in := New(st, nil, nil, nil, 32)

	raw, _ := json.Marshal(map[string]any{
		"event_id":   "fixed-id",
		"session_id": "sess-1",
		"agent_type": "claude_code",
		"event_type": "tool_use",
	})

	first, _, err := in.IngestOne(context.Background(), raw)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.Duplicate {
		t.Fatal("first insert should not be a duplicate")
	}

	second, _, err := in.IngestOne(context.Background(), raw)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.Duplicate {
		t.Fatal("second insert with same event_id should be reported as a duplicate")
	}
	if second.Event.ID != first.Event.ID {
		t.Fatalf("duplicate should report the original event id, got %d want %d", second.Event.ID, first.Event.ID)
	}
}

func TestIngestOneComputesCostFromPricingTable(t *testing.T) {
	st := newTestStore(t)
	table, err := pricing.Load()
	if err != nil {
		t.Fatalf("load pricing: %v", err)
	}
	in := New(st, table, nil, nil, 32)

	raw, _ := json.Marshal(map[string]any{
		"session_id": "sess-cost",
		"agent_type": "claude_code",
		"event_type": "llm_response",
		"model":      "claude-sonnet-4-6",
		"tokens_in":  1_000_000,
		"tokens_out": 1_000_000,
	})

	result, fieldErrs, err := in.IngestOne(context.Background(), raw)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(fieldErrs) != 0 {
		t.Fatalf("expected no field errors, got %v", fieldErrs)
	}
	if result.Event.CostUSD == nil {
		t.Fatal("expected a computed cost for a known model")
	}
	const want = 3.00 + 15.00 // input + output rate per 1M tokens, at 1M tokens each
	if got := *result.Event.CostUSD; got != want {
		t.Fatalf("expected computed cost %v, got %v", want, got)
	}
}

func TestIngestOnePreservesClientProvidedCost(t *testing.T) {
	st := newTestStore(t)
	table, err := pricing.Load()
	if err != nil {
		t.Fatalf("load pricing: %v", err)
	}
	in := New(st, table, nil, nil, 32)

	raw, _ := json.Marshal(map[string]any{
		"session_id": "sess-cost-client",
		"agent_type": "claude_code",
		"event_type": "llm_response",
		"model":      "claude-sonnet-4-6",
		"tokens_in":  1_000_000,
		"tokens_out": 1_000_000,
		"cost_usd":   0.5,
	})

	result, fieldErrs, err := in.IngestOne(context.Background(), raw)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(fieldErrs) != 0 {
		t.Fatalf("expected no field errors, got %v", fieldErrs)
	}
	if result.Event.CostUSD == nil || *result.Event.CostUSD != 0.5 {
		t.Fatalf("expected client-provided cost 0.5 to survive enrichment, got %v", result.Event.CostUSD)
	}
}

func TestIngestOneUnknownModelLeavesCostNil(t *testing.T) {
	st := newTestStore(t)
	table, err := pricing.Load()
	if err != nil {
		t.Fatalf("load pricing: %v", err)
	}
	in := New(st, table, nil, nil, 32)

	raw, _ := json.Marshal(map[string]any{
		"session_id": "sess-cost-unknown",
		"agent_type": "claude_code",
		"event_type": "llm_response",
		"model":      "some-future-model-nobody-has-priced-yet",
		"tokens_in":  100,
		"tokens_out": 100,
	})

	result, fieldErrs, err := in.IngestOne(context.Background(), raw)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(fieldErrs) != 0 {
		t.Fatalf("expected no field errors, got %v", fieldErrs)
	}
	if result.Event.CostUSD != nil {
		t.Fatalf("expected nil cost for an unpriced model, got %v", *result.Event.CostUSD)
	}
}

func TestIngestBatchMixedValidAndInvalid(t *testing.T) {
	st := newTestStore(t)
	in := New(st, nil, nil, nil, 32)

	valid, _ := json.Marshal(map[string]any{
		"session_id": "sess-2",
		"agent_type": "codex",
		"event_type": "tool_use",
	})
	invalid, _ := json.Marshal(map[string]any{"event_type": "tool_use"})

	result, err := in.IngestBatch(context.Background(), [][]byte{valid, invalid})
	if err != nil {
		t.Fatalf("ingest batch: %v", err)
	}
	if result.Received != 1 {
		t.Fatalf("expected received=1, got %d", result.Received)
	}
	if len(result.IDs) != 1 {
		t.Fatalf("expected one inserted id, got %v", result.IDs)
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Index != 1 {
		t.Fatalf("expected item 1 rejected, got %+v", result.Rejected)
	}
}

func TestIngestBatchAllInvalidSkipsStore(t *testing.T) {
	st := newTestStore(t)
	in := New(st, nil, nil, nil, 32)

	invalid, _ := json.Marshal(map[string]any{"event_type": "tool_use"})

	result, err := in.IngestBatch(context.Background(), [][]byte{invalid})
	if err != nil {
		t.Fatalf("ingest batch: %v", err)
	}
	if len(result.IDs) != 0 || result.Duplicates != 0 {
		t.Fatalf("expected no inserted ids, got %+v", result)
	}
	if len(result.Rejected) != 1 {
		t.Fatalf("expected one rejected item, got %+v", result.Rejected)
	}
}
