// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/agentmonitor/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestImportStateRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	got, err := st.GetImportState(ctx, "claude_code", "/logs/a.jsonl")
	if err != nil {
		t.Fatalf("get import state: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no prior import state, got %+v", got)
	}

	want := domain.ImportState{
		Source:     "claude_code",
		Path:       "/logs/a.jsonl",
		Hash:       "sha256:abc",
		ImportedAt: time.Now().UTC().Truncate(time.Second),
		Count:      42,
	}
	if err := st.UpsertImportState(ctx, want); err != nil {
		t.Fatalf("upsert import state: %v", err)
	}

	got, err = st.GetImportState(ctx, want.Source, want.Path)
	if err != nil {
		t.Fatalf("get import state after upsert: %v", err)
	}
	if got == nil {
		t.Fatal("expected import state to be persisted")
	}
	if got.Hash != want.Hash || got.Count != want.Count {
		t.Fatalf("expected %+v, got %+v", want, *got)
	}
}

func TestNeedsImportDetectsUnchangedHash(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	needs, err := st.NeedsImport(ctx, "codex", "/logs/b.jsonl", "sha256:v1")
	if err != nil {
		t.Fatalf("needs import: %v", err)
	}
	if !needs {
		t.Fatal("expected an unseen file to need import")
	}

	if err := st.UpsertImportState(ctx, domain.ImportState{
		Source: "codex", Path: "/logs/b.jsonl", Hash: "sha256:v1", ImportedAt: time.Now().UTC(), Count: 10,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	needs, err = st.NeedsImport(ctx, "codex", "/logs/b.jsonl", "sha256:v1")
	if err != nil {
		t.Fatalf("needs import after upsert: %v", err)
	}
	if needs {
		t.Fatal("expected an unchanged hash to not need re-import")
	}

	needs, err = st.NeedsImport(ctx, "codex", "/logs/b.jsonl", "sha256:v2")
	if err != nil {
		t.Fatalf("needs import after content change: %v", err)
	}
	if !needs {
		t.Fatal("expected a changed hash to need re-import")
	}
}

func TestInsertEventReusesPreparedStatement(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := st.InsertEvent(ctx, domain.Event{
			SessionID: "sess-stmt-cache",
			AgentKind: "claude_code",
			EventType: domain.EventToolUse,
			Status:    domain.StatusSuccess,
		})
		if err != nil {
			t.Fatalf("insert event %d: %v", i, err)
		}
	}

	st.stmtMu.Lock()
	n := len(st.stmts)
	st.stmtMu.Unlock()
	if n != 1 {
		t.Fatalf("expected three inserts to share one cached prepared statement, got %d cached", n)
	}
}
