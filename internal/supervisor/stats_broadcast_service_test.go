// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package supervisor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/agentmonitor/internal/aggregation"
	"github.com/tomtom215/agentmonitor/internal/broadcast"
	"github.com/tomtom215/agentmonitor/internal/store"
)

func TestStatsBroadcastService(t *testing.T) {
	var _ suture.Service = (*StatsBroadcastService)(nil)

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	agg := aggregation.New(st.Conn())
	hub := broadcast.NewHub(4)
	go hub.Run()
	defer hub.Stop()

	svc := NewStatsBroadcastService(agg, hub, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = svc.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if got := svc.String(); got != "stats-broadcaster" {
		t.Errorf("String() = %q, want %q", got, "stats-broadcaster")
	}
}
