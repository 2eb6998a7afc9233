// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func TestAutoImportTriggerInterface(t *testing.T) {
	var _ suture.Service = (*AutoImportTrigger)(nil)
}

func TestAutoImportTriggerNilRunIsNoOp(t *testing.T) {
	trig := NewAutoImportTrigger(10*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := trig.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestAutoImportTriggerCallsRun(t *testing.T) {
	var calls atomic.Int32
	trig := NewAutoImportTrigger(10*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	_ = trig.Serve(ctx)

	if calls.Load() < 2 {
		t.Errorf("expected at least 2 Run calls in 55ms at 10ms interval, got %d", calls.Load())
	}
}

func TestAutoImportTriggerLogsRunError(t *testing.T) {
	trig := NewAutoImportTrigger(10*time.Millisecond, func(ctx context.Context) error {
		return errors.New("import failed")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := trig.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded (a Run error never stops the trigger), got %v", err)
	}
}

func TestAutoImportTriggerString(t *testing.T) {
	trig := NewAutoImportTrigger(time.Second, nil)
	if got := trig.String(); got != "auto-import-trigger" {
		t.Errorf("String() = %q, want %q", got, "auto-import-trigger")
	}
}
