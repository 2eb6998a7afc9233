// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

// Package runtime holds the small periodic tasks that round out the
// background layer alongside the idle sweeper and stats broadcaster:
// currently just the optional auto-import trigger.
package runtime

import (
	"context"
	"time"

	"github.com/tomtom215/agentmonitor/internal/logging"
)

// AutoImportTrigger is a periodic suture.Service that wakes on Interval
// and invokes Run, if set. Historical-log importers are external
// collaborators that reduce to producing normalized events fed into the
// ingest API; this service only owns the wake-up, not the parsing of any
// particular agent's log format. A deployment with no importer wired in
// simply leaves Run nil, and the trigger fires into a no-op.
type AutoImportTrigger struct {
	// Interval between trigger fires. The caller is expected to construct
	// this only when config.Ingest.AutoImportIntervalMinutes > 0.
	Interval time.Duration

	// Run performs one import pass. May be nil, in which case each tick
	// is logged and discarded.
	Run func(ctx context.Context) error
}

// NewAutoImportTrigger constructs an AutoImportTrigger ticking every
// interval. run may be nil.
func NewAutoImportTrigger(interval time.Duration, run func(ctx context.Context) error) *AutoImportTrigger {
	return &AutoImportTrigger{Interval: interval, Run: run}
}

// Serve implements suture.Service.
func (t *AutoImportTrigger) Serve(ctx context.Context) error {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if t.Run == nil {
				logging.Debug().Msg("auto-import trigger fired with no importer configured, skipping")
				continue
			}
			if err := t.Run(ctx); err != nil {
				logging.Error().Err(err).Msg("auto-import pass failed")
			}
		}
	}
}

// String implements fmt.Stringer for suture's logging.
func (t *AutoImportTrigger) String() string {
	return "auto-import-trigger"
}
