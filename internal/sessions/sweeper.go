// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package sessions

import (
	"context"
	"time"

	"github.com/tomtom215/agentmonitor/internal/logging"
)

// Sweeper is a periodic task demoting active sessions to idle, and idle
// sessions to ended, based on how long they have gone without an event.
// It implements suture.Service so the runtime supervises it.
type Sweeper struct {
	// IdleThreshold is how long a session may sit without an event before
	// being demoted from active to idle. The end threshold is 2x this.
	IdleThreshold time.Duration

	// Sweep performs one pass and reports what changed. Store implements
	// this; kept as a function field so the sweeper is testable without a
	// real store.
	Sweep func(ctx context.Context, idleThreshold time.Duration) (SweepResult, error)

	// OnChange is invoked after a sweep that changed at least one session,
	// with only the change counts. The server uses it to publish a fresh
	// stats frame; no per-session session_update frame is sent for swept
	// sessions. May be nil.
	OnChange func(SweepResult)

	// Interval between sweeps. Spec mandates 60s.
	Interval time.Duration
}

// NewSweeper constructs a Sweeper with the spec-mandated 60s tick.
func NewSweeper(idleThreshold time.Duration, sweep func(context.Context, time.Duration) (SweepResult, error), onChange func(SweepResult)) *Sweeper {
	return &Sweeper{
		IdleThreshold: idleThreshold,
		Sweep:         sweep,
		OnChange:      onChange,
		Interval:      60 * time.Second,
	}
}

// Serve implements suture.Service.
func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			result, err := s.Sweep(ctx, s.IdleThreshold)
			if err != nil {
				logging.Error().Err(err).Msg("idle sweep failed")
				continue
			}
			if result.Changed() {
				logging.Info().Int("idled", result.IdledCount).Int("ended", result.EndedCount).
					Msg("idle sweep transitioned sessions")
				if s.OnChange != nil {
					s.OnChange(result)
				}
			}
		}
	}
}
