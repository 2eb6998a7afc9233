// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package supervisor

import (
	"context"
	"time"

	"github.com/tomtom215/agentmonitor/internal/aggregation"
	"github.com/tomtom215/agentmonitor/internal/broadcast"
	"github.com/tomtom215/agentmonitor/internal/logging"
)

// StatsBroadcastService periodically recomputes overall stats and pushes
// them to the Hub as an unfiltered stats frame (spec §4.8/§4.10). It talks
// to the Hub directly rather than through the bus: stats snapshots are
// derived state, never persisted or deduplicated, so there is nothing for
// a bus subscriber to gain from seeing them go through the same channel
// as persisted events.
type StatsBroadcastService struct {
	agg      *aggregation.Aggregator
	hub      *broadcast.Hub
	interval time.Duration
}

// NewStatsBroadcastService constructs a StatsBroadcastService ticking at
// interval (config.BroadcastConfig.StatsInterval()).
func NewStatsBroadcastService(agg *aggregation.Aggregator, hub *broadcast.Hub, interval time.Duration) *StatsBroadcastService {
	return &StatsBroadcastService{agg: agg, hub: hub, interval: interval}
}

// Serve implements suture.Service.
func (s *StatsBroadcastService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats, err := s.agg.Stats(ctx, aggregation.Filter{})
			if err != nil {
				logging.Error().Err(err).Msg("stats broadcast: failed to compute stats")
				continue
			}
			payload, err := broadcast.NewStatsMessage(stats)
			if err != nil {
				logging.Error().Err(err).Msg("stats broadcast: failed to encode stats frame")
				continue
			}
			s.hub.PublishStats(payload)
		}
	}
}

// String implements fmt.Stringer for suture's logging.
func (s *StatsBroadcastService) String() string {
	return "stats-broadcaster"
}
