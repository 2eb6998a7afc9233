// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/tomtom215/agentmonitor/docs" // generated swagger docs
	"github.com/tomtom215/agentmonitor/internal/aggregation"
	"github.com/tomtom215/agentmonitor/internal/api"
	"github.com/tomtom215/agentmonitor/internal/broadcast"
	"github.com/tomtom215/agentmonitor/internal/bus"
	"github.com/tomtom215/agentmonitor/internal/config"
	"github.com/tomtom215/agentmonitor/internal/gitbranch"
	"github.com/tomtom215/agentmonitor/internal/ingest"
	"github.com/tomtom215/agentmonitor/internal/logging"
	"github.com/tomtom215/agentmonitor/internal/pricing"
	"github.com/tomtom215/agentmonitor/internal/runtime"
	"github.com/tomtom215/agentmonitor/internal/sessions"
	"github.com/tomtom215/agentmonitor/internal/store"
	"github.com/tomtom215/agentmonitor/internal/supervisor"
)

// ingestRateLimitPerMinute bounds the ingest routes only; read routes stay
// unlimited since this is a single-user, loopback-bound service.
const ingestRateLimitPerMinute = 600

//nolint:gocyclo // sequential startup wiring, not worth splitting further
func main() {
	// 1. Load configuration.
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().Str("store_path", cfg.Store.Path).Int("port", cfg.Server.Port).
		Msg("starting agent monitor")

	// 2. Open the store; New runs migrations and verifies connectivity.
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing store")
		}
	}()

	// 3. Load pricing tables.
	priceTable, err := pricing.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load pricing table")
	}

	branchResolver := gitbranch.NewResolver()
	eventBus := bus.New()
	defer func() {
		if err := eventBus.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing bus")
		}
	}()

	ingester := ingest.New(st, priceTable, branchResolver, eventBus, cfg.Ingest.MetadataCapKB)
	aggregator := aggregation.New(st.Conn())

	// 4. Build the broadcast hub.
	hub := broadcast.NewHub(cfg.Broadcast.MaxSubscribers)

	startedAt := time.Now()
	handlers := api.NewHandlers(st, ingester, aggregator, hub, cfg.Usage.Limits, cfg.Broadcast.Heartbeat(), startedAt)
	router := api.NewRouter(handlers, ingestRateLimitPerMinute)

	// 5. Build the HTTP server; its listener is bound once the supervisor
	// tree runs the HTTP server service.
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams hold the connection open indefinitely
		IdleTimeout:  60 * time.Second,
	}

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	// 6. Launch periodic tasks under the background layer, and the
	// broadcast fabric under the broadcast layer.
	sweeper := sessions.NewSweeper(
		time.Duration(cfg.Session.IdleThresholdMinutes)*time.Minute,
		st.SweepIdle,
		func(sessions.SweepResult) {
			stats, err := aggregator.Stats(context.Background(), aggregation.Filter{})
			if err != nil {
				logging.Error().Err(err).Msg("failed to compute stats after idle sweep")
				return
			}
			payload, err := broadcast.NewStatsMessage(stats)
			if err != nil {
				logging.Error().Err(err).Msg("failed to encode stats frame after idle sweep")
				return
			}
			hub.PublishStats(payload)
		},
	)
	tree.AddBackgroundService(sweeper)
	tree.AddBackgroundService(supervisor.NewStatsBroadcastService(aggregator, hub, cfg.Broadcast.StatsInterval()))

	if cfg.Ingest.AutoImportIntervalMinutes > 0 {
		trigger := runtime.NewAutoImportTrigger(
			time.Duration(cfg.Ingest.AutoImportIntervalMinutes)*time.Minute,
			nil, // no importer wired in; historical-log import is an external collaborator's job
		)
		tree.AddBackgroundService(trigger)
		logging.Info().Int("interval_minutes", cfg.Ingest.AutoImportIntervalMinutes).
			Msg("auto-import trigger enabled")
	}

	tree.AddBroadcastService(supervisor.NewHubService(hub))
	tree.AddBroadcastService(supervisor.NewBusBridgeService(eventBus, hub))

	tree.AddAPIService(supervisor.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	// 7. Run. /api/health answers 200 as soon as the listener above is
	// accepting connections, since every earlier step has already
	// succeeded by construction at that point.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", httpServer.Addr).Msg("supervisor tree starting")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop")
		}
	}

	logging.Info().Msg("agent monitor stopped")
}
