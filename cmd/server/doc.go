// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

/*
Package main is the entry point for the Agent Monitor server application.

Agent Monitor is a local-first observability hub for AI coding agents
(Claude Code, Codex, and similar tools). It ingests normalized lifecycle
and tool-use events over HTTP, reconstructs session state through a
small state machine, computes token and cost rollups against a pricing
table, persists everything to an embedded SQLite store, and fans live
updates out to browser subscribers over Server-Sent Events.

# Application Architecture

The server implements a layered architecture with Suture v4 process
supervision:

	RootSupervisor ("agentmonitor")
	├── BackgroundSupervisor ("background-layer")
	│   ├── Idle Sweeper (session lifecycle demotion)
	│   ├── Stats Broadcaster (periodic aggregate snapshot)
	│   └── Auto-Import Trigger (optional, periodic)
	├── BroadcastSupervisor ("broadcast-layer")
	│   ├── SSE Hub (subscriber registry and fan-out)
	│   └── Bus Bridge (ingest -> hub decoupling)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi router)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and an optional
    config file.
 2. Store: open the embedded SQLite database, run migrations, and verify
    connectivity.
 3. Pricing: load the model cost table.
 4. Collaborators: git-branch resolver, in-process pub/sub bus, ingest
    pipeline, aggregation engine.
 5. Broadcast hub: the bounded SSE subscriber registry.
 6. HTTP server: the chi router, constructed but not yet listening.
 7. Supervisor tree: every periodic task and the HTTP server are added
    and the tree starts serving; the listener is bound at this step.

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest
priority wins):

	Priority: AGENTMON_ env > AGENTMON_EMBED_ env > Config file > Defaults

AGENTMON_EMBED_ is the lower-priority tier a desktop shell embedding this
engine uses to inject its own defaults (e.g. a per-install database path)
without being able to override an operator's explicit AGENTMON_ setting.
Both tiers share the same key suffixes:

	AGENTMON_SERVER_BIND_HOST=127.0.0.1
	AGENTMON_SERVER_BIND_PORT=3141
	AGENTMON_STORE_DB_PATH=./data/agentmonitor.db
	AGENTMON_METADATA_CAP_KB=16
	AGENTMON_AUTO_IMPORT_INTERVAL_MINUTES=0
	AGENTMON_IDLE_THRESHOLD_MINUTES=5
	AGENTMON_MAX_SSE_CLIENTS=64
	AGENTMON_STATS_INTERVAL_MS=5000
	AGENTMON_LOG_LEVEL=info
	AGENTMON_LOG_FORMAT=json

	AGENTMON_EMBED_STORE_DB_PATH=/Users/me/Library/Application Support/AgentMonitor/agentmonitor.db

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:

 1. Stops accepting new HTTP connections.
 2. Cancels the background and broadcast layers' periodic tasks.
 3. Drains and closes every connected SSE subscriber.
 4. Checkpoints the WAL and closes the store.
 5. Reports any services that failed to stop within the shutdown
    timeout.

# Usage Example

	export AGENTMON_STORE_DB_PATH=./data/agentmonitor.db
	export AGENTMON_LOG_FORMAT=console
	./agentmonitor

# API Documentation

Swagger documentation is available at /swagger/index.html when the
server is running. See internal/api for the full route table: event
ingest (/api/events), aggregate stats (/api/stats and friends), session
listing and transcript reconstruction (/api/sessions), and health
(/api/health).

# See Also

  - internal/config: configuration loading
  - internal/supervisor: process supervision
  - internal/api: HTTP handlers and routing
  - internal/runtime: the auto-import trigger
  - DESIGN.md: component grounding and design decisions
*/
package main
