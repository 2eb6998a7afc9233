// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

// Package config resolves runtime parameters from environment with typed
// defaults and a fixed precedence order. See LoadWithKoanf for the loading
// pipeline.
package config

import (
	"fmt"
	"time"
)

// Config holds all runtime configuration for the server. It is immutable
// after LoadWithKoanf() and safe for concurrent read access.
//
// Loading order (Koanf v2), lowest to highest priority:
//  1. Defaults: built-in sensible defaults for every field
//  2. Config file: optional YAML file, if found
//  3. AGENTMON_EMBED_-prefixed environment variables: desktop-embedding override
//  4. AGENTMON_-prefixed environment variables: explicit override, highest priority
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Session   SessionConfig   `koanf:"session"`
	Broadcast BroadcastConfig `koanf:"broadcast"`
	Logging   LoggingConfig   `koanf:"logging"`
	Usage     UsageConfig     `koanf:"usage"`
}

// ServerConfig holds HTTP bind settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig holds the embedded SQLite store location.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// IngestConfig holds event-ingest tuning.
type IngestConfig struct {
	// MetadataCapKB is the maximum metadata payload size, in KiB, before
	// truncation (see internal/contract).
	MetadataCapKB int `koanf:"metadata_cap_kb"`

	// ProjectsRoot is the filesystem root under which project directories
	// are resolved for the git-branch-resolver collaborator. Auto-detected
	// from the working directory's ancestry if left empty.
	ProjectsRoot string `koanf:"projects_root"`

	// AutoImportIntervalMinutes drives the optional auto-import trigger
	// task; 0 disables it.
	AutoImportIntervalMinutes int `koanf:"auto_import_interval_minutes"`
}

// SessionConfig holds session-lifecycle thresholds.
type SessionConfig struct {
	// IdleThresholdMinutes is how long a session may go without an event
	// before the idle sweeper demotes it from active to idle. The end
	// threshold is implicitly 2x this value.
	IdleThresholdMinutes int `koanf:"idle_threshold_minutes"`
}

// BroadcastConfig holds SSE hub tuning.
type BroadcastConfig struct {
	LiveFeedMaxSize int `koanf:"live_feed_max_size"`
	StatsIntervalMs int `koanf:"stats_interval_ms"`
	MaxSubscribers  int `koanf:"max_subscribers"`
	HeartbeatMs     int `koanf:"heartbeat_ms"`
}

// Heartbeat returns the heartbeat interval as a time.Duration.
func (b BroadcastConfig) Heartbeat() time.Duration {
	return time.Duration(b.HeartbeatMs) * time.Millisecond
}

// StatsInterval returns the stats-broadcast interval as a time.Duration.
func (b BroadcastConfig) StatsInterval() time.Duration {
	return time.Duration(b.StatsIntervalMs) * time.Millisecond
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "json" or "console"
	Caller bool   `koanf:"caller"`
}

// AgentLimit describes one rolling-window usage limit for an agent kind.
type AgentLimit struct {
	WindowHours         int    `koanf:"window_hours"`
	Limit               int64  `koanf:"limit"`
	ExtendedWindowHours int    `koanf:"extended_window_hours"`
	ExtendedLimit       int64  `koanf:"extended_limit"`
	LimitType           string `koanf:"limit_type"` // "tokens" or "cost"
}

// UsageConfig holds per-agent-kind usage limits, keyed by agent kind.
type UsageConfig struct {
	Limits map[string]AgentLimit `koanf:"limits"`
}

// Validate checks that loaded configuration values are internally
// consistent. Individual malformed environment values are already
// defaulted by LoadWithKoanf before Validate runs; this only rejects
// combinations that would make the server impossible to start safely.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if c.Ingest.MetadataCapKB <= 0 {
		return fmt.Errorf("ingest.metadata_cap_kb must be positive")
	}
	if c.Session.IdleThresholdMinutes <= 0 {
		return fmt.Errorf("session.idle_threshold_minutes must be positive")
	}
	if c.Broadcast.MaxSubscribers <= 0 {
		return fmt.Errorf("broadcast.max_subscribers must be positive")
	}
	for kind, lim := range c.Usage.Limits {
		if lim.LimitType != "tokens" && lim.LimitType != "cost" {
			return fmt.Errorf("usage.limits[%s].limit_type must be tokens or cost", kind)
		}
	}
	return nil
}
