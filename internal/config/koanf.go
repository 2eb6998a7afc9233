// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/agentmonitor/config.yaml",
	"/etc/agentmonitor/config.yml",
}

// ConfigPathEnvVar is the environment variable that overrides the config
// file search.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix is stripped from every environment variable before it is
// mapped onto a koanf path, e.g. AGENTMON_SERVER_BIND_PORT -> server.port.
const envPrefix = "AGENTMON_"

// embeddedEnvPrefix is the lower-priority sibling of envPrefix: the
// desktop shell that embeds this engine sets these to inject its own
// defaults (e.g. a per-install database path) without being able to
// clobber an operator's explicit AGENTMON_ override (spec §4.1's
// precedence: explicit env > desktop-embedding override > default).
const embeddedEnvPrefix = "AGENTMON_EMBED_"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            3141,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Path: "./data/agentmonitor.db",
		},
		Ingest: IngestConfig{
			MetadataCapKB:             10,
			ProjectsRoot:              "",
			AutoImportIntervalMinutes: 10,
		},
		Session: SessionConfig{
			IdleThresholdMinutes: 5,
		},
		Broadcast: BroadcastConfig{
			LiveFeedMaxSize: 200,
			StatsIntervalMs: 5000,
			MaxSubscribers:  50,
			HeartbeatMs:     30000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Usage: UsageConfig{
			Limits: map[string]AgentLimit{
				"claude_code": {
					WindowHours: 5, Limit: 1_000_000, LimitType: "tokens",
					ExtendedWindowHours: 168, ExtendedLimit: 10_000_000,
				},
				"codex": {
					WindowHours: 5, Limit: 1_000_000, LimitType: "tokens",
					ExtendedWindowHours: 168, ExtendedLimit: 10_000_000,
				},
			},
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources,
// applied in ascending priority so each later Load can override the
// former on a per-key basis:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if found)
//  3. Desktop-embedding override: AGENTMON_EMBED_-prefixed environment
//     variables, set by the shell that embeds this engine
//  4. Environment variables: AGENTMON_-prefixed, highest priority
//
// An environment value that fails type coercion is skipped on its own, so
// the value from the layer below (ultimately the struct default) shows
// through for that key instead of the whole load being aborted.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	for _, prefix := range []string{embeddedEnvPrefix, envPrefix} {
		ek := koanf.New(".")
		if err := ek.Load(env.Provider(prefix, ".", envTransformFuncWithPrefix(prefix)), nil); err != nil {
			return nil, fmt.Errorf("failed to load %s environment variables: %w", prefix, err)
		}
		// Apply each key on its own and keep it only if the configuration
		// still decodes, so one malformed value cannot abort the load.
		for _, key := range ek.Keys() {
			probe := k.Copy()
			if probe.Set(key, ek.Get(key)) == nil && probe.Unmarshal("", &Config{}) == nil {
				_ = k.Set(key, ek.Get(key))
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envKeyMappings maps the unprefixed suffix of an AGENTMON_ or
// AGENTMON_EMBED_ environment variable name onto its koanf dotted path,
// e.g. SERVER_BIND_HOST -> server.host.
var envKeyMappings = map[string]string{
	"server_bind_host":   "server.host",
	"server_bind_port":   "server.port",
	"server_shutdown_ms": "server.shutdown_timeout",

	"store_db_path": "store.path",

	"metadata_cap_kb":             "ingest.metadata_cap_kb",
	"projects_root":               "ingest.projects_root",
	"auto_import_interval_minutes": "ingest.auto_import_interval_minutes",

	"idle_threshold_minutes": "session.idle_threshold_minutes",

	"live_feed_max_size": "broadcast.live_feed_max_size",
	"stats_interval_ms":  "broadcast.stats_interval_ms",
	"max_sse_clients":    "broadcast.max_subscribers",
	"heartbeat_ms":       "broadcast.heartbeat_ms",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFuncWithPrefix builds an env.Provider transform bound to a
// specific prefix, so the same envKeyMappings table serves both the
// AGENTMON_ and AGENTMON_EMBED_ layers.
func envTransformFuncWithPrefix(prefix string) func(string) string {
	return func(key string) string {
		trimmed := key
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			trimmed = key[len(prefix):]
		}
		lower := lowerKey(trimmed)
		if mapped, ok := envKeyMappings[lower]; ok {
			return mapped
		}
		return ""
	}
}

func lowerKey(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
