// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

// Package gitbranch resolves the current branch for a project directory,
// the only collaborator the core consumes that shells out to an external
// process. A circuit breaker bounds a wedged git subprocess to a 2s budget
// and a short-lived cache absorbs repeated lookups for the same project
// within one ingest burst.
package gitbranch

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/agentmonitor/internal/logging"
)

// cacheTTL is how long a resolved branch is reused for the same project
// path before re-invoking git.
const cacheTTL = 60 * time.Second

// resolveTimeout is the hard wall-clock budget for one resolution.
const resolveTimeout = 2 * time.Second

type cacheEntry struct {
	branch    *string
	expiresAt time.Time
}

// Resolver resolves a project's current git branch, protected by a
// circuit breaker so a hung git subprocess cannot stall ingest.
type Resolver struct {
	breaker *gobreaker.CircuitBreaker[*string]

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewResolver constructs a Resolver with a breaker that trips after 5
// consecutive failures and stays open for 30s before probing again.
func NewResolver() *Resolver {
	r := &Resolver{cache: make(map[string]cacheEntry)}
	r.breaker = gobreaker.NewCircuitBreaker[*string](gobreaker.Settings{
		Name:        "git-branch-resolver",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("git branch resolver circuit breaker state change")
		},
	})
	return r
}

// Resolve returns the current branch for projectPath, or nil if it cannot
// be determined within budget (not a git repo, detached with no symbolic
// ref, timeout, or an open breaker). Never returns an error to the caller
// — branch resolution is always best-effort.
func (r *Resolver) Resolve(ctx context.Context, projectPath string) *string {
	if projectPath == "" {
		return nil
	}

	r.mu.Lock()
	if entry, ok := r.cache[projectPath]; ok && time.Now().Before(entry.expiresAt) {
		r.mu.Unlock()
		return entry.branch
	}
	r.mu.Unlock()

	branch, err := r.breaker.Execute(func() (*string, error) {
		return resolveGitBranch(ctx, projectPath)
	})
	if err != nil {
		branch = nil
	}

	r.mu.Lock()
	r.cache[projectPath] = cacheEntry{branch: branch, expiresAt: time.Now().Add(cacheTTL)}
	r.mu.Unlock()

	return branch
}

func resolveGitBranch(ctx context.Context, projectPath string) (*string, error) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "-C", projectPath, "rev-parse", "--abbrev-ref", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	branch := strings.TrimSpace(string(out))
	if branch == "" || branch == "HEAD" {
		return nil, nil
	}
	return &branch, nil
}
