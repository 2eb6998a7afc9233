// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

// Package pricing turns (model, token counts) into a USD cost using
// versioned, embedded pricing tables. It is a pure function over
// immutable data loaded once at startup.
package pricing

import (
	"embed"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

//go:embed tables/*.json
var tableFiles embed.FS

// ModelPricing holds per-model rates in USD per 1M tokens, across the four
// token classes the contract reports.
type ModelPricing struct {
	InputPer1M      float64  `json:"input_per_1m"`
	OutputPer1M     float64  `json:"output_per_1m"`
	CacheReadPer1M  float64  `json:"cache_read_per_1m"`
	CacheWritePer1M float64  `json:"cache_write_per_1m"`
	Aliases         []string `json:"aliases,omitempty"`
}

// providerPrefixes are stripped from a model id before lookup, so
// "anthropic/claude-opus-4-6" and "claude-opus-4-6" resolve identically.
var providerPrefixes = []string{"anthropic/", "openai/", "google/", "azure/"}

// Table is an immutable, loaded set of model pricing entries, keyed by
// canonical model id with every declared alias also pointing at the same
// entry.
type Table struct {
	byModel map[string]ModelPricing
}

// Load reads every embedded per-family JSON table and merges them into one
// lookup table, indexing both canonical ids and declared aliases.
func Load() (*Table, error) {
	entries, err := tableFiles.ReadDir("tables")
	if err != nil {
		return nil, fmt.Errorf("read pricing tables dir: %w", err)
	}

	t := &Table{byModel: make(map[string]ModelPricing)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := tableFiles.ReadFile("tables/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read pricing table %s: %w", entry.Name(), err)
		}
		var family map[string]ModelPricing
		if err := json.Unmarshal(data, &family); err != nil {
			return nil, fmt.Errorf("parse pricing table %s: %w", entry.Name(), err)
		}
		for model, p := range family {
			t.byModel[model] = p
			for _, alias := range p.Aliases {
				t.byModel[alias] = p
			}
		}
	}
	return t, nil
}

// normalize strips a known provider prefix from a model id.
func normalize(model string) string {
	for _, prefix := range providerPrefixes {
		if strings.HasPrefix(model, prefix) {
			return strings.TrimPrefix(model, prefix)
		}
	}
	return model
}

// Lookup returns the pricing entry for model, trying the exact id first,
// then the prefix-stripped form, then a case-insensitive comparison of the
// prefix-stripped form against every known model id (covers differently
// cased ids the table itself doesn't declare as an alias). A model id
// that is only a suffix or prefix of a known id does not match.
func (t *Table) Lookup(model string) (ModelPricing, bool) {
	if p, ok := t.byModel[model]; ok {
		return p, true
	}
	stripped := normalize(model)
	if p, ok := t.byModel[stripped]; ok {
		return p, true
	}
	lower := strings.ToLower(stripped)
	for known, p := range t.byModel {
		if strings.ToLower(known) == lower {
			return p, true
		}
	}
	return ModelPricing{}, false
}

// Cost computes the four-rate cost for one event's token counts. Returns
// nil if the model is unknown; pricing never fails the caller, it just
// declines to price.
func (t *Table) Cost(model string, tokensIn, tokensOut, cacheRead, cacheWrite int64) *float64 {
	p, ok := t.Lookup(model)
	if !ok {
		return nil
	}
	cost := float64(tokensIn)*p.InputPer1M/1e6 +
		float64(tokensOut)*p.OutputPer1M/1e6 +
		float64(cacheRead)*p.CacheReadPer1M/1e6 +
		float64(cacheWrite)*p.CacheWritePer1M/1e6
	return &cost
}
