// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

// Package ingest orchestrates one inbound event from raw bytes to a
// persisted, broadcast-ready record: Contract normalizes the payload,
// the git-branch resolver fills in a missing branch, Pricing prices any
// token usage, Store applies the session state machine and persists the
// row, and the bus carries the resulting frames to Broadcast. No step
// here re-implements logic that already lives in one of those packages;
// this file only sequences them (spec §4.5).
package ingest

import (
	"context"
	"fmt"

	"github.com/tomtom215/agentmonitor/internal/apierr"
	"github.com/tomtom215/agentmonitor/internal/broadcast"
	"github.com/tomtom215/agentmonitor/internal/bus"
	"github.com/tomtom215/agentmonitor/internal/contract"
	"github.com/tomtom215/agentmonitor/internal/domain"
	"github.com/tomtom215/agentmonitor/internal/gitbranch"
	"github.com/tomtom215/agentmonitor/internal/logging"
	"github.com/tomtom215/agentmonitor/internal/pricing"
	"github.com/tomtom215/agentmonitor/internal/store"
)

// Result is the outcome of ingesting one event.
type Result struct {
	Duplicate bool
	Event     domain.Event
	Session   *domain.Session
}

// RejectedItem is one batch member that failed Contract normalization.
type RejectedItem struct {
	Index  int                 `json:"index"`
	Errors []apierr.FieldError `json:"errors"`
}

// BatchResult is the `/api/events/batch` response envelope: how many
// items were newly inserted, their assigned ids, how many were
// recognized as duplicates, and the items rejected before they ever
// reached the store (spec §6: `{received, ids, duplicates, rejected}`).
type BatchResult struct {
	Received   int            `json:"received"`
	IDs        []int64        `json:"ids"`
	Duplicates int            `json:"duplicates"`
	Rejected   []RejectedItem `json:"rejected"`
}

// Ingester wires Contract, Pricing, the git-branch resolver, Store, and
// the bus together. It holds no mutable state of its own; every
// dependency is safe for concurrent use.
type Ingester struct {
	store            *store.Store
	pricing          *pricing.Table
	branch           *gitbranch.Resolver
	bus              *bus.Bus
	metadataCapBytes int
}

// New constructs an Ingester. metadataCapKB is converted to bytes once
// here so every call site passes a byte budget, matching Contract's unit.
func New(st *store.Store, pr *pricing.Table, br *gitbranch.Resolver, b *bus.Bus, metadataCapKB int) *Ingester {
	return &Ingester{
		store:            st,
		pricing:          pr,
		branch:           br,
		bus:              b,
		metadataCapBytes: metadataCapKB * 1024,
	}
}

// IngestOne normalizes, enriches, persists, and broadcasts one raw event
// payload. A non-nil field-error slice means the payload was rejected
// before touching the store; a non-nil error means persistence itself
// failed after the payload was valid.
func (in *Ingester) IngestOne(ctx context.Context, raw []byte) (Result, []apierr.FieldError, error) {
	ev, fieldErrs := contract.Normalize(raw, in.metadataCapBytes)
	if len(fieldErrs) > 0 {
		return Result{}, fieldErrs, nil
	}

	in.enrich(ctx, ev)

	ir, err := in.store.InsertEvent(ctx, *ev)
	if err != nil {
		return Result{}, nil, fmt.Errorf("insert event: %w", err)
	}

	if !ir.Duplicate {
		in.publish(ir)
	}

	return Result{Duplicate: ir.Duplicate, Event: ir.Event, Session: ir.Session}, nil, nil
}

// IngestBatch normalizes every item independently, inserts every valid
// item in a single transaction (spec §4.5's batch atomicity rule), and
// reports rejections alongside successes rather than failing the whole
// batch for one bad item.
func (in *Ingester) IngestBatch(ctx context.Context, raws [][]byte) (BatchResult, error) {
	var result BatchResult

	valid := make([]domain.Event, 0, len(raws))

	for i, raw := range raws {
		ev, fieldErrs := contract.Normalize(raw, in.metadataCapBytes)
		if len(fieldErrs) > 0 {
			result.Rejected = append(result.Rejected, RejectedItem{Index: i, Errors: fieldErrs})
			continue
		}
		in.enrich(ctx, ev)
		valid = append(valid, *ev)
	}

	if len(valid) == 0 {
		return result, nil
	}

	inserted, err := in.store.InsertBatch(ctx, valid)
	if err != nil {
		return BatchResult{}, fmt.Errorf("insert batch: %w", err)
	}

	for _, ir := range inserted {
		if ir.Duplicate {
			result.Duplicates++
			continue
		}
		result.IDs = append(result.IDs, ir.Event.ID)
		in.publish(ir)
	}
	result.Received = len(result.IDs)

	return result, nil
}

// enrich fills in anything Contract cannot compute on its own: the
// current git branch when the event names a project but not a branch,
// and the USD cost of any priced token usage.
func (in *Ingester) enrich(ctx context.Context, ev *domain.Event) {
	if ev.Project != nil && ev.Branch == nil && in.branch != nil {
		ev.Branch = in.branch.Resolve(ctx, *ev.Project)
	}
	if ev.CostUSD == nil && ev.Model != nil && in.pricing != nil {
		ev.CostUSD = in.pricing.Cost(*ev.Model, ev.TokensIn, ev.TokensOut, ev.CacheReadTokens, ev.CacheWriteTokens)
	}
}

// publish fans out the event and session_update frames for one
// newly-inserted (non-duplicate) row onto the bus. The frame carries its
// own event/session payload, so the bus→hub bridge derives the broadcast
// Filter by decoding the envelope rather than Ingest threading it
// separately through the bus (gochannel messages are plain bytes).
// Publish failures are logged, not returned: the event is already
// durably persisted, and a dropped live frame never reopens the ingest
// request to the caller.
func (in *Ingester) publish(ir store.InsertResult) {
	if in.bus == nil {
		return
	}

	if payload, _, err := broadcast.NewEventMessage(ir.Event); err == nil {
		if pubErr := in.bus.Publish(payload); pubErr != nil {
			logging.Warn().Err(pubErr).Msg("failed to publish event frame")
		}
	} else {
		logging.Warn().Err(err).Msg("failed to encode event frame")
	}

	if ir.Session == nil {
		return
	}
	if payload, _, err := broadcast.NewSessionUpdateMessage(*ir.Session); err == nil {
		if pubErr := in.bus.Publish(payload); pubErr != nil {
			logging.Warn().Err(pubErr).Msg("failed to publish session_update frame")
		}
	} else {
		logging.Warn().Err(err).Msg("failed to encode session_update frame")
	}
}
