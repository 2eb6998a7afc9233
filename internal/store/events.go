// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/agentmonitor/internal/domain"
)

// InsertResult reports the outcome of one event insert attempt.
type InsertResult struct {
	Duplicate bool
	Event     domain.Event // Event.ID populated on success
	Session   *domain.Session
}

// InsertEvent upserts the owning agent, drives the session state machine,
// and inserts the event, all inside one transaction under the
// single-writer lock (spec §4.5 step 6, §5). If the event carries an
// event_id that already exists, the insert is swallowed and reported as a
// duplicate without advancing last_event_at (spec §4.2, §4.6).
func (s *Store) InsertEvent(ctx context.Context, ev domain.Event) (InsertResult, error) {
	var result InsertResult
	err := s.withWriteLock(ctx, func(tx *sql.Tx) error {
		r, err := s.insertEventTx(ctx, tx, ev, time.Now().UTC())
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return InsertResult{}, err
	}
	return result, nil
}

// InsertBatch inserts every event in one transaction (spec §4.5's batch
// semantics: valid items share a single transaction). Duplicates are
// reported per item in the results; any other item error rolls back the
// whole batch and is returned.
func (s *Store) InsertBatch(ctx context.Context, events []domain.Event) ([]InsertResult, error) {
	results := make([]InsertResult, len(events))
	now := time.Now().UTC()

	err := s.withWriteLock(ctx, func(tx *sql.Tx) error {
		for i, ev := range events {
			r, err := s.insertEventTx(ctx, tx, ev, now)
			if err != nil {
				return fmt.Errorf("batch item %d: %w", i, err)
			}
			results[i] = r
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// insertEventQuery is prepared once per Store and reused, tx-bound, on
// every call through preparedStmt — the hot path runs this exact
// statement on every single and batch insert.
const insertEventQuery = `
	INSERT INTO events (
		event_id, session_id, agent_type, event_type, tool_name, status,
		tokens_in, tokens_out, cache_read_tokens, cache_write_tokens,
		duration_ms, model, cost_usd, project, branch, source,
		created_at, client_timestamp, metadata, payload_truncated
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// insertEventTx is the shared core of InsertEvent and InsertBatch: it must
// run inside an already-open transaction so multi-event batches share one
// transaction while single inserts still get transactional atomicity with
// their session/agent updates.
func (s *Store) insertEventTx(ctx context.Context, tx *sql.Tx, ev domain.Event, now time.Time) (InsertResult, error) {
	var result InsertResult
	ev.CreatedAt = now

	if ev.EventID != nil {
		var existingID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM events WHERE event_id = ?`, *ev.EventID).Scan(&existingID)
		if err == nil {
			result.Duplicate = true
			result.Event = ev
			result.Event.ID = existingID
			return result, nil
		}
		if err != sql.ErrNoRows {
			return InsertResult{}, fmt.Errorf("check duplicate event_id: %w", err)
		}
	}

	if err := upsertAgent(ctx, tx, ev.AgentKind, ev.AgentKind, now); err != nil {
		return InsertResult{}, fmt.Errorf("upsert agent: %w", err)
	}

	sess, err := upsertSessionForEvent(ctx, tx, &ev, now)
	if err != nil {
		return InsertResult{}, err
	}
	result.Session = sess

	metadataJSON, err := json.Marshal(ev.Metadata)
	if err != nil {
		return InsertResult{}, fmt.Errorf("marshal metadata: %w", err)
	}

	stmt, err := s.preparedStmt(ctx, insertEventQuery)
	if err != nil {
		return InsertResult{}, err
	}
	res, err := tx.StmtContext(ctx, stmt).ExecContext(ctx,
		nullableStr(ev.EventID), ev.SessionID, ev.AgentKind, string(ev.EventType), nullableStr(ev.ToolName), string(ev.Status),
		ev.TokensIn, ev.TokensOut, ev.CacheReadTokens, ev.CacheWriteTokens,
		ev.DurationMs, nullableStr(ev.Model), ev.CostUSD, nullableStr(ev.Project), nullableStr(ev.Branch), sourceOrNil(ev.Source),
		fmtTime(ev.CreatedAt), fmtTimePtr(ev.ClientTimestamp), string(metadataJSON), boolToInt(ev.PayloadTruncated))
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return InsertResult{}, fmt.Errorf("event last insert id: %w", err)
	}
	ev.ID = id
	result.Event = ev
	return result, nil
}

func nullableStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func sourceOrNil(s *domain.SourceTag) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// EventFilter narrows a ListEvents query. All fields are optional.
type EventFilter struct {
	AgentKind string
	EventType string
	ToolName  string
	SessionID string
	Branch    string
	Model     string
	Source    string
	Since     *time.Time
	Until     *time.Time
	Limit     int // 0 = unbounded
	Offset    int
}

// ListEvents returns events matching filter, newest first, plus the total
// matching row count (ignoring Limit/Offset) for pagination.
func (s *Store) ListEvents(ctx context.Context, f EventFilter) ([]domain.Event, int, error) {
	var where []string
	var args []any

	add := func(clause string, val any) {
		where = append(where, clause)
		args = append(args, val)
	}
	if f.AgentKind != "" {
		add("agent_type = ?", f.AgentKind)
	}
	if f.EventType != "" {
		add("event_type = ?", f.EventType)
	}
	if f.ToolName != "" {
		add("tool_name = ?", f.ToolName)
	}
	if f.SessionID != "" {
		add("session_id = ?", f.SessionID)
	}
	if f.Branch != "" {
		add("branch = ?", f.Branch)
	}
	if f.Model != "" {
		add("model = ?", f.Model)
	}
	if f.Source != "" {
		add("source = ?", f.Source)
	}
	if f.Since != nil {
		add("created_at >= ?", fmtTime(*f.Since))
	}
	if f.Until != nil {
		add("created_at <= ?", fmtTime(*f.Until))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	q := `SELECT id, event_id, session_id, agent_type, event_type, tool_name, status,
		tokens_in, tokens_out, cache_read_tokens, cache_write_tokens, duration_ms, model, cost_usd,
		project, branch, source, created_at, client_timestamp, metadata, payload_truncated
		FROM events` + whereClause + ` ORDER BY id DESC`
	qargs := append([]any{}, args...)
	if f.Limit > 0 {
		q += ` LIMIT ?`
		qargs = append(qargs, f.Limit)
		if f.Offset > 0 {
			q += ` OFFSET ?`
			qargs = append(qargs, f.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, q, qargs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, ev)
	}
	return events, total, rows.Err()
}

// SessionEvents returns every event for a session in chronological order,
// used by transcript reconstruction and the session-detail endpoint.
func (s *Store) SessionEvents(ctx context.Context, sessionID string, limit int) ([]domain.Event, error) {
	q := `SELECT id, event_id, session_id, agent_type, event_type, tool_name, status,
		tokens_in, tokens_out, cache_read_tokens, cache_write_tokens, duration_ms, model, cost_usd,
		project, branch, source, created_at, client_timestamp, metadata, payload_truncated
		FROM events WHERE session_id = ? ORDER BY id ASC`
	args := []any{sessionID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("session events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(rows scanner) (domain.Event, error) {
	var ev domain.Event
	var eventID, toolName, model, project, branch, source, clientTimestamp, metadata sql.NullString
	var durationMs sql.NullInt64
	var costUSD sql.NullFloat64
	var createdAt string
	var truncated int

	err := rows.Scan(&ev.ID, &eventID, &ev.SessionID, &ev.AgentKind, &ev.EventType, &toolName, &ev.Status,
		&ev.TokensIn, &ev.TokensOut, &ev.CacheReadTokens, &ev.CacheWriteTokens, &durationMs, &model, &costUSD,
		&project, &branch, &source, &createdAt, &clientTimestamp, &metadata, &truncated)
	if err != nil {
		return ev, err
	}

	if eventID.Valid {
		ev.EventID = &eventID.String
	}
	if toolName.Valid {
		ev.ToolName = &toolName.String
	}
	if model.Valid {
		ev.Model = &model.String
	}
	if project.Valid {
		ev.Project = &project.String
	}
	if branch.Valid {
		ev.Branch = &branch.String
	}
	if source.Valid {
		tag := domain.SourceTag(source.String)
		ev.Source = &tag
	}
	if durationMs.Valid {
		ev.DurationMs = &durationMs.Int64
	}
	if costUSD.Valid {
		ev.CostUSD = &costUSD.Float64
	}
	ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if clientTimestamp.Valid {
		t, _ := time.Parse(time.RFC3339Nano, clientTimestamp.String)
		ev.ClientTimestamp = &t
	}
	if metadata.Valid && metadata.String != "" {
		var m any
		if json.Unmarshal([]byte(metadata.String), &m) == nil {
			ev.Metadata = m
		}
	}
	ev.PayloadTruncated = truncated != 0
	return ev, nil
}

// RecalculateCosts walks every event row and overwrites cost_usd using
// costFn(model, tokensIn, tokensOut, cacheRead, cacheWrite), the only
// mutation ever applied to an already-persisted event (spec §3, §4.4).
func (s *Store) RecalculateCosts(ctx context.Context, costFn func(model string, in, out, cacheRead, cacheWrite int64) (*float64, bool)) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, model, tokens_in, tokens_out, cache_read_tokens, cache_write_tokens FROM events WHERE model IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("scan for recalculation: %w", err)
	}
	type row struct {
		id                             int64
		model                          string
		in, out, cacheRead, cacheWrite int64
	}
	var toUpdate []row
	for rows.Next() {
		var r row
		var model sql.NullString
		if err := rows.Scan(&r.id, &model, &r.in, &r.out, &r.cacheRead, &r.cacheWrite); err != nil {
			rows.Close()
			return 0, err
		}
		if model.Valid {
			r.model = model.String
			toUpdate = append(toUpdate, r)
		}
	}
	rows.Close()

	updated := 0
	err = s.withWriteLock(ctx, func(tx *sql.Tx) error {
		for _, r := range toUpdate {
			cost, ok := costFn(r.model, r.in, r.out, r.cacheRead, r.cacheWrite)
			if !ok {
				continue
			}
			if _, err := tx.ExecContext(ctx, `UPDATE events SET cost_usd = ? WHERE id = ?`, *cost, r.id); err != nil {
				return fmt.Errorf("update cost for event %d: %w", r.id, err)
			}
			updated++
		}
		return nil
	})
	return updated, err
}
