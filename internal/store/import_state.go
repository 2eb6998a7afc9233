// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/agentmonitor/internal/domain"
)

// GetImportState returns the bookkeeping row for (source, path), or nil if
// that file has never been imported. The historical-log importer is an
// external collaborator (out of scope here); this is the store-owned half
// of the idempotency contract it relies on.
func (s *Store) GetImportState(ctx context.Context, source, path string) (*domain.ImportState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT source, path, hash, imported_at, count
		FROM import_state WHERE source = ? AND path = ?
	`, source, path)

	var st domain.ImportState
	var importedAt string
	err := row.Scan(&st.Source, &st.Path, &st.Hash, &importedAt, &st.Count)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get import state: %w", err)
	}
	st.ImportedAt, _ = time.Parse(time.RFC3339Nano, importedAt)
	return &st, nil
}

// UpsertImportState records that path (scoped to source) was imported with
// the given content hash and record count, overwriting any prior row for
// that key. An importer calls this once a pass over a file completes,
// whether or not the content hash changed since the last time it ran.
func (s *Store) UpsertImportState(ctx context.Context, st domain.ImportState) error {
	return s.withWriteLock(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO import_state (source, path, hash, imported_at, count)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(source, path) DO UPDATE SET
				hash = excluded.hash, imported_at = excluded.imported_at, count = excluded.count
		`, st.Source, st.Path, st.Hash, fmtTime(st.ImportedAt), st.Count)
		if err != nil {
			return fmt.Errorf("upsert import state: %w", err)
		}
		return nil
	})
}

// NeedsImport reports whether path (scoped to source) has never been
// imported, or was last imported with a different content hash than
// currentHash — the idempotency check a historical-log importer runs
// before re-parsing a file it has already seen.
func (s *Store) NeedsImport(ctx context.Context, source, path, currentHash string) (bool, error) {
	st, err := s.GetImportState(ctx, source, path)
	if err != nil {
		return false, err
	}
	if st == nil {
		return true, nil
	}
	return st.Hash != currentHash, nil
}
