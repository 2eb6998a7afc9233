// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

// Package store owns the embedded SQLite database: schema, migrations,
// and every SQL statement in the system. Reads proceed concurrently;
// writes are serialized through a single internal writer lock so batch
// operations can hold the lock for an entire transaction without
// clobbering concurrent readers.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/tomtom215/agentmonitor/internal/logging"
)

// Store wraps the SQLite connection pool and a statement cache.
type Store struct {
	db     *sql.DB
	path   string
	stmtMu sync.Mutex
	stmts  map[string]*sql.Stmt

	// writeMu is the single-writer lock. Every mutating operation takes it
	// for the duration of its transaction; reads never take it.
	writeMu sync.Mutex
}

// New opens (creating if necessary) the SQLite file at path in WAL mode,
// runs migrations, and verifies connectivity with a trivial query.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// A SQLite connection pool with more than one writer connection
	// defeats WAL's single-writer design; cap it and let the pool serve
	// concurrent readers through the same connection set.
	db.SetMaxOpenConns(8)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	s := &Store{
		db:    db,
		path:  path,
		stmts: make(map[string]*sql.Stmt),
	}

	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	logging.Info().Str("path", path).Msg("store opened")
	return s, nil
}

// Conn returns the underlying *sql.DB for callers that need raw access
// (e.g. aggregation queries not worth a dedicated method).
func (s *Store) Conn() *sql.DB {
	return s.db
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SizeBytes reports the combined size of the main database file plus its
// WAL and shared-memory sidecar files, feeding /api/health's db_size_bytes.
func (s *Store) SizeBytes() (int64, error) {
	var total int64
	for _, suffix := range []string{"", "-wal", "-shm"} {
		info, err := os.Stat(s.path + suffix)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

// Close checkpoints the WAL into the main database file and closes every
// prepared statement before closing the connection pool. This guarantees
// the store leaves no write lock held on the file when the process exits.
func (s *Store) Close() error {
	s.stmtMu.Lock()
	for _, stmt := range s.stmts {
		_ = stmt.Close()
	}
	s.stmts = nil
	s.stmtMu.Unlock()

	if _, err := s.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		logging.Warn().Err(err).Msg("wal checkpoint failed during close")
	}
	return s.db.Close()
}

// preparedStmt returns a cached *sql.Stmt for query, preparing it against
// the connection pool on first use. Callers on the hot insert path bind it
// to their transaction with tx.StmtContext rather than re-parsing the same
// SQL text on every insert.
func (s *Store) preparedStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()

	if stmt, ok := s.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", err)
	}
	s.stmts[query] = stmt
	return stmt, nil
}

// withWriteLock runs fn while holding the single-writer lock, wrapping it
// in a transaction. Callers never acquire a raw *sql.Tx directly — every
// mutating code path goes through this so the lock and transaction
// boundary can never be mismatched.
func (s *Store) withWriteLock(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
