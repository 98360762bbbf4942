// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned when the database has been closed.
	ErrClosed = errors.New("database closed")
)

// =============================================================================
// SCHEMA
// =============================================================================

// migrations are applied in order; user_version records how many have run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS app_state (
		key      TEXT PRIMARY KEY,
		payload  BLOB NOT NULL,
		tag      BLOB NOT NULL,
		saved_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS connections (
		id         TEXT PRIMARY KEY,
		label      TEXT NOT NULL,
		state      TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS proof_requests (
		id                           TEXT PRIMARY KEY,
		connection_id                TEXT NOT NULL,
		state                        TEXT NOT NULL,
		delete_connection_after_seen INTEGER NOT NULL DEFAULT 0,
		created_at                   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_proof_requests_connection ON proof_requests(connection_id)`,
}

// =============================================================================
// OPEN
// =============================================================================

// Open opens (creating if needed) the wallet database at path and applies any
// pending migrations. Use ":memory:" for a throwaway database in tests.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	// A single connection also keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate runs every migration newer than the stored user_version.
func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}

	return nil
}

// SchemaVersion returns the number of migrations applied.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	return version, err
}

// DefaultPath returns ~/.walletgate/wallet.db.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".walletgate", "wallet.db")
	}
	return filepath.Join(home, ".walletgate", "wallet.db")
}
