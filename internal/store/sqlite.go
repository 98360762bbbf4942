// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/walletgate/internal/storage"
)

// =============================================================================
// PERSISTER
// =============================================================================

// Persister reads and writes the durable snapshot.
type Persister interface {
	// Load returns the saved snapshot, or storage.ErrNotFound if none exists.
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// appStateKey is the app_state row holding the snapshot.
const appStateKey = "wallet"

// SQLitePersister stores the snapshot in the app_state table.
type SQLitePersister struct {
	db    *sql.DB
	codec *Codec
}

// NewSQLitePersister wraps an open database from storage.Open.
func NewSQLitePersister(db *sql.DB, codec *Codec) *SQLitePersister {
	return &SQLitePersister{db: db, codec: codec}
}

// Load reads and verifies the snapshot.
func (p *SQLitePersister) Load(ctx context.Context) (Snapshot, error) {
	var payload, tag []byte
	err := p.db.QueryRowContext(ctx,
		"SELECT payload, tag FROM app_state WHERE key = ?", appStateKey).Scan(&payload, &tag)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, storage.ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read state: %w", err)
	}
	return p.codec.Decode(payload, tag)
}

// Save encodes and upserts the snapshot.
func (p *SQLitePersister) Save(ctx context.Context, snap Snapshot) error {
	payload, tag, err := p.codec.Encode(snap)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO app_state (key, payload, tag, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, tag = excluded.tag, saved_at = excluded.saved_at`,
		appStateKey, payload, tag, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// MemoryPersister keeps the snapshot in memory. Used by tests and --ephemeral.
type MemoryPersister struct {
	snap    *Snapshot
	LoadErr error
	SaveErr error
	Saves   int
}

// Load returns the stored snapshot.
func (m *MemoryPersister) Load(ctx context.Context) (Snapshot, error) {
	if m.LoadErr != nil {
		return Snapshot{}, m.LoadErr
	}
	if m.snap == nil {
		return Snapshot{}, storage.ErrNotFound
	}
	return *m.snap, nil
}

// Save stores snap.
func (m *MemoryPersister) Save(ctx context.Context, snap Snapshot) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saves++
	m.snap = &snap
	return nil
}
