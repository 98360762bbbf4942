// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package relationship stores the wallet's connections and proof requests.
//
// A connection is a relationship with another agent. A proof request is a
// presentation request received over a connection. Some connections exist
// only to carry a single proof request; those requests carry the
// DeleteConnectionAfterSeen flag so the connection can be removed once the
// request was declined or abandoned.
package relationship

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/walletgate/internal/storage"
)

// =============================================================================
// TYPES
// =============================================================================

// ConnectionState is the lifecycle state of a connection.
type ConnectionState string

const (
	ConnectionInvited   ConnectionState = "invited"
	ConnectionCompleted ConnectionState = "completed"
)

// ProofState is the lifecycle state of a proof request.
type ProofState string

const (
	ProofRequestReceived  ProofState = "request-received"
	ProofPresentationSent ProofState = "presentation-sent"
	ProofDone             ProofState = "done"
	ProofDeclined         ProofState = "declined"
	ProofAbandoned        ProofState = "abandoned"
)

// Valid reports whether s is a known proof state.
func (s ProofState) Valid() bool {
	switch s {
	case ProofRequestReceived, ProofPresentationSent, ProofDone, ProofDeclined, ProofAbandoned:
		return true
	}
	return false
}

// Connection is a relationship with another agent.
type Connection struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	State     ConnectionState `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// ProofRequest is a presentation request received over a connection.
type ProofRequest struct {
	ID                        string     `json:"id"`
	ConnectionID              string     `json:"connection_id"`
	State                     ProofState `json:"state"`
	DeleteConnectionAfterSeen bool       `json:"delete_connection_after_seen"`
	CreatedAt                 time.Time  `json:"created_at"`
}

// =============================================================================
// STORE
// =============================================================================

// Store is the SQLite-backed relationship store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps a database opened with storage.Open.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// AddConnection creates a connection and returns it.
func (s *Store) AddConnection(ctx context.Context, label string, state ConnectionState) (*Connection, error) {
	c := &Connection{
		ID:        uuid.New().String(),
		Label:     label,
		State:     state,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO connections (id, label, state, created_at) VALUES (?, ?, ?, ?)",
		c.ID, c.Label, string(c.State), c.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to add connection: %w", err)
	}
	return c, nil
}

// GetConnection returns a connection by ID or storage.ErrNotFound.
func (s *Store) GetConnection(ctx context.Context, id string) (*Connection, error) {
	var (
		c       Connection
		state   string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, label, state, created_at FROM connections WHERE id = ?", id).
		Scan(&c.ID, &c.Label, &state, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	c.State = ConnectionState(state)
	c.CreatedAt = time.UnixMilli(created).UTC()
	return &c, nil
}

// ListConnections returns all connections, oldest first.
func (s *Store) ListConnections(ctx context.Context) ([]Connection, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, label, state, created_at FROM connections ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var out []Connection
	for rows.Next() {
		var (
			c       Connection
			state   string
			created int64
		)
		if err := rows.Scan(&c.ID, &c.Label, &state, &created); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		c.State = ConnectionState(state)
		c.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteByID removes a connection. Deleting a missing connection returns
// storage.ErrNotFound.
func (s *Store) DeleteByID(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM connections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AddProofRequest records a proof request received over connectionID.
func (s *Store) AddProofRequest(ctx context.Context, connectionID string, state ProofState, deleteAfterSeen bool) (*ProofRequest, error) {
	if !state.Valid() {
		return nil, fmt.Errorf("unknown proof state %q", state)
	}
	p := &ProofRequest{
		ID:                        uuid.New().String(),
		ConnectionID:              connectionID,
		State:                     state,
		DeleteConnectionAfterSeen: deleteAfterSeen,
		CreatedAt:                 s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proof_requests (id, connection_id, state, delete_connection_after_seen, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.ConnectionID, string(p.State), p.DeleteConnectionAfterSeen, p.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to add proof request: %w", err)
	}
	return p, nil
}

// ListProofRequests returns proof requests in any of states, or all of them
// when states is empty.
func (s *Store) ListProofRequests(ctx context.Context, states ...ProofState) ([]ProofRequest, error) {
	query := "SELECT id, connection_id, state, delete_connection_after_seen, created_at FROM proof_requests"
	args := make([]any, 0, len(states))
	if len(states) > 0 {
		query += " WHERE state IN (?"
		args = append(args, string(states[0]))
		for _, st := range states[1:] {
			query += ", ?"
			args = append(args, string(st))
		}
		query += ")"
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list proof requests: %w", err)
	}
	defer rows.Close()

	var out []ProofRequest
	for rows.Next() {
		var (
			p       ProofRequest
			state   string
			created int64
		)
		if err := rows.Scan(&p.ID, &p.ConnectionID, &state, &p.DeleteConnectionAfterSeen, &created); err != nil {
			return nil, fmt.Errorf("failed to scan proof request: %w", err)
		}
		p.State = ProofState(state)
		p.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetProofState moves a proof request to state.
func (s *Store) SetProofState(ctx context.Context, id string, state ProofState) error {
	if !state.Valid() {
		return fmt.Errorf("unknown proof state %q", state)
	}
	return s.updateProof(ctx, "UPDATE proof_requests SET state = ? WHERE id = ?", string(state), id)
}

// ClearDeleteConnectionAfterSeen clears the cleanup flag on a proof request.
func (s *Store) ClearDeleteConnectionAfterSeen(ctx context.Context, id string) error {
	return s.updateProof(ctx,
		"UPDATE proof_requests SET delete_connection_after_seen = 0 WHERE id = ?", id)
}

func (s *Store) updateProof(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update proof request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update proof request: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
