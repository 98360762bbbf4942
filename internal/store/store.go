// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jeranaias/walletgate/internal/events"
	"github.com/jeranaias/walletgate/internal/lockout"
	"github.com/jeranaias/walletgate/internal/storage"
)

// saveTimeout bounds a single snapshot write.
const saveTimeout = 5 * time.Second

// =============================================================================
// STORE
// =============================================================================

// Store owns the application State. All changes go through Dispatch.
type Store struct {
	mu        sync.Mutex
	state     State
	persister Persister
	bus       *events.Bus
	logger    *slog.Logger

	changes events.Topic[State]
}

// Option configures a Store.
type Option func(*Store)

// WithPersister sets where durable state is saved.
func WithPersister(p Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

// WithBus sets the bus that receives save errors.
func WithBus(b *events.Bus) Option {
	return func(s *Store) {
		s.bus = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithInitialState seeds the store. Mostly for tests.
func WithInitialState(st State) Option {
	return func(s *Store) {
		s.state = st
	}
}

// New creates a store. Without a persister, state lives only in memory.
func New(opts ...Option) *Store {
	s := &Store{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies actions in order, saves the durable snapshot if any of
// them changed it, and then notifies subscribers once.
func (s *Store) Dispatch(actions ...Action) State {
	return s.dispatch(nil, actions...)
}

// RecordFailure dispatches a FailedAttempt and returns the resulting state
// with the lockout decision. The decision is taken against the state the
// action is applied to, under the store lock.
func (s *Store) RecordFailure(policy lockout.Policy, now time.Time) (State, lockout.Action) {
	var decision lockout.Action
	failed := FailedAttempt{Policy: policy, Now: now}
	next := s.dispatch(func(prev State, a Action) {
		if f, ok := a.(FailedAttempt); ok {
			_, decision = failAttempt(prev.LoginAttempt, f)
		}
	}, failed)
	return next, decision
}

// dispatch applies actions under the lock. before, when set, sees the state
// each action is applied to.
func (s *Store) dispatch(before func(State, Action), actions ...Action) State {
	if len(actions) == 0 {
		return s.State()
	}

	s.mu.Lock()
	persist := false
	for _, a := range actions {
		if before != nil {
			before(s.state, a)
		}
		s.state = Reduce(s.state, a)
		persist = persist || a.persists()
		s.logger.Debug("state action", "action", a.Name())
	}
	next := s.state
	var saveErr error
	if persist && s.persister != nil {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		saveErr = s.persister.Save(ctx, next.Snapshot())
		cancel()
	}
	s.mu.Unlock()

	if saveErr != nil {
		s.logger.Error("failed to save state", "error", saveErr)
		if s.bus != nil {
			s.bus.ReportError(events.ErrorEvent{
				Kind:    events.KindState,
				Title:   "Unable to save wallet state",
				Message: saveErr.Error(),
				Code:    events.CodeStateSaveFailed,
				Err:     saveErr,
			})
		}
	}

	s.changes.Publish(next)
	return next
}

// Subscribe registers fn for every state change. fn runs on the
// dispatching goroutine, outside the store lock.
func (s *Store) Subscribe(fn func(State)) *events.Subscription {
	return s.changes.Subscribe(fn)
}

// Load reads the durable snapshot and applies it. A missing snapshot loads
// defaults. Any other failure still marks the state loaded, with defaults,
// and is returned so the caller can report it.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		s.Dispatch(SnapshotLoaded{Snapshot: State{}.Snapshot()})
		return nil
	}

	snap, err := s.persister.Load(ctx)
	switch {
	case err == nil:
		s.Dispatch(SnapshotLoaded{Snapshot: snap})
		s.logger.Info("state loaded", "login_attempts", snap.LoginAttempt.LoginAttempts)
		return nil

	case errors.Is(err, storage.ErrNotFound):
		s.Dispatch(SnapshotLoaded{Snapshot: State{}.Snapshot()})
		s.logger.Info("no saved state, using defaults")
		return nil

	default:
		s.Dispatch(LoadFailed{})
		s.logger.Error("failed to load state", "error", err)
		return fmt.Errorf("failed to load state: %w", err)
	}
}
