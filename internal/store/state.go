// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds walletgate's application state.
//
// State changes only through Dispatch: each Action is applied by the pure
// Reduce function, the persisted part of the result is saved, and subscribers
// are notified with the new snapshot. This replaces a framework context with
// an explicit reducer plus observer list.
package store

import (
	"github.com/jeranaias/walletgate/internal/lockout"
)

// =============================================================================
// STATE
// =============================================================================

// State is the full application state.
type State struct {
	// LoginAttempt is the persisted attempt counter and lockout window.
	LoginAttempt lockout.LoginAttemptState

	// Lockout holds lockout UI flags.
	Lockout LockoutNotice

	// Authentication is session scoped and never persisted.
	Authentication Authentication

	Onboarding  Onboarding
	Preferences Preferences

	// Loaded is set once the persisted snapshot has been applied.
	Loaded bool
}

// Authentication holds per-session authentication flags.
type Authentication struct {
	DidAuthenticate bool
}

// LockoutNotice controls the "you can try again" notice shown after a
// served penalty.
type LockoutNotice struct {
	DisplayNotification bool `cbor:"1,keyasint"`
}

// Onboarding tracks first-run progress.
type Onboarding struct {
	DidCreatePIN          bool `cbor:"1,keyasint"`
	DidConsiderBiometry   bool `cbor:"2,keyasint"`
	DidCompleteOnboarding bool `cbor:"3,keyasint"`
}

// Preferences are user choices that survive restarts.
type Preferences struct {
	UseBiometry bool `cbor:"1,keyasint"`
}

// =============================================================================
// PERSISTED SNAPSHOT
// =============================================================================

// SnapshotVersion is bumped whenever Snapshot changes incompatibly.
const SnapshotVersion = 1

// Snapshot is the durable subset of State.
type Snapshot struct {
	Version      int                       `cbor:"0,keyasint"`
	LoginAttempt lockout.LoginAttemptState `cbor:"1,keyasint"`
	Lockout      LockoutNotice             `cbor:"2,keyasint"`
	Onboarding   Onboarding                `cbor:"3,keyasint"`
	Preferences  Preferences               `cbor:"4,keyasint"`
}

// Snapshot extracts the durable subset of s.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		Version:      SnapshotVersion,
		LoginAttempt: s.LoginAttempt,
		Lockout:      s.Lockout,
		Onboarding:   s.Onboarding,
		Preferences:  s.Preferences,
	}
}
