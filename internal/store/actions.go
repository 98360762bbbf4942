// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"time"

	"github.com/jeranaias/walletgate/internal/lockout"
)

// =============================================================================
// ACTIONS
// =============================================================================

// Action is a state patch. Only types in this package implement it.
type Action interface {
	// Name identifies the action in logs.
	Name() string

	// persists reports whether the action touches durable state.
	persists() bool
}

// AttemptUpdated replaces the login attempt state wholesale.
type AttemptUpdated struct {
	State lockout.LoginAttemptState
}

// SuccessfulAttempt resets the failure counter and hides the lockout notice.
type SuccessfulAttempt struct{}

// FailedAttempt counts a wrong PIN against Policy. A served penalty is
// acknowledged first, since a new entry has begun.
type FailedAttempt struct {
	Policy lockout.Policy
	Now    time.Time
}

// PenaltyServed marks the penalty ending at Until as served and shows the
// notice. It is ignored when a different penalty is current. A zero Until
// marks whatever penalty is current.
type PenaltyServed struct {
	Until time.Time
}

// PenaltyAcknowledged clears a served penalty when a new entry begins.
type PenaltyAcknowledged struct{}

// LockoutNotificationUpdated shows or hides the lockout notice.
type LockoutNotificationUpdated struct {
	Display bool
}

// DidAuthenticate sets the session authentication flag.
type DidAuthenticate struct {
	Value bool
}

// PINCreated records that a PIN exists.
type PINCreated struct{}

// BiometryConsidered records that the user answered the biometry prompt.
type BiometryConsidered struct{}

// OnboardingCompleted records that onboarding finished.
type OnboardingCompleted struct{}

// OnboardingReset clears onboarding progress.
type OnboardingReset struct{}

// BiometryPreferenceUpdated turns biometric unlock on or off.
type BiometryPreferenceUpdated struct {
	Enabled bool
}

// SnapshotLoaded applies a snapshot read from storage.
type SnapshotLoaded struct {
	Snapshot Snapshot
}

// LoadFailed marks the state as loaded with defaults after a failed read.
type LoadFailed struct{}

func (AttemptUpdated) Name() string             { return "attempt_updated" }
func (FailedAttempt) Name() string              { return "failed_attempt" }
func (SuccessfulAttempt) Name() string          { return "successful_attempt" }
func (PenaltyServed) Name() string              { return "penalty_served" }
func (PenaltyAcknowledged) Name() string        { return "penalty_acknowledged" }
func (LockoutNotificationUpdated) Name() string { return "lockout_notification_updated" }
func (DidAuthenticate) Name() string            { return "did_authenticate" }
func (PINCreated) Name() string                 { return "pin_created" }
func (BiometryConsidered) Name() string         { return "biometry_considered" }
func (OnboardingCompleted) Name() string        { return "onboarding_completed" }
func (OnboardingReset) Name() string            { return "onboarding_reset" }
func (BiometryPreferenceUpdated) Name() string  { return "biometry_preference_updated" }
func (SnapshotLoaded) Name() string             { return "snapshot_loaded" }
func (LoadFailed) Name() string                 { return "load_failed" }

func (AttemptUpdated) persists() bool             { return true }
func (FailedAttempt) persists() bool              { return true }
func (SuccessfulAttempt) persists() bool          { return true }
func (PenaltyServed) persists() bool              { return true }
func (PenaltyAcknowledged) persists() bool        { return true }
func (LockoutNotificationUpdated) persists() bool { return true }
func (DidAuthenticate) persists() bool            { return false }
func (PINCreated) persists() bool                 { return true }
func (BiometryConsidered) persists() bool         { return true }
func (OnboardingCompleted) persists() bool        { return true }
func (OnboardingReset) persists() bool            { return true }
func (BiometryPreferenceUpdated) persists() bool  { return true }
func (SnapshotLoaded) persists() bool             { return false }
func (LoadFailed) persists() bool                 { return false }

// =============================================================================
// REDUCER
// =============================================================================

// Reduce applies a single action to state. It is pure.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case AttemptUpdated:
		state.LoginAttempt = a.State

	case FailedAttempt:
		state.LoginAttempt, _ = failAttempt(state.LoginAttempt, a)
		state.Lockout.DisplayNotification = false

	case SuccessfulAttempt:
		state.LoginAttempt = lockout.RecordSuccessfulAttempt(state.LoginAttempt)
		state.Lockout.DisplayNotification = false

	case PenaltyServed:
		current := state.LoginAttempt.LockoutDate
		if !a.Until.IsZero() && (current == nil || !current.Equal(a.Until)) {
			break
		}
		state.LoginAttempt = lockout.MarkPenaltyServed(state.LoginAttempt)
		state.Lockout.DisplayNotification = true

	case PenaltyAcknowledged:
		state.LoginAttempt = lockout.AcknowledgePenaltyServed(state.LoginAttempt)

	case LockoutNotificationUpdated:
		state.Lockout.DisplayNotification = a.Display

	case DidAuthenticate:
		state.Authentication.DidAuthenticate = a.Value

	case PINCreated:
		state.Onboarding.DidCreatePIN = true

	case BiometryConsidered:
		state.Onboarding.DidConsiderBiometry = true

	case OnboardingCompleted:
		state.Onboarding.DidCompleteOnboarding = true

	case OnboardingReset:
		state.Onboarding = Onboarding{}

	case BiometryPreferenceUpdated:
		state.Preferences.UseBiometry = a.Enabled

	case SnapshotLoaded:
		state.LoginAttempt = a.Snapshot.LoginAttempt
		state.Lockout = a.Snapshot.Lockout
		state.Onboarding = a.Snapshot.Onboarding
		state.Preferences = a.Snapshot.Preferences
		state.Loaded = true

	case LoadFailed:
		state.Loaded = true
	}

	return state
}

// failAttempt is the FailedAttempt transition, also returning the policy
// decision so the store can hand it back to the caller.
func failAttempt(st lockout.LoginAttemptState, a FailedAttempt) (lockout.LoginAttemptState, lockout.Action) {
	if st.HasServedPenalty() {
		st = lockout.AcknowledgePenaltyServed(st)
	}
	return lockout.RecordFailedAttempt(st, a.Policy, a.Now)
}
