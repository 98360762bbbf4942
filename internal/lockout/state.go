// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lockout

import (
	"fmt"
	"time"
)

// =============================================================================
// ATTEMPT STATE
// =============================================================================

// LoginAttemptState tracks consecutive failed PIN attempts and any penalty
// imposed because of them. It is persisted across sessions.
type LoginAttemptState struct {
	// LoginAttempts is the number of consecutive failures since the last success.
	LoginAttempts int `json:"login_attempts" cbor:"1,keyasint"`

	// LockoutDate is when the current penalty ends. Nil means no penalty.
	LockoutDate *time.Time `json:"lockout_date,omitempty" cbor:"2,keyasint,omitempty"`

	// ServedPenalty is set once the penalty window has elapsed and the user
	// has been told so. Nil means absent.
	ServedPenalty *bool `json:"served_penalty,omitempty" cbor:"3,keyasint,omitempty"`
}

// IsLockedOut reports whether a penalty is still running at now.
func (s LoginAttemptState) IsLockedOut(now time.Time) bool {
	if s.LockoutDate == nil {
		return false
	}
	if s.HasServedPenalty() {
		return false
	}
	return now.Before(*s.LockoutDate)
}

// HasServedPenalty reports whether ServedPenalty is present and true.
func (s LoginAttemptState) HasServedPenalty() bool {
	return s.ServedPenalty != nil && *s.ServedPenalty
}

// Remaining returns the time left on the current penalty, or 0.
func (s LoginAttemptState) Remaining(now time.Time) time.Duration {
	if !s.IsLockedOut(now) {
		return 0
	}
	return s.LockoutDate.Sub(now)
}

// =============================================================================
// ACTIONS
// =============================================================================

// ActionKind is the UI consequence of a failed attempt.
type ActionKind int

const (
	// ActionNone means the failure is recorded silently.
	ActionNone ActionKind = iota
	// ActionAttemptsRemaining warns that N more failures are tolerated.
	ActionAttemptsRemaining
	// ActionLastTry warns that the next failure triggers a lockout.
	ActionLastTry
	// ActionLockout means a penalty was just imposed.
	ActionLockout
)

// String returns a short name for the action kind.
func (k ActionKind) String() string {
	switch k {
	case ActionNone:
		return "none"
	case ActionAttemptsRemaining:
		return "attempts_remaining"
	case ActionLastTry:
		return "last_try"
	case ActionLockout:
		return "lockout"
	default:
		return "unknown"
	}
}

// Action describes what the PIN screen should surface after a failure.
type Action struct {
	Kind ActionKind

	// AttemptsLeft is set for ActionAttemptsRemaining.
	AttemptsLeft int

	// Penalty and Until are set for ActionLockout.
	Penalty time.Duration
	Until   time.Time
}

// Message returns the inline warning text, or "" when none is shown.
// A lockout carries no text of its own; the lockout screen is the signal.
func (a Action) Message() string {
	switch a.Kind {
	case ActionAttemptsRemaining:
		return fmt.Sprintf("Incorrect PIN. %d tries remaining before a temporary lockout.", a.AttemptsLeft)
	case ActionLastTry:
		return "Incorrect PIN. This is your last try before a temporary lockout."
	default:
		return ""
	}
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// RecordFailedAttempt returns the state after one more failed attempt and the
// action the UI should take. LoginAttempts always advances; the lockout fields
// change only when a penalty is imposed.
func RecordFailedAttempt(state LoginAttemptState, policy Policy, now time.Time) (LoginAttemptState, Action) {
	newAttempt := state.LoginAttempts + 1
	attemptsLeft := policy.AttemptsLeft(newAttempt)

	next := state
	next.LoginAttempts = newAttempt

	if penalty, ok := policy.ComputePenalty(newAttempt); ok {
		until := now.Add(penalty)
		served := false
		next.LockoutDate = &until
		next.ServedPenalty = &served
		return next, Action{Kind: ActionLockout, Penalty: penalty, Until: until}
	}

	switch {
	case attemptsLeft > 1:
		return next, Action{Kind: ActionAttemptsRemaining, AttemptsLeft: attemptsLeft}
	case attemptsLeft == 1:
		return next, Action{Kind: ActionLastTry, AttemptsLeft: 1}
	default:
		return next, Action{Kind: ActionNone}
	}
}

// RecordSuccessfulAttempt resets the failure counter. Lockout fields are left
// for the expiry logic to reconcile.
func RecordSuccessfulAttempt(state LoginAttemptState) LoginAttemptState {
	state.LoginAttempts = 0
	return state
}

// AcknowledgePenaltyServed clears a served penalty when the user starts a new
// PIN entry. LoginAttempts is unchanged.
func AcknowledgePenaltyServed(state LoginAttemptState) LoginAttemptState {
	state.LockoutDate = nil
	state.ServedPenalty = nil
	return state
}

// MarkPenaltyServed records that the penalty window has elapsed. LockoutDate
// is kept until the next entry acknowledges it.
func MarkPenaltyServed(state LoginAttemptState) LoginAttemptState {
	served := true
	state.ServedPenalty = &served
	return state
}
