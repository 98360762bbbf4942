// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"time"

	"github.com/jeranaias/walletgate/internal/events"
	"github.com/jeranaias/walletgate/internal/gate"
	"github.com/jeranaias/walletgate/internal/pinentry"
	"github.com/jeranaias/walletgate/internal/store"
	"github.com/jeranaias/walletgate/internal/ui/components"
)

// =============================================================================
// MESSAGES FROM OUTSIDE THE EVENT LOOP
// =============================================================================

// SignalsMsg carries new gate signals.
type SignalsMsg struct {
	Signals gate.Signals
}

// StateMsg carries the store state after a dispatch.
type StateMsg struct {
	State store.State
}

// ErrorMsg carries a user-reportable error from the bus.
type ErrorMsg struct {
	Event events.ErrorEvent
}

// BiometryMsg carries a biometric failure notification.
type BiometryMsg struct {
	Event events.BiometryErrorEvent
}

// AutoLockWarningMsg is sent shortly before the wallet auto-locks.
type AutoLockWarningMsg struct {
	Remaining time.Duration
}

// AutoLockedMsg is sent when the wallet auto-locked.
type AutoLockedMsg struct{}

// =============================================================================
// COMMAND RESULTS
// =============================================================================

// mountedMsg reports that the gate finished its mount side effects.
type mountedMsg struct {
	err error
}

// verifyResultMsg is the outcome of a PIN submission.
type verifyResultMsg struct {
	result pinentry.Result
	err    error
}

// biometryResultMsg is the outcome of a biometric unlock.
type biometryResultMsg struct {
	result pinentry.Result
	err    error
}

// pinCreatedMsg reports the result of storing a new PIN.
type pinCreatedMsg struct {
	err error
}

// relationsMsg carries the connection list for the main screen.
type relationsMsg struct {
	rows    []components.ConnectionRow
	pending int
	err     error
}

// dispatchedMsg reports that a store dispatch issued from a command is done.
type dispatchedMsg struct{}
