// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import "fmt"

// ErrorKind classifies a reported error.
type ErrorKind string

const (
	// KindVerification covers PIN and secret problems shown to the user.
	KindVerification ErrorKind = "verification"
	// KindBiometry covers biometric capability problems.
	KindBiometry ErrorKind = "biometry"
	// KindState covers application state load and save problems.
	KindState ErrorKind = "state"
)

// Numbered error codes surfaced to the user.
const (
	CodeSecretAbsent       = 1040
	CodeVerificationFailed = 1041
	CodeBiometryFailed     = 1042
	CodeStateLoadFailed    = 1043
	CodeStateSaveFailed    = 1044
)

// ErrorEvent is a user-reportable error.
type ErrorEvent struct {
	Kind    ErrorKind
	Title   string
	Message string
	Code    int

	// Err is the underlying cause, for logging. Never shown to the user.
	Err error
}

// String formats the event for a banner.
func (e ErrorEvent) String() string {
	if e.Code == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Message)
	}
	return fmt.Sprintf("%s: %s (Error %d)", e.Title, e.Message, e.Code)
}

// BiometryErrorEvent reports whether the last biometric check failed.
// Failed=false clears a previously shown banner.
type BiometryErrorEvent struct {
	Failed bool
}

// OnboardingCompleteEvent is published once when onboarding finishes.
type OnboardingCompleteEvent struct{}
