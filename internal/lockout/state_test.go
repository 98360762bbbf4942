// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lockout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func boolPtr(b bool) *bool { return &b }

// TestRecordFailedAttempt_BaseRuleLockout covers a failure landing on an
// exact base rule: 2 failures so far, the third one locks for 30 seconds.
func TestRecordFailedAttempt_BaseRuleLockout(t *testing.T) {
	state := LoginAttemptState{LoginAttempts: 2}

	next, action := RecordFailedAttempt(state, scenarioPolicy(), fixedNow)

	assert.Equal(t, 3, next.LoginAttempts)
	require.NotNil(t, next.LockoutDate)
	assert.Equal(t, fixedNow.Add(30*time.Second), *next.LockoutDate)
	require.NotNil(t, next.ServedPenalty)
	assert.False(t, *next.ServedPenalty)

	assert.Equal(t, ActionLockout, action.Kind)
	assert.Equal(t, 30*time.Second, action.Penalty)
	assert.Empty(t, action.Message())
	assert.True(t, next.IsLockedOut(fixedNow))
	assert.False(t, next.IsLockedOut(fixedNow.Add(31*time.Second)))
}

// TestRecordFailedAttempt_LastTryThenSilent covers two failures from zero
// with increment 2: a last-try warning, then a silent increment.
func TestRecordFailedAttempt_LastTryThenSilent(t *testing.T) {
	p := scenarioPolicy()
	state := LoginAttemptState{}

	state, action := RecordFailedAttempt(state, p, fixedNow)
	assert.Equal(t, 1, state.LoginAttempts)
	assert.Equal(t, ActionLastTry, action.Kind)
	assert.Contains(t, action.Message(), "last try")
	assert.Nil(t, state.LockoutDate)
	assert.Nil(t, state.ServedPenalty)

	state, action = RecordFailedAttempt(state, p, fixedNow)
	assert.Equal(t, 2, state.LoginAttempts)
	assert.Equal(t, ActionNone, action.Kind)
	assert.Empty(t, action.Message())
	assert.Nil(t, state.LockoutDate)
}

func TestRecordFailedAttempt_TriesRemaining(t *testing.T) {
	state, action := RecordFailedAttempt(LoginAttemptState{}, DefaultPolicy(), fixedNow)

	assert.Equal(t, 1, state.LoginAttempts)
	assert.Equal(t, ActionAttemptsRemaining, action.Kind)
	assert.Equal(t, 4, action.AttemptsLeft)
	assert.Contains(t, action.Message(), "4 tries remaining")
}

func TestRecordFailedAttempt_KeepsLockoutFieldsOutsideLockout(t *testing.T) {
	until := fixedNow.Add(-time.Minute)
	state := LoginAttemptState{LoginAttempts: 5, LockoutDate: &until, ServedPenalty: boolPtr(true)}

	next, action := RecordFailedAttempt(state, DefaultPolicy(), fixedNow)

	assert.Equal(t, ActionAttemptsRemaining, action.Kind)
	assert.Equal(t, 6, next.LoginAttempts)
	assert.Equal(t, &until, next.LockoutDate)
	assert.True(t, next.HasServedPenalty())
}

func TestRecordFailedAttempt_IncrementOneNeverWarns(t *testing.T) {
	p := scenarioPolicy()
	p.BaseRules = nil
	p.ThresholdRules.Increment = 1
	p.ThresholdRules.Threshold = 100

	state := LoginAttemptState{}
	for i := 0; i < 10; i++ {
		var action Action
		state, action = RecordFailedAttempt(state, p, fixedNow)
		assert.Equal(t, ActionNone, action.Kind)
	}
	assert.Equal(t, 10, state.LoginAttempts)
}

func TestRecordSuccessfulAttempt_ResetsCounter(t *testing.T) {
	until := fixedNow.Add(time.Minute)
	for _, attempts := range []int{0, 1, 7, 42} {
		state := LoginAttemptState{LoginAttempts: attempts, LockoutDate: &until, ServedPenalty: boolPtr(false)}

		next := RecordSuccessfulAttempt(state)

		assert.Equal(t, 0, next.LoginAttempts)
		assert.Equal(t, state.LockoutDate, next.LockoutDate)
		assert.Equal(t, state.ServedPenalty, next.ServedPenalty)
	}
}

func TestAcknowledgePenaltyServed_Idempotent(t *testing.T) {
	until := fixedNow
	state := LoginAttemptState{LoginAttempts: 3, LockoutDate: &until, ServedPenalty: boolPtr(true)}

	once := AcknowledgePenaltyServed(state)
	twice := AcknowledgePenaltyServed(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, 3, once.LoginAttempts)
	assert.Nil(t, once.LockoutDate)
	assert.Nil(t, once.ServedPenalty)
}

// TestServedPenaltyThenSuccess covers unlocking after a served penalty:
// acknowledge first, then record success.
func TestServedPenaltyThenSuccess(t *testing.T) {
	state, _ := RecordFailedAttempt(LoginAttemptState{LoginAttempts: 2}, scenarioPolicy(), fixedNow)
	state = MarkPenaltyServed(state)
	require.True(t, state.HasServedPenalty())
	require.NotNil(t, state.LockoutDate)

	state = AcknowledgePenaltyServed(state)
	state = RecordSuccessfulAttempt(state)

	assert.Equal(t, LoginAttemptState{}, state)
}

func TestLoginAttemptState_Remaining(t *testing.T) {
	until := fixedNow.Add(90 * time.Second)
	state := LoginAttemptState{LockoutDate: &until, ServedPenalty: boolPtr(false)}

	assert.Equal(t, 90*time.Second, state.Remaining(fixedNow))
	assert.Zero(t, state.Remaining(fixedNow.Add(2*time.Minute)))

	state = MarkPenaltyServed(state)
	assert.Zero(t, state.Remaining(fixedNow))
}
