// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lockout

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioPolicy is the policy used by the worked scenarios:
// base rule at 3 attempts, recurring every 2 attempts from 5.
func scenarioPolicy() Policy {
	return Policy{
		BaseRules: map[int]time.Duration{3: 30 * time.Second},
		ThresholdRules: ThresholdRules{
			Threshold:                5,
			Increment:                2,
			ThresholdPenaltyDuration: 60 * time.Second,
		},
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestPolicy_DefaultIsValid(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())
}

func TestPolicy_ValidateRejectsZeroIncrement(t *testing.T) {
	p := scenarioPolicy()
	p.ThresholdRules.Increment = 0

	err := p.Validate()
	require.Error(t, err)

	var perr *PolicyError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Error(), "increment must be positive")
}

func TestPolicy_ValidateCollectsAllProblems(t *testing.T) {
	p := Policy{
		BaseRules: map[int]time.Duration{0: time.Second, 4: 0},
		ThresholdRules: ThresholdRules{
			Threshold:                -1,
			Increment:                -3,
			ThresholdPenaltyDuration: 0,
		},
	}

	var perr *PolicyError
	require.ErrorAs(t, p.Validate(), &perr)
	assert.Len(t, perr.Problems, 5)
}

// =============================================================================
// COMPUTE PENALTY
// =============================================================================

func TestComputePenalty_BelowThresholdWithoutBaseRule(t *testing.T) {
	p := scenarioPolicy()
	for attempts := 0; attempts < p.ThresholdRules.Threshold; attempts++ {
		if _, ok := p.BaseRules[attempts]; ok {
			continue
		}
		_, ok := p.ComputePenalty(attempts)
		assert.False(t, ok, "attempt %d should not be penalised", attempts)
	}
}

func TestComputePenalty_ThresholdMultiples(t *testing.T) {
	p := scenarioPolicy()
	for attempts := p.ThresholdRules.Threshold; attempts < 40; attempts++ {
		penalty, ok := p.ComputePenalty(attempts)
		if attempts%p.ThresholdRules.Increment == 0 {
			require.True(t, ok, "attempt %d", attempts)
			assert.Equal(t, 60*time.Second, penalty)
		} else {
			assert.False(t, ok, "attempt %d", attempts)
		}
	}
}

func TestComputePenalty_BaseRuleWins(t *testing.T) {
	p := scenarioPolicy()
	p.BaseRules[6] = 5 * time.Minute

	penalty, ok := p.ComputePenalty(6)
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, penalty)

	penalty, ok = p.ComputePenalty(3)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, penalty)
}

func TestComputePenalty_DefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		attempts int
		want     time.Duration
		ok       bool
	}{
		{4, 0, false},
		{5, time.Minute, true},
		{10, 10 * time.Minute, true},
		{15, time.Hour, true},
		{19, 0, false},
		{20, 24 * time.Hour, true},
		{21, 0, false},
		{25, 24 * time.Hour, true},
	}

	for _, tt := range tests {
		got, ok := p.ComputePenalty(tt.attempts)
		assert.Equal(t, tt.ok, ok, "attempts=%d", tt.attempts)
		assert.Equal(t, tt.want, got, "attempts=%d", tt.attempts)
	}
}

// =============================================================================
// ATTEMPTS LEFT
// =============================================================================

func TestAttemptsLeft_Cycle(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 4, p.AttemptsLeft(1))
	assert.Equal(t, 1, p.AttemptsLeft(4))
	assert.Equal(t, 0, p.AttemptsLeft(5))
	assert.Equal(t, 4, p.AttemptsLeft(6))
}

func TestAttemptsLeft_IncrementOne(t *testing.T) {
	p := scenarioPolicy()
	p.ThresholdRules.Increment = 1
	require.NoError(t, p.Validate())

	for attempt := 0; attempt < 50; attempt++ {
		assert.Equal(t, 0, p.AttemptsLeft(attempt))
	}
}

func TestPolicy_CloneIsIndependent(t *testing.T) {
	p := scenarioPolicy()
	c := p.Clone()
	c.BaseRules[3] = time.Hour

	assert.Equal(t, 30*time.Second, p.BaseRules[3])
}
