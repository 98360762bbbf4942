// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lockout implements the PIN attempt lockout policy.
//
// The policy decides, from a count of consecutive failed PIN attempts, whether
// a timed penalty applies and how long it lasts. Early attempt counts are
// matched exactly against base rules; past a threshold a penalty recurs every
// fixed number of attempts.
//
// # Usage
//
//	policy := lockout.DefaultPolicy()
//	if err := policy.Validate(); err != nil {
//		return err
//	}
//	next, action := lockout.RecordFailedAttempt(state, policy, time.Now())
package lockout

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// POLICY DEFAULTS
// =============================================================================

const (
	// DefaultThreshold is the attempt count after which recurring penalties start.
	DefaultThreshold = 20

	// DefaultIncrement is how many attempts pass between recurring penalties.
	DefaultIncrement = 5

	// DefaultThresholdPenalty is the recurring penalty past the threshold.
	DefaultThresholdPenalty = 24 * time.Hour
)

// DefaultBaseRules returns the early, exact-count penalties.
func DefaultBaseRules() map[int]time.Duration {
	return map[int]time.Duration{
		5:  time.Minute,
		10: 10 * time.Minute,
		15: time.Hour,
	}
}

// =============================================================================
// POLICY
// =============================================================================

// ThresholdRules describe the recurring penalty applied past Threshold.
type ThresholdRules struct {
	// Threshold is the first attempt count eligible for a recurring penalty.
	Threshold int `json:"threshold"`

	// Increment is the number of attempts between recurring penalties.
	// Must be positive.
	Increment int `json:"increment"`

	// ThresholdPenaltyDuration is how long each recurring penalty lasts.
	ThresholdPenaltyDuration time.Duration `json:"threshold_penalty_duration"`
}

// Policy is the complete lockout configuration.
type Policy struct {
	// BaseRules maps an exact attempt count to a penalty. Takes precedence
	// over ThresholdRules.
	BaseRules map[int]time.Duration `json:"base_rules"`

	ThresholdRules ThresholdRules `json:"threshold_rules"`
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		BaseRules: DefaultBaseRules(),
		ThresholdRules: ThresholdRules{
			Threshold:                DefaultThreshold,
			Increment:                DefaultIncrement,
			ThresholdPenaltyDuration: DefaultThresholdPenalty,
		},
	}
}

// PolicyError reports a malformed policy.
type PolicyError struct {
	Problems []string
}

func (e *PolicyError) Error() string {
	return "invalid lockout policy: " + strings.Join(e.Problems, "; ")
}

// Validate rejects policies that cannot be evaluated. It must be called when
// the policy is loaded; ComputePenalty and AttemptsLeft assume a valid policy.
func (p Policy) Validate() error {
	var problems []string

	if p.ThresholdRules.Increment <= 0 {
		problems = append(problems, fmt.Sprintf("increment must be positive, got %d", p.ThresholdRules.Increment))
	}
	if p.ThresholdRules.Threshold < 0 {
		problems = append(problems, fmt.Sprintf("threshold cannot be negative, got %d", p.ThresholdRules.Threshold))
	}
	if p.ThresholdRules.ThresholdPenaltyDuration <= 0 {
		problems = append(problems, "threshold penalty duration must be positive")
	}

	for _, attempts := range p.sortedRuleKeys() {
		if attempts <= 0 {
			problems = append(problems, fmt.Sprintf("base rule attempt count must be positive, got %d", attempts))
		}
		if p.BaseRules[attempts] <= 0 {
			problems = append(problems, fmt.Sprintf("base rule %d: penalty must be positive", attempts))
		}
	}

	if len(problems) > 0 {
		return &PolicyError{Problems: problems}
	}
	return nil
}

// ComputePenalty returns the lockout penalty for the given attempt count, and
// false when no penalty applies yet. Callers conventionally pass the next
// attempt count (failures so far + 1).
func (p Policy) ComputePenalty(attempts int) (time.Duration, bool) {
	if penalty, ok := p.BaseRules[attempts]; ok {
		return penalty, true
	}

	rules := p.ThresholdRules
	if attempts >= rules.Threshold && attempts%rules.Increment == 0 {
		return rules.ThresholdPenaltyDuration, true
	}

	return 0, false
}

// AttemptsLeft returns how many further failures are tolerated before the next
// recurring penalty boundary. The count is cyclic over Increment and ignores
// base rules below the threshold.
func (p Policy) AttemptsLeft(newAttempt int) int {
	inc := p.ThresholdRules.Increment
	return (inc - newAttempt%inc) % inc
}

// sortedRuleKeys returns base rule keys in ascending order so validation
// messages are stable.
func (p Policy) sortedRuleKeys() []int {
	keys := make([]int, 0, len(p.BaseRules))
	for k := range p.BaseRules {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Clone returns a deep copy of the policy.
func (p Policy) Clone() Policy {
	rules := make(map[int]time.Duration, len(p.BaseRules))
	for k, v := range p.BaseRules {
		rules[k] = v
	}
	return Policy{BaseRules: rules, ThresholdRules: p.ThresholdRules}
}
