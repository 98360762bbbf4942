// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// lockout_cmd.go - The lockout command.
//
// Subcommands:
//
//	status (default)    Show attempts, penalty and the active policy
//	reset --confirm     Clear failed attempts and any running penalty
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jeranaias/walletgate/internal/lockout"
	"github.com/jeranaias/walletgate/internal/store"
)

// LockoutReport is the JSON shape of lockout status.
type LockoutReport struct {
	LoginAttempts int           `json:"login_attempts"`
	LockedOut     bool          `json:"locked_out"`
	LockedUntil   *time.Time    `json:"locked_until,omitempty"`
	ServedPenalty bool          `json:"served_penalty"`
	NextPenalty   *PenaltyStep  `json:"next_penalty,omitempty"`
	Rules         []PenaltyStep `json:"rules"`
	Threshold     PenaltyStep   `json:"threshold"`
	Increment     int           `json:"increment"`
}

// PenaltyStep pairs an attempt count with its penalty.
type PenaltyStep struct {
	Attempts int    `json:"attempts"`
	Penalty  string `json:"penalty"`
}

// HandleLockout routes lockout subcommands.
func HandleLockout(ctx context.Context, env *Env, args Args, w io.Writer) error {
	if err := env.LoadState(ctx); err != nil {
		return NewCommandError("lockout", args.Subcommand, "saved state could not be read", err)
	}

	switch args.Subcommand {
	case "status", "":
		return handleLockoutStatus(env, args, w)
	case "reset":
		return handleLockoutReset(env, args, w)
	default:
		return usagef("unknown lockout subcommand %q", args.Subcommand)
	}
}

func buildLockoutReport(env *Env, now time.Time) LockoutReport {
	st := env.Store.State().LoginAttempt
	policy := env.Config.Policy()

	report := LockoutReport{
		LoginAttempts: st.LoginAttempts,
		LockedOut:     st.IsLockedOut(now),
		ServedPenalty: st.HasServedPenalty(),
		Threshold: PenaltyStep{
			Attempts: policy.ThresholdRules.Threshold,
			Penalty:  policy.ThresholdRules.ThresholdPenaltyDuration.String(),
		},
		Increment: policy.ThresholdRules.Increment,
	}
	if report.LockedOut {
		until := *st.LockoutDate
		report.LockedUntil = &until
	}
	for _, r := range env.Config.Lockout.Rules {
		report.Rules = append(report.Rules, PenaltyStep{Attempts: r.Attempts, Penalty: r.Penalty.String()})
	}

	// Find the next attempt count that would impose a penalty.
	limit := st.LoginAttempts + policy.ThresholdRules.Threshold + policy.ThresholdRules.Increment
	for n := st.LoginAttempts + 1; n <= limit; n++ {
		if d, ok := policy.ComputePenalty(n); ok {
			report.NextPenalty = &PenaltyStep{Attempts: n, Penalty: d.String()}
			break
		}
	}
	return report
}

func handleLockoutStatus(env *Env, args Args, w io.Writer) error {
	now := nowFunc()
	report := buildLockoutReport(env, now)
	if args.JSON {
		return NewJSONResponse("lockout status", report).Write(w)
	}

	fmt.Fprintln(w, TitleStyle.Render("Lockout"))
	printField(w, "Failed attempts", report.LoginAttempts)
	if report.LockedOut {
		remaining := env.Store.State().LoginAttempt.Remaining(now)
		printField(w, "Locked", ErrorStyle.Render("for "+lockout.FormatRemaining(remaining)))
	} else {
		printField(w, "Locked", yesNo(false))
	}
	if report.NextPenalty != nil {
		printField(w, "Next penalty", fmt.Sprintf("at attempt %d (%s)", report.NextPenalty.Attempts, report.NextPenalty.Penalty))
	}

	fmt.Fprintln(w, SectionStyle.Render("Policy"))
	for _, r := range report.Rules {
		printField(w, fmt.Sprintf("%d attempts", r.Attempts), r.Penalty)
	}
	printField(w, fmt.Sprintf("%d+ attempts", report.Threshold.Attempts),
		fmt.Sprintf("%s, then every %d attempts", report.Threshold.Penalty, report.Increment))
	return nil
}

func handleLockoutReset(env *Env, args Args, w io.Writer) error {
	if !args.Confirm {
		return ErrNotConfirmed
	}

	before := env.Store.State().LoginAttempt
	env.Store.Dispatch(
		store.AttemptUpdated{State: lockout.LoginAttemptState{}},
		store.LockoutNotificationUpdated{Display: false},
	)
	if err := env.Audit.LogLockoutReset(); err != nil {
		env.Logger.Warn("audit write failed", "error", err)
	}
	env.Logger.Info("lockout reset", "previous_attempts", before.LoginAttempts)

	if args.JSON {
		return NewJSONResponse("lockout reset", buildLockoutReport(env, nowFunc())).Write(w)
	}
	printSuccess(w, "Cleared %d failed attempts", before.LoginAttempts)
	return nil
}
