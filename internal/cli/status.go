// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - The status command.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jeranaias/walletgate/internal/gate"
	"github.com/jeranaias/walletgate/internal/lockout"
	"github.com/jeranaias/walletgate/internal/relationship"
)

// StatusReport is the JSON shape of the status command.
type StatusReport struct {
	DataDir string `json:"data_dir"`

	// Stage is where the gate starts on the next launch.
	Stage string `json:"stage"`

	PINSet                bool `json:"pin_set"`
	DidCreatePIN          bool `json:"did_create_pin"`
	DidConsiderBiometry   bool `json:"did_consider_biometry"`
	DidCompleteOnboarding bool `json:"did_complete_onboarding"`

	LoginAttempts int        `json:"login_attempts"`
	LockedOut     bool       `json:"locked_out"`
	LockedUntil   *time.Time `json:"locked_until,omitempty"`
	Remaining     string     `json:"remaining,omitempty"`

	BiometryEnabled   bool `json:"biometry_enabled"`
	BiometryAvailable bool `json:"biometry_available"`

	Connections   int `json:"connections"`
	PendingProofs int `json:"pending_proofs"`

	LoadError string `json:"load_error,omitempty"`
}

// BuildStatus collects a StatusReport. The state must already be loaded.
func BuildStatus(ctx context.Context, env *Env, now time.Time) (StatusReport, error) {
	st := env.Store.State()
	report := StatusReport{
		DataDir:               env.Config.DataDir(),
		Stage:                 gate.Signals{OnboardingComplete: st.Onboarding.DidCompleteOnboarding}.Stage().String(),
		DidCreatePIN:          st.Onboarding.DidCreatePIN,
		DidConsiderBiometry:   st.Onboarding.DidConsiderBiometry,
		DidCompleteOnboarding: st.Onboarding.DidCompleteOnboarding,
		LoginAttempts:         st.LoginAttempt.LoginAttempts,
		LockedOut:             st.LoginAttempt.IsLockedOut(now),
		BiometryEnabled:       st.Preferences.UseBiometry,
		BiometryAvailable:     env.Biometry.Available(ctx),
	}
	if report.LockedOut {
		until := *st.LoginAttempt.LockoutDate
		report.LockedUntil = &until
		report.Remaining = lockout.FormatRemaining(st.LoginAttempt.Remaining(now))
	}

	s, err := env.Secrets.GetSecret(ctx)
	if err != nil {
		return report, NewCommandError("status", "read", "unable to read PIN record", err)
	}
	report.PINSet = s != nil

	conns, err := env.Relationships.ListConnections(ctx)
	if err != nil {
		return report, err
	}
	report.Connections = len(conns)

	pending, err := env.Relationships.ListProofRequests(ctx, relationship.ProofRequestReceived)
	if err != nil {
		return report, err
	}
	report.PendingProofs = len(pending)
	return report, nil
}

// HandleStatus prints the status report.
func HandleStatus(ctx context.Context, env *Env, args Args, w io.Writer) error {
	loadErr := env.LoadState(ctx)

	report, err := BuildStatus(ctx, env, nowFunc())
	if err != nil {
		return err
	}
	if loadErr != nil {
		report.LoadError = loadErr.Error()
	}

	if args.JSON {
		return NewJSONResponse("status", report).Write(w)
	}

	fmt.Fprintln(w, TitleStyle.Render("walletgate status"))
	if loadErr != nil {
		printWarning(w, "Saved state could not be read; showing defaults (%v)", loadErr)
	}

	fmt.Fprintln(w, SectionStyle.Render("Onboarding"))
	printField(w, "PIN set", yesNo(report.PINSet))
	printField(w, "Biometry considered", yesNo(report.DidConsiderBiometry))
	printField(w, "Complete", yesNo(report.DidCompleteOnboarding))
	printField(w, "Next launch", report.Stage)

	fmt.Fprintln(w, SectionStyle.Render("Lockout"))
	printField(w, "Failed attempts", report.LoginAttempts)
	if report.LockedOut {
		printField(w, "Locked", ErrorStyle.Render("for "+report.Remaining))
	} else {
		printField(w, "Locked", yesNo(false))
	}

	fmt.Fprintln(w, SectionStyle.Render("Biometry"))
	printField(w, "Enabled", yesNo(report.BiometryEnabled))
	printField(w, "Available", yesNo(report.BiometryAvailable))

	fmt.Fprintln(w, SectionStyle.Render("Wallet"))
	printField(w, "Connections", report.Connections)
	printField(w, "Pending proofs", report.PendingProofs)
	printField(w, "Data directory", DimStyle.Render(report.DataDir))
	return nil
}
