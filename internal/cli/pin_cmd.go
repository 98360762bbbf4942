// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// pin_cmd.go - The pin command.
//
// Subcommands:
//
//	set    Create or replace the PIN
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/walletgate/internal/lockout"
	"github.com/jeranaias/walletgate/internal/pinentry"
	"github.com/jeranaias/walletgate/internal/secret"
	"github.com/jeranaias/walletgate/internal/store"
)

// ErrPINMismatch is returned when the confirmation differs from the PIN.
var ErrPINMismatch = errors.New("PINs do not match")

// HandlePIN routes pin subcommands.
func HandlePIN(ctx context.Context, env *Env, args Args, prompt Prompter, w io.Writer) error {
	switch args.Subcommand {
	case "set", "":
		return handlePINSet(ctx, env, prompt, w)
	default:
		return usagef("unknown pin subcommand %q", args.Subcommand)
	}
}

func handlePINSet(ctx context.Context, env *Env, prompt Prompter, w io.Writer) error {
	if err := env.LoadState(ctx); err != nil {
		return NewCommandError("pin", "set", "saved state could not be read", err)
	}
	if env.Store.State().LoginAttempt.IsLockedOut(nowFunc()) {
		return NewCommandError("pin", "set", "the wallet is locked out", nil)
	}

	length := env.Secrets.PINLength()
	existing, err := env.Secrets.GetSecret(ctx)
	if err != nil {
		return NewCommandError("pin", "set", "unable to read PIN record", err)
	}

	// Replacing a PIN requires the current one.
	if existing != nil {
		current, err := prompt.PromptSecret("Current PIN: ")
		if err != nil {
			return err
		}
		if err := verifyCurrentPIN(ctx, env, current); err != nil {
			return err
		}
	}

	pin, err := prompt.PromptSecret(fmt.Sprintf("New PIN (%d digits): ", length))
	if err != nil {
		return err
	}
	if err := secret.ValidatePIN(pin, length); err != nil {
		return err
	}
	confirm, err := prompt.PromptSecret("Confirm PIN: ")
	if err != nil {
		return err
	}
	if secret.Normalize(confirm) != secret.Normalize(pin) {
		return ErrPINMismatch
	}

	if err := env.Secrets.SetSecret(ctx, pin); err != nil {
		return NewCommandError("pin", "set", "unable to store PIN", err)
	}
	env.Store.Dispatch(store.PINCreated{})
	if err := env.Audit.LogPINChanged(); err != nil {
		env.Logger.Warn("audit write failed", "error", err)
	}
	env.Logger.Info("pin set", "replaced", existing != nil)

	printSuccess(w, "PIN saved")
	return nil
}

// verifyCurrentPIN runs pin through the same attempt path as the TUI, so a
// wrong PIN counts against the lockout policy and a served penalty is
// acknowledged.
func verifyCurrentPIN(ctx context.Context, env *Env, pin string) error {
	ctl := pinentry.New(env.Store, env.Secrets, env.Config.Policy(), env.Bus,
		pinentry.WithAudit(env.Audit),
		pinentry.WithLogger(env.Logger),
		pinentry.WithClock(nowFunc),
	)
	defer ctl.Close()

	res, err := ctl.Verify(ctx, pin)
	switch {
	case errors.Is(err, pinentry.ErrLockedOut):
		return NewCommandError("pin", "set", "the wallet is locked out", nil)
	case err != nil:
		return NewCommandError("pin", "set", "unable to verify PIN", err)
	}

	switch res.Outcome {
	case pinentry.OutcomeUnlocked:
		return nil
	case pinentry.OutcomeLockedOut:
		reason := "too many incorrect attempts, locked for " + lockout.FormatRemaining(res.Action.Penalty)
		return NewCommandError("pin", "set", reason, secret.ErrInvalidPIN)
	default:
		reason := res.Message
		if reason == "" {
			reason = "incorrect PIN"
		}
		return NewCommandError("pin", "set", reason, secret.ErrInvalidPIN)
	}
}
