// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// onboarding_cmd.go - The onboarding command.
//
// Subcommands:
//
//	status (default)    Show onboarding progress
//	complete            Mark onboarding finished (requires a PIN)
//	reset --confirm     Run onboarding again on next launch
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jeranaias/walletgate/internal/store"
)

// HandleOnboarding routes onboarding subcommands.
func HandleOnboarding(ctx context.Context, env *Env, args Args, w io.Writer) error {
	if err := env.LoadState(ctx); err != nil {
		return NewCommandError("onboarding", args.Subcommand, "saved state could not be read", err)
	}

	switch args.Subcommand {
	case "status", "":
		return printOnboarding(env, args, "onboarding status", w)

	case "complete":
		s, err := env.Secrets.GetSecret(ctx)
		if err != nil {
			return NewCommandError("onboarding", "complete", "unable to read PIN record", err)
		}
		if s == nil {
			return NewCommandError("onboarding", "complete", "set a PIN first with 'walletgate pin set'", nil)
		}
		env.Store.Dispatch(store.PINCreated{}, store.BiometryConsidered{}, store.OnboardingCompleted{})
		auditOnboarding(env, "completed")
		if !args.JSON {
			printSuccess(w, "Onboarding complete")
		}
		return printOnboarding(env, args, "onboarding complete", w)

	case "reset":
		if !args.Confirm {
			return ErrNotConfirmed
		}
		env.Store.Dispatch(store.OnboardingReset{})
		auditOnboarding(env, "reset")
		if !args.JSON {
			printSuccess(w, "Onboarding will run on next launch")
		}
		return printOnboarding(env, args, "onboarding reset", w)

	default:
		return usagef("unknown onboarding subcommand %q", args.Subcommand)
	}
}

func auditOnboarding(env *Env, action string) {
	if err := env.Audit.LogOnboarding(action); err != nil {
		env.Logger.Warn("audit write failed", "error", err)
	}
	env.Logger.Info("onboarding updated", "action", action)
}

func printOnboarding(env *Env, args Args, command string, w io.Writer) error {
	ob := env.Store.State().Onboarding
	if args.JSON {
		return NewJSONResponse(command, ob).Write(w)
	}
	fmt.Fprintln(w, SectionStyle.Render("Onboarding"))
	printField(w, "PIN created", yesNo(ob.DidCreatePIN))
	printField(w, "Biometry considered", yesNo(ob.DidConsiderBiometry))
	printField(w, "Complete", yesNo(ob.DidCompleteOnboarding))
	return nil
}
