// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses walletgate's command line and implements its
// non-interactive commands.
//
// # Commands
//
//   - (none): start the TUI
//   - status: onboarding, lockout and wallet summary
//   - pin set: create or replace the PIN
//   - lockout status|reset
//   - onboarding status|complete|reset
//   - connections list|add, proofs list|add
//   - config show|path|init|validate
//   - version
//
// Every command accepts --json and prints a JSONResponse envelope.
//
// # Usage
//
//	cmd, args, err := cli.Parse(os.Args[1:])
//	if err != nil {
//	    os.Exit(cli.ExitCode(err))
//	}
package cli
