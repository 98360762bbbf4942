// walletgate - PIN-gated access to a local wallet.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/walletgate/internal/cli"
	"github.com/jeranaias/walletgate/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cmd, args, err := cli.Parse(argv)
	if err != nil {
		cli.PrintError(os.Stderr, err)
		cli.PrintUsage(os.Stderr)
		return cli.ExitCode(err)
	}

	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdVersion:
		return report(args, cmd, cli.HandleVersion(os.Stdout, args))
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return cli.ExitConfigError
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.ExitConfigError
	}

	if cmd == cli.CmdConfig {
		return report(args, cmd, cli.HandleConfig(cfg, args, os.Stdout))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := cli.OpenEnv(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.ExitGeneralError
	}
	defer env.Close()

	switch cmd {
	case cli.CmdStatus:
		err = cli.HandleStatus(ctx, env, args, os.Stdout)
	case cli.CmdPIN:
		err = cli.HandlePIN(ctx, env, args, cli.TerminalPrompter{}, os.Stdout)
	case cli.CmdLockout:
		err = cli.HandleLockout(ctx, env, args, os.Stdout)
	case cli.CmdOnboarding:
		err = cli.HandleOnboarding(ctx, env, args, os.Stdout)
	case cli.CmdConnections:
		err = cli.HandleConnections(ctx, env, args, os.Stdout)
	case cli.CmdProofs:
		err = cli.HandleProofs(ctx, env, args, os.Stdout)
	default:
		configPath, _ := config.ConfigPathTOML()
		if _, statErr := os.Stat(configPath); statErr != nil {
			configPath = ""
		}
		err = cli.RunTUI(ctx, env, cli.TUIOptions{ConfigPath: configPath})
	}
	return report(args, cmd, err)
}

// report prints err in the requested format and returns the exit code.
func report(args cli.Args, cmd cli.Command, err error) int {
	if err == nil {
		return cli.ExitSuccess
	}
	if args.JSON {
		_ = cli.NewJSONErrorResponse(cmd.String(), err).Write(os.Stdout)
	} else {
		cli.PrintError(os.Stderr, err)
	}
	return cli.ExitCode(err)
}
