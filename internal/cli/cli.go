// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Argument parsing and command routing for walletgate.
package cli

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// nowFunc is the clock used by commands.
var nowFunc = time.Now

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdStatus
	CmdPIN
	CmdLockout
	CmdOnboarding
	CmdConnections
	CmdProofs
	CmdConfig
	CmdVersion
	CmdHelp
)

var commandNames = map[string]Command{
	"status":      CmdStatus,
	"s":           CmdStatus,
	"pin":         CmdPIN,
	"lockout":     CmdLockout,
	"lock":        CmdLockout,
	"onboarding":  CmdOnboarding,
	"connections": CmdConnections,
	"conn":        CmdConnections,
	"proofs":      CmdProofs,
	"config":      CmdConfig,
	"version":     CmdVersion,
	"help":        CmdHelp,
}

// String returns the canonical command name.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdStatus:
		return "status"
	case CmdPIN:
		return "pin"
	case CmdLockout:
		return "lockout"
	case CmdOnboarding:
		return "onboarding"
	case CmdConnections:
		return "connections"
	case CmdProofs:
		return "proofs"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON    bool
	Verbose bool
	Confirm bool

	// connections / proofs
	Label           string
	State           string
	Connection      string
	DeleteAfterSeen bool

	// config
	Format string

	Subcommand string

	// Positional arguments after the subcommand.
	Raw []string
}

// Arg returns the i-th positional argument after the subcommand.
func (a Args) Arg(i int) string {
	if i < 0 || i >= len(a.Raw) {
		return ""
	}
	return a.Raw[i]
}

const usageText = `walletgate - PIN-gated wallet access from the terminal

Usage:
  walletgate                         Start the TUI (default)
  walletgate status [--json]         Show onboarding and lockout status
  walletgate pin set                 Create or replace the PIN
  walletgate lockout status          Show the attempt counter and lockout window
  walletgate lockout reset --confirm Clear failed attempts and any lockout
  walletgate onboarding complete     Mark onboarding finished
  walletgate onboarding reset        Start onboarding again on next launch
  walletgate connections list        List connections
  walletgate connections add --label NAME [--state invited|completed]
  walletgate proofs list [--state STATE]
  walletgate proofs add --connection ID --state STATE [--delete-after-seen]
  walletgate config path             Print config file locations
  walletgate config show             Print the effective config
  walletgate config init [--format toml|json] [--confirm]
  walletgate config validate         Check the effective config
  walletgate version                 Show version information

Proof states:
  request-received, presentation-sent, done, declined, abandoned

Flags:
`

// newFlagSet builds the flag set shared by every command.
func newFlagSet(args *Args) *pflag.FlagSet {
	fs := pflag.NewFlagSet("walletgate", pflag.ContinueOnError)
	fs.SetInterspersed(true)
	fs.SortFlags = false

	fs.BoolVar(&args.JSON, "json", false, "output in JSON format")
	fs.BoolVarP(&args.Verbose, "verbose", "v", false, "verbose output")
	fs.BoolVar(&args.Confirm, "confirm", false, "confirm a destructive action")
	fs.StringVar(&args.Label, "label", "", "connection label")
	fs.StringVar(&args.State, "state", "", "connection or proof state")
	fs.StringVar(&args.Connection, "connection", "", "connection ID for a proof request")
	fs.BoolVar(&args.DeleteAfterSeen, "delete-after-seen", false, "delete the connection once the proof is declined or abandoned")
	fs.StringVar(&args.Format, "format", "toml", "config file format (toml or json)")
	return fs
}

// Parse parses argv (without the program name) into a command and its
// arguments.
func Parse(argv []string) (Command, Args, error) {
	var args Args
	fs := newFlagSet(&args)
	fs.SetOutput(io.Discard)

	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return CmdHelp, args, nil
		}
		return CmdHelp, args, &UsageError{Message: err.Error()}
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return CmdTUI, args, nil
	}

	cmd, ok := commandNames[strings.ToLower(rest[0])]
	if !ok {
		return CmdHelp, args, &UsageError{Message: fmt.Sprintf("unknown command %q", rest[0])}
	}
	rest = rest[1:]
	if len(rest) > 0 {
		args.Subcommand = strings.ToLower(rest[0])
		args.Raw = rest[1:]
	}
	return cmd, args, nil
}

// PrintUsage writes the usage text and flag defaults to w.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
	fs := newFlagSet(&Args{})
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// VersionInfo is the JSON shape of the version command.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// HandleVersion prints version information.
func HandleVersion(w io.Writer, args Args) error {
	info := VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if args.JSON {
		return NewJSONResponse("version", info).Write(w)
	}
	fmt.Fprintf(w, "walletgate %s\n", info.Version)
	fmt.Fprintf(w, "  commit:   %s\n", info.GitCommit)
	fmt.Fprintf(w, "  built:    %s\n", info.BuildDate)
	fmt.Fprintf(w, "  go:       %s\n", info.GoVersion)
	fmt.Fprintf(w, "  platform: %s\n", info.Platform)
	return nil
}
