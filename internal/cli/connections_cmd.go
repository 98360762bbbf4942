// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// connections_cmd.go - The connections and proofs commands.
//
// These seed and inspect the relationship records the gate cleans up after a
// proof request is declined or abandoned.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/walletgate/internal/relationship"
	"github.com/jeranaias/walletgate/internal/ui/components"
	"github.com/jeranaias/walletgate/internal/ui/styles"
)

// HandleConnections routes connections subcommands.
func HandleConnections(ctx context.Context, env *Env, args Args, w io.Writer) error {
	switch args.Subcommand {
	case "list", "ls", "":
		return listConnections(ctx, env, args, w)
	case "add":
		return addConnection(ctx, env, args, w)
	default:
		return usagef("unknown connections subcommand %q", args.Subcommand)
	}
}

func listConnections(ctx context.Context, env *Env, args Args, w io.Writer) error {
	conns, err := env.Relationships.ListConnections(ctx)
	if err != nil {
		return err
	}
	proofs, err := env.Relationships.ListProofRequests(ctx)
	if err != nil {
		return err
	}

	if args.JSON {
		if conns == nil {
			conns = []relationship.Connection{}
		}
		return NewJSONResponse("connections list", conns).Write(w)
	}

	rows := components.BuildConnectionRows(conns, proofs)
	theme := styles.NewTheme(env.Config.UI.Theme)
	fmt.Fprintln(w, components.RenderConnectionList(theme, rows, -1, 72))
	return nil
}

func addConnection(ctx context.Context, env *Env, args Args, w io.Writer) error {
	label := strings.TrimSpace(args.Label)
	if label == "" {
		return usagef("connections add requires --label")
	}
	state := relationship.ConnectionCompleted
	switch relationship.ConnectionState(args.State) {
	case "":
	case relationship.ConnectionInvited, relationship.ConnectionCompleted:
		state = relationship.ConnectionState(args.State)
	default:
		return usagef("unknown connection state %q", args.State)
	}

	c, err := env.Relationships.AddConnection(ctx, label, state)
	if err != nil {
		return err
	}
	env.Logger.Info("connection added", "connection_id", c.ID)

	if args.JSON {
		return NewJSONResponse("connections add", c).Write(w)
	}
	printSuccess(w, "Added connection %s", c.ID)
	return nil
}

// HandleProofs routes proofs subcommands.
func HandleProofs(ctx context.Context, env *Env, args Args, w io.Writer) error {
	switch args.Subcommand {
	case "list", "ls", "":
		return listProofs(ctx, env, args, w)
	case "add":
		return addProof(ctx, env, args, w)
	default:
		return usagef("unknown proofs subcommand %q", args.Subcommand)
	}
}

func listProofs(ctx context.Context, env *Env, args Args, w io.Writer) error {
	var states []relationship.ProofState
	if args.State != "" {
		st := relationship.ProofState(args.State)
		if !st.Valid() {
			return usagef("unknown proof state %q", args.State)
		}
		states = append(states, st)
	}

	proofs, err := env.Relationships.ListProofRequests(ctx, states...)
	if err != nil {
		return err
	}
	if args.JSON {
		if proofs == nil {
			proofs = []relationship.ProofRequest{}
		}
		return NewJSONResponse("proofs list", proofs).Write(w)
	}

	if len(proofs) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No proof requests"))
		return nil
	}
	fmt.Fprintln(w, TitleStyle.Render("Proof requests"))
	for _, p := range proofs {
		flag := ""
		if p.DeleteConnectionAfterSeen {
			flag = WarningStyle.Render("  delete connection after seen")
		}
		fmt.Fprintf(w, "  %s  %-18s  %s%s\n", p.ID, p.State, DimStyle.Render(p.ConnectionID), flag)
	}
	return nil
}

func addProof(ctx context.Context, env *Env, args Args, w io.Writer) error {
	if args.Connection == "" {
		return usagef("proofs add requires --connection")
	}
	state := relationship.ProofState(args.State)
	if args.State == "" {
		state = relationship.ProofRequestReceived
	}
	if !state.Valid() {
		return usagef("unknown proof state %q", args.State)
	}

	if _, err := env.Relationships.GetConnection(ctx, args.Connection); err != nil {
		return NewCommandError("proofs", "add", "connection "+args.Connection, err)
	}

	p, err := env.Relationships.AddProofRequest(ctx, args.Connection, state, args.DeleteAfterSeen)
	if err != nil {
		return err
	}
	env.Logger.Info("proof request added", "proof_id", p.ID, "state", string(p.State))

	if args.JSON {
		return NewJSONResponse("proofs add", p).Write(w)
	}
	printSuccess(w, "Added proof request %s", p.ID)
	return nil
}
