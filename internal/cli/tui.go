// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Starts the interactive gate.
package cli

import (
	"context"

	"github.com/jeranaias/walletgate/internal/config"
	"github.com/jeranaias/walletgate/internal/gate"
	"github.com/jeranaias/walletgate/internal/pinentry"
	"github.com/jeranaias/walletgate/internal/ui/app"
)

// TUIOptions tune RunTUI.
type TUIOptions struct {
	// ConfigPath is watched for policy changes. Empty disables reloading.
	ConfigPath string
}

// RunTUI wires the PIN controller and the gate around env and runs the TUI
// until the user quits.
func RunTUI(ctx context.Context, env *Env, opts TUIOptions) error {
	cfg := env.Config

	ctl := pinentry.New(env.Store, env.Secrets, cfg.Policy(), env.Bus,
		pinentry.WithAudit(env.Audit),
		pinentry.WithBiometry(env.Biometry),
		pinentry.WithLogger(env.Logger),
	)
	defer ctl.Close()

	g := gate.New(env.Store, env.Bus,
		gate.WithRelationships(env.Relationships),
		gate.WithLogger(env.Logger),
	)

	if opts.ConfigPath != "" {
		w, err := config.Watch(ctx, opts.ConfigPath, cfg, func(next *config.Config) {
			ctl.SetPolicy(next.Policy())
			env.Logger.Info("lockout policy updated")
		}, config.WithWatchLogger(env.Logger))
		if err != nil {
			env.Logger.Warn("config reload disabled", "error", err)
		} else {
			defer w.Close()
		}
	}

	if err := env.Audit.LogStartup(Version); err != nil {
		env.Logger.Warn("audit write failed", "error", err)
	}
	defer func() {
		if err := env.Audit.LogShutdown(); err != nil {
			env.Logger.Warn("audit write failed", "error", err)
		}
	}()

	return app.Run(ctx, app.Deps{
		Store:         env.Store,
		Bus:           env.Bus,
		Gate:          g,
		PIN:           ctl,
		Secrets:       env.Secrets,
		PINLength:     cfg.Security.PINLength,
		Biometry:      env.Biometry,
		Relationships: env.Relationships,
		Audit:         env.Audit,
		Logger:        env.Logger,
		Theme:         cfg.UI.Theme,
	}, app.Options{
		AutoLock:  cfg.Security.AutoLockTimeout.Duration,
		AltScreen: true,
	})
}
