// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - Opens the wallet stack described by a Config.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jeranaias/walletgate/internal/audit"
	"github.com/jeranaias/walletgate/internal/biometry"
	"github.com/jeranaias/walletgate/internal/config"
	"github.com/jeranaias/walletgate/internal/events"
	"github.com/jeranaias/walletgate/internal/relationship"
	"github.com/jeranaias/walletgate/internal/secret"
	"github.com/jeranaias/walletgate/internal/storage"
	"github.com/jeranaias/walletgate/internal/store"
)

// Env is everything a command or the TUI needs, opened from one Config.
type Env struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *sql.DB
	Bus           *events.Bus
	Store         *store.Store
	Relationships *relationship.Store
	Secrets       *secret.StoredProvider
	Biometry      biometry.Capability
	Audit         *audit.Logger

	logFile io.Closer
}

// OpenEnv opens the database, state key, secret store and logs under the
// config's data directory. The persisted state is not loaded.
func OpenEnv(ctx context.Context, cfg *config.Config) (*Env, error) {
	env := &Env{Config: cfg, Bus: events.NewBus()}

	logger, closer, err := openLogger(cfg)
	if err != nil {
		return nil, err
	}
	env.Logger, env.logFile = logger, closer

	db, err := storage.Open(ctx, cfg.DatabasePath())
	if err != nil {
		env.Close()
		return nil, err
	}
	env.DB = db

	key, err := store.LoadOrCreateKey(cfg.StateKeyPath())
	if err != nil {
		env.Close()
		return nil, err
	}
	codec, err := store.NewCodec(key)
	if err != nil {
		env.Close()
		return nil, err
	}

	env.Store = store.New(
		store.WithPersister(store.NewSQLitePersister(db, codec)),
		store.WithBus(env.Bus),
		store.WithLogger(logger),
	)
	env.Relationships = relationship.NewStore(db)
	env.Secrets = secret.NewStoredProvider(
		secret.NewKeyStore(cfg.SecretPath()),
		secret.WithIterations(cfg.Security.KDFIterations),
		secret.WithPINLength(cfg.Security.PINLength),
	)
	env.Biometry = biometry.NewFileCapability(cfg.BiometryPath())

	if cfg.Security.AuditEnabled {
		a, err := audit.NewLogger(cfg.AuditPath())
		if err != nil {
			env.Close()
			return nil, err
		}
		env.Audit = a
	}

	return env, nil
}

// Close releases everything OpenEnv opened.
func (e *Env) Close() error {
	var errs []error
	if e.Audit != nil {
		errs = append(errs, e.Audit.Close())
	}
	if e.DB != nil {
		errs = append(errs, e.DB.Close())
	}
	if e.logFile != nil {
		errs = append(errs, e.logFile.Close())
	}
	return errors.Join(errs...)
}

// LoadState applies the persisted snapshot. Load failures are returned but
// the store is still usable with defaults.
func (e *Env) LoadState(ctx context.Context) error {
	return e.Store.Load(ctx)
}

// openLogger writes JSON logs to the configured file at the configured level.
func openLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	path := cfg.LogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("app", "walletgate"), f, nil
}
