// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates walletgate's configuration.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: main configuration structure
//   - LockoutConfig: base rules and the threshold rule of the lockout policy
//   - SecurityConfig: PIN length, KDF cost, auto-lock and audit
//   - Watcher: reloads the file on change
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (WALLETGATE_*)
//   - ~/.walletgate/config.toml
//   - ~/.walletgate/config.json
//   - Built-in defaults
//
// # Example
//
//	[lockout]
//	threshold = 20
//	increment = 5
//	threshold_penalty = "24h"
//
//	[[lockout.rules]]
//	attempts = 5
//	penalty = "1m"
//
//	[security]
//	auto_lock_timeout = "5m"
//	pin_length = 6
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	policy := cfg.Policy()
package config
