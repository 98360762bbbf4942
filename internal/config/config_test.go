// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/walletgate/internal/lockout"
)

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, lockout.DefaultPolicy(), cfg.Policy())
	assert.Equal(t, 5*time.Minute, cfg.Security.AutoLockTimeout.Duration)
	assert.Equal(t, 6, cfg.Security.PINLength)
	assert.True(t, cfg.Security.AuditEnabled)
	assert.Equal(t, "info", cfg.Log.Level)

	// Rules are emitted in ascending attempt order.
	require.Len(t, cfg.Lockout.Rules, 3)
	assert.Equal(t, 5, cfg.Lockout.Rules[0].Attempts)
	assert.Equal(t, 15, cfg.Lockout.Rules[2].Attempts)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"duplicate rule", func(c *Config) {
			c.Lockout.Rules = append(c.Lockout.Rules, LockoutRule{Attempts: 5, Penalty: D(time.Minute)})
		}, "lockout.rules[3]"},
		{"zero increment", func(c *Config) { c.Lockout.Increment = 0 }, "lockout"},
		{"autolock too short", func(c *Config) { c.Security.AutoLockTimeout = D(5 * time.Second) }, "security.auto_lock_timeout"},
		{"pin too short", func(c *Config) { c.Security.PINLength = 3 }, "security.pin_length"},
		{"pin too long", func(c *Config) { c.Security.PINLength = 13 }, "security.pin_length"},
		{"weak kdf", func(c *Config) { c.Security.KDFIterations = 1000 }, "security.kdf_iterations"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var verrs ValidateErrors
			require.ErrorAs(t, err, &verrs)

			fields := make([]string, 0, len(verrs))
			for _, v := range verrs {
				fields = append(fields, v.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestConfig_AutoLockDisabledIsValid(t *testing.T) {
	cfg := Default()
	cfg.Security.AutoLockTimeout = D(0)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_TOMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.Lockout.Rules = []LockoutRule{{Attempts: 3, Penalty: D(30 * time.Second)}}
	cfg.Lockout.Threshold = 8
	cfg.Security.AutoLockTimeout = D(0)

	require.NoError(t, SaveTOML(cfg, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Lockout, loaded.Lockout)
	assert.Equal(t, time.Duration(0), loaded.Security.AutoLockTimeout.Duration)
}

func TestConfig_JSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.UI.Theme = "light"

	require.NoError(t, SaveJSON(cfg, path))
	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "light", loaded.UI.Theme)
	assert.Equal(t, cfg.Policy(), loaded.Policy())
}

func TestConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, lockout.DefaultPolicy(), cfg.Policy())
}

func TestConfig_DecodeErrorsAreFatal(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[lockout\nthreshold = "), 0600))
	_, err := LoadFromPath(bad)
	assert.Error(t, err)

	badDuration := filepath.Join(dir, "duration.toml")
	require.NoError(t, os.WriteFile(badDuration, []byte("[security]\nauto_lock_timeout = \"soon\"\n"), 0600))
	_, err = LoadFromPath(badDuration)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.toml")
	require.NoError(t, os.WriteFile(invalid, []byte("[security]\npin_length = 2\n"), 0600))
	_, err = LoadFromPath(invalid)
	var verrs ValidateErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestLoad_PrefersTOMLThenJSONThenDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnvVar, dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dark", cfg.UI.Theme)

	jsonCfg := Default()
	jsonCfg.UI.Theme = "light"
	require.NoError(t, SaveJSON(jsonCfg, filepath.Join(dir, "config.json")))
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.UI.Theme)

	tomlCfg := Default()
	tomlCfg.UI.Theme = "auto"
	require.NoError(t, SaveTOML(tomlCfg, filepath.Join(dir, "config.toml")))
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.UI.Theme)
}

func TestConfig_ApplyEnvOverrides(t *testing.T) {
	t.Setenv("WALLETGATE_DATA_DIR", "/tmp/wg")
	t.Setenv("WALLETGATE_LOG_LEVEL", "debug")
	t.Setenv("WALLETGATE_AUTO_LOCK", "2m")
	t.Setenv("WALLETGATE_THEME", "light")
	t.Setenv("WALLETGATE_AUDIT", "false")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "/tmp/wg", cfg.DataDir())
	assert.Equal(t, filepath.Join("/tmp/wg", "wallet.db"), cfg.DatabasePath())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2*time.Minute, cfg.Security.AutoLockTimeout.Duration)
	assert.Equal(t, "light", cfg.UI.Theme)
	assert.False(t, cfg.Security.AuditEnabled)

	t.Setenv("WALLETGATE_AUTO_LOCK", "0")
	cfg.ApplyEnvOverrides()
	assert.Equal(t, time.Duration(0), cfg.Security.AutoLockTimeout.Duration)
}

func TestConfig_Clone(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Lockout.Rules[0].Attempts = 99
	clone.Log.Level = "error"

	assert.Equal(t, 5, cfg.Lockout.Rules[0].Attempts)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"debug", "INFO", "", "warn", "warning", "error"} {
		_, err := ParseLevel(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseLevel("trace")
	assert.Error(t, err)
}
