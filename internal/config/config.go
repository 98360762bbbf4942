// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/walletgate/internal/lockout"
	"github.com/jeranaias/walletgate/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// HomeEnvVar overrides the configuration directory.
	HomeEnvVar = "WALLETGATE_HOME"

	// minAutoLock is the shortest non-zero auto-lock timeout.
	minAutoLock = 30 * time.Second

	minPINLength     = 4
	maxPINLength     = 12
	minKDFIterations = 10_000
)

// =============================================================================
// DURATION
// =============================================================================

// Duration is a time.Duration written as a Go duration string ("1m30s").
type Duration struct {
	time.Duration
}

// D wraps a time.Duration.
func D(d time.Duration) Duration {
	return Duration{Duration: d}
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete walletgate configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Lockout  LockoutConfig  `toml:"lockout" json:"lockout"`
	Security SecurityConfig `toml:"security" json:"security"`
	Storage  StorageConfig  `toml:"storage" json:"storage"`
	Log      LogConfig      `toml:"log" json:"log"`
	UI       UIConfig       `toml:"ui" json:"ui"`
}

// LockoutRule is a base rule: an exact attempt count and its penalty.
type LockoutRule struct {
	Attempts int      `toml:"attempts" json:"attempts"`
	Penalty  Duration `toml:"penalty" json:"penalty"`
}

// LockoutConfig configures the attempt lockout policy.
type LockoutConfig struct {
	Rules            []LockoutRule `toml:"rules" json:"rules"`
	Threshold        int           `toml:"threshold" json:"threshold"`
	Increment        int           `toml:"increment" json:"increment"`
	ThresholdPenalty Duration      `toml:"threshold_penalty" json:"threshold_penalty"`
}

// SecurityConfig configures PIN handling and auto-lock.
type SecurityConfig struct {
	// AutoLockTimeout locks the wallet after inactivity. Zero disables it.
	AutoLockTimeout Duration `toml:"auto_lock_timeout" json:"auto_lock_timeout"`
	PINLength       int      `toml:"pin_length" json:"pin_length"`
	KDFIterations   int      `toml:"kdf_iterations" json:"kdf_iterations"`
	AuditEnabled    bool     `toml:"audit_enabled" json:"audit_enabled"`
}

// StorageConfig configures where data lives.
type StorageConfig struct {
	// DataDir holds the database, PIN record and keys. Empty means the
	// configuration directory.
	DataDir string `toml:"data_dir" json:"data_dir"`
}

// LogConfig configures the application log.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	// File is the log path. Empty means walletgate.log in the data dir.
	File string `toml:"file" json:"file"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	Theme            string `toml:"theme" json:"theme"`
	ShowAttemptCount bool   `toml:"show_attempt_count" json:"show_attempt_count"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with default values.
func Default() *Config {
	policy := lockout.DefaultPolicy()

	return &Config{
		Version: "1",
		Lockout: LockoutConfig{
			Rules:            rulesFromPolicy(policy),
			Threshold:        policy.ThresholdRules.Threshold,
			Increment:        policy.ThresholdRules.Increment,
			ThresholdPenalty: D(policy.ThresholdRules.ThresholdPenaltyDuration),
		},
		Security: SecurityConfig{
			AutoLockTimeout: D(5 * time.Minute),
			PINLength:       6,
			KDFIterations:   210_000,
			AuditEnabled:    true,
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme:            "dark",
			ShowAttemptCount: false,
		},
	}
}

func rulesFromPolicy(p lockout.Policy) []LockoutRule {
	attempts := make([]int, 0, len(p.BaseRules))
	for n := range p.BaseRules {
		attempts = append(attempts, n)
	}
	sort.Ints(attempts)

	rules := make([]LockoutRule, 0, len(attempts))
	for _, n := range attempts {
		rules = append(rules, LockoutRule{Attempts: n, Penalty: D(p.BaseRules[n])})
	}
	return rules
}

// Policy converts the lockout section to a lockout.Policy.
func (c *Config) Policy() lockout.Policy {
	base := make(map[int]time.Duration, len(c.Lockout.Rules))
	for _, r := range c.Lockout.Rules {
		base[r.Attempts] = r.Penalty.Duration
	}
	return lockout.Policy{
		BaseRules: base,
		ThresholdRules: lockout.ThresholdRules{
			Threshold:                c.Lockout.Threshold,
			Increment:                c.Lockout.Increment,
			ThresholdPenaltyDuration: c.Lockout.ThresholdPenalty.Duration,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the configuration directory, ~/.walletgate unless
// WALLETGATE_HOME is set.
func ConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnvVar); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".walletgate"), nil
}

// ConfigPathTOML returns the path to config.toml.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to config.json.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DataDir returns the resolved data directory.
func (c *Config) DataDir() string {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir
	}
	dir, err := ConfigDir()
	if err != nil {
		return filepath.Join(".", ".walletgate")
	}
	return dir
}

// DatabasePath returns the SQLite database path.
func (c *Config) DatabasePath() string { return filepath.Join(c.DataDir(), "wallet.db") }

// SecretPath returns the PIN record path.
func (c *Config) SecretPath() string { return filepath.Join(c.DataDir(), "pin.json") }

// StateKeyPath returns the snapshot tag key path.
func (c *Config) StateKeyPath() string { return filepath.Join(c.DataDir(), ".state_key") }

// BiometryPath returns the development biometry control file.
func (c *Config) BiometryPath() string { return filepath.Join(c.DataDir(), "biometry") }

// AuditPath returns the audit log path.
func (c *Config) AuditPath() string { return filepath.Join(c.DataDir(), "audit.log") }

// LogPath returns the application log path.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.DataDir(), "walletgate.log")
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads config.toml, falling back to config.json and then defaults.
// Environment overrides are applied last and the result is validated.
func Load() (*Config, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return LoadFromPath(tomlPath)
	}

	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return LoadFromPath(jsonPath)
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads a specific file. Files ending in .json are JSON;
// everything else is TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	warnInsecurePermissions(path)

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		slog.Warn("ignoring unknown config keys", "path", path, "keys", keys)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	warnInsecurePermissions(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

func warnInsecurePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if mode := info.Mode().Perm(); mode&0022 != 0 {
		slog.Warn("config file is writable by others", "path", path, "mode", fmt.Sprintf("%o", mode))
	}
}

// =============================================================================
// SAVE
// =============================================================================

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# walletgate configuration file\n")
	b.WriteString("# Durations use Go syntax: 30s, 10m, 24h\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg to path as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is every problem found by Validate.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns ValidateErrors if anything is
// wrong.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Lockout
	seen := make(map[int]bool, len(c.Lockout.Rules))
	for i, r := range c.Lockout.Rules {
		field := fmt.Sprintf("lockout.rules[%d]", i)
		if seen[r.Attempts] {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("duplicate rule for %d attempts", r.Attempts)})
		}
		seen[r.Attempts] = true
	}
	var policyErr *lockout.PolicyError
	if err := c.Policy().Validate(); errors.As(err, &policyErr) {
		for _, problem := range policyErr.Problems {
			errs = append(errs, ValidationError{Field: "lockout", Message: problem})
		}
	}

	// Security
	if d := c.Security.AutoLockTimeout.Duration; d < 0 || (d > 0 && d < minAutoLock) {
		errs = append(errs, ValidationError{
			Field:   "security.auto_lock_timeout",
			Message: fmt.Sprintf("must be 0 (disabled) or at least %s, got %s", minAutoLock, d),
		})
	}
	if c.Security.PINLength < minPINLength || c.Security.PINLength > maxPINLength {
		errs = append(errs, ValidationError{
			Field:   "security.pin_length",
			Message: fmt.Sprintf("must be between %d and %d, got %d", minPINLength, maxPINLength, c.Security.PINLength),
		})
	}
	if c.Security.KDFIterations < minKDFIterations {
		errs = append(errs, ValidationError{
			Field:   "security.kdf_iterations",
			Message: fmt.Sprintf("must be at least %d, got %d", minKDFIterations, c.Security.KDFIterations),
		})
	}

	// Log
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, ValidationError{Field: "log.level", Message: err.Error()})
	}

	// UI
	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid level '%s', must be one of: debug, info, warn, error", name)
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies WALLETGATE_* environment variables.
//
// Supported environment variables:
//   - WALLETGATE_DATA_DIR: overrides storage.data_dir
//   - WALLETGATE_LOG_LEVEL: overrides log.level
//   - WALLETGATE_AUTO_LOCK: overrides security.auto_lock_timeout ("0" disables)
//   - WALLETGATE_THEME: overrides ui.theme
//   - WALLETGATE_AUDIT: "0"/"false" disables the audit trail
func (c *Config) ApplyEnvOverrides() {
	if dir := os.Getenv("WALLETGATE_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if level := os.Getenv("WALLETGATE_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if timeout := os.Getenv("WALLETGATE_AUTO_LOCK"); timeout != "" {
		if timeout == "0" {
			c.Security.AutoLockTimeout = D(0)
		} else if d, err := time.ParseDuration(timeout); err == nil {
			c.Security.AutoLockTimeout = D(d)
		} else {
			slog.Warn("ignoring invalid WALLETGATE_AUTO_LOCK", "value", timeout, "error", err)
		}
	}
	if theme := os.Getenv("WALLETGATE_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if auditEnv := os.Getenv("WALLETGATE_AUDIT"); auditEnv != "" {
		if enabled, err := strconv.ParseBool(auditEnv); err == nil {
			c.Security.AuditEnabled = enabled
		}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Lockout.Rules = append([]LockoutRule(nil), c.Lockout.Rules...)
	return &clone
}

// String renders the config as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
