// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/walletgate/internal/config"
	"github.com/jeranaias/walletgate/internal/lockout"
	"github.com/jeranaias/walletgate/internal/relationship"
	"github.com/jeranaias/walletgate/internal/secret"
	"github.com/jeranaias/walletgate/internal/store"
)

// =============================================================================
// HELPERS
// =============================================================================

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Security.KDFIterations = secret.MinIterations

	env, err := OpenEnv(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { env.Close() })
	return env
}

// reopen opens a fresh Env over the same data directory.
func reopen(t *testing.T, env *Env) *Env {
	t.Helper()
	next, err := OpenEnv(context.Background(), env.Config)
	require.NoError(t, err)
	t.Cleanup(func() { next.Close() })
	return next
}

type scriptedPrompter struct {
	answers []string
}

func (p *scriptedPrompter) PromptSecret(string) (string, error) {
	if len(p.answers) == 0 {
		return "", ErrPromptAborted
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func decodeData(t *testing.T, buf *bytes.Buffer, into any) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NoError(t, json.Unmarshal(resp.Data, into))
}

// =============================================================================
// PARSING
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		want    Command
		sub     string
		check   func(*testing.T, Args)
		wantErr bool
	}{
		{name: "no args starts tui", argv: nil, want: CmdTUI},
		{name: "status json", argv: []string{"status", "--json"}, want: CmdStatus,
			check: func(t *testing.T, a Args) { assert.True(t, a.JSON) }},
		{name: "alias", argv: []string{"s"}, want: CmdStatus},
		{name: "flag before command", argv: []string{"--json", "lockout", "reset", "--confirm"}, want: CmdLockout, sub: "reset",
			check: func(t *testing.T, a Args) {
				assert.True(t, a.JSON)
				assert.True(t, a.Confirm)
			}},
		{name: "connection add", argv: []string{"conn", "add", "--label=Faber College"}, want: CmdConnections, sub: "add",
			check: func(t *testing.T, a Args) { assert.Equal(t, "Faber College", a.Label) }},
		{name: "proof add", argv: []string{"proofs", "add", "--connection", "c1", "--state", "declined", "--delete-after-seen"}, want: CmdProofs, sub: "add",
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "c1", a.Connection)
				assert.Equal(t, "declined", a.State)
				assert.True(t, a.DeleteAfterSeen)
			}},
		{name: "positional args", argv: []string{"config", "SHOW", "extra"}, want: CmdConfig, sub: "show",
			check: func(t *testing.T, a Args) { assert.Equal(t, "extra", a.Arg(0)) }},
		{name: "help flag", argv: []string{"--help"}, want: CmdHelp},
		{name: "unknown command", argv: []string{"frobnicate"}, want: CmdHelp, wantErr: true},
		{name: "unknown flag", argv: []string{"status", "--nope"}, want: CmdHelp, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := Parse(tt.argv)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ExitUsageError, ExitCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd)
			assert.Equal(t, tt.sub, args.Subcommand)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitGeneralError, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitUsageError, ExitCode(ErrNotConfirmed))
	assert.Equal(t, ExitAuthError, ExitCode(NewCommandError("pin", "set", "x", secret.ErrInvalidPIN)))
	assert.Equal(t, ExitConfigError, ExitCode(config.ValidateErrors{{Field: "log.level", Message: "bad"}}))
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	assert.Contains(t, buf.String(), "walletgate lockout reset")
	assert.Contains(t, buf.String(), "--delete-after-seen")
}

func TestHandleVersion_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HandleVersion(&buf, Args{JSON: true}))

	var info VersionInfo
	decodeData(t, &buf, &info)
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

// =============================================================================
// STATUS
// =============================================================================

func TestStatus_FreshWallet(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	require.NoError(t, HandleStatus(context.Background(), env, Args{JSON: true}, &buf))

	var report StatusReport
	decodeData(t, &buf, &report)
	assert.False(t, report.PINSet)
	assert.Equal(t, "onboarding", report.Stage)
	assert.Zero(t, report.LoginAttempts)
	assert.False(t, report.LockedOut)
	assert.False(t, report.BiometryAvailable)
	assert.Empty(t, report.LoadError)
}

func TestStatus_HumanOutput(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	require.NoError(t, HandleStatus(context.Background(), env, Args{}, &buf))
	assert.Contains(t, buf.String(), "Failed attempts")
	assert.Contains(t, buf.String(), "Pending proofs")
}

// =============================================================================
// PIN
// =============================================================================

func TestPINSet_CreateThenReplace(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	var buf bytes.Buffer
	err := HandlePIN(ctx, env, Args{Subcommand: "set"}, &scriptedPrompter{answers: []string{"123456", "123456"}}, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "PIN saved")
	assert.True(t, env.Store.State().Onboarding.DidCreatePIN)

	ok, err := env.Secrets.CheckSecret(ctx, "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	// A wrong current PIN counts against the lockout policy.
	err = HandlePIN(ctx, env, Args{Subcommand: "set"}, &scriptedPrompter{answers: []string{"000000"}}, &buf)
	require.Error(t, err)
	assert.Equal(t, ExitAuthError, ExitCode(err))
	assert.Equal(t, 1, env.Store.State().LoginAttempt.LoginAttempts)

	err = HandlePIN(ctx, env, Args{Subcommand: "set"}, &scriptedPrompter{answers: []string{"123456", "654321", "654321"}}, &buf)
	require.NoError(t, err)
	assert.Zero(t, env.Store.State().LoginAttempt.LoginAttempts)

	ok, err = env.Secrets.CheckSecret(ctx, "654321")
	require.NoError(t, err)
	assert.True(t, ok)
}

// servePenalty leaves env with five failures and a penalty that has ended
// and been marked served.
func servePenalty(t *testing.T, env *Env) {
	t.Helper()
	past := time.Now().Add(-time.Minute)
	served := true
	env.Store.Dispatch(
		store.AttemptUpdated{State: lockout.LoginAttemptState{LoginAttempts: 5, LockoutDate: &past, ServedPenalty: &served}},
		store.LockoutNotificationUpdated{Display: true},
	)
}

func TestPINSet_ClearsServedPenalty(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	var buf bytes.Buffer
	require.NoError(t, HandlePIN(ctx, env, Args{}, &scriptedPrompter{answers: []string{"123456", "123456"}}, &buf))
	servePenalty(t, env)

	err := HandlePIN(ctx, env, Args{}, &scriptedPrompter{answers: []string{"123456", "654321", "654321"}}, &buf)
	require.NoError(t, err)

	st := env.Store.State()
	assert.Zero(t, st.LoginAttempt.LoginAttempts)
	assert.Nil(t, st.LoginAttempt.LockoutDate)
	assert.Nil(t, st.LoginAttempt.ServedPenalty)
	assert.False(t, st.Lockout.DisplayNotification)

	// The cleared state is what was saved.
	again := reopen(t, env)
	require.NoError(t, again.LoadState(ctx))
	assert.Nil(t, again.Store.State().LoginAttempt.LockoutDate)
	assert.Nil(t, again.Store.State().LoginAttempt.ServedPenalty)
}

func TestPINSet_WrongPINAfterServedPenalty(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	var buf bytes.Buffer
	require.NoError(t, HandlePIN(ctx, env, Args{}, &scriptedPrompter{answers: []string{"123456", "123456"}}, &buf))
	servePenalty(t, env)

	err := HandlePIN(ctx, env, Args{}, &scriptedPrompter{answers: []string{"000000"}}, &buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, secret.ErrInvalidPIN)
	assert.Contains(t, err.Error(), "4 tries remaining")

	st := env.Store.State().LoginAttempt
	assert.Equal(t, 6, st.LoginAttempts)
	assert.Nil(t, st.LockoutDate)
	assert.Nil(t, st.ServedPenalty)
}

func TestPINSet_Rejections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	var buf bytes.Buffer

	err := HandlePIN(ctx, env, Args{}, &scriptedPrompter{answers: []string{"12ab56"}}, &buf)
	assert.ErrorIs(t, err, secret.ErrInvalidPIN)

	err = HandlePIN(ctx, env, Args{}, &scriptedPrompter{answers: []string{"123456", "123457"}}, &buf)
	assert.ErrorIs(t, err, ErrPINMismatch)

	err = HandlePIN(ctx, env, Args{}, &scriptedPrompter{}, &buf)
	assert.ErrorIs(t, err, ErrPromptAborted)

	err = HandlePIN(ctx, env, Args{Subcommand: "rotate"}, &scriptedPrompter{}, &buf)
	assert.Equal(t, ExitUsageError, ExitCode(err))

	s, err := env.Secrets.GetSecret(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
}

// =============================================================================
// LOCKOUT
// =============================================================================

func TestLockout_StatusAndReset(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	fixed := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return fixed }
	t.Cleanup(func() { nowFunc = time.Now })

	var buf bytes.Buffer
	require.NoError(t, HandlePIN(ctx, env, Args{}, &scriptedPrompter{answers: []string{"123456", "123456"}}, &buf))

	// Five wrong PINs trip the first base rule.
	for i := 0; i < 5; i++ {
		_ = HandlePIN(ctx, env, Args{}, &scriptedPrompter{answers: []string{"000000"}}, &buf)
	}

	buf.Reset()
	require.NoError(t, HandleLockout(ctx, env, Args{Subcommand: "status", JSON: true}, &buf))
	var report LockoutReport
	decodeData(t, &buf, &report)
	assert.Equal(t, 5, report.LoginAttempts)
	assert.True(t, report.LockedOut)
	require.NotNil(t, report.LockedUntil)
	assert.True(t, fixed.Add(time.Minute).Equal(*report.LockedUntil))
	require.NotNil(t, report.NextPenalty)
	assert.Equal(t, 10, report.NextPenalty.Attempts)

	// Changing the PIN is refused while locked out.
	err := HandlePIN(ctx, env, Args{}, &scriptedPrompter{answers: []string{"123456"}}, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked out")

	err = HandleLockout(ctx, env, Args{Subcommand: "reset"}, &buf)
	assert.ErrorIs(t, err, ErrNotConfirmed)

	buf.Reset()
	require.NoError(t, HandleLockout(ctx, env, Args{Subcommand: "reset", Confirm: true}, &buf))
	assert.Contains(t, buf.String(), "Cleared 5 failed attempts")

	// The reset is persisted.
	again := reopen(t, env)
	require.NoError(t, again.LoadState(ctx))
	st := again.Store.State().LoginAttempt
	assert.Zero(t, st.LoginAttempts)
	assert.Nil(t, st.LockoutDate)
}

// =============================================================================
// ONBOARDING
// =============================================================================

func TestOnboarding_CompleteRequiresPIN(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	var buf bytes.Buffer

	err := HandleOnboarding(ctx, env, Args{Subcommand: "complete"}, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pin set")

	require.NoError(t, HandlePIN(ctx, env, Args{}, &scriptedPrompter{answers: []string{"123456", "123456"}}, &buf))
	require.NoError(t, HandleOnboarding(ctx, env, Args{Subcommand: "complete"}, &buf))
	assert.True(t, env.Store.State().Onboarding.DidCompleteOnboarding)

	buf.Reset()
	require.NoError(t, HandleStatus(ctx, env, Args{JSON: true}, &buf))
	var report StatusReport
	decodeData(t, &buf, &report)
	assert.Equal(t, "authenticating", report.Stage)

	err = HandleOnboarding(ctx, env, Args{Subcommand: "reset"}, &buf)
	assert.ErrorIs(t, err, ErrNotConfirmed)
	require.NoError(t, HandleOnboarding(ctx, env, Args{Subcommand: "reset", Confirm: true}, &buf))
	assert.False(t, env.Store.State().Onboarding.DidCompleteOnboarding)
}

// =============================================================================
// CONNECTIONS AND PROOFS
// =============================================================================

func TestConnectionsAndProofs(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	var buf bytes.Buffer
	require.NoError(t, HandleConnections(ctx, env, Args{Subcommand: "add", Label: "Faber College", JSON: true}, &buf))
	var conn relationship.Connection
	decodeData(t, &buf, &conn)
	assert.Equal(t, relationship.ConnectionCompleted, conn.State)

	err := HandleConnections(ctx, env, Args{Subcommand: "add"}, &buf)
	assert.Equal(t, ExitUsageError, ExitCode(err))
	err = HandleConnections(ctx, env, Args{Subcommand: "add", Label: "x", State: "pending"}, &buf)
	assert.Equal(t, ExitUsageError, ExitCode(err))

	buf.Reset()
	require.NoError(t, HandleProofs(ctx, env, Args{
		Subcommand: "add", Connection: conn.ID, State: string(relationship.ProofDeclined), DeleteAfterSeen: true,
	}, &buf))
	require.NoError(t, HandleProofs(ctx, env, Args{Subcommand: "add", Connection: conn.ID}, &buf))

	err = HandleProofs(ctx, env, Args{Subcommand: "add", Connection: "missing"}, &buf)
	assert.Equal(t, ExitNotFound, ExitCode(err))
	err = HandleProofs(ctx, env, Args{Subcommand: "add", Connection: conn.ID, State: "lost"}, &buf)
	assert.Equal(t, ExitUsageError, ExitCode(err))

	buf.Reset()
	require.NoError(t, HandleProofs(ctx, env, Args{Subcommand: "list", State: string(relationship.ProofDeclined), JSON: true}, &buf))
	var proofs []relationship.ProofRequest
	decodeData(t, &buf, &proofs)
	require.Len(t, proofs, 1)
	assert.True(t, proofs[0].DeleteConnectionAfterSeen)

	buf.Reset()
	require.NoError(t, HandleConnections(ctx, env, Args{Subcommand: "list"}, &buf))
	assert.Contains(t, buf.String(), "Faber College")
	assert.Contains(t, buf.String(), "1 request(s)")
}

func TestConnections_EmptyJSONIsArray(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	require.NoError(t, HandleConnections(context.Background(), env, Args{JSON: true}, &buf))
	assert.Contains(t, buf.String(), `"data": []`)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_InitPathValidate(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.HomeEnvVar, dir)
	cfg := config.Default()

	var buf bytes.Buffer
	require.NoError(t, HandleConfig(cfg, Args{Subcommand: "init", Format: "toml"}, &buf))
	_, err := os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)

	err = HandleConfig(cfg, Args{Subcommand: "init", Format: "toml"}, &buf)
	assert.Equal(t, ExitUsageError, ExitCode(err))
	require.NoError(t, HandleConfig(cfg, Args{Subcommand: "init", Format: "toml", Confirm: true}, &buf))

	err = HandleConfig(cfg, Args{Subcommand: "init", Format: "yaml"}, &buf)
	assert.Equal(t, ExitUsageError, ExitCode(err))

	buf.Reset()
	require.NoError(t, HandleConfig(cfg, Args{Subcommand: "path", JSON: true}, &buf))
	var paths ConfigPaths
	decodeData(t, &buf, &paths)
	assert.Equal(t, filepath.Join(dir, "config.toml"), paths.TOML)

	require.NoError(t, HandleConfig(cfg, Args{Subcommand: "validate"}, &buf))
	bad := cfg.Clone()
	bad.Security.PINLength = 2
	err = HandleConfig(bad, Args{Subcommand: "validate"}, &buf)
	assert.Equal(t, ExitConfigError, ExitCode(err))
}
