// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/walletgate/internal/events"
	"github.com/jeranaias/walletgate/internal/gate"
	"github.com/jeranaias/walletgate/internal/lockout"
	"github.com/jeranaias/walletgate/internal/pinentry"
	"github.com/jeranaias/walletgate/internal/relationship"
	"github.com/jeranaias/walletgate/internal/secret"
	"github.com/jeranaias/walletgate/internal/store"
	"github.com/jeranaias/walletgate/internal/ui/pin"
	"github.com/jeranaias/walletgate/internal/ui/styles"
)

// =============================================================================
// FAKES
// =============================================================================

type memSecrets struct {
	mu  sync.Mutex
	pin string
}

func (s *memSecrets) SetSecret(ctx context.Context, value string) error {
	if err := secret.ValidatePIN(value, 6); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pin = value
	return nil
}

func (s *memSecrets) CheckSecret(ctx context.Context, candidate string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pin == "" {
		return false, secret.ErrSecretAbsent
	}
	return candidate == s.pin, nil
}

func (s *memSecrets) GetSecret(ctx context.Context) (*secret.Secret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pin == "" {
		return nil, nil
	}
	return &secret.Secret{}, nil
}

type fakeBiometry struct {
	available bool
	err       error
}

func (f *fakeBiometry) Available(context.Context) bool { return f.available }
func (f *fakeBiometry) Unlock(context.Context) error   { return f.err }

type fakeRelationships struct {
	conns  []relationship.Connection
	proofs []relationship.ProofRequest
}

func (f *fakeRelationships) ListConnections(context.Context) ([]relationship.Connection, error) {
	return f.conns, nil
}

func (f *fakeRelationships) ListProofRequests(_ context.Context, states ...relationship.ProofState) ([]relationship.ProofRequest, error) {
	var out []relationship.ProofRequest
	for _, p := range f.proofs {
		for _, s := range states {
			if p.State == s {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// =============================================================================
// HARNESS
// =============================================================================

// harness drives the model the way the program would: messages published by
// the bridge during a command are delivered before the command's result.
type harness struct {
	t       *testing.T
	m       Model
	st      *store.Store
	bus     *events.Bus
	gate    *gate.Gate
	ctl     *pinentry.Controller
	secrets *memSecrets
	bio     *fakeBiometry

	mu    sync.Mutex
	inbox []tea.Msg
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	snapshot *store.Snapshot
	pin      string
	policy   lockout.Policy
	rel      *fakeRelationships
}

func returningUser(pinValue string) harnessOption {
	return func(c *harnessConfig) {
		c.pin = pinValue
		c.snapshot = &store.Snapshot{
			Version: store.SnapshotVersion,
			Onboarding: store.Onboarding{
				DidCreatePIN:          true,
				DidConsiderBiometry:   true,
				DidCompleteOnboarding: true,
			},
		}
	}
}

func withPolicy(p lockout.Policy) harnessOption {
	return func(c *harnessConfig) { c.policy = p }
}

func withRelationships(r *fakeRelationships) harnessOption {
	return func(c *harnessConfig) { c.rel = r }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{policy: lockout.DefaultPolicy(), rel: &fakeRelationships{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	persister := &store.MemoryPersister{}
	if cfg.snapshot != nil {
		require.NoError(t, persister.Save(ctx, *cfg.snapshot))
	}
	bus := events.NewBus()
	st := store.New(store.WithPersister(persister), store.WithBus(bus))
	secrets := &memSecrets{pin: cfg.pin}
	bio := &fakeBiometry{}
	ctl := pinentry.New(st, secrets, cfg.policy, bus,
		pinentry.WithBiometry(bio),
		pinentry.WithPromptInterval(0))
	t.Cleanup(ctl.Close)
	g := gate.New(st, bus)
	t.Cleanup(g.Close)

	h := &harness{t: t, st: st, bus: bus, gate: g, ctl: ctl, secrets: secrets, bio: bio}
	deps := Deps{
		Store:         st,
		Bus:           bus,
		Gate:          g,
		PIN:           ctl,
		Secrets:       secrets,
		PINLength:     6,
		Biometry:      bio,
		Relationships: cfg.rel,
		Theme:         styles.ModeDark,
	}
	h.m = New(ctx, deps, nil)

	h.update(tea.WindowSizeMsg{Width: 120, Height: 40})

	subs := Bridge(h.m.deps, h.send)
	t.Cleanup(func() {
		for _, s := range subs {
			s.Close()
		}
	})

	h.run(h.m.mountCmd())
	return h
}

func (h *harness) send(msg tea.Msg) {
	h.mu.Lock()
	h.inbox = append(h.inbox, msg)
	h.mu.Unlock()
}

func (h *harness) update(msg tea.Msg) tea.Cmd {
	model, cmd := h.m.Update(msg)
	h.m = model.(Model)
	return cmd
}

func (h *harness) drain() {
	for {
		h.mu.Lock()
		if len(h.inbox) == 0 {
			h.mu.Unlock()
			return
		}
		msg := h.inbox[0]
		h.inbox = h.inbox[1:]
		h.mu.Unlock()
		h.update(msg)
	}
}

// run executes cmd synchronously and delivers everything it produced.
func (h *harness) run(cmd tea.Cmd) {
	h.t.Helper()
	require.NotNil(h.t, cmd)
	msg := cmd()
	h.drain()
	if msg != nil {
		h.update(msg)
	}
	h.drain()
}

func (h *harness) typeDigits(s string) {
	h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) press(k tea.KeyType) tea.Cmd {
	return h.update(tea.KeyMsg{Type: k})
}

func (h *harness) pressRune(r rune) tea.Cmd {
	return h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

// submit types value, presses enter and runs the verification.
func (h *harness) submit(value string) {
	h.t.Helper()
	h.typeDigits(value)
	require.NotNil(h.t, h.press(tea.KeyEnter))
	require.True(h.t, h.m.pin.Busy())
	h.run(h.m.verifyCmd(value))
}

// =============================================================================
// ONBOARDING
// =============================================================================

func TestOnboardingFlow(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, ScreenCreatePIN, h.m.Screen())
	assert.Equal(t, gate.StageOnboarding, h.gate.Stage())

	// Too short.
	h.typeDigits("123")
	assert.Nil(t, h.press(tea.KeyEnter))
	_, msg := h.m.pin.Message()
	assert.Contains(t, msg, "6 digits")
	h.typeDigits("456")
	h.press(tea.KeyEnter)
	require.Equal(t, ScreenConfirmPIN, h.m.Screen())

	// Mismatch restarts creation.
	h.typeDigits("654321")
	h.press(tea.KeyEnter)
	require.Equal(t, ScreenCreatePIN, h.m.Screen())
	_, msg = h.m.pin.Message()
	assert.Contains(t, msg, "do not match")

	h.typeDigits("123456")
	h.press(tea.KeyEnter)
	h.typeDigits("123456")
	require.NotNil(t, h.press(tea.KeyEnter))
	h.run(h.m.createPINCmd("123456"))

	assert.Equal(t, "123456", h.secrets.pin)
	state := h.st.State()
	assert.True(t, state.Onboarding.DidCreatePIN)
	assert.True(t, state.Authentication.DidAuthenticate)
	require.Equal(t, ScreenConsiderBiometry, h.m.Screen())
	assert.False(t, h.m.pin.Busy())
	assert.Equal(t, gate.StageOnboarding, h.gate.Stage(), "authenticated early, still onboarding")

	// No biometry on this device: enter continues.
	assert.Contains(t, h.m.View(), "not available")
	h.run(h.press(tea.KeyEnter))
	assert.True(t, h.st.State().Onboarding.DidConsiderBiometry)
	assert.False(t, h.st.State().Preferences.UseBiometry)
	require.Equal(t, ScreenFinishOnboarding, h.m.Screen())

	h.run(h.press(tea.KeyEnter))
	assert.True(t, h.st.State().Onboarding.DidCompleteOnboarding)
	assert.Equal(t, gate.StageAuthenticated, h.gate.Stage())
	assert.Equal(t, ScreenMain, h.m.Screen())
}

func TestOnboarding_EnableBiometry(t *testing.T) {
	h := newHarness(t)
	h.bio.available = true
	h.run(h.m.createPINCmd("111111"))
	require.Equal(t, ScreenConsiderBiometry, h.m.Screen())

	assert.Nil(t, h.press(tea.KeyEnter), "enter does not choose when biometry is available")
	h.run(h.pressRune('y'))
	assert.True(t, h.st.State().Preferences.UseBiometry)
	assert.Equal(t, ScreenFinishOnboarding, h.m.Screen())
}

// =============================================================================
// UNLOCK
// =============================================================================

func TestUnlock_ReturningUser(t *testing.T) {
	rel := &fakeRelationships{
		conns: []relationship.Connection{
			{ID: "c1", Label: "Faber College", State: relationship.ConnectionCompleted},
			{ID: "c2", Label: "ACME", State: relationship.ConnectionCompleted},
		},
		proofs: []relationship.ProofRequest{
			{ID: "p1", ConnectionID: "c1", State: relationship.ProofRequestReceived},
		},
	}
	h := newHarness(t, returningUser("246810"), withRelationships(rel))
	require.Equal(t, ScreenUnlock, h.m.Screen())
	assert.Equal(t, gate.StageAuthenticating, h.gate.Stage())
	assert.Contains(t, h.m.View(), "Enter your PIN")

	h.submit("000000")
	assert.Equal(t, ScreenUnlock, h.m.Screen())
	kind, msg := h.m.pin.Message()
	assert.Equal(t, pin.MessageWarning, kind)
	assert.Contains(t, msg, "4 tries remaining")
	assert.Equal(t, 1, h.st.State().LoginAttempt.LoginAttempts)

	h.submit("246810")
	require.Equal(t, ScreenMain, h.m.Screen())
	assert.Equal(t, 0, h.st.State().LoginAttempt.LoginAttempts)

	h.run(h.m.loadRelationsCmd())
	require.Len(t, h.m.rows, 2)
	assert.Equal(t, 1, h.m.pending)
	assert.Contains(t, h.m.View(), "Faber College")

	h.press(tea.KeyDown)
	assert.Equal(t, 1, h.m.selected)
	h.press(tea.KeyDown)
	assert.Equal(t, 1, h.m.selected)
	h.press(tea.KeyUp)
	assert.Equal(t, 0, h.m.selected)

	h.run(h.press(tea.KeyCtrlL))
	assert.Equal(t, ScreenUnlock, h.m.Screen())
	assert.Equal(t, gate.StageAuthenticating, h.gate.Stage())
}

func TestUnlock_WarningAndLockout(t *testing.T) {
	policy := lockout.Policy{
		BaseRules: map[int]time.Duration{2: time.Hour},
		ThresholdRules: lockout.ThresholdRules{
			Threshold:                10,
			Increment:                2,
			ThresholdPenaltyDuration: time.Hour,
		},
	}
	h := newHarness(t, returningUser("246810"), withPolicy(policy))

	h.submit("000000")
	kind, msg := h.m.pin.Message()
	assert.Equal(t, pin.MessageWarning, kind)
	assert.Contains(t, msg, "last try")

	h.submit("000000")
	assert.True(t, h.m.pin.Locked())
	assert.Contains(t, h.m.View(), "Too many incorrect attempts")

	// Input and submission are refused while locked.
	h.typeDigits("246810")
	assert.Empty(t, h.m.pin.Value())
	assert.Nil(t, h.press(tea.KeyEnter))
	assert.False(t, h.st.State().Authentication.DidAuthenticate)
}

func TestUnlock_PenaltyServedNotice(t *testing.T) {
	h := newHarness(t, returningUser("246810"))
	served := true
	past := time.Now().Add(-time.Minute)
	h.run(func() tea.Msg {
		h.st.Dispatch(
			store.AttemptUpdated{State: lockout.LoginAttemptState{LoginAttempts: 5, LockoutDate: &past, ServedPenalty: &served}},
			store.LockoutNotificationUpdated{Display: true},
		)
		return nil
	})

	assert.False(t, h.m.pin.Locked())
	assert.Contains(t, h.m.View(), "try entering your PIN again")

	h.submit("246810")
	assert.Equal(t, ScreenMain, h.m.Screen())
	assert.False(t, h.st.State().Lockout.DisplayNotification)
}

func TestUnlock_Biometry(t *testing.T) {
	h := newHarness(t, returningUser("246810"))
	h.bio.available = true
	h.run(func() tea.Msg {
		h.st.Dispatch(store.BiometryPreferenceUpdated{Enabled: true})
		return nil
	})
	require.True(t, h.m.biometryAvailable)
	assert.Contains(t, h.m.View(), "biometrics")

	cmd := h.update(tea.KeyMsg{Type: tea.KeyCtrlB})
	require.NotNil(t, cmd)
	h.run(cmd)
	assert.Equal(t, ScreenMain, h.m.Screen())
}

func TestUnlock_MissingSecretShowsNumberedError(t *testing.T) {
	h := newHarness(t, returningUser(""))

	h.submit("123456")
	assert.Equal(t, ScreenUnlock, h.m.Screen())
	assert.Equal(t, 0, h.st.State().LoginAttempt.LoginAttempts)
	toasts := h.m.toasts.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, events.CodeSecretAbsent, toasts[0].Code)
	_, msg := h.m.pin.Message()
	assert.Contains(t, msg, "Unable to verify")
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func TestStateLoadFailureIsReported(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus()
	st := store.New(store.WithPersister(&store.MemoryPersister{LoadErr: assert.AnError}), store.WithBus(bus))
	g := gate.New(st, bus)
	defer g.Close()
	ctl := pinentry.New(st, &memSecrets{}, lockout.DefaultPolicy(), bus)
	defer ctl.Close()

	m := New(ctx, Deps{Store: st, Bus: bus, Gate: g, PIN: ctl, Secrets: &memSecrets{}}, nil)
	var inbox []tea.Msg
	subs := Bridge(m.deps, func(msg tea.Msg) { inbox = append(inbox, msg) })
	defer func() {
		for _, s := range subs {
			s.Close()
		}
	}()

	inbox = append(inbox, m.mountCmd()())
	var model tea.Model = m
	for _, msg := range inbox {
		model, _ = model.Update(msg)
	}
	m = model.(Model)

	assert.Equal(t, ScreenCreatePIN, m.Screen(), "continues with defaults")
	toasts := m.toasts.Toasts()
	require.NotEmpty(t, toasts)
	assert.Equal(t, events.CodeStateLoadFailed, toasts[0].Code)
}

func TestAutoLockOverlay(t *testing.T) {
	h := newHarness(t, returningUser("246810"))
	h.submit("246810")
	require.Equal(t, ScreenMain, h.m.Screen())

	h.update(AutoLockWarningMsg{Remaining: 30 * time.Second})
	assert.Contains(t, h.m.View(), "Wallet will lock soon")

	// Any key dismisses the warning without acting on the screen.
	h.press(tea.KeyCtrlL)
	assert.NotContains(t, h.m.View(), "Wallet will lock soon")
	assert.Equal(t, ScreenMain, h.m.Screen())

	h.run(func() tea.Msg {
		h.st.Dispatch(store.DidAuthenticate{Value: false})
		return AutoLockedMsg{}
	})
	assert.Equal(t, ScreenUnlock, h.m.Screen())
	assert.Contains(t, h.m.View(), "locked after inactivity")
}

func TestBiometryFailureBanner(t *testing.T) {
	h := newHarness(t, returningUser("246810"))
	h.bus.Biometry.Publish(events.BiometryErrorEvent{Failed: true})
	h.drain()
	assert.Contains(t, h.m.View(), "Biometric unlock failed")

	h.bus.Biometry.Publish(events.BiometryErrorEvent{Failed: false})
	h.drain()
	assert.False(t, h.m.biometryFailed)
}

func TestQuitAndHelpKeys(t *testing.T) {
	h := newHarness(t, returningUser("246810"))

	cmd := h.press(tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	assert.False(t, h.m.help.ShowAll)
	h.pressRune('?')
	assert.True(t, h.m.help.ShowAll)
}
