// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the root bubbletea model of the walletgate TUI.
//
// The model renders whichever stack the authentication gate selects: the
// onboarding screens until onboarding completes, then the unlock screen, and
// the main screen once the user has authenticated. It never mutates the
// store from Update. Every dispatch happens inside a tea.Cmd, because store
// subscribers forward changes back into the program and would otherwise
// block the event loop.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/walletgate/internal/audit"
	"github.com/jeranaias/walletgate/internal/autolock"
	"github.com/jeranaias/walletgate/internal/biometry"
	"github.com/jeranaias/walletgate/internal/events"
	"github.com/jeranaias/walletgate/internal/gate"
	"github.com/jeranaias/walletgate/internal/pinentry"
	"github.com/jeranaias/walletgate/internal/relationship"
	"github.com/jeranaias/walletgate/internal/store"
	"github.com/jeranaias/walletgate/internal/ui/components"
	"github.com/jeranaias/walletgate/internal/ui/pin"
	"github.com/jeranaias/walletgate/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// PINSetter stores a new PIN.
type PINSetter interface {
	SetSecret(ctx context.Context, pin string) error
}

// RelationshipLister reads connections and proof requests for the main
// screen.
type RelationshipLister interface {
	ListConnections(ctx context.Context) ([]relationship.Connection, error)
	ListProofRequests(ctx context.Context, states ...relationship.ProofState) ([]relationship.ProofRequest, error)
}

// Deps are the collaborators the model drives.
type Deps struct {
	Store         *store.Store
	Bus           *events.Bus
	Gate          *gate.Gate
	PIN           *pinentry.Controller
	Secrets       PINSetter
	PINLength     int
	Biometry      biometry.Capability
	Relationships RelationshipLister
	Audit         *audit.Logger
	Logger        *slog.Logger
	Theme         string
	Now           func() time.Time
}

func (d *Deps) fillDefaults() {
	if d.Biometry == nil {
		d.Biometry = biometry.None{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.PINLength == 0 {
		d.PINLength = 6
	}
	if d.Theme == "" {
		d.Theme = styles.ModeDark
	}
}

// =============================================================================
// SCREENS
// =============================================================================

// Screen is the screen currently shown.
type Screen int

const (
	ScreenLoading Screen = iota
	ScreenCreatePIN
	ScreenConfirmPIN
	ScreenConsiderBiometry
	ScreenFinishOnboarding
	ScreenUnlock
	ScreenMain
)

func (s Screen) String() string {
	switch s {
	case ScreenLoading:
		return "loading"
	case ScreenCreatePIN:
		return "create_pin"
	case ScreenConfirmPIN:
		return "confirm_pin"
	case ScreenConsiderBiometry:
		return "consider_biometry"
	case ScreenFinishOnboarding:
		return "finish_onboarding"
	case ScreenUnlock:
		return "unlock"
	case ScreenMain:
		return "main"
	default:
		return "unknown"
	}
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the root model.
type Model struct {
	deps     Deps
	ctx      context.Context
	theme    *styles.Theme
	keys     KeyMap
	help     help.Model
	pin      pin.Model
	toasts   *components.ToastManager
	overlay  components.AutoLockOverlay
	welcome  string
	autolock *autolock.Manager

	signals gate.Signals
	state   store.State
	mounted bool

	firstPIN   string
	confirming bool

	biometryAvailable bool
	biometryFailed    bool

	rows     []components.ConnectionRow
	pending  int
	selected int

	width  int
	height int
}

// New creates the root model. ctx bounds every command the model starts.
// autoLock may be nil.
func New(ctx context.Context, deps Deps, autoLock *autolock.Manager) Model {
	deps.fillDefaults()
	theme := styles.NewTheme(deps.Theme)

	m := Model{
		deps:     deps,
		ctx:      ctx,
		theme:    theme,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		pin:      pin.New(theme, deps.PINLength),
		toasts:   components.NewToastManager(),
		overlay:  components.NewAutoLockOverlay(),
		welcome:  components.NewMarkdownRenderer(deps.Theme, theme.ContentWidth()).Welcome(),
		autolock: autoLock,
		signals:  deps.Gate.Signals(),
		state:    deps.Store.State(),
	}
	m.pin.SetLabel(m.pinLabel())
	return m
}

// Init mounts the gate and starts the tickers.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.pin.Init(), m.mountCmd(), components.TickCmd())
}

// Screen returns the screen to render for the current signals and state.
func (m Model) Screen() Screen {
	if gate.DecideStack(m.signals.OnboardingComplete, m.signals.DidAuthenticate) == gate.StackMain {
		return ScreenMain
	}
	if !m.state.Loaded {
		return ScreenLoading
	}
	if !m.signals.OnboardingComplete {
		ob := m.state.Onboarding
		switch {
		case !ob.DidCreatePIN && m.confirming:
			return ScreenConfirmPIN
		case !ob.DidCreatePIN:
			return ScreenCreatePIN
		case !ob.DidConsiderBiometry:
			return ScreenConsiderBiometry
		default:
			return ScreenFinishOnboarding
		}
	}
	return ScreenUnlock
}

func (m Model) pinLabel() string {
	switch m.Screen() {
	case ScreenCreatePIN:
		return "Create a PIN"
	case ScreenConfirmPIN:
		return "Confirm your PIN"
	default:
		return "Enter your PIN"
	}
}

// lockedUntil returns the end of a running penalty.
func (m Model) lockedUntil() (time.Time, bool) {
	st := m.state.LoginAttempt
	if !st.IsLockedOut(m.deps.Now()) {
		return time.Time{}, false
	}
	return *st.LockoutDate, true
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) mountCmd() tea.Cmd {
	g, ctl := m.deps.Gate, m.deps.PIN
	ctx := m.ctx
	return func() tea.Msg {
		if err := g.Mount(ctx); err != nil {
			return mountedMsg{err: err}
		}
		ctl.ResumeLockout()
		return mountedMsg{}
	}
}

func (m Model) verifyCmd(value string) tea.Cmd {
	ctl, ctx := m.deps.PIN, m.ctx
	return func() tea.Msg {
		res, err := ctl.Submit(ctx, value)
		return verifyResultMsg{result: res, err: err}
	}
}

func (m Model) biometryCmd() tea.Cmd {
	ctl, ctx := m.deps.PIN, m.ctx
	return func() tea.Msg {
		res, err := ctl.UnlockWithBiometry(ctx)
		return biometryResultMsg{result: res, err: err}
	}
}

func (m Model) createPINCmd(value string) tea.Cmd {
	d, ctx := m.deps, m.ctx
	return func() tea.Msg {
		if err := d.Secrets.SetSecret(ctx, value); err != nil {
			d.Logger.Warn("failed to store PIN", "error", err)
			return pinCreatedMsg{err: err}
		}
		d.Store.Dispatch(store.PINCreated{}, store.DidAuthenticate{Value: true})
		if err := d.Audit.LogOnboarding("pin_created"); err != nil {
			d.Logger.Warn("failed to write audit event", "error", err)
		}
		return pinCreatedMsg{}
	}
}

func (m Model) considerBiometryCmd(enable bool) tea.Cmd {
	st := m.deps.Store
	return func() tea.Msg {
		st.Dispatch(store.BiometryPreferenceUpdated{Enabled: enable}, store.BiometryConsidered{})
		return dispatchedMsg{}
	}
}

func (m Model) completeOnboardingCmd() tea.Cmd {
	d := m.deps
	return func() tea.Msg {
		d.Store.Dispatch(store.OnboardingCompleted{})
		d.Bus.Onboarding.Publish(events.OnboardingCompleteEvent{})
		if err := d.Audit.LogOnboarding("completed"); err != nil {
			d.Logger.Warn("failed to write audit event", "error", err)
		}
		return dispatchedMsg{}
	}
}

func (m Model) lockCmd() tea.Cmd {
	st := m.deps.Store
	return func() tea.Msg {
		st.Dispatch(store.DidAuthenticate{Value: false})
		return dispatchedMsg{}
	}
}

func (m Model) loadRelationsCmd() tea.Cmd {
	rel, ctx := m.deps.Relationships, m.ctx
	if rel == nil {
		return nil
	}
	return func() tea.Msg {
		conns, err := rel.ListConnections(ctx)
		if err != nil {
			return relationsMsg{err: err}
		}
		proofs, err := rel.ListProofRequests(ctx, relationship.ProofRequestReceived)
		if err != nil {
			return relationsMsg{err: err}
		}
		return relationsMsg{rows: components.BuildConnectionRows(conns, proofs), pending: len(proofs)}
	}
}
