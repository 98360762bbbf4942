// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/walletgate/internal/biometry"
	"github.com/jeranaias/walletgate/internal/gate"
	"github.com/jeranaias/walletgate/internal/pinentry"
	"github.com/jeranaias/walletgate/internal/ui/components"
	"github.com/jeranaias/walletgate/internal/ui/pin"
)

// Update handles every message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.overlay.SetSize(msg.Width, msg.Height)
		m.help.Width = msg.Width
		return m, nil

	case components.TickMsg:
		m.toasts.Tick()
		m.syncLock()
		return m, components.TickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.pin, cmd = m.pin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SignalsMsg:
		return m.applySignals(msg.Signals)

	case StateMsg:
		before := m.Screen()
		m.state = msg.State
		m.refreshBiometry()
		cmd := m.screenChanged(before)
		return m, cmd

	case ErrorMsg:
		m.toasts.Add(components.ToastFromError(msg.Event))
		return m, nil

	case BiometryMsg:
		m.biometryFailed = msg.Event.Failed
		if msg.Event.Failed {
			m.toasts.AddWarning("Biometric unlock failed. Use your PIN.")
		}
		return m, nil

	case AutoLockWarningMsg:
		m.overlay.Show(m.deps.Now(), msg.Remaining)
		return m, nil

	case AutoLockedMsg:
		m.overlay.Hide()
		m.toasts.Add(components.NewToast(components.ToastKindStatus, "Wallet locked after inactivity"))
		return m, nil

	case mountedMsg:
		if msg.err != nil && !errors.Is(msg.err, gate.ErrAlreadyMounted) {
			m.deps.Logger.Error("gate mount failed", "error", msg.err)
		}
		m.mounted = true
		before := m.Screen()
		m.signals = m.deps.Gate.Signals()
		m.state = m.deps.Store.State()
		m.refreshBiometry()
		cmd := m.screenChanged(before)
		return m, cmd

	case verifyResultMsg:
		cmd := m.pin.SetBusy(false)
		return m.handleVerifyResult(msg), cmd

	case biometryResultMsg:
		return m.handleBiometryResult(msg), nil

	case pinCreatedMsg:
		cmd := m.pin.SetBusy(false)
		if msg.err != nil {
			m.confirming = false
			m.firstPIN = ""
			m.pin.SetMessage(pin.MessageError, fmt.Sprintf("Could not save PIN: %v", msg.err))
			m.pin.SetLabel(m.pinLabel())
			return m, cmd
		}
		m.confirming = false
		m.firstPIN = ""
		m.pin.ClearMessage()
		m.toasts.AddSuccess("PIN created")
		return m, cmd

	case relationsMsg:
		if msg.err != nil {
			m.deps.Logger.Warn("failed to list connections", "error", msg.err)
			m.toasts.AddError("Could not load connections")
			return m, nil
		}
		m.rows = msg.rows
		m.pending = msg.pending
		if m.selected >= len(m.rows) {
			m.selected = max(len(m.rows)-1, 0)
		}
		return m, nil

	case dispatchedMsg:
		return m, nil
	}

	var cmd tea.Cmd
	m.pin, cmd = m.pin.Update(msg)
	return m, cmd
}

// applySignals records new gate signals and reacts to a stack change.
func (m Model) applySignals(s gate.Signals) (tea.Model, tea.Cmd) {
	before := m.Screen()
	m.signals = s
	cmd := m.screenChanged(before)
	return m, cmd
}

// screenChanged resets per-screen state when the screen changes.
func (m *Model) screenChanged(before Screen) tea.Cmd {
	m.syncLock()
	after := m.Screen()
	if after == before {
		return nil
	}
	m.deps.Logger.Debug("screen changed", "from", before.String(), "to", after.String())

	m.pin.Reset()
	m.pin.SetLabel(m.pinLabel())
	if before == ScreenConfirmPIN && after != ScreenCreatePIN {
		m.pin.ClearMessage()
	}

	switch after {
	case ScreenMain:
		m.pin.ClearMessage()
		m.biometryFailed = false
		m.selected = 0
		return m.loadRelationsCmd()
	case ScreenUnlock:
		if before == ScreenMain {
			m.overlay.Hide()
		}
	}
	return nil
}

// syncLock disables the PIN field while a penalty runs.
func (m *Model) syncLock() {
	_, locked := m.lockedUntil()
	m.pin.SetLocked(locked && m.Screen() == ScreenUnlock)
}

func (m *Model) refreshBiometry() {
	m.biometryAvailable = m.deps.PIN.BiometryAvailable(m.ctx)
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.autolock != nil {
		m.autolock.Touch()
	}
	if m.overlay.IsVisible() {
		m.overlay.Hide()
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Dismiss):
		m.toasts.DismissNewest()
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	switch m.Screen() {
	case ScreenCreatePIN:
		return m.keyCreatePIN(msg)
	case ScreenConfirmPIN:
		return m.keyConfirmPIN(msg)
	case ScreenConsiderBiometry:
		return m.keyConsiderBiometry(msg)
	case ScreenFinishOnboarding:
		if key.Matches(msg, m.keys.Submit) {
			return m, m.completeOnboardingCmd()
		}
	case ScreenUnlock:
		return m.keyUnlock(msg)
	case ScreenMain:
		return m.keyMain(msg)
	}
	return m, nil
}

func (m Model) keyCreatePIN(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.Submit) {
		return m.updatePIN(msg)
	}
	if !m.pin.Complete() {
		m.pin.SetMessage(pin.MessageError, fmt.Sprintf("Enter all %d digits", m.pin.Length()))
		return m, nil
	}
	m.firstPIN = m.pin.Value()
	m.confirming = true
	m.pin.Reset()
	m.pin.ClearMessage()
	m.pin.SetLabel(m.pinLabel())
	return m, nil
}

func (m Model) keyConfirmPIN(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.Submit) {
		return m.updatePIN(msg)
	}
	if !m.pin.Complete() {
		m.pin.SetMessage(pin.MessageError, fmt.Sprintf("Enter all %d digits", m.pin.Length()))
		return m, nil
	}
	value := m.pin.Value()
	m.pin.Reset()
	if value != m.firstPIN {
		m.firstPIN = ""
		m.confirming = false
		m.pin.SetMessage(pin.MessageError, "PINs do not match. Try again.")
		m.pin.SetLabel(m.pinLabel())
		return m, nil
	}
	busy := m.pin.SetBusy(true)
	return m, tea.Batch(busy, m.createPINCmd(value))
}

func (m Model) keyConsiderBiometry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	available := m.deps.Biometry.Available(m.ctx)
	switch {
	case available && key.Matches(msg, m.keys.Yes):
		return m, m.considerBiometryCmd(true)
	case key.Matches(msg, m.keys.No), !available && key.Matches(msg, m.keys.Submit):
		return m, m.considerBiometryCmd(false)
	}
	return m, nil
}

func (m Model) keyUnlock(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Biometry):
		if !m.biometryAvailable || m.pin.Busy() || m.pin.Locked() {
			return m, nil
		}
		return m, m.biometryCmd()

	case key.Matches(msg, m.keys.Submit):
		if m.pin.Busy() || m.pin.Locked() {
			return m, nil
		}
		if !m.pin.Complete() {
			m.pin.SetMessage(pin.MessageError, fmt.Sprintf("Enter all %d digits", m.pin.Length()))
			return m, nil
		}
		value := m.pin.Value()
		m.pin.Reset()
		busy := m.pin.SetBusy(true)
		return m, tea.Batch(busy, m.verifyCmd(value))
	}
	return m.updatePIN(msg)
}

func (m Model) keyMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.rows)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadRelationsCmd()
	case key.Matches(msg, m.keys.Lock):
		return m, m.lockCmd()
	}
	return m, nil
}

func (m Model) updatePIN(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.pin, cmd = m.pin.Update(msg)
	return m, cmd
}

// =============================================================================
// RESULTS
// =============================================================================

func (m Model) handleVerifyResult(msg verifyResultMsg) Model {
	switch {
	case errors.Is(msg.err, pinentry.ErrVerificationInProgress):
		return m
	case errors.Is(msg.err, pinentry.ErrLockedOut):
		m.pin.ClearMessage()
		m.syncLock()
		return m
	case msg.err != nil:
		// The bus already carries the numbered error for the toast.
		m.pin.SetMessage(pin.MessageError, "Unable to verify your PIN right now.")
		return m
	}

	switch msg.result.Outcome {
	case pinentry.OutcomeUnlocked:
		m.pin.ClearMessage()
		m.biometryFailed = false
	case pinentry.OutcomeIncorrect:
		if msg.result.Message != "" {
			m.pin.SetMessage(pin.MessageWarning, msg.result.Message)
		} else {
			m.pin.SetMessage(pin.MessageError, "Incorrect PIN.")
		}
	case pinentry.OutcomeLockedOut:
		m.pin.ClearMessage()
	}
	m.syncLock()
	return m
}

func (m Model) handleBiometryResult(msg biometryResultMsg) Model {
	switch {
	case msg.err == nil && msg.result.Outcome == pinentry.OutcomeUnlocked:
		m.biometryFailed = false
	case msg.err == nil:
		// Cancelled: stay on the PIN field.
	case errors.Is(msg.err, pinentry.ErrBiometryThrottled), errors.Is(msg.err, pinentry.ErrLockedOut):
	case errors.Is(msg.err, biometry.ErrEnrollmentChanged):
		m.pin.SetMessage(pin.MessageWarning, msg.result.Message)
	default:
		if msg.result.Message != "" {
			m.pin.SetMessage(pin.MessageWarning, msg.result.Message)
		}
	}
	m.refreshBiometry()
	return m
}
