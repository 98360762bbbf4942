// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/walletgate/internal/ui/components"
	"github.com/jeranaias/walletgate/internal/ui/styles"
)

// View renders the current screen.
func (m Model) View() string {
	now := m.deps.Now()
	if m.overlay.IsVisible() {
		return m.overlay.View(now)
	}

	width := m.theme.ContentWidth()
	screen := m.Screen()

	var body string
	switch screen {
	case ScreenLoading:
		body = m.theme.Subtle.Render("Loading wallet...")
	case ScreenCreatePIN, ScreenConfirmPIN:
		body = m.viewCreatePIN(screen)
	case ScreenConsiderBiometry:
		body = m.viewConsiderBiometry()
	case ScreenFinishOnboarding:
		body = m.viewFinishOnboarding()
	case ScreenUnlock:
		body = m.viewUnlock(width)
	case ScreenMain:
		body = m.viewMain(width)
	}

	parts := []string{m.viewHeader(screen), "", body}
	if toasts := m.toasts.Toasts(); len(toasts) > 0 {
		parts = append(parts, "", components.RenderToastStack(toasts, m.width))
	}
	parts = append(parts, m.theme.StatusBar.Render(m.help.View(m.keys.helpFor(screen, m.biometryAvailable))))

	return m.theme.App.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) viewHeader(screen Screen) string {
	h := components.NewHeader(m.theme)
	if m.width > 0 {
		h.SetWidth(m.width - 4)
	}

	switch screen {
	case ScreenMain:
		h.SetState(components.LockStateUnlocked)
	case ScreenUnlock:
		if _, locked := m.lockedUntil(); locked {
			h.SetState(components.LockStateLockedOut)
		} else {
			h.SetState(components.LockStateLocked)
		}
	case ScreenLoading:
		h.SetState(components.LockStateLoading)
	default:
		h.SetState(components.LockStateSetup)
	}
	return h.View()
}

func (m Model) viewCreatePIN(screen Screen) string {
	var b strings.Builder
	if screen == ScreenCreatePIN {
		b.WriteString(m.welcome)
		b.WriteString("\n\n")
	} else {
		b.WriteString(m.theme.Subtle.Render("Enter the same PIN again."))
		b.WriteString("\n\n")
	}
	b.WriteString(m.pin.View())
	return b.String()
}

func (m Model) viewConsiderBiometry() string {
	title := m.theme.Title.Render("Biometric unlock")
	if !m.deps.Biometry.Available(m.ctx) {
		return lipgloss.JoinVertical(lipgloss.Left, title, "",
			"Biometric unlock is not available on this device.",
			m.theme.Subtle.Render("Press enter to continue with your PIN only."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, "",
		"Unlock your wallet with biometrics instead of typing your PIN?",
		m.theme.Subtle.Render("You can still use your PIN at any time."))
}

func (m Model) viewFinishOnboarding() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render("You're all set"),
		"",
		"Your PIN is saved. Press enter to open your wallet.")
}

func (m Model) viewUnlock(width int) string {
	var parts []string

	if until, locked := m.lockedUntil(); locked {
		parts = append(parts, components.RenderLockoutBanner(until, m.deps.Now(), width), "")
	} else if m.state.Lockout.DisplayNotification {
		parts = append(parts, components.RenderPenaltyServedNotice(width), "")
	}

	parts = append(parts, m.pin.View())

	if m.biometryFailed {
		parts = append(parts, "", styles.RenderWarning("Biometric unlock failed. Enter your PIN."))
	} else if m.biometryAvailable {
		parts = append(parts, "", m.theme.Subtle.Render("Press C-b to unlock with biometrics"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewMain(width int) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render("Connections"),
		components.RenderSummary(len(m.rows), m.pending),
		"",
		components.RenderConnectionList(m.theme, m.rows, m.selected, width))
}
