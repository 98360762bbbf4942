// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/walletgate/internal/ui/styles"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// LockState is the wallet state shown in the header badge.
type LockState int

const (
	LockStateLoading LockState = iota
	LockStateSetup
	LockStateLocked
	LockStateLockedOut
	LockStateUnlocked
)

// String returns the badge text for the state.
func (s LockState) String() string {
	switch s {
	case LockStateLoading:
		return "LOADING"
	case LockStateSetup:
		return "SETUP"
	case LockStateLocked:
		return "LOCKED"
	case LockStateLockedOut:
		return "LOCKED OUT"
	case LockStateUnlocked:
		return "UNLOCKED"
	default:
		return "UNKNOWN"
	}
}

// Header is the title bar.
type Header struct {
	Title string
	State LockState
	Width int
	theme *styles.Theme
}

// NewHeader creates a header in the loading state.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "walletgate",
		State: LockStateLoading,
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetState updates the lock badge.
func (h *Header) SetState(state LockState) {
	h.State = state
}

// View renders the header. Narrow terminals get the compact form.
func (h *Header) View() string {
	if h.Width < 40 {
		return h.ViewCompact()
	}

	accent := lipgloss.NewStyle().Foreground(styles.Purple)
	brand := accent.Render("< ") +
		lipgloss.NewStyle().Bold(true).Foreground(styles.Cyan).Render(h.Title) +
		accent.Render(" >")

	gap := h.Width - lipgloss.Width(brand) - lipgloss.Width(h.badge()) - 4
	if gap < 1 {
		gap = 1
	}
	line := brand + strings.Repeat(" ", gap) + h.badge()

	return h.theme.Header.Render(line)
}

// ViewCompact renders a single unbordered line.
func (h *Header) ViewCompact() string {
	brand := lipgloss.NewStyle().Bold(true).Foreground(styles.Cyan).Render(h.Title)
	sep := lipgloss.NewStyle().Foreground(styles.Overlay).Render(" | ")
	return brand + sep + h.badge()
}

func (h *Header) badge() string {
	var color lipgloss.TerminalColor = styles.TextMuted
	indicator := ""
	switch h.State {
	case LockStateUnlocked:
		color, indicator = styles.Emerald, styles.StatusIndicators.Success+" "
	case LockStateLocked:
		color, indicator = styles.Amber, styles.StatusIndicators.Locked+" "
	case LockStateLockedOut:
		color, indicator = styles.Rose, styles.StatusIndicators.Locked+" "
	case LockStateSetup:
		color = styles.Cyan
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(indicator + h.State.String())
}
