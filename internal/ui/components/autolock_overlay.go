// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/walletgate/internal/lockout"
	"github.com/jeranaias/walletgate/internal/ui/styles"
)

// =============================================================================
// AUTO-LOCK WARNING OVERLAY
// =============================================================================

// AutoLockOverlay warns that the wallet is about to lock from inactivity.
type AutoLockOverlay struct {
	visible  bool
	deadline time.Time

	width  int
	height int
}

// NewAutoLockOverlay creates a hidden overlay.
func NewAutoLockOverlay() AutoLockOverlay {
	return AutoLockOverlay{}
}

// SetSize sets the overlay dimensions.
func (o *AutoLockOverlay) SetSize(width, height int) {
	o.width = width
	o.height = height
}

// Show displays the overlay counting down to now+remaining.
func (o *AutoLockOverlay) Show(now time.Time, remaining time.Duration) {
	o.visible = true
	o.deadline = now.Add(remaining)
}

// Hide hides the overlay.
func (o *AutoLockOverlay) Hide() {
	o.visible = false
}

// IsVisible returns whether the overlay is shown.
func (o AutoLockOverlay) IsVisible() bool {
	return o.visible
}

// Remaining returns the time left at now.
func (o AutoLockOverlay) Remaining(now time.Time) time.Duration {
	if d := o.deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// View renders the overlay centered on the screen, or "" when hidden.
func (o AutoLockOverlay) View(now time.Time) string {
	if !o.visible {
		return ""
	}

	width, height := o.width, o.height
	if width == 0 {
		width = 60
	}
	if height == 0 {
		height = 20
	}
	maxWidth := width - 8
	if maxWidth < 36 {
		maxWidth = 36
	}
	if maxWidth > 56 {
		maxWidth = 56
	}

	title := lipgloss.NewStyle().
		Foreground(styles.Amber).
		Bold(true).
		Render(styles.StatusIndicators.Warning + " Wallet will lock soon")

	countdown := lipgloss.NewStyle().
		Foreground(styles.Amber).
		Bold(true).
		Render(lockout.FormatRemaining(o.Remaining(now)))

	msg := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(maxWidth - 8).
		Align(lipgloss.Center).
		Render("Locking in " + countdown)

	hint := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Italic(true).
		Render("Press any key to stay unlocked")

	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(styles.Amber).
		Padding(1, 3).
		Width(maxWidth).
		Align(lipgloss.Center).
		Render(lipgloss.JoinVertical(lipgloss.Center, title, "", msg, "", hint))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim))
}
