// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/walletgate/internal/lockout"
	"github.com/jeranaias/walletgate/internal/ui/styles"
)

// RenderLockoutBanner renders the countdown shown while a penalty runs.
func RenderLockoutBanner(until, now time.Time, width int) string {
	remaining := until.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	title := lipgloss.NewStyle().
		Foreground(styles.Rose).
		Bold(true).
		Render(styles.StatusIndicators.Locked + " Too many incorrect attempts")

	countdown := lipgloss.NewStyle().
		Foreground(styles.Amber).
		Bold(true).
		Render(lockout.FormatRemaining(remaining))

	body := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(width).
		Render("For your security, PIN entry is paused. Try again in " + countdown + ".")

	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

// RenderPenaltyServedNotice renders the notice shown after a penalty ends and
// before the next attempt.
func RenderPenaltyServedNotice(width int) string {
	return lipgloss.NewStyle().
		Foreground(styles.Emerald).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(styles.Emerald).
		PaddingLeft(1).
		Width(width).
		Render("You can try entering your PIN again.")
}
