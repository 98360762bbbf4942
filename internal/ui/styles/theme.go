// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeDark  = "dark"
	ModeLight = "light"
	ModeAuto  = "auto"
)

// Theme holds the styled components for every screen.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// Layout
	App    lipgloss.Style
	Header lipgloss.Style
	Title  lipgloss.Style
	Subtle lipgloss.Style
	Panel  lipgloss.Style

	// PIN entry
	PINBox        lipgloss.Style
	PINBoxFocused lipgloss.Style
	PINBoxLocked  lipgloss.Style
	InlineError   lipgloss.Style
	InlineWarning lipgloss.Style
	Notice        lipgloss.Style
	Spinner       lipgloss.Style
	Countdown     lipgloss.Style

	// Lists
	ListHeader       lipgloss.Style
	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style
	Badge            lipgloss.Style
	BadgeDone        lipgloss.Style

	// Footer
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme creates a theme for mode ("dark", "light" or "auto"). Auto asks
// the terminal for its background.
func NewTheme(mode string) *Theme {
	isDark := true
	switch mode {
	case ModeLight:
		isDark = false
	case ModeAuto:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle().Padding(1, 2)

	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)

	t.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Subtle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(1, 3)

	// PIN entry
	t.PINBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 2)

	t.PINBoxFocused = t.PINBox.
		BorderForeground(Purple)

	t.PINBoxLocked = t.PINBox.
		BorderForeground(Rose).
		Foreground(TextMuted)

	t.InlineError = lipgloss.NewStyle().Foreground(Rose)
	t.InlineWarning = lipgloss.NewStyle().Foreground(Amber)

	t.Notice = lipgloss.NewStyle().
		Foreground(Emerald).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Emerald).
		PaddingLeft(1)

	t.Spinner = lipgloss.NewStyle().Foreground(Purple)

	t.Countdown = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	// Lists
	t.ListHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay)

	t.ListItem = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(2)

	t.ListItemSelected = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true).
		PaddingLeft(1).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(Purple)

	t.Badge = lipgloss.NewStyle().Foreground(Amber)
	t.BadgeDone = lipgloss.NewStyle().Foreground(Emerald)

	// Footer
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextMuted).
		MarginTop(1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// SetSize records the terminal size.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// ContentWidth is the usable width inside the app padding, clamped to a
// readable range.
func (t *Theme) ContentWidth() int {
	w := t.Width - 4
	if w > 72 {
		w = 72
	}
	if w < 32 {
		w = 32
	}
	return w
}
