// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styling for CLI output.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/walletgate/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Purple).
			MarginBottom(1)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.TextPrimary).
			MarginTop(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(22)

	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(styles.Overlay)
)

// =============================================================================
// HELPERS
// =============================================================================

// RenderSeparator renders a horizontal rule.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 50
	}
	return SeparatorStyle.Render(strings.Repeat("-", width))
}

// printField writes one "label value" line.
func printField(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "  %s%s\n", LabelStyle.Render(label), ValueStyle.Render(fmt.Sprint(value)))
}

// printSuccess writes a success line with the shared indicator.
func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, SuccessStyle.Render(styles.StatusIndicators.Success+" "+fmt.Sprintf(format, args...)))
}

// printWarning writes a warning line with the shared indicator.
func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, WarningStyle.Render(styles.StatusIndicators.Warning+" "+fmt.Sprintf(format, args...)))
}

// PrintError writes an error line.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, ErrorStyle.Render(styles.StatusIndicators.Error+" Error: "+err.Error()))
}

// yesNo renders a boolean flag.
func yesNo(b bool) string {
	if b {
		return SuccessStyle.Render("yes")
	}
	return DimStyle.Render("no")
}
