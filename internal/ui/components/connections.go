// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/walletgate/internal/relationship"
	"github.com/jeranaias/walletgate/internal/ui/styles"
)

// ConnectionRow is one line of the connection list.
type ConnectionRow struct {
	Connection    relationship.Connection
	PendingProofs int
}

// BuildConnectionRows pairs connections with their open proof requests.
func BuildConnectionRows(conns []relationship.Connection, proofs []relationship.ProofRequest) []ConnectionRow {
	pending := make(map[string]int)
	for _, p := range proofs {
		if p.State == relationship.ProofRequestReceived {
			pending[p.ConnectionID]++
		}
	}
	rows := make([]ConnectionRow, 0, len(conns))
	for _, c := range conns {
		rows = append(rows, ConnectionRow{Connection: c, PendingProofs: pending[c.ID]})
	}
	return rows
}

// RenderConnectionList renders rows with the selected row highlighted.
// Labels are truncated by display width so wide characters line up.
func RenderConnectionList(theme *styles.Theme, rows []ConnectionRow, selected, width int) string {
	if len(rows) == 0 {
		return theme.Subtle.Render("No connections yet. Add one with: walletgate connections add --label NAME")
	}

	labelWidth := width - 24
	if labelWidth < 12 {
		labelWidth = 12
	}

	var b strings.Builder
	b.WriteString(theme.ListHeader.Render(fmt.Sprintf("  %s  %s", padRight("Connection", labelWidth), "Status")))
	b.WriteString("\n")

	for i, row := range rows {
		label := padRight(runewidth.Truncate(row.Connection.Label, labelWidth, "..."), labelWidth)

		var status string
		if row.Connection.State == relationship.ConnectionCompleted {
			status = theme.BadgeDone.Render(styles.StatusIndicators.Success)
		} else {
			status = theme.Badge.Render(string(row.Connection.State))
		}
		if row.PendingProofs > 0 {
			status += theme.Badge.Render(fmt.Sprintf(" %d request(s)", row.PendingProofs))
		}

		line := label + "  " + status
		if i == selected {
			b.WriteString(theme.ListItemSelected.Render(line))
		} else {
			b.WriteString(theme.ListItem.Render(line))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// summaryStyle is reused by RenderSummary.
var summaryStyle = lipgloss.NewStyle().Foreground(styles.TextSecondary)

// RenderSummary renders the one-line wallet summary on the main screen.
func RenderSummary(connections, pendingProofs int) string {
	return summaryStyle.Render(fmt.Sprintf("%d connection(s), %d open proof request(s)", connections, pendingProofs))
}
