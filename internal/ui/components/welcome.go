// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// welcomeMarkdown is the onboarding introduction.
const welcomeMarkdown = `# Welcome to walletgate

Your wallet keeps **credentials** and the **connections** you make with
issuers and verifiers.

Before you start you will:

1. Create a PIN to protect the wallet
2. Choose whether to unlock with biometrics

Wrong PIN entries are counted. After several in a row, PIN entry pauses for
a while before you can try again.
`

// MarkdownRenderer renders onboarding copy. It falls back to plain text if
// the terminal renderer cannot be built.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer builds a renderer for a "dark", "light" or "auto"
// theme wrapped at width columns.
func NewMarkdownRenderer(theme string, width int) *MarkdownRenderer {
	if width < 20 {
		width = 20
	}
	style := glamour.WithStandardStyle(theme)
	if theme == "auto" {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return &MarkdownRenderer{}
	}
	return &MarkdownRenderer{renderer: r}
}

// Render renders markdown, returning the input on failure.
func (m *MarkdownRenderer) Render(content string) string {
	if m == nil || m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

// Welcome renders the onboarding introduction.
func (m *MarkdownRenderer) Welcome() string {
	return m.Render(welcomeMarkdown)
}
