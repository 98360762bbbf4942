// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pin provides the masked PIN field used by the onboarding and
// unlock screens.
//
// The field accepts digits only, up to the configured length. It shows a
// spinner while the owning screen verifies the PIN and is disabled while a
// lockout penalty runs. Submission is left to the owner, which reads Value
// when the user presses enter.
package pin

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/walletgate/internal/ui/styles"
)

// MessageKind selects how the inline message is styled.
type MessageKind int

const (
	MessageNone MessageKind = iota
	MessageError
	MessageWarning
	MessageInfo
)

// Model is the PIN field.
type Model struct {
	theme   *styles.Theme
	input   textinput.Model
	spinner spinner.Model
	length  int
	label   string

	busy   bool
	locked bool

	message     string
	messageKind MessageKind
}

// New creates a focused field for PINs of length digits.
func New(theme *styles.Theme, length int) Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = strings.Repeat("-", length)
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.CharLimit = length
	ti.Width = length + 1
	ti.Focus()

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(theme.Spinner),
	)

	return Model{
		theme:   theme,
		input:   ti,
		spinner: sp,
		length:  length,
		label:   "Enter PIN",
	}
}

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key input and spinner ticks. Keys are ignored while busy
// or locked; non-digit runes are dropped.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.busy || m.locked {
			return m, nil
		}
		if msg.Type == tea.KeyRunes {
			digits := msg.Runes[:0:0]
			for _, r := range msg.Runes {
				if unicode.IsDigit(r) {
					digits = append(digits, r)
				}
			}
			if len(digits) == 0 {
				return m, nil
			}
			msg.Runes = digits
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Value returns the entered PIN.
func (m Model) Value() string {
	return m.input.Value()
}

// Complete reports whether the full PIN length has been entered.
func (m Model) Complete() bool {
	return len([]rune(m.input.Value())) == m.length
}

// Length returns the required PIN length.
func (m Model) Length() int {
	return m.length
}

// SetLabel sets the text above the field.
func (m *Model) SetLabel(label string) {
	m.label = label
}

// Reset clears the entered digits. The message is kept.
func (m *Model) Reset() {
	m.input.Reset()
}

// SetBusy toggles the verifying state and returns the spinner tick when
// turning it on.
func (m *Model) SetBusy(busy bool) tea.Cmd {
	m.busy = busy
	if busy {
		m.input.Blur()
		return m.spinner.Tick
	}
	return m.input.Focus()
}

// Busy reports whether a verification is running.
func (m Model) Busy() bool {
	return m.busy
}

// SetLocked disables input during a lockout penalty.
func (m *Model) SetLocked(locked bool) {
	if locked == m.locked {
		return
	}
	m.locked = locked
	if locked {
		m.input.Reset()
		m.input.Blur()
	} else {
		m.input.Focus()
	}
}

// Locked reports whether input is disabled.
func (m Model) Locked() bool {
	return m.locked
}

// SetMessage sets the inline message under the field.
func (m *Model) SetMessage(kind MessageKind, text string) {
	m.messageKind = kind
	m.message = text
	if text == "" {
		m.messageKind = MessageNone
	}
}

// ClearMessage removes the inline message.
func (m *Model) ClearMessage() {
	m.SetMessage(MessageNone, "")
}

// Message returns the inline message.
func (m Model) Message() (MessageKind, string) {
	return m.messageKind, m.message
}

// View renders the label, the boxed field and the inline message.
func (m Model) View() string {
	box := m.theme.PINBoxFocused
	switch {
	case m.locked:
		box = m.theme.PINBoxLocked
	case m.busy:
		box = m.theme.PINBox
	}

	field := m.input.View()
	if m.locked {
		field = strings.Repeat(" ", m.length+1)
	}
	row := box.Render(field)
	if m.busy {
		row = lipgloss.JoinHorizontal(lipgloss.Center, row, " ", m.spinner.View(), " Verifying")
	}

	parts := []string{m.theme.Title.Render(m.label), row}
	if m.message != "" {
		parts = append(parts, m.renderMessage())
	} else if !m.locked && !m.busy {
		parts = append(parts, m.theme.Subtle.Render(fmt.Sprintf("%d digits", m.length)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderMessage() string {
	switch m.messageKind {
	case MessageError:
		return m.theme.InlineError.Render(styles.StatusIndicators.Error + " " + m.message)
	case MessageWarning:
		return m.theme.InlineWarning.Render(styles.StatusIndicators.Warning + " " + m.message)
	default:
		return m.theme.Subtle.Render(m.message)
	}
}
