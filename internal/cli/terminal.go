// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - TTY detection, color control and PIN prompts.
package cli

import (
	"errors"
	"os"
	"sync"

	"github.com/muesli/termenv"
	"github.com/peterh/liner"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY returns true if stdin is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

var (
	colorsEnabled     bool
	colorsEnabledOnce sync.Once
)

// ColorsEnabled reports whether colored output should be used. NO_COLOR wins
// over FORCE_COLOR, which wins over TTY detection.
func ColorsEnabled() bool {
	colorsEnabledOnce.Do(func() {
		switch {
		case os.Getenv("NO_COLOR") != "":
			colorsEnabled = false
		case os.Getenv("FORCE_COLOR") != "":
			colorsEnabled = true
		default:
			colorsEnabled = IsStdoutTTY()
		}
	})
	return colorsEnabled
}

// GetColorProfile returns the termenv profile for CLI output.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// =============================================================================
// PIN PROMPT
// =============================================================================

// ErrPromptAborted is returned when the user cancels a prompt.
var ErrPromptAborted = errors.New("prompt aborted")

// ErrNotInteractive is returned when a prompt is needed but stdin is not a
// terminal.
var ErrNotInteractive = &UsageError{Message: "this command needs an interactive terminal"}

// Prompter reads a secret without echo.
type Prompter interface {
	PromptSecret(label string) (string, error)
}

// TerminalPrompter prompts on the controlling terminal.
type TerminalPrompter struct{}

// PromptSecret reads one line without echo. Ctrl+C aborts.
func (TerminalPrompter) PromptSecret(label string) (string, error) {
	if !IsTTY() {
		return "", ErrNotInteractive
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	value, err := line.PasswordPrompt(label)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", ErrPromptAborted
	}
	return value, err
}
