// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/walletgate/internal/ui/styles"
)

func TestLockStateString(t *testing.T) {
	tests := []struct {
		state LockState
		want  string
	}{
		{LockStateLoading, "LOADING"},
		{LockStateSetup, "SETUP"},
		{LockStateLocked, "LOCKED"},
		{LockStateLockedOut, "LOCKED OUT"},
		{LockStateUnlocked, "UNLOCKED"},
		{LockState(99), "UNKNOWN"},
	}

	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("LockState(%d).String() = %q, want %q", tc.state, got, tc.want)
		}
	}
}

func TestHeader_View(t *testing.T) {
	h := NewHeader(styles.NewTheme(styles.ModeDark))
	if h.Title != "walletgate" {
		t.Errorf("NewHeader() Title = %q, want walletgate", h.Title)
	}

	h.SetWidth(60)
	h.SetState(LockStateUnlocked)
	view := h.View()

	if !strings.Contains(view, "walletgate") {
		t.Errorf("View() missing title:\n%s", view)
	}
	if !strings.Contains(view, "UNLOCKED") {
		t.Errorf("View() missing badge:\n%s", view)
	}
	if lines := strings.Split(view, "\n"); len(lines) != 3 {
		t.Errorf("View() rendered %d lines, want a bordered single row", len(lines))
	}
	if w := lipgloss.Width(view); w > 60 {
		t.Errorf("View() width = %d, want <= 60", w)
	}
}

func TestHeader_CompactWhenNarrow(t *testing.T) {
	h := NewHeader(styles.NewTheme(styles.ModeDark))
	h.SetWidth(30)
	h.SetState(LockStateLockedOut)

	view := h.View()
	if strings.Contains(view, "\n") {
		t.Errorf("narrow View() should be a single line, got:\n%s", view)
	}
	if !strings.Contains(view, "LOCKED OUT") {
		t.Errorf("View() missing badge: %s", view)
	}
}
