// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the keyboard bindings for every screen.
type KeyMap struct {
	Submit   key.Binding
	Biometry key.Binding
	Yes      key.Binding
	No       key.Binding
	Up       key.Binding
	Down     key.Binding
	Refresh  key.Binding
	Lock     key.Binding
	Dismiss  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default bindings. PIN screens accept digits, so
// every binding there uses a non-digit key.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "continue"),
		),
		Biometry: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "use biometrics"),
		),
		Yes: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "yes"),
		),
		No: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "no"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Lock: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "lock"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// bindingSet adapts a screen's bindings to help.KeyMap.
type bindingSet struct {
	short []key.Binding
	full  [][]key.Binding
}

func (b bindingSet) ShortHelp() []key.Binding  { return b.short }
func (b bindingSet) FullHelp() [][]key.Binding { return b.full }

// helpFor returns the bindings shown on screen s.
func (k KeyMap) helpFor(s Screen, biometry bool) bindingSet {
	var short []key.Binding
	switch s {
	case ScreenCreatePIN, ScreenConfirmPIN:
		short = []key.Binding{k.Submit, k.Quit}
	case ScreenConsiderBiometry:
		short = []key.Binding{k.Yes, k.No, k.Quit}
	case ScreenFinishOnboarding:
		short = []key.Binding{k.Submit, k.Quit}
	case ScreenUnlock:
		short = []key.Binding{k.Submit}
		if biometry {
			short = append(short, k.Biometry)
		}
		short = append(short, k.Quit)
	case ScreenMain:
		short = []key.Binding{k.Up, k.Down, k.Refresh, k.Lock, k.Quit}
	}
	return bindingSet{
		short: append(short, k.Help),
		full:  [][]key.Binding{short, {k.Dismiss, k.Help}},
	}
}
