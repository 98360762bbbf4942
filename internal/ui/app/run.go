// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/walletgate/internal/autolock"
	"github.com/jeranaias/walletgate/internal/events"
	"github.com/jeranaias/walletgate/internal/gate"
	"github.com/jeranaias/walletgate/internal/store"
)

// relay forwards messages to the program once it exists. Sends before that
// are dropped; the model reads the current state when it mounts.
type relay struct {
	mu      sync.RWMutex
	program *tea.Program
}

func (r *relay) set(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

func (r *relay) send(msg tea.Msg) {
	r.mu.RLock()
	p := r.program
	r.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// Bridge subscribes send to the gate, the store and the bus. Close the
// returned subscriptions when the program exits.
func Bridge(deps Deps, send func(tea.Msg)) []*events.Subscription {
	return []*events.Subscription{
		deps.Gate.Observe(func(s gate.Signals) { send(SignalsMsg{Signals: s}) }),
		deps.Store.Subscribe(func(st store.State) { send(StateMsg{State: st}) }),
		deps.Bus.Errors.Subscribe(func(e events.ErrorEvent) { send(ErrorMsg{Event: e}) }),
		deps.Bus.Biometry.Subscribe(func(e events.BiometryErrorEvent) { send(BiometryMsg{Event: e}) }),
	}
}

// Options configure Run.
type Options struct {
	// AutoLock is the inactivity timeout. Zero disables auto-lock.
	AutoLock time.Duration

	// AltScreen runs the program in the alternate screen buffer.
	AltScreen bool
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, deps Deps, opts Options) error {
	deps.fillDefaults()
	r := &relay{}

	var manager *autolock.Manager
	if opts.AutoLock > 0 {
		manager = autolock.New(deps.Store, opts.AutoLock,
			autolock.WithLogger(deps.Logger),
			autolock.WithAudit(deps.Audit),
			autolock.WithOnWarning(func(remaining time.Duration) {
				r.send(AutoLockWarningMsg{Remaining: remaining})
			}),
			autolock.WithOnLock(func() { r.send(AutoLockedMsg{}) }),
		)
		defer manager.Close()
	}

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	p := tea.NewProgram(New(ctx, deps, manager), programOpts...)
	r.set(p)

	subs := Bridge(deps, r.send)
	defer func() {
		for _, s := range subs {
			s.Close()
		}
	}()

	if manager != nil {
		manager.Start()
	}

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	deps.Gate.Close()
	return nil
}
