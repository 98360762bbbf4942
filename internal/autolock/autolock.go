// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package autolock locks the wallet after a period of inactivity.
//
// While the store says the user is authenticated, the Manager runs a warning
// timer and an expiry timer. Touch restarts both. When the expiry timer fires
// the Manager dispatches DidAuthenticate=false, which sends the gate back to
// the authentication stage.
package autolock

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jeranaias/walletgate/internal/audit"
	"github.com/jeranaias/walletgate/internal/events"
	"github.com/jeranaias/walletgate/internal/store"
)

const (
	// DefaultTimeout is the inactivity period before the wallet locks.
	DefaultTimeout = 5 * time.Minute

	// DefaultWarningBefore is how long before locking the warning fires.
	DefaultWarningBefore = 30 * time.Second

	// MinTimeout is the shortest accepted non-zero timeout.
	MinTimeout = 30 * time.Second
)

// State is the auto-lock state.
type State int

const (
	// StateIdle means the user is not authenticated; no timers run.
	StateIdle State = iota
	// StateActive means timers are armed.
	StateActive
	// StateWarning means the lock is imminent.
	StateWarning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateActive:
		return "ACTIVE"
	case StateWarning:
		return "WARNING"
	default:
		return "UNKNOWN"
	}
}

// Manager runs the inactivity timers.
type Manager struct {
	store         *store.Store
	timeout       time.Duration
	warningBefore time.Duration
	logger        *slog.Logger
	audit         *audit.Logger
	now           func() time.Time
	onWarning     func(remaining time.Duration)
	onLock        func()

	mu           sync.Mutex
	state        State
	lastActivity time.Time
	generation   uint64
	warningTimer *time.Timer
	expireTimer  *time.Timer
	sub          *events.Subscription
	closed       bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithWarningBefore sets the warning lead time.
func WithWarningBefore(d time.Duration) Option {
	return func(m *Manager) {
		m.warningBefore = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithAudit records auto-locks in the audit trail.
func WithAudit(a *audit.Logger) Option {
	return func(m *Manager) {
		m.audit = a
	}
}

// WithOnWarning sets a callback run when the warning timer fires.
func WithOnWarning(fn func(remaining time.Duration)) Option {
	return func(m *Manager) {
		m.onWarning = fn
	}
}

// WithOnLock sets a callback run after the wallet was locked.
func WithOnLock(fn func()) Option {
	return func(m *Manager) {
		m.onLock = fn
	}
}

// New creates a manager. A zero timeout disables auto-lock; a positive one
// below MinTimeout is raised to MinTimeout.
func New(st *store.Store, timeout time.Duration, opts ...Option) *Manager {
	m := &Manager{
		store:         st,
		timeout:       timeout,
		warningBefore: DefaultWarningBefore,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.timeout > 0 && m.timeout < MinTimeout {
		m.logger.Warn("auto-lock timeout below minimum, using minimum", "requested", m.timeout, "minimum", MinTimeout)
		m.timeout = MinTimeout
	}
	if m.warningBefore >= m.timeout {
		m.warningBefore = 0
	}
	return m
}

// Start follows the store's authentication flag. It arms the timers if the
// user is already authenticated.
func (m *Manager) Start() {
	if m.timeout <= 0 {
		return
	}
	sub := m.store.Subscribe(func(st store.State) {
		m.follow(st.Authentication.DidAuthenticate)
	})

	m.mu.Lock()
	m.sub = sub
	m.mu.Unlock()

	m.follow(m.store.State().Authentication.DidAuthenticate)
}

// Enabled reports whether auto-lock is active.
func (m *Manager) Enabled() bool {
	return m.timeout > 0
}

// Timeout returns the inactivity timeout.
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

func (m *Manager) follow(authenticated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	switch {
	case authenticated && m.state == StateIdle:
		m.state = StateActive
		m.armLocked()
	case !authenticated && m.state != StateIdle:
		m.state = StateIdle
		m.disarmLocked()
	}
}

// Touch records user activity and restarts the timers.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.state == StateIdle {
		return
	}
	m.state = StateActive
	m.armLocked()
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Remaining returns the time left before locking, or zero when idle.
func (m *Manager) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateIdle {
		return 0
	}
	left := m.timeout - m.now().Sub(m.lastActivity)
	if left < 0 {
		return 0
	}
	return left
}

// Close stops the timers and the store subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.disarmLocked()
	m.sub.Close()
	m.sub = nil
}

// armLocked (re)starts both timers. Caller holds mu.
func (m *Manager) armLocked() {
	m.disarmLocked()
	m.lastActivity = m.now()
	gen := m.generation

	if m.warningBefore > 0 {
		m.warningTimer = time.AfterFunc(m.timeout-m.warningBefore, func() { m.warn(gen) })
	}
	m.expireTimer = time.AfterFunc(m.timeout, func() { m.expire(gen) })
}

// disarmLocked stops both timers and invalidates pending callbacks.
func (m *Manager) disarmLocked() {
	m.generation++
	if m.warningTimer != nil {
		m.warningTimer.Stop()
		m.warningTimer = nil
	}
	if m.expireTimer != nil {
		m.expireTimer.Stop()
		m.expireTimer = nil
	}
}

func (m *Manager) warn(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.generation || m.state != StateActive {
		m.mu.Unlock()
		return
	}
	m.state = StateWarning
	callback := m.onWarning
	m.mu.Unlock()

	m.logger.Info("auto-lock warning", "remaining", m.warningBefore)
	if callback != nil {
		callback(m.warningBefore)
	}
}

func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.generation || m.state == StateIdle {
		m.mu.Unlock()
		return
	}
	idle := m.now().Sub(m.lastActivity)
	callback := m.onLock
	m.mu.Unlock()

	m.logger.Info("auto-lock: locking wallet", "idle", idle)
	if err := m.audit.LogAutoLock(idle); err != nil {
		m.logger.Warn("failed to write audit event", "error", err)
	}
	// The store subscription moves the state to idle.
	m.store.Dispatch(store.DidAuthenticate{Value: false})

	if callback != nil {
		callback()
	}
}
