// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gate decides which screen stack the wallet shows.
//
// The main stack is only reachable once onboarding has completed in this
// session and the user has authenticated. The gate also owns the one-time
// work done when the root view mounts: subscribing to onboarding completion,
// loading persisted state, and cleaning up connections left behind by
// declined or abandoned proof requests.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jeranaias/walletgate/internal/events"
	"github.com/jeranaias/walletgate/internal/relationship"
	"github.com/jeranaias/walletgate/internal/storage"
	"github.com/jeranaias/walletgate/internal/store"
)

// =============================================================================
// STAGES AND STACKS
// =============================================================================

// Stage is the gate's position in the unlock flow.
type Stage int

const (
	// StageOnboarding is the initial stage; onboarding has not completed.
	StageOnboarding Stage = iota
	// StageAuthenticating waits for the user to authenticate.
	StageAuthenticating
	// StageAuthenticated shows the main stack.
	StageAuthenticated
)

func (s Stage) String() string {
	switch s {
	case StageOnboarding:
		return "onboarding"
	case StageAuthenticating:
		return "authenticating"
	case StageAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Stack is the screen stack to render.
type Stack int

const (
	// StackOnboardingOrAuth covers onboarding and PIN entry.
	StackOnboardingOrAuth Stack = iota
	// StackMain is the unlocked application.
	StackMain
)

func (s Stack) String() string {
	switch s {
	case StackOnboardingOrAuth:
		return "onboarding_or_auth"
	case StackMain:
		return "main"
	default:
		return "unknown"
	}
}

// DecideStack returns StackMain only when both inputs are true.
func DecideStack(onboardingComplete, didAuthenticate bool) Stack {
	if onboardingComplete && didAuthenticate {
		return StackMain
	}
	return StackOnboardingOrAuth
}

// Signals are the session-scoped inputs of the gate.
type Signals struct {
	OnboardingComplete bool
	DidAuthenticate    bool
}

// ShouldRenderMainStack reports whether the main stack is shown.
func (s Signals) ShouldRenderMainStack() bool {
	return DecideStack(s.OnboardingComplete, s.DidAuthenticate) == StackMain
}

// Stage derives the stage from the signals. Authentication that arrived
// before onboarding completed is kept and takes effect afterwards.
func (s Signals) Stage() Stage {
	switch {
	case !s.OnboardingComplete:
		return StageOnboarding
	case s.DidAuthenticate:
		return StageAuthenticated
	default:
		return StageAuthenticating
	}
}

// =============================================================================
// GATE
// =============================================================================

// ErrAlreadyMounted is returned by a second Mount.
var ErrAlreadyMounted = errors.New("gate already mounted")

// ProofCleaner is the part of the relationship store used for cleanup.
type ProofCleaner interface {
	ListProofRequests(ctx context.Context, states ...relationship.ProofState) ([]relationship.ProofRequest, error)
	DeleteByID(ctx context.Context, id string) error
	ClearDeleteConnectionAfterSeen(ctx context.Context, id string) error
}

// Gate tracks the authentication signals and notifies observers on change.
type Gate struct {
	store         *store.Store
	bus           *events.Bus
	relationships ProofCleaner
	logger        *slog.Logger

	mu      sync.Mutex
	signals Signals
	mounted bool
	closed  bool
	subs    []*events.Subscription
	cancel  context.CancelFunc
	stopCtx func() bool

	cleanupDone chan struct{}
	observers   events.Topic[Signals]
}

// Option configures a Gate.
type Option func(*Gate)

// WithRelationships enables proof-request cleanup on mount.
func WithRelationships(r ProofCleaner) Option {
	return func(g *Gate) {
		g.relationships = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = l
	}
}

// New creates an unmounted gate.
func New(st *store.Store, bus *events.Bus, opts ...Option) *Gate {
	g := &Gate{
		store:       st,
		bus:         bus,
		logger:      slog.Default(),
		cleanupDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mount performs the root view's one-time side effects. State load failures
// are reported on the bus and do not fail Mount. Cancelling ctx closes the
// gate.
func (g *Gate) Mount(ctx context.Context) error {
	g.mu.Lock()
	if g.mounted {
		g.mu.Unlock()
		return ErrAlreadyMounted
	}
	g.mounted = true
	g.signals.DidAuthenticate = g.store.State().Authentication.DidAuthenticate
	g.mu.Unlock()

	onboardingSub := g.bus.Onboarding.Subscribe(func(events.OnboardingCompleteEvent) {
		g.markOnboardingComplete()
	})
	storeSub := g.store.Subscribe(g.onStateChange)

	cleanupCtx, cancel := context.WithCancel(ctx)

	g.mu.Lock()
	g.subs = append(g.subs, onboardingSub, storeSub)
	g.cancel = cancel
	g.mu.Unlock()

	if err := g.store.Load(ctx); err != nil {
		g.bus.ReportError(events.ErrorEvent{
			Kind:    events.KindState,
			Title:   "Unable to load wallet state",
			Message: err.Error(),
			Code:    events.CodeStateLoadFailed,
			Err:     err,
		})
	}

	go g.cleanupProofRequests(cleanupCtx)

	stop := context.AfterFunc(ctx, g.Close)
	g.mu.Lock()
	g.stopCtx = stop
	g.mu.Unlock()

	return nil
}

// Close unsubscribes everything and stops background cleanup. It does not
// wait for cleanup to finish and is safe to call more than once.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	subs := g.subs
	g.subs = nil
	cancel := g.cancel
	stop := g.stopCtx
	g.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	if cancel != nil {
		cancel()
	}
	if stop != nil {
		stop()
	}
}

// Signals returns the current signals.
func (g *Gate) Signals() Signals {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.signals
}

// Stage returns the current stage.
func (g *Gate) Stage() Stage {
	return g.Signals().Stage()
}

// Stack returns the stack to render.
func (g *Gate) Stack() Stack {
	s := g.Signals()
	return DecideStack(s.OnboardingComplete, s.DidAuthenticate)
}

// Observe registers fn for every change of the signals. fn runs
// synchronously on the goroutine that caused the change.
func (g *Gate) Observe(fn func(Signals)) *events.Subscription {
	return g.observers.Subscribe(fn)
}

// CleanupDone is closed when the mount-time cleanup has finished.
func (g *Gate) CleanupDone() <-chan struct{} {
	return g.cleanupDone
}

func (g *Gate) onStateChange(st store.State) {
	g.update(func(s *Signals) {
		s.DidAuthenticate = st.Authentication.DidAuthenticate
		// A returning user's completed onboarding counts as the
		// completion notification for this session.
		if st.Onboarding.DidCompleteOnboarding {
			s.OnboardingComplete = true
		}
	})
}

func (g *Gate) markOnboardingComplete() {
	g.update(func(s *Signals) {
		s.OnboardingComplete = true
	})
}

// update applies fn and notifies observers if the signals changed.
func (g *Gate) update(fn func(*Signals)) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	before := g.signals
	fn(&g.signals)
	after := g.signals
	g.mu.Unlock()

	if before == after {
		return
	}
	if before.Stage() != after.Stage() {
		g.logger.Info("gate stage changed", "from", before.Stage().String(), "to", after.Stage().String())
	}
	g.observers.Publish(after)
}

// =============================================================================
// PROOF REQUEST CLEANUP
// =============================================================================

func (g *Gate) cleanupProofRequests(ctx context.Context) {
	defer close(g.cleanupDone)

	if g.relationships == nil {
		return
	}

	requests, err := g.relationships.ListProofRequests(ctx, relationship.ProofDeclined, relationship.ProofAbandoned)
	if err != nil {
		g.logger.Warn("failed to list proof requests for cleanup", "error", err)
		return
	}

	for _, req := range requests {
		if ctx.Err() != nil {
			return
		}
		if !req.DeleteConnectionAfterSeen {
			continue
		}

		err := g.relationships.DeleteByID(ctx, req.ConnectionID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			g.logger.Warn("failed to delete connection", "connection_id", req.ConnectionID, "error", err)
			continue
		}
		if err := g.relationships.ClearDeleteConnectionAfterSeen(ctx, req.ID); err != nil {
			g.logger.Debug("failed to clear cleanup flag", "proof_request_id", req.ID, "error", err)
			continue
		}
		g.logger.Debug("removed connection for closed proof request",
			"proof_request_id", req.ID, "connection_id", req.ConnectionID)
	}
}
