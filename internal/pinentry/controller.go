// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pinentry drives PIN and biometric unlock.
//
// The Controller connects the secret provider, the lockout policy and the
// store. It records every attempt, imposes penalties, runs the penalty
// watcher and publishes user-facing errors on the event bus. It has no UI of
// its own; the screen layer calls it from a command and renders the Result.
package pinentry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/walletgate/internal/audit"
	"github.com/jeranaias/walletgate/internal/biometry"
	"github.com/jeranaias/walletgate/internal/events"
	"github.com/jeranaias/walletgate/internal/lockout"
	"github.com/jeranaias/walletgate/internal/secret"
	"github.com/jeranaias/walletgate/internal/store"
)

// =============================================================================
// ERRORS AND RESULTS
// =============================================================================

var (
	// ErrVerificationInProgress is returned while another attempt is running.
	ErrVerificationInProgress = errors.New("verification already in progress")

	// ErrLockedOut is returned when a penalty is still running.
	ErrLockedOut = errors.New("too many incorrect attempts, try again later")

	// ErrBiometryDisabled is returned when biometric unlock is off or unavailable.
	ErrBiometryDisabled = errors.New("biometric unlock is not enabled")

	// ErrBiometryThrottled is returned when prompts are requested too quickly.
	ErrBiometryThrottled = errors.New("biometric prompt requested too soon")
)

// DefaultPromptInterval is the minimum spacing between biometric prompts.
const DefaultPromptInterval = time.Second

// Outcome is the result class of an attempt.
type Outcome int

const (
	// OutcomeUnlocked means the wallet is now unlocked.
	OutcomeUnlocked Outcome = iota
	// OutcomeIncorrect means the PIN was wrong and the attempt was counted.
	OutcomeIncorrect
	// OutcomeLockedOut means the attempt imposed a penalty.
	OutcomeLockedOut
	// OutcomeFailed means the attempt could not be evaluated and was not counted.
	OutcomeFailed
	// OutcomeCancelled means the user dismissed the biometric prompt.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnlocked:
		return "unlocked"
	case OutcomeIncorrect:
		return "incorrect"
	case OutcomeLockedOut:
		return "locked_out"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is what the screen layer renders after an attempt.
type Result struct {
	Outcome Outcome

	// Action is the lockout policy's verdict for a wrong PIN.
	Action lockout.Action

	// Message is inline text for the PIN field, possibly empty.
	Message string

	// LockedUntil is set for OutcomeLockedOut.
	LockedUntil time.Time
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller runs unlock attempts.
type Controller struct {
	store    *store.Store
	secrets  secret.Provider
	bus      *events.Bus
	audit    *audit.Logger
	biometry biometry.Capability
	prompts  *rate.Limiter
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	policy   lockout.Policy
	inFlight bool
	watcher  *lockout.Watcher
	ctx      context.Context
	cancel   context.CancelFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithAudit records attempts in the audit trail.
func WithAudit(a *audit.Logger) Option {
	return func(c *Controller) {
		c.audit = a
	}
}

// WithBiometry enables biometric unlock through capability.
func WithBiometry(capability biometry.Capability) Option {
	return func(c *Controller) {
		c.biometry = capability
	}
}

// WithPromptInterval sets the minimum spacing between biometric prompts.
// Zero removes the limit.
func WithPromptInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d <= 0 {
			c.prompts = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.prompts = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New creates a controller. policy must already be validated.
func New(st *store.Store, secrets secret.Provider, policy lockout.Policy, bus *events.Bus, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		store:    st,
		secrets:  secrets,
		bus:      bus,
		policy:   policy,
		biometry: biometry.None{},
		prompts:  rate.NewLimiter(rate.Every(DefaultPromptInterval), 1),
		logger:   slog.Default(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetPolicy replaces the lockout policy for future attempts.
func (c *Controller) SetPolicy(p lockout.Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy = p.Clone()
}

// Policy returns the active policy.
func (c *Controller) Policy() lockout.Policy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.Clone()
}

// Busy reports whether an attempt is running.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Close stops the penalty watcher.
func (c *Controller) Close() {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher != nil {
		c.watcher.Stop()
		c.watcher = nil
	}
}

// begin claims the in-flight slot.
func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrVerificationInProgress
	}
	c.inFlight = true
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
}

// =============================================================================
// LOCKOUT
// =============================================================================

// LockedUntil returns the end of a running penalty.
func (c *Controller) LockedUntil() (time.Time, bool) {
	st := c.store.State().LoginAttempt
	if !st.IsLockedOut(c.now()) {
		return time.Time{}, false
	}
	return *st.LockoutDate, true
}

// ResumeLockout starts the penalty watcher for a persisted penalty that has
// not been marked served. A penalty that ended while the app was closed is
// marked served straight away.
func (c *Controller) ResumeLockout() {
	st := c.store.State().LoginAttempt
	if st.LockoutDate == nil || st.HasServedPenalty() {
		return
	}
	c.watch(*st.LockoutDate)
}

// BeginEntry acknowledges a served penalty. Call it when the user starts
// typing a new PIN.
func (c *Controller) BeginEntry() {
	if c.store.State().LoginAttempt.HasServedPenalty() {
		c.store.Dispatch(store.PenaltyAcknowledged{})
	}
}

func (c *Controller) watch(until time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher != nil {
		c.watcher.Stop()
	}
	c.watcher = lockout.Watch(c.ctx, until, c.now, func() { c.penaltyServed(until) })
}

func (c *Controller) penaltyServed(until time.Time) {
	c.store.Dispatch(store.PenaltyServed{Until: until})
	c.logger.Info("lockout penalty served")
	if err := c.audit.LogPenaltyServed(); err != nil {
		c.logger.Warn("failed to write audit event", "error", err)
	}
}

// =============================================================================
// PIN ATTEMPTS
// =============================================================================

// Submit verifies pin and authenticates the session on success. A wrong PIN
// is not an error: it returns OutcomeIncorrect or OutcomeLockedOut. Errors are
// returned for a running penalty, a concurrent attempt, or a provider
// failure; provider failures are also published on the bus with their error
// code and are not counted.
func (c *Controller) Submit(ctx context.Context, pin string) (Result, error) {
	return c.attempt(ctx, pin, true)
}

// Verify runs the same attempt as Submit but leaves the session
// unauthenticated. Outcomes, counting and penalties are identical.
func (c *Controller) Verify(ctx context.Context, pin string) (Result, error) {
	return c.attempt(ctx, pin, false)
}

func (c *Controller) attempt(ctx context.Context, pin string, authenticate bool) (Result, error) {
	if err := c.begin(); err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}
	defer c.end()

	if until, locked := c.LockedUntil(); locked {
		return Result{Outcome: OutcomeLockedOut, LockedUntil: until}, ErrLockedOut
	}
	c.BeginEntry()

	ok, err := c.secrets.CheckSecret(ctx, pin)
	if err != nil {
		c.reportVerificationError(err)
		return Result{Outcome: OutcomeFailed}, err
	}

	if !ok {
		return c.recordFailure(), nil
	}
	if authenticate {
		c.unlocked("pin")
	} else {
		c.store.Dispatch(store.PenaltyAcknowledged{}, store.SuccessfulAttempt{})
		c.logger.Info("PIN verified")
	}
	return Result{Outcome: OutcomeUnlocked}, nil
}

// recordFailure counts a wrong PIN. The store applies the policy to its
// current state, so a penalty served concurrently is not lost.
func (c *Controller) recordFailure() Result {
	next, action := c.store.RecordFailure(c.Policy(), c.now())
	attempts := next.LoginAttempt.LoginAttempts

	c.logger.Info("incorrect PIN", "attempts", attempts, "action", action.Kind.String())
	if err := c.audit.LogFailedAttempt(attempts); err != nil {
		c.logger.Warn("failed to write audit event", "error", err)
	}

	if action.Kind == lockout.ActionLockout {
		c.logger.Warn("lockout imposed", "attempts", attempts, "penalty", action.Penalty)
		if err := c.audit.LogLockout(attempts, action.Until); err != nil {
			c.logger.Warn("failed to write audit event", "error", err)
		}
		c.watch(action.Until)
		return Result{Outcome: OutcomeLockedOut, Action: action, LockedUntil: action.Until}
	}

	return Result{Outcome: OutcomeIncorrect, Action: action, Message: action.Message()}
}

func (c *Controller) unlocked(method string) {
	c.store.Dispatch(store.PenaltyAcknowledged{}, store.SuccessfulAttempt{}, store.DidAuthenticate{Value: true})
	c.logger.Info("wallet unlocked", "method", method)
	if err := c.audit.LogUnlock(method); err != nil {
		c.logger.Warn("failed to write audit event", "error", err)
	}
}

func (c *Controller) reportVerificationError(err error) {
	event := events.ErrorEvent{
		Kind:    events.KindVerification,
		Title:   "Unable to verify PIN",
		Message: "An error occurred while checking your PIN.",
		Code:    events.CodeVerificationFailed,
		Err:     err,
	}
	if errors.Is(err, secret.ErrSecretAbsent) {
		event.Title = "No PIN set"
		event.Message = "No PIN has been set for this wallet."
		event.Code = events.CodeSecretAbsent
	}
	c.logger.Error("PIN verification failed", "code", event.Code, "error", err)
	c.bus.ReportError(event)
}

// =============================================================================
// BIOMETRIC UNLOCK
// =============================================================================

// BiometryAvailable reports whether biometric unlock can be offered.
func (c *Controller) BiometryAvailable(ctx context.Context) bool {
	return c.store.State().Preferences.UseBiometry && c.biometry.Available(ctx)
}

// UnlockWithBiometry attempts a biometric unlock. Failures never count as
// PIN attempts. If the enrollment changed, biometric unlock is switched off
// and the user continues with the PIN.
func (c *Controller) UnlockWithBiometry(ctx context.Context) (Result, error) {
	if err := c.begin(); err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}
	defer c.end()

	if until, locked := c.LockedUntil(); locked {
		return Result{Outcome: OutcomeLockedOut, LockedUntil: until}, ErrLockedOut
	}
	if !c.BiometryAvailable(ctx) {
		return Result{Outcome: OutcomeFailed}, ErrBiometryDisabled
	}
	if !c.prompts.Allow() {
		return Result{Outcome: OutcomeFailed}, ErrBiometryThrottled
	}
	c.BeginEntry()

	err := c.biometry.Unlock(ctx)
	switch {
	case err == nil:
		c.unlocked("biometry")
		return Result{Outcome: OutcomeUnlocked}, nil

	case errors.Is(err, biometry.ErrCancelled):
		return Result{Outcome: OutcomeCancelled}, nil

	case errors.Is(err, biometry.ErrEnrollmentChanged):
		c.store.Dispatch(store.BiometryPreferenceUpdated{Enabled: false})
		c.logger.Warn("biometric enrollment changed, biometric unlock disabled")
		c.biometryFailed(err)
		return Result{
			Outcome: OutcomeFailed,
			Message: "Biometrics changed on this device. Enter your PIN to continue.",
		}, err

	default:
		c.logger.Warn("biometric unlock failed", "error", err)
		c.biometryFailed(err)
		return Result{Outcome: OutcomeFailed, Message: "Biometric unlock failed. Enter your PIN."}, err
	}
}

func (c *Controller) biometryFailed(err error) {
	if auditErr := c.audit.LogBiometryFailed(err.Error()); auditErr != nil {
		c.logger.Warn("failed to write audit event", "error", auditErr)
	}
	c.bus.Biometry.Publish(events.BiometryErrorEvent{Failed: true})
}
