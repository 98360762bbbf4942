// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lockout

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// PENALTY WATCHER
// =============================================================================

// Watcher observes a running penalty and fires once when it has been served.
// Stopping the watcher (or cancelling its context) before the penalty ends
// abandons it; the callback is then never invoked.
type Watcher struct {
	until    time.Time
	onServed func()

	mu         sync.Mutex
	timer      *time.Timer
	stopped    bool
	fired      bool
	releaseCtx func() bool
}

// Watch starts a watcher for a penalty ending at until. If until is already in
// the past, onServed runs on the timer goroutine almost immediately.
func Watch(ctx context.Context, until time.Time, now func() time.Time, onServed func()) *Watcher {
	if now == nil {
		now = time.Now
	}

	w := &Watcher{
		until:    until,
		onServed: onServed,
	}

	delay := until.Sub(now())
	if delay < 0 {
		delay = 0
	}

	w.mu.Lock()
	w.timer = time.AfterFunc(delay, w.fire)
	w.releaseCtx = context.AfterFunc(ctx, w.Stop)
	w.mu.Unlock()

	return w
}

// fire runs the callback unless the watcher was stopped first.
func (w *Watcher) fire() {
	w.mu.Lock()
	if w.stopped || w.fired {
		w.mu.Unlock()
		return
	}
	w.fired = true
	release := w.releaseCtx
	w.mu.Unlock()

	if release != nil {
		release()
	}
	if w.onServed != nil {
		w.onServed()
	}
}

// Stop abandons the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	if w.releaseCtx != nil {
		w.releaseCtx()
	}
}

// Until returns the penalty end time.
func (w *Watcher) Until() time.Time {
	return w.until
}

// Remaining returns the time left on the penalty at now.
func (w *Watcher) Remaining(now time.Time) time.Duration {
	remaining := w.until.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Fired reports whether the served callback has run.
func (w *Watcher) Fired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}

// FormatRemaining renders a countdown as H:MM:SS, or M:SS under an hour.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
