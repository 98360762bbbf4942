// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events provides the process-wide notification bus.
//
// Each event type has its own Topic. Subscribing returns a Subscription whose
// Close removes the handler; components subscribe when they start and close
// the subscription when they are torn down. Publishing is fire-and-forget and
// handlers run synchronously on the publisher's goroutine. No ordering is
// guaranteed across handlers.
package events

import (
	"sync"
)

// =============================================================================
// TOPIC
// =============================================================================

// Topic fans a value of type T out to every current subscriber.
// The zero value is ready to use.
type Topic[T any] struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]func(T)
}

// Subscribe registers fn and returns the subscription that removes it.
func (t *Topic[T]) Subscribe(fn func(T)) *Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handlers == nil {
		t.handlers = make(map[uint64]func(T))
	}
	t.nextID++
	id := t.nextID
	t.handlers[id] = fn

	return &Subscription{cancel: func() {
		t.mu.Lock()
		delete(t.handlers, id)
		t.mu.Unlock()
	}}
}

// Publish delivers v to every subscriber registered at the time of the call.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	handlers := make([]func(T), 0, len(t.handlers))
	for _, h := range t.handlers {
		handlers = append(handlers, h)
	}
	t.mu.RUnlock()

	for _, h := range handlers {
		h(v)
	}
}

// Len returns the number of live subscriptions.
func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.handlers)
}

// Subscription is a scoped registration on a Topic.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Close unsubscribes. Safe to call more than once and on a nil Subscription.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// =============================================================================
// BUS
// =============================================================================

// Bus groups the topics the application publishes on.
type Bus struct {
	Errors     Topic[ErrorEvent]
	Biometry   Topic[BiometryErrorEvent]
	Onboarding Topic[OnboardingCompleteEvent]
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// ReportError is shorthand for publishing an ErrorEvent.
func (b *Bus) ReportError(e ErrorEvent) {
	b.Errors.Publish(e)
}
