// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package autolock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/walletgate/internal/store"
)

// newFastManager builds a manager with sub-minimum timers for tests.
func newFastManager(st *store.Store, timeout, warning time.Duration, opts ...Option) *Manager {
	m := New(st, MinTimeout, opts...)
	m.timeout = timeout
	m.warningBefore = warning
	return m
}

func TestManager_LocksAfterInactivity(t *testing.T) {
	st := store.New()
	var locked, warned atomic.Int32
	m := newFastManager(st, 60*time.Millisecond, 30*time.Millisecond,
		WithOnLock(func() { locked.Add(1) }),
		WithOnWarning(func(time.Duration) { warned.Add(1) }))
	m.Start()
	defer m.Close()

	assert.Equal(t, StateIdle, m.State())
	st.Dispatch(store.DidAuthenticate{Value: true})
	assert.Equal(t, StateActive, m.State())

	require.Eventually(t, func() bool { return locked.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), warned.Load())
	assert.False(t, st.State().Authentication.DidAuthenticate)
	assert.Equal(t, StateIdle, m.State())
}

func TestManager_TouchPostponesLock(t *testing.T) {
	st := store.New()
	var locked atomic.Int32
	m := newFastManager(st, 150*time.Millisecond, 0, WithOnLock(func() { locked.Add(1) }))
	m.Start()
	defer m.Close()

	st.Dispatch(store.DidAuthenticate{Value: true})
	for i := 0; i < 5; i++ {
		time.Sleep(50 * time.Millisecond)
		m.Touch()
	}
	assert.Equal(t, int32(0), locked.Load())
	assert.True(t, st.State().Authentication.DidAuthenticate)

	require.Eventually(t, func() bool { return locked.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestManager_ManualLockDisarms(t *testing.T) {
	st := store.New()
	var locked atomic.Int32
	m := newFastManager(st, 50*time.Millisecond, 0, WithOnLock(func() { locked.Add(1) }))
	m.Start()
	defer m.Close()

	st.Dispatch(store.DidAuthenticate{Value: true})
	st.Dispatch(store.DidAuthenticate{Value: false})
	assert.Equal(t, StateIdle, m.State())

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(0), locked.Load())
}

func TestManager_CloseStopsTimers(t *testing.T) {
	st := store.New(store.WithInitialState(store.State{Authentication: store.Authentication{DidAuthenticate: true}}))
	m := newFastManager(st, 50*time.Millisecond, 0)
	m.Start()
	assert.Equal(t, StateActive, m.State())

	m.Close()
	m.Close()
	time.Sleep(120 * time.Millisecond)
	assert.True(t, st.State().Authentication.DidAuthenticate)
}

func TestManager_DisabledAndClamped(t *testing.T) {
	st := store.New()

	off := New(st, 0)
	off.Start()
	defer off.Close()
	assert.False(t, off.Enabled())
	st.Dispatch(store.DidAuthenticate{Value: true})
	assert.Equal(t, StateIdle, off.State())

	short := New(store.New(), time.Second)
	assert.Equal(t, MinTimeout, short.Timeout())
}
