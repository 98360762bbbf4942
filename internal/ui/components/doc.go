// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the reusable pieces of the walletgate TUI.

# Chrome

Header (header.go) - Title bar with the wallet's lock state badge.

# Feedback

ToastManager (toast.go) - Non-blocking notifications for bus errors and
biometric failures. Toasts auto-dismiss; identical toasts refresh instead of
stacking.

# Locking

RenderLockoutBanner (lockout_banner.go) - Countdown while a penalty runs.
RenderPenaltyServedNotice (lockout_banner.go) - "Try again" notice after it.
AutoLockOverlay (autolock_overlay.go) - Inactivity warning before auto-lock.

# Content

MarkdownRenderer (welcome.go) - Onboarding copy rendered with glamour.
RenderConnectionList (connections.go) - Connections with open proof requests.

All components are plain values or render functions. Timekeeping is passed in
by the caller so views stay deterministic in tests.
*/
package components
