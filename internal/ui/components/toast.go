// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/walletgate/internal/events"
	"github.com/jeranaias/walletgate/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	// ToastKindStatus is an informational toast.
	ToastKindStatus ToastKind = iota
	// ToastKindError is an error toast.
	ToastKindError
	// ToastKindWarning is a warning toast.
	ToastKindWarning
	// ToastKindSuccess is a success toast.
	ToastKindSuccess
)

// DefaultToastDuration is the auto-dismiss duration for status toasts.
const DefaultToastDuration = 4 * time.Second

// ErrorToastDuration is the auto-dismiss duration for error toasts.
const ErrorToastDuration = 8 * time.Second

// WarningToastDuration is the auto-dismiss duration for warning toasts.
const WarningToastDuration = 6 * time.Second

// maxToasts is how many toasts are kept at once.
const maxToasts = 4

// =============================================================================
// TOAST
// =============================================================================

// Toast is a non-blocking notification shown in the corner of the screen.
type Toast struct {
	ID        int
	Title     string
	Message   string
	Code      int
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// NewToast creates a toast of kind with that kind's default duration.
func NewToast(kind ToastKind, message string) Toast {
	d := DefaultToastDuration
	switch kind {
	case ToastKindError:
		d = ErrorToastDuration
	case ToastKindWarning:
		d = WarningToastDuration
	}
	return Toast{Kind: kind, Message: message, Duration: d}
}

// ToastFromError converts a bus error into an error toast.
func ToastFromError(e events.ErrorEvent) Toast {
	t := NewToast(ToastKindError, e.Message)
	t.Title = e.Title
	t.Code = e.Code
	return t
}

// IsExpired reports whether the toast should be dismissed at now.
func (t Toast) IsExpired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// TimeRemaining returns how long the toast stays visible after now.
func (t Toast) TimeRemaining(now time.Time) time.Duration {
	remaining := t.Duration - now.Sub(t.CreatedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager keeps the visible toasts, newest first.
type ToastManager struct {
	mu     sync.Mutex
	toasts []Toast
	nextID int
	now    func() time.Time
}

// NewToastManager creates an empty manager.
func NewToastManager() *ToastManager {
	return &ToastManager{nextID: 1, now: time.Now}
}

// Add shows a toast and returns its ID. A toast identical to the newest one
// only refreshes that toast's timer.
func (m *ToastManager) Add(t Toast) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	t.CreatedAt = m.now()
	if len(m.toasts) > 0 {
		top := &m.toasts[0]
		if top.Kind == t.Kind && top.Message == t.Message && top.Code == t.Code {
			top.CreatedAt = t.CreatedAt
			return top.ID
		}
	}

	t.ID = m.nextID
	m.nextID++
	m.toasts = append([]Toast{t}, m.toasts...)
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[:maxToasts]
	}
	return t.ID
}

// AddError adds an error toast.
func (m *ToastManager) AddError(message string) int {
	return m.Add(NewToast(ToastKindError, message))
}

// AddWarning adds a warning toast.
func (m *ToastManager) AddWarning(message string) int {
	return m.Add(NewToast(ToastKindWarning, message))
}

// AddSuccess adds a success toast.
func (m *ToastManager) AddSuccess(message string) int {
	return m.Add(NewToast(ToastKindSuccess, message))
}

// Remove dismisses a toast by ID.
func (m *ToastManager) Remove(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.toasts {
		if t.ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// DismissNewest removes the most recent toast.
func (m *ToastManager) DismissNewest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.toasts) > 0 {
		m.toasts = m.toasts[1:]
	}
}

// Tick drops expired toasts and returns the rest.
func (m *ToastManager) Tick() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	active := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.IsExpired(now) {
			active = append(active, t)
		}
	}
	m.toasts = active
	return append([]Toast(nil), m.toasts...)
}

// Toasts returns a copy of the visible toasts.
func (m *ToastManager) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Toast(nil), m.toasts...)
}

// Len returns the number of visible toasts.
func (m *ToastManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.toasts)
}

// =============================================================================
// MESSAGES
// =============================================================================

// TickMsg drives toast expiry and countdowns.
type TickMsg struct {
	Time time.Time
}

// TickCmd ticks once a second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// =============================================================================
// RENDERING
// =============================================================================

// RenderToast renders a single toast.
func RenderToast(t Toast, width int) string {
	maxWidth := 56
	if width > 0 && width-8 < maxWidth {
		maxWidth = width - 8
	}
	if maxWidth < 28 {
		maxWidth = 28
	}

	var color lipgloss.AdaptiveColor
	var icon string
	switch t.Kind {
	case ToastKindError:
		color, icon = styles.Rose, styles.StatusIndicators.Error
	case ToastKindWarning:
		color, icon = styles.Amber, styles.StatusIndicators.Warning
	case ToastKindSuccess:
		color, icon = styles.Emerald, styles.StatusIndicators.Success
	default:
		color, icon = styles.Cyan, styles.StatusIndicators.Info
	}

	head := icon
	if t.Title != "" {
		head += " " + t.Title
	}
	lines := []string{lipgloss.NewStyle().Foreground(color).Bold(true).Render(head)}

	body := t.Message
	if t.Code != 0 {
		body = fmt.Sprintf("%s (Error %d)", body, t.Code)
	}
	if body != "" {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(styles.TextPrimary).
			Width(maxWidth-6).
			Render(body))
	}
	lines = append(lines, lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true).
		Render("[x] Dismiss"))

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 2).
		MaxWidth(maxWidth).
		Render(strings.Join(lines, "\n"))
}

// RenderToastStack renders toasts stacked vertically, newest on top.
func RenderToastStack(toasts []Toast, width int) string {
	if len(toasts) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(toasts))
	for _, t := range toasts {
		rendered = append(rendered, RenderToast(t, width))
	}
	return lipgloss.JoinVertical(lipgloss.Right, rendered...)
}
