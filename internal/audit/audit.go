// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit writes the wallet's security audit trail.
//
// Each event is one JSON line. The free-text Detail field passes through
// redactors before it is written, so PIN candidates that leak into error text
// never reach the file. Metadata values are structured and written as given.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// DefaultMaxFileSize is the size at which the log is rotated (5MB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

// EventType names an audited action.
type EventType string

const (
	EventFailedAttempt  EventType = "PIN_FAILED"
	EventLockout        EventType = "LOCKOUT"
	EventPenaltyServed  EventType = "PENALTY_SERVED"
	EventUnlock         EventType = "UNLOCK"
	EventBiometryFailed EventType = "BIOMETRY_FAILED"
	EventAutoLock       EventType = "AUTO_LOCK"
	EventPINChanged     EventType = "PIN_CHANGED"
	EventLockoutReset   EventType = "LOCKOUT_RESET"
	EventOnboarding     EventType = "ONBOARDING"
	EventStartup        EventType = "STARTUP"
	EventShutdown       EventType = "SHUTDOWN"
)

// =============================================================================
// EVENT
// =============================================================================

// Event is a single audit record.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"event_type"`
	Success   bool              `json:"success"`
	Detail    string            `json:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// =============================================================================
// REDACTION
// =============================================================================

// Redactor rewrites sensitive text.
type Redactor interface {
	Redact(input string) string
	Name() string
}

// PatternRedactor replaces regex matches.
type PatternRedactor struct {
	name    string
	pattern *regexp.Regexp
	replace string
}

// NewPatternRedactor creates a regex-based redactor.
func NewPatternRedactor(name string, pattern *regexp.Regexp, replace string) *PatternRedactor {
	return &PatternRedactor{name: name, pattern: pattern, replace: replace}
}

func (r *PatternRedactor) Redact(input string) string {
	return r.pattern.ReplaceAllString(input, r.replace)
}

func (r *PatternRedactor) Name() string {
	return r.name
}

func defaultRedactors() []Redactor {
	return []Redactor{
		NewPatternRedactor("Digits", regexp.MustCompile(`\d{4,}`), "[DIGITS_REDACTED]"),
		NewPatternRedactor("PIN", regexp.MustCompile(`(?i)(pin|passcode)\s*[=:]\s*\S+`), "[PIN_REDACTED]"),
	}
}

// =============================================================================
// LOGGER
// =============================================================================

// Logger appends events to a file. A nil *Logger discards events.
type Logger struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	maxSize   int64
	redactors []Redactor
	now       func() time.Time
}

// NewLogger opens (creating if needed) the audit log at path.
func NewLogger(path string) (*Logger, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return &Logger{
		path:      path,
		file:      file,
		maxSize:   DefaultMaxFileSize,
		redactors: defaultRedactors(),
		now:       time.Now,
	}, nil
}

// Log redacts Detail and writes event. ID and Timestamp are filled if empty.
func (l *Logger) Log(event Event) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	event.Detail = l.redactLocked(event.Detail)

	if err := l.checkRotationLocked(); err != nil {
		return err
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}
	line = append(line, '\n')
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}
	return nil
}

// Redact applies all redactors to input.
func (l *Logger) Redact(input string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.redactLocked(input)
}

func (l *Logger) redactLocked(input string) string {
	for _, r := range l.redactors {
		input = r.Redact(input)
	}
	return input
}

// SetMaxSize sets the rotation threshold. Zero disables rotation.
func (l *Logger) SetMaxSize(size int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxSize = size
}

// Path returns the log file path.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) checkRotationLocked() error {
	if l.maxSize <= 0 {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil || info.Size() < l.maxSize {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log for rotation: %w", err)
	}
	ext := filepath.Ext(l.path)
	rotated := fmt.Sprintf("%s_%s%s", strings.TrimSuffix(l.path, ext), l.now().Format("20060102_150405"), ext)
	if err := os.Rename(l.path, rotated); err != nil {
		l.file, _ = os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		return fmt.Errorf("failed to rotate audit log: %w", err)
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create new audit log after rotation: %w", err)
	}
	l.file = file
	return nil
}

// =============================================================================
// CONVENIENCE METHODS
// =============================================================================

// LogFailedAttempt records a wrong PIN.
func (l *Logger) LogFailedAttempt(attempts int) error {
	return l.Log(Event{
		Type:     EventFailedAttempt,
		Metadata: map[string]string{"attempts": strconv.Itoa(attempts)},
	})
}

// LogLockout records an imposed penalty.
func (l *Logger) LogLockout(attempts int, until time.Time) error {
	return l.Log(Event{
		Type: EventLockout,
		Metadata: map[string]string{
			"attempts": strconv.Itoa(attempts),
			"until":    until.UTC().Format(time.RFC3339),
		},
	})
}

// LogPenaltyServed records a penalty window ending.
func (l *Logger) LogPenaltyServed() error {
	return l.Log(Event{Type: EventPenaltyServed, Success: true})
}

// LogUnlock records a successful unlock by method ("pin" or "biometry").
func (l *Logger) LogUnlock(method string) error {
	return l.Log(Event{Type: EventUnlock, Success: true, Metadata: map[string]string{"method": method}})
}

// LogBiometryFailed records a failed biometric unlock.
func (l *Logger) LogBiometryFailed(reason string) error {
	return l.Log(Event{Type: EventBiometryFailed, Detail: reason})
}

// LogAutoLock records an inactivity lock.
func (l *Logger) LogAutoLock(idle time.Duration) error {
	return l.Log(Event{Type: EventAutoLock, Success: true, Metadata: map[string]string{"idle": idle.String()}})
}

// LogPINChanged records a new PIN being set.
func (l *Logger) LogPINChanged() error {
	return l.Log(Event{Type: EventPINChanged, Success: true})
}

// LogLockoutReset records an administrative lockout reset.
func (l *Logger) LogLockoutReset() error {
	return l.Log(Event{Type: EventLockoutReset, Success: true})
}

// LogOnboarding records onboarding being completed or reset.
func (l *Logger) LogOnboarding(action string) error {
	return l.Log(Event{Type: EventOnboarding, Success: true, Detail: action})
}

// LogStartup records application start.
func (l *Logger) LogStartup(version string) error {
	return l.Log(Event{Type: EventStartup, Success: true, Metadata: map[string]string{"version": version}})
}

// LogShutdown records application exit.
func (l *Logger) LogShutdown() error {
	return l.Log(Event{Type: EventShutdown, Success: true})
}

// DefaultPath returns ~/.walletgate/audit.log.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".walletgate", "audit.log")
	}
	return filepath.Join(home, ".walletgate", "audit.log")
}
