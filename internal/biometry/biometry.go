// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package biometry abstracts the platform biometric unlock.
//
// Real platform APIs are out of scope. FileCapability is a development
// stand-in whose behaviour is controlled by the contents of a small file.
package biometry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnavailable is returned when no biometric hardware or enrollment exists.
	ErrUnavailable = errors.New("biometric unlock unavailable")

	// ErrCancelled is returned when the user dismissed the prompt.
	ErrCancelled = errors.New("biometric prompt cancelled")

	// ErrEnrollmentChanged means a new biometric was enrolled and the
	// protected key was invalidated. The PIN must be used instead.
	ErrEnrollmentChanged = errors.New("biometric enrollment changed")

	// ErrNotRecognized is returned for a failed match.
	ErrNotRecognized = errors.New("biometric not recognized")
)

// Capability unlocks the wallet with a biometric check.
type Capability interface {
	// Available reports whether Unlock can be attempted.
	Available(ctx context.Context) bool

	// Unlock prompts for a biometric and returns nil on a match.
	Unlock(ctx context.Context) error
}

// None is a Capability that is never available.
type None struct{}

func (None) Available(context.Context) bool { return false }
func (None) Unlock(context.Context) error   { return ErrUnavailable }

// =============================================================================
// FILE CAPABILITY
// =============================================================================

// File states understood by FileCapability.
const (
	StateEnrolled = "enrolled"
	StateChanged  = "changed"
	StateCancel   = "cancel"
	StateMismatch = "mismatch"
)

// FileCapability reads its outcome from a file. A missing file means
// unavailable. The file holds one of the State* words.
type FileCapability struct {
	path string
}

// NewFileCapability creates a capability controlled by path.
func NewFileCapability(path string) *FileCapability {
	return &FileCapability{path: path}
}

func (f *FileCapability) read() (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrUnavailable
	}
	if err != nil {
		return "", fmt.Errorf("failed to read biometry state: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Available reports whether the file exists.
func (f *FileCapability) Available(ctx context.Context) bool {
	_, err := f.read()
	return err == nil
}

// Unlock maps the file state to an outcome.
func (f *FileCapability) Unlock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	state, err := f.read()
	if err != nil {
		return err
	}
	switch state {
	case StateEnrolled:
		return nil
	case StateChanged:
		return ErrEnrollmentChanged
	case StateCancel:
		return ErrCancelled
	default:
		return ErrNotRecognized
	}
}

// DefaultPath returns ~/.walletgate/biometry.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".walletgate", "biometry")
	}
	return filepath.Join(home, ".walletgate", "biometry")
}
