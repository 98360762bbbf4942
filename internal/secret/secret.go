// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package secret stores and verifies the wallet PIN.
//
// The PIN itself is never stored. SetSecret keeps a random salt and a
// PBKDF2-SHA256 hash of the NFKC-normalised PIN; CheckSecret derives the
// same hash from a candidate and compares in constant time.
package secret

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// SaltSize is the salt length in bytes.
	SaltSize = 32

	// HashSize is the derived hash length in bytes.
	HashSize = 32

	// DefaultIterations is the PBKDF2 iteration count for new secrets.
	DefaultIterations = 210_000

	// MinIterations is the lowest iteration count accepted from config.
	MinIterations = 10_000

	// DefaultPINLength is the number of digits in a PIN.
	DefaultPINLength = 6

	recordVersion = 1
)

var (
	// ErrSecretAbsent is returned when no PIN has been set.
	ErrSecretAbsent = errors.New("no PIN has been set")

	// ErrInvalidPIN is returned by SetSecret for a malformed PIN.
	ErrInvalidPIN = errors.New("invalid PIN")
)

// =============================================================================
// TYPES
// =============================================================================

// Secret is the stored PIN verifier.
type Secret struct {
	Version    int       `json:"version"`
	Salt       []byte    `json:"salt"`
	Hash       []byte    `json:"hash"`
	Iterations int       `json:"iterations"`
	CreatedAt  time.Time `json:"created_at"`
}

// Provider verifies PIN candidates.
type Provider interface {
	// CheckSecret reports whether candidate matches. I/O problems are
	// returned as errors; a wrong PIN is (false, nil).
	CheckSecret(ctx context.Context, candidate string) (bool, error)

	// GetSecret returns the stored verifier, or nil when none is set.
	GetSecret(ctx context.Context) (*Secret, error)
}

// Normalize applies NFKC so that full-width and other compatibility digits
// compare equal to ASCII digits.
func Normalize(pin string) string {
	return norm.NFKC.String(pin)
}

// ValidatePIN checks that pin, once normalised, is exactly length ASCII digits.
func ValidatePIN(pin string, length int) error {
	pin = Normalize(pin)
	if len(pin) != length {
		return fmt.Errorf("%w: must be %d digits", ErrInvalidPIN, length)
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: must contain only digits", ErrInvalidPIN)
		}
	}
	return nil
}

func derive(pin string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(Normalize(pin)), salt, iterations, HashSize, sha256.New)
}

// =============================================================================
// STORED PROVIDER
// =============================================================================

// StoredProvider keeps the verifier in a KeyStore.
type StoredProvider struct {
	mu         sync.Mutex
	keys       KeyStore
	iterations int
	pinLength  int
	now        func() time.Time
}

// Option configures a StoredProvider.
type Option func(*StoredProvider)

// WithIterations sets the PBKDF2 iteration count for new secrets.
func WithIterations(n int) Option {
	return func(p *StoredProvider) {
		p.iterations = n
	}
}

// WithPINLength sets the required PIN length.
func WithPINLength(n int) Option {
	return func(p *StoredProvider) {
		p.pinLength = n
	}
}

// NewStoredProvider creates a provider over keys.
func NewStoredProvider(keys KeyStore, opts ...Option) *StoredProvider {
	p := &StoredProvider{
		keys:       keys,
		iterations: DefaultIterations,
		pinLength:  DefaultPINLength,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PINLength returns the required PIN length.
func (p *StoredProvider) PINLength() int {
	return p.pinLength
}

// GetSecret returns the stored verifier or nil.
func (p *StoredProvider) GetSecret(ctx context.Context) (*Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load()
}

func (p *StoredProvider) load() (*Secret, error) {
	data, err := p.keys.Retrieve()
	if errors.Is(err, ErrNoRecord) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s Secret
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode secret: %w", err)
	}
	if s.Version != recordVersion || len(s.Salt) == 0 || len(s.Hash) != HashSize || s.Iterations < 1 {
		return nil, fmt.Errorf("stored secret is malformed")
	}
	return &s, nil
}

// CheckSecret verifies candidate against the stored verifier.
func (p *StoredProvider) CheckSecret(ctx context.Context, candidate string) (bool, error) {
	s, err := p.GetSecret(ctx)
	if err != nil {
		return false, err
	}
	if s == nil {
		return false, ErrSecretAbsent
	}

	got := derive(candidate, s.Salt, s.Iterations)
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(got, s.Hash) == 1, nil
}

// SetSecret validates pin and replaces the stored verifier.
func (p *StoredProvider) SetSecret(ctx context.Context, pin string) error {
	if err := ValidatePIN(pin, p.pinLength); err != nil {
		return err
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	s := Secret{
		Version:    recordVersion,
		Salt:       salt,
		Hash:       derive(pin, salt, p.iterations),
		Iterations: p.iterations,
		CreatedAt:  p.now().UTC(),
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode secret: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys.Store(data)
}

// Clear removes the stored verifier.
func (p *StoredProvider) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys.Delete()
}
