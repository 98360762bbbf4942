// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeranaias/walletgate/internal/util"
)

// =============================================================================
// TAG KEY
// =============================================================================

// TagKeyEnvVar overrides the key file with a hex-encoded key.
const TagKeyEnvVar = "WALLETGATE_STATE_KEY"

// TagKeyFileName is the default key file name inside the data directory.
const TagKeyFileName = ".state_key"

// ErrKeyFilePermissions is returned when the key file is readable by others.
var ErrKeyFilePermissions = errors.New("state key file has insecure permissions - must be 0600 or more restrictive")

// LoadOrCreateKey returns the snapshot tag key. The environment variable wins;
// otherwise the key is read from path, generating a new one on first run.
func LoadOrCreateKey(path string) ([]byte, error) {
	if hexKey := os.Getenv(TagKeyEnvVar); hexKey != "" {
		key, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("%s must be hex-encoded: %w", TagKeyEnvVar, err)
		}
		if len(key) != TagKeySize {
			return nil, fmt.Errorf("%s must be %d bytes, got %d", TagKeyEnvVar, TagKeySize, len(key))
		}
		return key, nil
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		if err := util.CheckOwnerOnly(path); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyFilePermissions, err)
		}
		key, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read state key: %w", err)
		}
		if len(key) != TagKeySize {
			return nil, fmt.Errorf("state key at %s must be %d bytes, got %d", path, TagKeySize, len(key))
		}
		return key, nil

	case errors.Is(err, os.ErrNotExist):
		key := make([]byte, TagKeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate state key: %w", err)
		}
		if err := util.AtomicWriteFile(path, key, 0600); err != nil {
			return nil, fmt.Errorf("failed to write state key: %w", err)
		}
		if err := util.RestrictToOwner(path); err != nil {
			return nil, err
		}
		return key, nil

	default:
		return nil, fmt.Errorf("failed to stat state key: %w", err)
	}
}

// DefaultKeyPath returns ~/.walletgate/.state_key.
func DefaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".walletgate", TagKeyFileName)
	}
	return filepath.Join(home, ".walletgate", TagKeyFileName)
}
