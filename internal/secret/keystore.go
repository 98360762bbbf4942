// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package secret

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeranaias/walletgate/internal/util"
)

// =============================================================================
// KEYSTORE
// =============================================================================

// ErrNoRecord is returned by Retrieve when nothing is stored.
var ErrNoRecord = errors.New("no secret record stored")

// KeyStore holds the encoded secret record. NewKeyStore picks the platform
// implementation; FileKeyStore is the portable fallback.
type KeyStore interface {
	Store(record []byte) error
	// Retrieve returns ErrNoRecord when nothing is stored.
	Retrieve() ([]byte, error)
	Delete() error
	Exists() bool
}

// FileKeyStore keeps the record in a 0600 file.
type FileKeyStore struct {
	path string
}

// NewFileKeyStore creates a file-backed key store at path.
func NewFileKeyStore(path string) *FileKeyStore {
	return &FileKeyStore{path: path}
}

// Store atomically replaces the record.
func (f *FileKeyStore) Store(record []byte) error {
	if err := util.AtomicWriteFile(f.path, record, 0600); err != nil {
		return fmt.Errorf("failed to write secret file: %w", err)
	}
	return nil
}

// Retrieve reads the record.
func (f *FileKeyStore) Retrieve() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secret file: %w", err)
	}
	return data, nil
}

// Delete removes the record. Deleting a missing record is not an error.
func (f *FileKeyStore) Delete() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete secret file: %w", err)
	}
	return nil
}

// Exists reports whether a record file is present.
func (f *FileKeyStore) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// DefaultPath returns ~/.walletgate/pin.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".walletgate", "pin.json")
	}
	return filepath.Join(home, ".walletgate", "pin.json")
}
