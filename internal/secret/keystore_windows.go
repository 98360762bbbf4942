// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows

package secret

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/jeranaias/walletgate/internal/util"
)

// dpapiEntropy binds protected records to walletgate.
var dpapiEntropy = []byte("walletgate/pin-record/v1")

// DPAPIKeyStore encrypts the record with the current user's DPAPI key before
// writing it to an owner-only file.
type DPAPIKeyStore struct {
	file *FileKeyStore
}

// NewKeyStore returns the platform key store for path.
func NewKeyStore(path string) KeyStore {
	return &DPAPIKeyStore{file: NewFileKeyStore(path)}
}

// Store protects and writes the record.
func (d *DPAPIKeyStore) Store(record []byte) error {
	sealed, err := dpapiProtect(record)
	if err != nil {
		return fmt.Errorf("DPAPI protect failed: %w", err)
	}
	if err := d.file.Store(sealed); err != nil {
		return err
	}
	return util.RestrictToOwner(d.file.path)
}

// Retrieve reads and unprotects the record.
func (d *DPAPIKeyStore) Retrieve() ([]byte, error) {
	sealed, err := d.file.Retrieve()
	if err != nil {
		return nil, err
	}
	if err := util.CheckOwnerOnly(d.file.path); err != nil {
		return nil, err
	}
	record, err := dpapiUnprotect(sealed)
	if err != nil {
		return nil, fmt.Errorf("DPAPI unprotect failed: %w", err)
	}
	return record, nil
}

// Delete removes the record.
func (d *DPAPIKeyStore) Delete() error { return d.file.Delete() }

// Exists reports whether a record is present.
func (d *DPAPIKeyStore) Exists() bool { return d.file.Exists() }

func blobOf(b []byte) *windows.DataBlob {
	if len(b) == 0 {
		return &windows.DataBlob{}
	}
	return &windows.DataBlob{Size: uint32(len(b)), Data: &b[0]}
}

// takeBlob copies out and frees a buffer returned by DPAPI.
func takeBlob(blob windows.DataBlob) []byte {
	defer windows.LocalFree(windows.Handle(unsafe.Pointer(blob.Data)))
	out := make([]byte, blob.Size)
	copy(out, unsafe.Slice(blob.Data, blob.Size))
	return out
}

func dpapiProtect(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, fmt.Errorf("empty record")
	}
	var out windows.DataBlob
	err := windows.CryptProtectData(blobOf(plain), nil, blobOf(dpapiEntropy), 0, nil,
		windows.CRYPTPROTECT_UI_FORBIDDEN, &out)
	if err != nil {
		return nil, err
	}
	return takeBlob(out), nil
}

func dpapiUnprotect(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, fmt.Errorf("empty record")
	}
	var out windows.DataBlob
	err := windows.CryptUnprotectData(blobOf(sealed), nil, blobOf(dpapiEntropy), 0, nil,
		windows.CRYPTPROTECT_UI_FORBIDDEN, &out)
	if err != nil {
		return nil, err
	}
	return takeBlob(out), nil
}
