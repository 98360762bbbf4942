// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows

package secret

// NewKeyStore returns the platform key store for path. Outside Windows this
// is the 0600 file store.
func NewKeyStore(path string) KeyStore {
	return NewFileKeyStore(path)
}
