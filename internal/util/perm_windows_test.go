// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows

package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRestrictToOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("k"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := RestrictToOwner(path); err != nil {
		t.Fatalf("RestrictToOwner() error = %v", err)
	}
	if err := CheckOwnerOnly(path); err != nil {
		t.Errorf("CheckOwnerOnly() after restrict error = %v", err)
	}
}
