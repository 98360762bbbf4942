// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows

package util

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckOwnerOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("k"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := CheckOwnerOnly(path); !errors.Is(err, ErrInsecurePermissions) {
		t.Errorf("CheckOwnerOnly(0644) error = %v, want ErrInsecurePermissions", err)
	}

	if err := RestrictToOwner(path); err != nil {
		t.Fatalf("RestrictToOwner() error = %v", err)
	}
	if err := CheckOwnerOnly(path); err != nil {
		t.Errorf("CheckOwnerOnly() after restrict error = %v", err)
	}
}

func TestCheckOwnerOnly_Missing(t *testing.T) {
	err := CheckOwnerOnly(filepath.Join(t.TempDir(), "missing"))
	if err == nil || errors.Is(err, ErrInsecurePermissions) {
		t.Errorf("CheckOwnerOnly(missing) error = %v, want a stat error", err)
	}
}
