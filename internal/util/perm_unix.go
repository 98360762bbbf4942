// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows

package util

import (
	"fmt"
	"os"
)

// RestrictToOwner sets path to 0600.
func RestrictToOwner(path string) error {
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to restrict %s: %w", path, err)
	}
	return nil
}

// CheckOwnerOnly fails when path has any group or world permission bits.
func CheckOwnerOnly(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		return fmt.Errorf("%w: %s has mode %o, want 0600", ErrInsecurePermissions, path, mode)
	}
	return nil
}
