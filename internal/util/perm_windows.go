// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows

package util

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// RestrictToOwner replaces the DACL on path with a single entry granting the
// current user full control. Inherited entries are dropped.
func RestrictToOwner(path string) error {
	user, err := currentUserSID()
	if err != nil {
		return err
	}

	acl, err := windows.ACLFromEntries([]windows.EXPLICIT_ACCESS{{
		AccessPermissions: windows.GENERIC_ALL,
		AccessMode:        windows.GRANT_ACCESS,
		Inheritance:       windows.NO_INHERITANCE,
		Trustee: windows.TRUSTEE{
			TrusteeForm:  windows.TRUSTEE_IS_SID,
			TrusteeType:  windows.TRUSTEE_IS_USER,
			TrusteeValue: windows.TrusteeValueFromSID(user),
		},
	}}, nil)
	if err != nil {
		return fmt.Errorf("failed to build ACL: %w", err)
	}

	err = windows.SetNamedSecurityInfo(path, windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION|windows.PROTECTED_DACL_SECURITY_INFORMATION,
		nil, nil, acl, nil)
	if err != nil {
		return fmt.Errorf("failed to restrict %s: %w", path, err)
	}
	return nil
}

// CheckOwnerOnly fails when path is owned by someone other than the current
// user, SYSTEM or Administrators, or when its DACL allows any other
// principal in.
func CheckOwnerOnly(path string) error {
	sd, err := windows.GetNamedSecurityInfo(path, windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION|windows.OWNER_SECURITY_INFORMATION)
	if err != nil {
		return fmt.Errorf("failed to read security info for %s: %w", path, err)
	}

	user, err := currentUserSID()
	if err != nil {
		return err
	}
	trusted, err := trustedSIDs(user)
	if err != nil {
		return err
	}

	owner, _, err := sd.Owner()
	if err != nil {
		return fmt.Errorf("failed to read owner of %s: %w", path, err)
	}
	if !anySIDEquals(trusted, owner) {
		return fmt.Errorf("%w: %s has an unexpected owner", ErrInsecurePermissions, path)
	}

	dacl, _, err := sd.DACL()
	if err != nil {
		return fmt.Errorf("failed to read DACL of %s: %w", path, err)
	}
	if dacl == nil {
		return fmt.Errorf("%w: %s has a NULL DACL", ErrInsecurePermissions, path)
	}

	for i := uint32(0); i < uint32(dacl.AceCount); i++ {
		var ace *windows.ACCESS_ALLOWED_ACE
		if err := windows.GetAce(dacl, i, &ace); err != nil {
			return fmt.Errorf("failed to read ACE %d of %s: %w", i, path, err)
		}
		if ace.Header.AceType != windows.ACCESS_ALLOWED_ACE_TYPE {
			continue
		}
		sid := (*windows.SID)(unsafe.Pointer(&ace.SidStart))
		if !anySIDEquals(trusted, sid) {
			return fmt.Errorf("%w: %s grants access to %s", ErrInsecurePermissions, path, sid.String())
		}
	}
	return nil
}

func currentUserSID() (*windows.SID, error) {
	token, err := windows.OpenCurrentProcessToken()
	if err != nil {
		return nil, fmt.Errorf("failed to open process token: %w", err)
	}
	defer token.Close()

	user, err := token.GetTokenUser()
	if err != nil {
		return nil, fmt.Errorf("failed to read token user: %w", err)
	}
	return user.User.Sid, nil
}

func trustedSIDs(user *windows.SID) ([]*windows.SID, error) {
	sids := []*windows.SID{user}
	for _, kind := range []windows.WELL_KNOWN_SID_TYPE{
		windows.WinLocalSystemSid,
		windows.WinBuiltinAdministratorsSid,
	} {
		sid, err := windows.CreateWellKnownSid(kind)
		if err != nil {
			return nil, fmt.Errorf("failed to create well-known SID: %w", err)
		}
		sids = append(sids, sid)
	}
	return sids, nil
}

func anySIDEquals(sids []*windows.SID, target *windows.SID) bool {
	if target == nil {
		return false
	}
	for _, sid := range sids {
		if sid.Equals(target) {
			return true
		}
	}
	return false
}
