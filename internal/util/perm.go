// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "errors"

// ErrInsecurePermissions is returned by CheckOwnerOnly when principals other
// than the owner can reach a key file.
var ErrInsecurePermissions = errors.New("file is accessible to other users")
