// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage opens the wallet's SQLite database.
//
// A single database file holds the persisted application state snapshot and
// the relationship tables (connections and proof requests). The schema is
// versioned with SQLite's user_version pragma and migrated on open.
//
// # Usage
//
//	db, err := storage.Open(ctx, storage.DefaultPath())
//	if err != nil {
//		return err
//	}
//	defer db.Close()
package storage
