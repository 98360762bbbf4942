// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// =============================================================================
// SNAPSHOT CODEC
// =============================================================================

// TagKeySize is the length of the key used to tag persisted snapshots.
const TagKeySize = 32

var (
	// ErrTampered is returned when a persisted snapshot's tag does not match.
	ErrTampered = errors.New("persisted state failed integrity check")

	// ErrSnapshotVersion is returned for snapshots from a newer release.
	ErrSnapshotVersion = errors.New("unsupported snapshot version")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Deterministic encoding keeps the tag stable for identical state.
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("store: CBOR decoder initialization failed: " + err.Error())
	}
}

// Codec encodes snapshots and tags them with a keyed BLAKE3 hash.
type Codec struct {
	key [TagKeySize]byte
}

// NewCodec returns a codec using key for tagging.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != TagKeySize {
		return nil, fmt.Errorf("tag key must be %d bytes, got %d", TagKeySize, len(key))
	}
	c := &Codec{}
	copy(c.key[:], key)
	return c, nil
}

// Encode returns the CBOR payload for snap and its tag.
func (c *Codec) Encode(snap Snapshot) (payload, tag []byte, err error) {
	payload, err = encMode.Marshal(snap)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	tag, err = c.tag(payload)
	if err != nil {
		return nil, nil, err
	}
	return payload, tag, nil
}

// Decode verifies tag against payload and decodes the snapshot.
func (c *Codec) Decode(payload, tag []byte) (Snapshot, error) {
	want, err := c.tag(payload)
	if err != nil {
		return Snapshot{}, err
	}
	if subtle.ConstantTimeCompare(want, tag) != 1 {
		return Snapshot{}, ErrTampered
	}

	var snap Snapshot
	if err := decMode.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version > SnapshotVersion {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}
	return snap, nil
}

func (c *Codec) tag(payload []byte) ([]byte, error) {
	hasher, err := blake3.NewKeyed(c.key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create tag hasher: %w", err)
	}
	hasher.Write(payload)
	return hasher.Sum(nil), nil
}
