// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package key

import (
	"encoding/binary"
	"fmt"

	"github.com/openkdbx/kdbx/internal/hashutil"
	"github.com/openkdbx/kdbx/internal/kdf"
)

// ErrIncorrectKey is returned when no key elements were supplied.
var ErrIncorrectKey = fmt.Errorf("key: no key elements supplied")

// Elements holds the up-to-three key elements a DatabaseKey may supply, in
// the fixed order password, keyfile, challenge-response (spec §4.4).
type Elements struct {
	Password          *[32]byte // SHA-256(utf-8 password), if set
	Keyfile           *[32]byte // 32-byte keyfile element, if set
	ChallengeResponse *[32]byte // SHA-256(raw token response), if set

	// RawKeyfile32 is true when a single 32-byte raw keyfile was the only
	// element supplied; this selects KDB1's verbatim-composite-key rule.
	RawKeyfile32 bool
}

func (e Elements) list() [][32]byte {
	var out [][32]byte
	if e.Password != nil {
		out = append(out, *e.Password)
	}
	if e.Keyfile != nil {
		out = append(out, *e.Keyfile)
	}
	if e.ChallengeResponse != nil {
		out = append(out, *e.ChallengeResponse)
	}
	return out
}

// HashPassword returns SHA-256 of the UTF-8 password bytes.
func HashPassword(password string) [32]byte {
	return hashutil.SHA256([]byte(password))
}

// HashChallengeResponse returns SHA-256 of a raw challenge-response token.
func HashChallengeResponse(response []byte) [32]byte {
	return hashutil.SHA256(response)
}

// CompositeKDBX returns the KDBX3/KDBX4 composite key: SHA-256 of the
// concatenated key elements in order, always hashed even for a single
// element (spec §4.4, and the "always hash" resolution of the Open Question
// in spec §9).
func CompositeKDBX(e Elements) ([32]byte, error) {
	elems := e.list()
	if len(elems) == 0 {
		return [32]byte{}, ErrIncorrectKey
	}
	pieces := make([][]byte, len(elems))
	for i := range elems {
		cp := elems[i]
		pieces[i] = cp[:]
	}
	return hashutil.SHA256(pieces...), nil
}

// CompositeKDB1 returns the KDB1 composite key: verbatim if exactly one
// element is present and it is a raw 32-byte keyfile, otherwise falls back
// to the KDBX3/4 "always hash" rule (spec §4.4).
func CompositeKDB1(e Elements) ([32]byte, error) {
	elems := e.list()
	if len(elems) == 1 && e.RawKeyfile32 && e.Keyfile != nil {
		return *e.Keyfile, nil
	}
	return CompositeKDBX(e)
}

// TransformedKey runs the composite key through the selected KDF.
func TransformedKey(composite [32]byte, k kdf.KDF) ([32]byte, error) {
	return k.Transform(composite)
}

// MasterKey returns SHA-256(master_seed || transformed_key).
func MasterKey(masterSeed [32]byte, transformed [32]byte) [32]byte {
	return hashutil.SHA256(masterSeed[:], transformed[:])
}

// HMACKey returns the KDBX4 header-authentication key:
// SHA-512(master_seed || transformed_key || 0x01).
func HMACKey(masterSeed [32]byte, transformed [32]byte) [64]byte {
	return hashutil.SHA512(masterSeed[:], transformed[:], []byte{0x01})
}

// BlockHMACSubKey returns the per-block HMAC sub-key:
// SHA-512(u64_le(blockIndex) || hmacKey).
func BlockHMACSubKey(blockIndex uint64, hmacKey [64]byte) [64]byte {
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], blockIndex)
	return hashutil.SHA512(idx[:], hmacKey[:])
}
