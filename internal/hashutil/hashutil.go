// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package hashutil implements the digest and MAC primitives used throughout
// the container codec (spec §4.2): plain SHA-256/SHA-512 over concatenated
// pieces, and HMAC-SHA-256 keyed digests.
package hashutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
)

// SHA256 concatenates pieces and returns their SHA-256 digest.
func SHA256(pieces ...[]byte) [32]byte {
	h := sha256.New()
	for _, p := range pieces {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// SHA512 concatenates pieces and returns their SHA-512 digest.
func SHA512(pieces ...[]byte) [64]byte {
	h := sha512.New()
	for _, p := range pieces {
		h.Write(p)
	}
	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HMACSHA256 concatenates pieces and returns their HMAC-SHA-256 under key.
func HMACSHA256(key []byte, pieces ...[]byte) [32]byte {
	mac := hmac.New(sha256.New, key)
	for _, p := range pieces {
		mac.Write(p)
	}
	var out [32]byte
	copy(out[:], mac.Sum(nil))
	return out
}
