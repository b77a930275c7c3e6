// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package cipher

import (
	"crypto/sha512"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

// InnerCipherID identifies an inner (protected-value) stream cipher by the
// u32 id carried in the outer header (KDBX3) or inner header (KDBX4).
type InnerCipherID uint32

// Inner stream cipher ids (spec §4.1/§4.7).
const (
	InnerPlain    InnerCipherID = 0
	InnerSalsa20  InnerCipherID = 2
	InnerChaCha20 InnerCipherID = 3
)

func (id InnerCipherID) String() string {
	switch id {
	case InnerPlain:
		return "Plain"
	case InnerSalsa20:
		return "Salsa20"
	case InnerChaCha20:
		return "ChaCha20"
	default:
		return fmt.Sprintf("InnerCipher(%d)", uint32(id))
	}
}

// salsa20Nonce is the fixed 8-byte nonce mandated for the inner Salsa20
// stream (spec §4.1).
var salsa20Nonce = [8]byte{0xE8, 0x30, 0x09, 0x4B, 0x97, 0x20, 0x5D, 0x2A}

// InnerStream is a keystream cipher applied to protected XML values in
// document order: each call to XOR consumes as many keystream bytes as the
// plaintext length passed to it, so callers must process values in the
// exact order they appear in the serialized document (spec §4.9, §9).
type InnerStream struct {
	xor func(dst, src []byte)
}

// NewInnerStream constructs the keystream state for id, keyed by key. For
// KDBX3, key is the inner header's ProtectedStreamKey after SHA-256; for
// KDBX4, key is the raw InnerRandomStreamKey bytes.
func NewInnerStream(id InnerCipherID, key []byte) (*InnerStream, error) {
	switch id {
	case InnerPlain:
		return &InnerStream{xor: func(dst, src []byte) { copy(dst, src) }}, nil

	case InnerSalsa20:
		if len(key) != 32 {
			return nil, &CipherInitError{"salsa20 requires a 32-byte key"}
		}
		var k [32]byte
		copy(k[:], key)
		stream := newSalsa20Stream(k, salsa20Nonce)
		return &InnerStream{xor: stream.XORKeyStream}, nil

	case InnerChaCha20:
		sum := sha512.Sum512(key)
		c, err := chacha20.NewUnauthenticatedCipher(sum[:32], sum[32:44])
		if err != nil {
			return nil, err
		}
		return &InnerStream{xor: func(dst, src []byte) { c.XORKeyStream(dst, src) }}, nil

	default:
		return nil, &CipherInitError{fmt.Sprintf("unknown inner cipher id %d", id)}
	}
}

// XOR applies the keystream to src, writing len(src) bytes to dst, and
// advances the stream position by len(src) bytes.
func (s *InnerStream) XOR(dst, src []byte) { s.xor(dst, src) }

// Apply returns a new slice holding data XORed against the keystream; data
// itself is left unchanged.
func (s *InnerStream) Apply(data []byte) []byte {
	out := make([]byte, len(data))
	s.XOR(out, data)
	return out
}
