// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package cipher

import "encoding/binary"

// salsa20Stream is a buffered, byte-resumable Salsa20 keystream generator.
// golang.org/x/crypto/salsa20/salsa.XORKeyStream restarts its block counter
// at zero on every call, which doesn't fit the inner cipher's requirement
// that successive protected values consume consecutive keystream bytes
// across separate XOR calls (spec §4.1, §9). The block function and
// buffered-output-plus-cursor design below follow the same shape as
// other known public-domain ChaCha stream implementations: a 16-word input
// state, a 64-byte output buffer, and a cursor into that buffer.
type salsa20Stream struct {
	input    [16]uint32
	output   [64]byte
	nextByte int
}

var salsaSigma = [4]uint32{0x61707865, 0x3320646e, 0x79622d32, 0x6b206574}

func newSalsa20Stream(key [32]byte, nonce [8]byte) *salsa20Stream {
	s := new(salsa20Stream)
	s.input[0] = salsaSigma[0]
	s.input[1] = binary.LittleEndian.Uint32(key[0:4])
	s.input[2] = binary.LittleEndian.Uint32(key[4:8])
	s.input[3] = binary.LittleEndian.Uint32(key[8:12])
	s.input[4] = binary.LittleEndian.Uint32(key[12:16])
	s.input[5] = salsaSigma[1]
	s.input[6] = binary.LittleEndian.Uint32(nonce[0:4])
	s.input[7] = binary.LittleEndian.Uint32(nonce[4:8])
	s.input[8] = 0 // block counter low
	s.input[9] = 0 // block counter high
	s.input[10] = salsaSigma[2]
	s.input[11] = binary.LittleEndian.Uint32(key[16:20])
	s.input[12] = binary.LittleEndian.Uint32(key[20:24])
	s.input[13] = binary.LittleEndian.Uint32(key[24:28])
	s.input[14] = binary.LittleEndian.Uint32(key[28:32])
	s.input[15] = salsaSigma[3]
	s.nextByte = len(s.output)
	return s
}

func rotl32(x uint32, n uint) uint32 { return (x << n) | (x >> (32 - n)) }

func (s *salsa20Stream) quarterRound(x *[16]uint32, a, b, c, d int) {
	x[b] ^= rotl32(x[a]+x[d], 7)
	x[c] ^= rotl32(x[b]+x[a], 9)
	x[d] ^= rotl32(x[c]+x[b], 13)
	x[a] ^= rotl32(x[d]+x[c], 18)
}

func (s *salsa20Stream) block() {
	var x [16]uint32
	copy(x[:], s.input[:])

	for i := 0; i < 10; i++ {
		// column rounds
		s.quarterRound(&x, 0, 4, 8, 12)
		s.quarterRound(&x, 5, 9, 13, 1)
		s.quarterRound(&x, 10, 14, 2, 6)
		s.quarterRound(&x, 15, 3, 7, 11)
		// row rounds
		s.quarterRound(&x, 0, 1, 2, 3)
		s.quarterRound(&x, 5, 6, 7, 4)
		s.quarterRound(&x, 10, 11, 8, 9)
		s.quarterRound(&x, 15, 12, 13, 14)
	}

	for i := 0; i < 16; i++ {
		x[i] += s.input[i]
		binary.LittleEndian.PutUint32(s.output[i*4:], x[i])
	}

	ctr := uint64(s.input[8]) | uint64(s.input[9])<<32
	ctr++
	s.input[8] = uint32(ctr)
	s.input[9] = uint32(ctr >> 32)
	s.nextByte = 0
}

// XORKeyStream XORs src into dst with the next len(src) keystream bytes.
func (s *salsa20Stream) XORKeyStream(dst, src []byte) {
	for i := range src {
		if s.nextByte >= len(s.output) {
			s.block()
		}
		dst[i] = src[i] ^ s.output[s.nextByte]
		s.nextByte++
	}
}
