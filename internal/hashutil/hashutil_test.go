// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package hashutil

import (
	"crypto/sha256"
	"crypto/sha512"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSHA256ConcatenatesPieces(t *testing.T) {
	got := SHA256([]byte("hello, "), []byte("world"))
	want := sha256.Sum256([]byte("hello, world"))
	require.Equal(t, want, got)
}

func TestSHA512ConcatenatesPieces(t *testing.T) {
	got := SHA512([]byte("foo"), []byte("bar"))
	want := sha512.Sum512([]byte("foobar"))
	require.Equal(t, want, got)
}

func TestHMACSHA256DiffersByKey(t *testing.T) {
	a := HMACSHA256([]byte("key1"), []byte("payload"))
	b := HMACSHA256([]byte("key2"), []byte("payload"))
	require.NotEqual(t, a, b)
}

func TestHMACSHA256Deterministic(t *testing.T) {
	a := HMACSHA256([]byte("key"), []byte("piece1"), []byte("piece2"))
	b := HMACSHA256([]byte("key"), []byte("piece1"), []byte("piece2"))
	require.Equal(t, a, b)
}
