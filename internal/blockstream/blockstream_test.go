// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package blockstream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKDBX3ComposeDecomposeRoundTrip(t *testing.T) {
	content := bytes.Repeat([]byte("payload bytes "), 1000)

	var buf bytes.Buffer
	require.NoError(t, ComposeKDBX3(&buf, content))

	got, err := DecomposeKDBX3(&buf)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestKDBX3DecomposeDetectsCorruption(t *testing.T) {
	content := []byte("hello world")
	var buf bytes.Buffer
	require.NoError(t, ComposeKDBX3(&buf, content))

	corrupt := buf.Bytes()
	corrupt[4+32+4] ^= 0xFF // flip the first byte of the block data (after id, hash, size)

	_, err := DecomposeKDBX3(bytes.NewReader(corrupt))
	require.Error(t, err)
	var mismatch *BlockHashMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestKDBX4ComposeDecomposeRoundTrip(t *testing.T) {
	var hmacKey [64]byte
	copy(hmacKey[:], []byte("a fake 64 byte hmac key used only for testing.."))

	content := bytes.Repeat([]byte("x"), 3*DefaultBlockSize+17)

	var buf bytes.Buffer
	require.NoError(t, ComposeKDBX4(&buf, content, hmacKey))

	got, err := DecomposeKDBX4(&buf, hmacKey)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestKDBX4DecomposeDetectsWrongKey(t *testing.T) {
	var hmacKey [64]byte
	copy(hmacKey[:], []byte("key one"))
	var wrongKey [64]byte
	copy(wrongKey[:], []byte("key two"))

	var buf bytes.Buffer
	require.NoError(t, ComposeKDBX4(&buf, []byte("some data"), hmacKey))

	_, err := DecomposeKDBX4(&buf, wrongKey)
	require.Error(t, err)
	var mismatch *BlockHashMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestHeaderHMACDiffersByKey(t *testing.T) {
	header := []byte("outer header bytes")
	var key1, key2 [64]byte
	copy(key1[:], []byte("key one"))
	copy(key2[:], []byte("key two"))

	require.NotEqual(t, HeaderHMAC(header, key1), HeaderHMAC(header, key2))
}
