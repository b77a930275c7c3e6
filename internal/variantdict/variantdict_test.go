// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package variantdict

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	d := New()
	d.SetUInt32("R", 6)
	d.SetUInt64("M", 1<<20)
	d.SetBool("P", true)
	d.SetString("Name", "argon2id")
	d.SetBytes("S", []byte{1, 2, 3, 4})

	var buf bytes.Buffer
	require.NoError(t, d.Encode(&buf))

	decoded, err := Decode(&buf)
	require.NoError(t, err)

	require.Equal(t, d.Keys(), decoded.Keys())

	r, err := decoded.GetUInt32("R")
	require.NoError(t, err)
	require.Equal(t, uint32(6), r)

	m, err := decoded.GetUInt64("M")
	require.NoError(t, err)
	require.Equal(t, uint64(1<<20), m)

	s, err := decoded.GetBytes("S")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, s)

	require.True(t, decoded.Has("Name"))
	require.False(t, decoded.Has("Missing"))
}

func TestGetUInt32MissingKey(t *testing.T) {
	d := New()
	_, err := d.GetUInt32("Absent")
	require.Error(t, err)
	key, ok := MissingKey(err)
	require.True(t, ok)
	require.Equal(t, "Absent", key)
}

func TestGetUInt32MistypedKey(t *testing.T) {
	d := New()
	d.SetString("S", "not a number")
	_, err := d.GetUInt32("S")
	require.Error(t, err)
	key, ok := MistypedKey(err)
	require.True(t, ok)
	require.Equal(t, "S", key)
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	buf := []byte{0x00, 0x02, 0x00}
	_, err := Decode(bytes.NewReader(buf))
	require.Error(t, err)
	var verErr *InvalidVersionError
	require.ErrorAs(t, err, &verErr)
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x01})
	buf.WriteByte(0x99)
	_, err := Decode(&buf)
	require.Error(t, err)
	var typeErr *InvalidValueTypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestSetOverwritesPreservesKeyOrder(t *testing.T) {
	d := New()
	d.SetUInt32("A", 1)
	d.SetUInt32("B", 2)
	d.SetUInt32("A", 3)

	require.Equal(t, []string{"A", "B"}, d.Keys())
	v, err := d.GetUInt32("A")
	require.NoError(t, err)
	require.Equal(t, uint32(3), v)
}
