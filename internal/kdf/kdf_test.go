// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package kdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAESKDFTransformIsDeterministic(t *testing.T) {
	k := AESKDF{Params: AESKDFParams{Rounds: 10}}
	var composite [32]byte
	copy(composite[:], []byte("some composite key material...."))

	a, err := k.Transform(composite)
	require.NoError(t, err)
	b, err := k.Transform(composite)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestAESKDFMoreRoundsChangesOutput(t *testing.T) {
	var composite [32]byte
	copy(composite[:], []byte("some composite key material...."))

	a, err := AESKDF{Params: AESKDFParams{Rounds: 1}}.Transform(composite)
	require.NoError(t, err)
	b, err := AESKDF{Params: AESKDFParams{Rounds: 2}}.Transform(composite)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestAESKDFBenchmarkCountsRounds(t *testing.T) {
	k := AESKDF{Params: AESKDFParams{Rounds: 1}}
	rounds, err := k.Benchmark(10 * time.Millisecond)
	require.NoError(t, err)
	require.Greater(t, rounds, uint64(0))
}

func TestArgon2KDFTransformIsDeterministic(t *testing.T) {
	k := Argon2KDF{Params: Argon2Params{
		Salt:        make([]byte, 16),
		Parallelism: 1,
		MemoryBytes: 8 * 1024,
		Iterations:  1,
		Variant:     Argon2id,
		Version:     0x13,
	}}
	var composite [32]byte
	a, err := k.Transform(composite)
	require.NoError(t, err)
	b, err := k.Transform(composite)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestArgon2KDFRejectsInvalidParams(t *testing.T) {
	k := Argon2KDF{Params: Argon2Params{Version: 0x99, Parallelism: 1, Iterations: 1, MemoryBytes: 8 * 1024}}
	_, err := k.Transform([32]byte{})
	require.Error(t, err)
	var paramErr *InvalidParamsError
	require.ErrorAs(t, err, &paramErr)
}

func TestArgon2dAndArgon2idDiffer(t *testing.T) {
	base := Argon2Params{Salt: make([]byte, 16), Parallelism: 1, MemoryBytes: 8 * 1024, Iterations: 1, Version: 0x13}
	dParams := base
	dParams.Variant = Argon2d
	idParams := base
	idParams.Variant = Argon2id

	a, err := Argon2KDF{Params: dParams}.Transform([32]byte{})
	require.NoError(t, err)
	b, err := Argon2KDF{Params: idParams}.Transform([32]byte{})
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestEncodeDecodeParamsAESKDF(t *testing.T) {
	k := AESKDF{Params: AESKDFParams{Rounds: 6000, Seed: [32]byte{1, 2, 3}}}
	d, id, err := EncodeParams(k)
	require.NoError(t, err)
	require.Equal(t, AESKDBX4, id)

	decoded, err := DecodeParams(d)
	require.NoError(t, err)
	got, ok := decoded.(AESKDF)
	require.True(t, ok)
	require.Equal(t, k.Params, got.Params)
}

func TestEncodeDecodeParamsArgon2(t *testing.T) {
	k := Argon2KDF{Params: Argon2Params{
		Salt:        []byte{9, 9, 9, 9},
		Parallelism: 2,
		MemoryBytes: 64 * 1024,
		Iterations:  3,
		Variant:     Argon2id,
		Version:     0x13,
	}}
	d, id, err := EncodeParams(k)
	require.NoError(t, err)
	require.Equal(t, Argon2idUUID, id)

	decoded, err := DecodeParams(d)
	require.NoError(t, err)
	got, ok := decoded.(Argon2KDF)
	require.True(t, ok)
	require.Equal(t, k.Params, got.Params)
}

func TestDecodeParamsRejectsUnknownUUID(t *testing.T) {
	d, _, err := EncodeParams(AESKDF{Params: AESKDFParams{Rounds: 1}})
	require.NoError(t, err)
	d.SetBytes("$UUID", make([]byte, 16))

	_, err = DecodeParams(d)
	require.Error(t, err)
	var uuidErr *InvalidUUIDError
	require.ErrorAs(t, err, &uuidErr)
}
