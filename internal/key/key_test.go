// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package key

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openkdbx/kdbx/internal/kdf"
)

func TestCompositeKDBXRequiresAnElement(t *testing.T) {
	_, err := CompositeKDBX(Elements{})
	require.ErrorIs(t, err, ErrIncorrectKey)
}

func TestCompositeKDBXHashesSingleElement(t *testing.T) {
	pw := HashPassword("hunter2")
	got, err := CompositeKDBX(Elements{Password: &pw})
	require.NoError(t, err)
	require.NotEqual(t, pw, got)
}

func TestCompositeKDBXOrderMatters(t *testing.T) {
	pw := HashPassword("hunter2")
	kf := HashChallengeResponse([]byte("token"))

	a, err := CompositeKDBX(Elements{Password: &pw, Keyfile: &kf})
	require.NoError(t, err)
	b, err := CompositeKDBX(Elements{Password: &kf, Keyfile: &pw})
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestCompositeKDB1VerbatimRawKeyfile(t *testing.T) {
	var raw [32]byte
	copy(raw[:], []byte("exactly-thirty-two-bytes-of-key"))
	got, err := CompositeKDB1(Elements{Keyfile: &raw, RawKeyfile32: true})
	require.NoError(t, err)
	require.Equal(t, raw, got)
}

func TestCompositeKDB1FallsBackToHashing(t *testing.T) {
	pw := HashPassword("hunter2")
	got, err := CompositeKDB1(Elements{Password: &pw})
	require.NoError(t, err)
	require.NotEqual(t, pw, got)
}

func TestTransformedKeyMasterKeyHMACChain(t *testing.T) {
	pw := HashPassword("hunter2")
	composite, err := CompositeKDBX(Elements{Password: &pw})
	require.NoError(t, err)

	k := kdf.AESKDF{Params: kdf.AESKDFParams{Rounds: 4}}
	transformed, err := TransformedKey(composite, k)
	require.NoError(t, err)

	var seed [32]byte
	master := MasterKey(seed, transformed)
	require.NotEqual(t, transformed, master)

	hmacKey := HMACKey(seed, transformed)
	sub1 := BlockHMACSubKey(0, hmacKey)
	sub2 := BlockHMACSubKey(1, hmacKey)
	require.NotEqual(t, sub1, sub2)
}

func TestParseKeyFileRaw32Bytes(t *testing.T) {
	raw := []byte("0123456789abcdef0123456789abcdef")[:32]
	key, verbatim, err := ParseKeyFileDetailed(strings.NewReader(string(raw)))
	require.NoError(t, err)
	require.True(t, verbatim)
	require.Equal(t, raw, key[:])
}

func TestParseKeyFileArbitraryBytesHashed(t *testing.T) {
	key, verbatim, err := ParseKeyFileDetailed(strings.NewReader("not thirty two bytes"))
	require.NoError(t, err)
	require.False(t, verbatim)
	require.NotEqual(t, [32]byte{}, key)
}

func TestParseKeyFileXMLBase64(t *testing.T) {
	// 32 raw bytes, base64-encoded.
	const b64 = "AQIDBAUGBwgJCgsMDQ4PEBESExQVFhcYGRobHB0eHyA="
	xml := `<KeyFile><Meta><Version>1.00</Version></Meta><Key><Data>` + b64 + `</Data></Key></KeyFile>`

	key, err := ParseKeyFile(strings.NewReader(xml))
	require.NoError(t, err)
	require.Equal(t, byte(1), key[0])
	require.Equal(t, byte(0x20), key[31])
}

func TestParseKeyFileXMLHexVersion2(t *testing.T) {
	const hexData = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"
	xml := `<KeyFile><Meta><Version>2.0</Version></Meta><Key><Data>` + hexData + `</Data></Key></KeyFile>`

	key, err := ParseKeyFile(strings.NewReader(xml))
	require.NoError(t, err)
	require.Equal(t, byte(1), key[0])
	require.Equal(t, byte(0x20), key[31])
}
