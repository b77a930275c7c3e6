// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package header

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openkdbx/kdbx/internal/cipher"
	"github.com/openkdbx/kdbx/internal/variantdict"
)

func TestSignatureRoundTripKDBX4(t *testing.T) {
	var buf bytes.Buffer
	written, err := WriteSignature(&buf, VersionKDBX4)
	require.NoError(t, err)

	sig, err := ReadSignature(&buf)
	require.NoError(t, err)
	require.Equal(t, VersionKDBX4, sig.Version)
	require.Equal(t, written, sig.Raw)
}

func TestSignatureRoundTripKDBX3(t *testing.T) {
	var buf bytes.Buffer
	written, err := WriteSignature(&buf, VersionKDBX3)
	require.NoError(t, err)

	sig, err := ReadSignature(&buf)
	require.NoError(t, err)
	require.Equal(t, VersionKDBX3, sig.Version)
	require.Equal(t, written, sig.Raw)
}

func TestReadSignatureRejectsBadMagic(t *testing.T) {
	_, err := ReadSignature(bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}))
	require.Error(t, err)
}

func TestOuterHeaderRoundTripKDBX4(t *testing.T) {
	d := variantdict.New()
	d.SetBytes("$UUID", make([]byte, 16))

	out := &Outer{
		Version:          VersionKDBX4,
		OuterCipher:      cipher.AES256,
		Compression:      CompressionGZip,
		MasterSeed:       [32]byte{1, 2, 3},
		EncryptionIV:     make([]byte, 16),
		KdfParameters:    d,
		PublicCustomData: nil,
	}

	var sigRaw [12]byte
	copy(sigRaw[:], []byte("sig-prefix-1"))

	var buf bytes.Buffer
	headerRaw, err := WriteOuter(&buf, out, sigRaw)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(headerRaw, sigRaw[:]))

	decoded, err := ReadOuter(&buf, VersionKDBX4, sigRaw)
	require.NoError(t, err)
	require.Equal(t, out.OuterCipher, decoded.OuterCipher)
	require.Equal(t, out.Compression, decoded.Compression)
	require.Equal(t, out.MasterSeed, decoded.MasterSeed)
	require.True(t, bytes.HasPrefix(decoded.Raw, sigRaw[:]))
	require.Equal(t, headerRaw, decoded.Raw)
}

func TestOuterHeaderRoundTripKDBX3(t *testing.T) {
	out := &Outer{
		Version:             VersionKDBX3,
		OuterCipher:         cipher.ChaCha20,
		Compression:         CompressionNone,
		MasterSeed:          [32]byte{9},
		EncryptionIV:        make([]byte, 12),
		TransformSeed:       [32]byte{8},
		TransformRounds:     6000,
		ProtectedStreamKey:  make([]byte, 32),
		StreamStartBytes:    [32]byte{7},
		InnerRandomStreamID: cipher.InnerSalsa20,
	}

	var sigRaw [12]byte
	copy(sigRaw[:], []byte("sig-prefix-3"))

	var buf bytes.Buffer
	_, err := WriteOuter(&buf, out, sigRaw)
	require.NoError(t, err)

	decoded, err := ReadOuter(&buf, VersionKDBX3, sigRaw)
	require.NoError(t, err)
	require.Equal(t, out.TransformRounds, decoded.TransformRounds)
	require.Equal(t, out.InnerRandomStreamID, decoded.InnerRandomStreamID)
}

func TestReadOuterMissingFieldErrors(t *testing.T) {
	var buf bytes.Buffer
	writeField := func(id byte, payload []byte) {
		buf.WriteByte(id)
		var lenBuf [4]byte
		lenBuf[0] = byte(len(payload))
		buf.Write(lenBuf[:])
		buf.Write(payload)
	}
	writeField(fieldEnd, nil)

	_, err := ReadOuter(&buf, VersionKDBX4, [12]byte{})
	require.Error(t, err)
	var incomplete *IncompleteOuterHeaderError
	require.ErrorAs(t, err, &incomplete)
}

func TestKDBX4AuthenticationRoundTrip(t *testing.T) {
	headerRaw := []byte("fake header bytes")
	var hmacKey [64]byte
	copy(hmacKey[:], []byte("a key"))

	fakeHMAC := func(data []byte, key [64]byte) [32]byte {
		var out [32]byte
		copy(out[:], data)
		out[0] ^= key[0]
		return out
	}

	var buf bytes.Buffer
	require.NoError(t, WriteKDBX4Authentication(&buf, headerRaw, hmacKey, fakeHMAC))
	require.NoError(t, ReadKDBX4Authentication(&buf, headerRaw, hmacKey, fakeHMAC))
}

func TestKDBX4AuthenticationDetectsWrongKey(t *testing.T) {
	headerRaw := []byte("fake header bytes")
	var hmacKey [64]byte
	copy(hmacKey[:], []byte("a key"))

	fakeHMAC := func(data []byte, key [64]byte) [32]byte {
		var out [32]byte
		copy(out[:], data)
		out[0] ^= key[0]
		return out
	}

	var buf bytes.Buffer
	require.NoError(t, WriteKDBX4Authentication(&buf, headerRaw, hmacKey, fakeHMAC))

	var wrongKey [64]byte
	copy(wrongKey[:], []byte("wrong"))
	err := ReadKDBX4Authentication(&buf, headerRaw, wrongKey, fakeHMAC)
	require.ErrorIs(t, err, ErrIncorrectKey)
}
