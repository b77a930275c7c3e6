// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package cipher

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOuterFamiliesRoundTrip(t *testing.T) {
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	for _, id := range []OuterCipherID{AES256, Twofish, ChaCha20} {
		t.Run(id.String(), func(t *testing.T) {
			family, ok := LookupOuter(id)
			require.True(t, ok)

			key := make([]byte, family.KeySize)
			iv := make([]byte, family.IVSize)
			for i := range key {
				key[i] = byte(i)
			}
			for i := range iv {
				iv[i] = byte(i + 1)
			}

			ciphertext, err := family.Encrypt(key, iv, plaintext)
			require.NoError(t, err)
			require.NotEqual(t, plaintext, ciphertext)

			got, err := family.Decrypt(key, iv, ciphertext)
			require.NoError(t, err)
			require.Equal(t, plaintext, got)
		})
	}
}

func TestLookupOuterUnknown(t *testing.T) {
	_, ok := LookupOuter(OuterCipherID{})
	require.False(t, ok)
}

func TestAESCBCRejectsShortKey(t *testing.T) {
	_, err := aesCBCEncrypt(make([]byte, 16), make([]byte, 16), []byte("x"))
	require.Error(t, err)
}

func TestPKCS7UnpadRejectsBadPadding(t *testing.T) {
	_, err := pkcs7Unpad([]byte{1, 2, 3, 4, 5, 6, 7, 0}, 8)
	require.ErrorIs(t, err, ErrBadPadding)
}

func TestInnerStreamPlainPassesThrough(t *testing.T) {
	s, err := NewInnerStream(InnerPlain, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), s.Apply([]byte("secret")))
}

func TestInnerStreamSalsa20ResumesAcrossCalls(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	plaintext := bytes.Repeat([]byte{0xAB}, 200)

	whole, err := NewInnerStream(InnerSalsa20, key)
	require.NoError(t, err)
	wholeCipher := whole.Apply(plaintext)

	split, err := NewInnerStream(InnerSalsa20, key)
	require.NoError(t, err)
	var splitCipher []byte
	for _, chunk := range [][]byte{plaintext[:50], plaintext[50:130], plaintext[130:]} {
		splitCipher = append(splitCipher, split.Apply(chunk)...)
	}

	require.Equal(t, wholeCipher, splitCipher)
}

func TestInnerStreamChaCha20Decrypts(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 3)
	}
	plaintext := []byte("protected value bytes")

	enc, err := NewInnerStream(InnerChaCha20, key)
	require.NoError(t, err)
	ciphertext := enc.Apply(plaintext)

	dec, err := NewInnerStream(InnerChaCha20, key)
	require.NoError(t, err)
	require.Equal(t, plaintext, dec.Apply(ciphertext))
}

func TestInnerStreamRejectsUnknownID(t *testing.T) {
	_, err := NewInnerStream(InnerCipherID(99), nil)
	require.Error(t, err)
}
