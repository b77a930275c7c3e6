// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package cipher implements the outer block ciphers and inner stream ciphers
// of spec §4.1, as a pair of small ID-keyed registries — the same pattern the
// teacher uses for FDO key-exchange cipher suites
// (fido-device-onboard/go-fdo/kex.RegisterCipherSuite / the ciphers map).
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/twofish"
)

// OuterCipherID identifies one of the three outer ciphers by the UUID
// carried in the outer header's OuterCipherID field.
type OuterCipherID uuid.UUID

// Well-known outer cipher UUIDs (spec §4.6).
var (
	AES256   = OuterCipherID(uuid.MustParse("31c1f2e6-bf71-4350-be58-05216afc5aff"))
	Twofish  = OuterCipherID(uuid.MustParse("ad68f29f-576f-4bb9-a36a-d47af965346c"))
	ChaCha20 = OuterCipherID(uuid.MustParse("d6038a2b-8b6f-4cb5-a524-339a31dbb59a"))
)

func (id OuterCipherID) String() string {
	switch id {
	case AES256:
		return "AES256"
	case Twofish:
		return "Twofish"
	case ChaCha20:
		return "ChaCha20"
	default:
		return uuid.UUID(id).String()
	}
}

// OuterCipherFamily operates on whole buffers: KeySize/IVSize report the
// sizes this family requires, Decrypt/Encrypt transform a full ciphertext or
// plaintext buffer respectively.
type OuterCipherFamily struct {
	KeySize int
	IVSize  int
	Decrypt func(key, iv, ciphertext []byte) ([]byte, error)
	Encrypt func(key, iv, plaintext []byte) ([]byte, error)
}

var outerFamilies = map[OuterCipherID]OuterCipherFamily{
	AES256:   {KeySize: 32, IVSize: 16, Decrypt: aesCBCDecrypt, Encrypt: aesCBCEncrypt},
	Twofish:  {KeySize: 32, IVSize: 16, Decrypt: twofishCBCDecrypt, Encrypt: twofishCBCEncrypt},
	ChaCha20: {KeySize: 32, IVSize: 12, Decrypt: chacha20Apply, Encrypt: chacha20Apply},
}

// LookupOuter returns the registered family for id, or ok=false if unknown.
func LookupOuter(id OuterCipherID) (OuterCipherFamily, bool) {
	f, ok := outerFamilies[id]
	return f, ok
}

// CipherInitError is returned when a key/IV of the wrong length is supplied.
type CipherInitError struct{ Reason string }

func (e *CipherInitError) Error() string { return fmt.Sprintf("cipher: %s", e.Reason) }

// ErrBadPadding is returned when PKCS#7 unpadding fails.
var ErrBadPadding = fmt.Errorf("cipher: bad padding")

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrBadPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrBadPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrBadPadding
		}
	}
	return data[:len(data)-n], nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - (len(data) % blockSize)
	if n == 0 {
		n = blockSize
	}
	padding := make([]byte, n)
	for i := range padding {
		padding[i] = byte(n)
	}
	return append(append([]byte(nil), data...), padding...)
}

func aesCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, &CipherInitError{"aes-256 requires a 32-byte key"}
	}
	if len(iv) != 16 {
		return nil, &CipherInitError{"aes-256-cbc requires a 16-byte iv"}
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext)%block.BlockSize() != 0 {
		return nil, ErrBadPadding
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, block.BlockSize())
}

func aesCBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, &CipherInitError{"aes-256 requires a 32-byte key"}
	}
	if len(iv) != 16 {
		return nil, &CipherInitError{"aes-256-cbc requires a 16-byte iv"}
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func twofishCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, &CipherInitError{"twofish requires a 32-byte key"}
	}
	if len(iv) != 16 {
		return nil, &CipherInitError{"twofish-cbc requires a 16-byte iv"}
	}
	block, err := twofish.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext)%block.BlockSize() != 0 {
		return nil, ErrBadPadding
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, block.BlockSize())
}

func twofishCBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, &CipherInitError{"twofish requires a 32-byte key"}
	}
	if len(iv) != 16 {
		return nil, &CipherInitError{"twofish-cbc requires a 16-byte iv"}
	}
	block, err := twofish.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// chacha20Apply XORs data with the ChaCha20 keystream. Encrypt and decrypt
// are the same operation for a stream cipher.
func chacha20Apply(key, iv, data []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, &CipherInitError{"chacha20 requires a 32-byte key"}
	}
	if len(iv) != 12 {
		return nil, &CipherInitError{"chacha20 requires a 12-byte nonce"}
	}
	c, err := chacha20.NewUnauthenticatedCipher(key, iv)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out, nil
}
