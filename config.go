// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package kdbx

import (
	"github.com/openkdbx/kdbx/internal/cipher"
	"github.com/openkdbx/kdbx/internal/header"
	"github.com/openkdbx/kdbx/internal/kdf"
	"github.com/openkdbx/kdbx/internal/variantdict"
)

// DatabaseVersion identifies which container generation a Database was
// loaded from, or will be written as (spec §3 Database field "config";
// §6 get_version).
type DatabaseVersion int

const (
	VersionKDB1  DatabaseVersion = DatabaseVersion(header.VersionKDB1)
	VersionKDBX3 DatabaseVersion = DatabaseVersion(header.VersionKDBX3)
	VersionKDBX4 DatabaseVersion = DatabaseVersion(header.VersionKDBX4)
)

// Config holds the container-level cipher/compression/KDF selection (spec
// §3 Database field "config"). A freshly-opened Database carries the
// Config the file was read under; Save re-derives fresh random seeds from
// it but keeps the cipher/KDF family choices unless the caller mutates
// Config first.
type Config struct {
	Version DatabaseVersion

	OuterCipher cipher.OuterCipherID
	Compression header.CompressionID
	InnerCipher cipher.InnerCipherID

	KDF kdf.KDF

	// PublicCustomData is carried opaquely (spec §9 Open Question): the
	// outer header's optional KDBX4 field 12, read and round-tripped but
	// never interpreted.
	PublicCustomData *variantdict.Dictionary
}

// DefaultConfig returns the Config a new KDBX4 database is constructed
// with: AES-256-CBC outer cipher, GZip compression, ChaCha20 inner stream,
// Argon2id KDF with the canonical conservative parameters.
func DefaultConfig() Config {
	return Config{
		Version:     VersionKDBX4,
		OuterCipher: cipher.AES256,
		Compression: header.CompressionGZip,
		InnerCipher: cipher.InnerChaCha20,
		KDF: kdf.Argon2KDF{Params: kdf.Argon2Params{
			Parallelism: 2,
			MemoryBytes: 64 * 1024 * 1024,
			Iterations:  10,
			Variant:     kdf.Argon2id,
			Version:     0x13,
		}},
	}
}
