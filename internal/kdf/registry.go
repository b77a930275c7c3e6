// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package kdf

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/openkdbx/kdbx/internal/variantdict"
)

// UUID identifies a KDF family by the $UUID entry of its variant-dictionary
// parameters (spec §4.3).
type UUID uuid.UUID

// Well-known KDF UUIDs (spec §4.3). Argon2d and Argon2id are conveyed by
// distinct UUIDs in the richer variant-dictionary schema spec §4.3 alludes
// to ("a separate UUID variant in richer schemas"); Argon2dUUID is the one
// spec §4.3 names explicitly and is used when the variant is not specified.
var (
	AESKDBX3     = UUID(uuid.MustParse("c9d9f39a-628a-4460-bf74-0d08c18a4fea"))
	AESKDBX4     = UUID(uuid.MustParse("7c02bb82-79a7-4ac0-927d-114a00648238"))
	Argon2dUUID  = UUID(uuid.MustParse("ef636ddf-8c29-444b-91f7-a9a403e30a0c"))
	Argon2idUUID = UUID(uuid.MustParse("9e298b19-56db-4773-b23d-fc3ec6f0a1e6"))
)

func (id UUID) String() string {
	switch id {
	case AESKDBX3:
		return "AES-KDBX3"
	case AESKDBX4:
		return "AES-KDBX4"
	case Argon2dUUID:
		return "Argon2d"
	case Argon2idUUID:
		return "Argon2id"
	default:
		return uuid.UUID(id).String()
	}
}

// InvalidUUIDError is returned for a $UUID not in the registry above.
type InvalidUUIDError struct{ UUID [16]byte }

func (e *InvalidUUIDError) Error() string {
	return fmt.Sprintf("kdf: invalid kdf uuid %x", e.UUID)
}

const (
	paramUUID        = "$UUID"
	paramAESRounds   = "R"
	paramAESSeed     = "S"
	paramArgonMemory = "M"
	paramArgonSalt   = "S"
	paramArgonIter   = "I"
	paramArgonPar    = "P"
	paramArgonVer    = "V"
)

// paramError wraps a variantdict missing/mistyped-key error into the kdf
// package's public MissingParamError/MistypedParamError kinds.
func paramError(err error) error {
	if key, ok := variantdict.MissingKey(err); ok {
		return &MissingParamError{Key: key}
	}
	if key, ok := variantdict.MistypedKey(err); ok {
		return &MistypedParamError{Key: key}
	}
	return err
}

// MissingParamError is returned when a required variant-dictionary key for
// the selected KDF family is absent.
type MissingParamError struct{ Key string }

func (e *MissingParamError) Error() string { return fmt.Sprintf("kdf: missing param %q", e.Key) }

// MistypedParamError is returned when a variant-dictionary key for the
// selected KDF family has the wrong value type.
type MistypedParamError struct{ Key string }

func (e *MistypedParamError) Error() string { return fmt.Sprintf("kdf: mistyped param %q", e.Key) }

// DecodeParams builds a KDF from its variant-dictionary encoding (the outer
// header's KdfParameters field, spec §4.3).
func DecodeParams(d *variantdict.Dictionary) (KDF, error) {
	rawUUID, err := d.GetBytes(paramUUID)
	if err != nil {
		return nil, paramError(err)
	}
	if len(rawUUID) != 16 {
		var id [16]byte
		copy(id[:], rawUUID)
		return nil, &InvalidUUIDError{UUID: id}
	}
	var id [16]byte
	copy(id[:], rawUUID)

	switch UUID(id) {
	case AESKDBX3, AESKDBX4:
		rounds, err := d.GetUInt64(paramAESRounds)
		if err != nil {
			return nil, paramError(err)
		}
		seed, err := d.GetBytes(paramAESSeed)
		if err != nil {
			return nil, paramError(err)
		}
		if len(seed) != 32 {
			return nil, &InvalidParamsError{"aes-kdf seed must be 32 bytes"}
		}
		var params AESKDFParams
		params.Rounds = rounds
		copy(params.Seed[:], seed)
		return AESKDF{Params: params}, nil

	case Argon2dUUID, Argon2idUUID:
		memory, err := d.GetUInt64(paramArgonMemory)
		if err != nil {
			return nil, paramError(err)
		}
		salt, err := d.GetBytes(paramArgonSalt)
		if err != nil {
			return nil, paramError(err)
		}
		iterations, err := d.GetUInt64(paramArgonIter)
		if err != nil {
			return nil, paramError(err)
		}
		parallelism, err := d.GetUInt32(paramArgonPar)
		if err != nil {
			return nil, paramError(err)
		}
		version, err := d.GetUInt32(paramArgonVer)
		if err != nil {
			return nil, paramError(err)
		}
		if version != 0x10 && version != 0x13 {
			return nil, &InvalidVersionError{Version: version}
		}
		variant := Argon2d
		if UUID(id) == Argon2idUUID {
			variant = Argon2id
		}
		return Argon2KDF{Params: Argon2Params{
			Salt:        salt,
			Parallelism: parallelism,
			MemoryBytes: memory,
			Iterations:  uint32(iterations),
			Variant:     variant,
			Version:     version,
		}}, nil

	default:
		return nil, &InvalidUUIDError{UUID: id}
	}
}

// InvalidVersionError is returned for an Argon2 $V outside {0x10, 0x13}.
type InvalidVersionError struct{ Version uint32 }

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("kdf: invalid argon2 version 0x%x", e.Version)
}

// EncodeParams serializes k into a fresh variant dictionary for the outer
// header's KdfParameters field, returning the $UUID it selected.
func EncodeParams(k KDF) (*variantdict.Dictionary, UUID, error) {
	d := variantdict.New()
	switch kk := k.(type) {
	case AESKDF:
		rawUUID, _ := uuid.UUID(AESKDBX4).MarshalBinary()
		d.SetBytes(paramUUID, rawUUID)
		d.SetUInt64(paramAESRounds, kk.Params.Rounds)
		d.SetBytes(paramAESSeed, kk.Params.Seed[:])
		return d, AESKDBX4, nil

	case Argon2KDF:
		selected := Argon2dUUID
		if kk.Params.Variant == Argon2id {
			selected = Argon2idUUID
		}
		rawUUID, _ := uuid.UUID(selected).MarshalBinary()
		d.SetBytes(paramUUID, rawUUID)
		d.SetUInt64(paramArgonMemory, kk.Params.MemoryBytes)
		d.SetBytes(paramArgonSalt, kk.Params.Salt)
		d.SetUInt64(paramArgonIter, uint64(kk.Params.Iterations))
		d.SetUInt32(paramArgonPar, kk.Params.Parallelism)
		d.SetUInt32(paramArgonVer, kk.Params.Version)
		return d, selected, nil

	default:
		return nil, UUID{}, fmt.Errorf("kdf: unknown KDF implementation %T", k)
	}
}
