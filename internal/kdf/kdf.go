// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package kdf implements the two key-derivation families used to stretch the
// composite key into the transformed key (spec §4.2): AES-KDF (ECB-iterated)
// and Argon2 (d/id). Both are modeled as a common KDF interface, the same
// tagged-variant-over-a-common-operation-set approach the teacher uses for
// FDO cipher suites (fido-device-onboard/go-fdo/kex.CipherSuite).
package kdf

import (
	"crypto/aes"
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/openkdbx/kdbx/internal/hashutil"
)

// KDF transforms a 32-byte composite key into a 32-byte transformed key.
// Benchmark probes how much work (AES rounds, Argon2 passes, ...) fits in a
// wall-clock budget, so callers can calibrate a KDF's cost parameters the
// way a KeePass client does when a user asks for "1 second of delay".
type KDF interface {
	Transform(composite [32]byte) ([32]byte, error)
	Benchmark(budget time.Duration) (uint64, error)
}

// Argon2Variant selects Argon2d or Argon2id.
type Argon2Variant int

const (
	Argon2d Argon2Variant = iota
	Argon2id
)

// AESKDFParams holds AES-KDF's two public parameters.
type AESKDFParams struct {
	Seed   [32]byte
	Rounds uint64
}

// AESKDF implements AES-256-ECB-iterated key stretching (spec §4.2): the
// composite key, split into two 16-byte blocks, is AES-encrypted Rounds
// times under Seed as key, then the concatenated blocks are SHA-256'd.
type AESKDF struct{ Params AESKDFParams }

func (k AESKDF) Transform(composite [32]byte) ([32]byte, error) {
	block, err := aes.NewCipher(k.Params.Seed[:])
	if err != nil {
		return [32]byte{}, err
	}

	var a, b [16]byte
	copy(a[:], composite[:16])
	copy(b[:], composite[16:])

	for i := uint64(0); i < k.Params.Rounds; i++ {
		block.Encrypt(a[:], a[:])
		block.Encrypt(b[:], b[:])
	}

	return hashutil.SHA256(a[:], b[:]), nil
}

// Benchmark counts how many AES block encryptions fit within budget, so a
// caller can calibrate AESKDFParams.Rounds for a target wall-clock cost.
func (k AESKDF) Benchmark(budget time.Duration) (uint64, error) {
	block, err := aes.NewCipher(k.Params.Seed[:])
	if err != nil {
		return 0, err
	}
	var buf [16]byte
	deadline := time.Now().Add(budget)
	var rounds uint64
	const batch = 1024
	for time.Now().Before(deadline) {
		for i := 0; i < batch; i++ {
			block.Encrypt(buf[:], buf[:])
		}
		rounds += batch
	}
	return rounds, nil
}

// Argon2Params holds Argon2's public parameters (spec §4.2). Memory is
// expressed in bytes in this public struct but converted to KiB internally,
// matching the variant dictionary's "M" parameter semantics.
type Argon2Params struct {
	Salt        []byte
	Parallelism uint32
	MemoryBytes uint64
	Iterations  uint32
	Variant     Argon2Variant
	Version     uint32 // 0x10 or 0x13
}

// InvalidParamsError is returned for Argon2 parameters outside their valid
// ranges (e.g. a version other than 0x10/0x13, or zero parallelism).
type InvalidParamsError struct{ Reason string }

func (e *InvalidParamsError) Error() string { return fmt.Sprintf("kdf: invalid argon2 params: %s", e.Reason) }

// Argon2KDF implements the Argon2-based KDF family.
type Argon2KDF struct{ Params Argon2Params }

func (k Argon2KDF) validate() error {
	if k.Params.Version != 0x10 && k.Params.Version != 0x13 {
		return &InvalidParamsError{fmt.Sprintf("unsupported version 0x%x", k.Params.Version)}
	}
	if k.Params.Parallelism == 0 {
		return &InvalidParamsError{"parallelism must be nonzero"}
	}
	if k.Params.Iterations == 0 {
		return &InvalidParamsError{"iterations must be nonzero"}
	}
	if k.Params.MemoryBytes < 1024 {
		return &InvalidParamsError{"memory must be at least 1024 bytes"}
	}
	return nil
}

func (k Argon2KDF) Transform(composite [32]byte) ([32]byte, error) {
	if err := k.validate(); err != nil {
		return [32]byte{}, err
	}
	memoryKiB := uint32(k.Params.MemoryBytes / 1024)

	var out []byte
	switch k.Params.Variant {
	case Argon2id:
		out = argon2.IDKey(composite[:], k.Params.Salt, k.Params.Iterations, memoryKiB, uint8(k.Params.Parallelism), 32)
	default:
		out = argon2Key(composite[:], k.Params.Salt, k.Params.Iterations, memoryKiB, uint8(k.Params.Parallelism))
	}

	var result [32]byte
	copy(result[:], out)
	return result, nil
}

// Benchmark runs a single Argon2 hash and linearly extrapolates iteration
// count to fit budget, following spec §4.2's "measure one, extrapolate
// linearly" approach (as opposed to AES-KDF's direct counting loop, since
// Argon2's cost is dominated by fixed per-call memory/parallelism setup).
func (k Argon2KDF) Benchmark(budget time.Duration) (uint64, error) {
	if err := k.validate(); err != nil {
		return 0, err
	}
	var composite [32]byte
	start := time.Now()
	if _, err := k.Transform(composite); err != nil {
		return 0, err
	}
	elapsed := time.Since(start)
	if elapsed <= 0 {
		return uint64(k.Params.Iterations), nil
	}

	scaled := float64(k.Params.Iterations) * float64(budget) / float64(elapsed)
	if scaled < 1 {
		scaled = 1
	}
	return uint64(scaled), nil
}

// argon2Key implements Argon2d, which golang.org/x/crypto/argon2 exposes as
// Key (the package's unexported-variant naming puts the "d" form behind the
// plain function name and the "id" form behind IDKey).
func argon2Key(password, salt []byte, time, memory uint32, threads uint8) []byte {
	return argon2.Key(password, salt, time, memory, threads, 32)
}
