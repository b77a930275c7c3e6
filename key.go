// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package kdbx

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/openkdbx/kdbx/hwkey"
	"github.com/openkdbx/kdbx/internal/key"
)

// DatabaseKey builds the up-to-three key elements (spec §4.4) that Open and
// Save use to derive a database's master key: a password, a keyfile, and a
// hardware challenge-response token. Build it with NewDatabaseKey and the
// With* methods, in any combination.
type DatabaseKey struct {
	password   *string
	keyfile    []byte
	responder  hwkey.ChallengeResponder
}

// NewDatabaseKey returns an empty DatabaseKey.
func NewDatabaseKey() DatabaseKey { return DatabaseKey{} }

// WithPassword sets the password element.
func (k DatabaseKey) WithPassword(password string) DatabaseKey {
	k.password = &password
	return k
}

// WithKeyfile sets the keyfile element, reading r fully and auto-detecting
// its format (spec §6): the KeePass XML keyfile schema, a bare 32-byte
// file used verbatim, or any other file hashed with SHA-256.
func (k DatabaseKey) WithKeyfile(r io.Reader) (DatabaseKey, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return k, fmt.Errorf("kdbx: reading keyfile: %w", err)
	}
	k.keyfile = raw
	return k, nil
}

// WithChallengeResponse sets the hardware challenge-response element.
func (k DatabaseKey) WithChallengeResponse(responder hwkey.ChallengeResponder) DatabaseKey {
	k.responder = responder
	return k
}

// IsEmpty reports whether no key element has been set at all.
func (k DatabaseKey) IsEmpty() bool {
	return k.password == nil && k.keyfile == nil && k.responder == nil
}

// resolve computes the key.Elements this DatabaseKey supplies. kdfSeed is
// the KDF's own seed/salt, used as the challenge-response query when a
// responder is configured (spec §4.4: "when a KDF seed is known, the token
// is queried with challenge = kdf_seed").
func (k DatabaseKey) resolve(ctx context.Context, kdfSeed []byte) (key.Elements, error) {
	var elems key.Elements

	if k.password != nil {
		h := key.HashPassword(*k.password)
		elems.Password = &h
	}

	if k.keyfile != nil {
		h, verbatim, err := key.ParseKeyFileDetailed(bytes.NewReader(k.keyfile))
		if err != nil {
			return key.Elements{}, &InvalidKeyFileError{}
		}
		elems.Keyfile = &h
		elems.RawKeyfile32 = verbatim
	}

	if k.responder != nil {
		response, err := k.responder.Respond(ctx, kdfSeed)
		if err != nil {
			return key.Elements{}, fmt.Errorf("kdbx: challenge-response: %w", err)
		}
		h := key.HashChallengeResponse(response)
		elems.ChallengeResponse = &h
	}

	return elems, nil
}

// InvalidKeyFileError wraps a keyfile that could not be parsed under any of
// the three accepted formats.
type InvalidKeyFileError struct{}

func (e *InvalidKeyFileError) Error() string { return ErrInvalidKeyFile.Error() }
func (e *InvalidKeyFileError) Unwrap() error { return ErrInvalidKeyFile }
