// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package hwkey defines the challenge-response contract a hardware token
// (e.g. a YubiKey HMAC-SHA1 slot) implements to supply the third key
// element of a composite key (spec §4.4). The codec queries the token with
// the KDF seed as the challenge, whenever one is known: the KDF's own seed
// during Open (read from the file) or Save (freshly generated).
package hwkey

import "context"

// ChallengeResponder answers a challenge with a raw token response. The
// response is hashed (SHA-256) by the caller before being folded into the
// composite key (spec §4.4); implementations return the raw bytes the
// token produced, not a pre-hashed value.
type ChallengeResponder interface {
	Respond(ctx context.Context, challenge []byte) ([]byte, error)
}

// ChallengeResponderFunc adapts a plain function to ChallengeResponder.
type ChallengeResponderFunc func(ctx context.Context, challenge []byte) ([]byte, error)

// Respond calls f.
func (f ChallengeResponderFunc) Respond(ctx context.Context, challenge []byte) ([]byte, error) {
	return f(ctx, challenge)
}
