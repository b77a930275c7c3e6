// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package otp parses an entry's otp field (an otpauth:// URI, not otherwise
// interpreted by the codec) and derives time-based one-time codes from it.
// Code generation is delegated to github.com/pquerna/otp/totp; this package
// is only the otpauth:// URI grammar and the small amount of KeePass-shaped
// plumbing around it (which digit count, algorithm, and period an entry's
// URI asks for).
package otp

import (
	"encoding/base32"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Algorithm selects the HMAC hash TOTP codes are derived with.
type Algorithm int

const (
	SHA1 Algorithm = iota
	SHA256
	SHA512
)

func (a Algorithm) String() string {
	switch a {
	case SHA256:
		return "SHA256"
	case SHA512:
		return "SHA512"
	default:
		return "SHA1"
	}
}

func (a Algorithm) toOTP() otp.Algorithm {
	switch a {
	case SHA256:
		return otp.AlgorithmSHA256
	case SHA512:
		return otp.AlgorithmSHA512
	default:
		return otp.AlgorithmSHA1
	}
}

const (
	defaultPeriod = 30
	defaultDigits = 8
)

// TOTP is a parsed otpauth://totp URI.
type TOTP struct {
	Label     string
	Secret    []byte
	Issuer    string
	Period    uint64
	Digits    int
	Algorithm Algorithm
}

// Code is one generated one-time password, alongside how long it remains
// valid within its period.
type Code struct {
	Code     string
	ValidFor time.Duration
	Period   time.Duration
}

// UnsupportedSchemeError is returned for a URI whose scheme is not
// "otpauth", or whose otpauth type is not "totp".
type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("otp: unsupported scheme %q", e.Scheme)
}

// MissingFieldError is returned when a required query parameter is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string { return fmt.Sprintf("otp: missing field %q", e.Field) }

// UnsupportedAlgorithmError is returned for an "algorithm" value other than
// SHA1, SHA256, or SHA512.
type UnsupportedAlgorithmError struct {
	Value string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("otp: unsupported algorithm %q", e.Value)
}

// Parse decodes an otpauth://totp URI (spec §1/§8 scenario 4): the label is
// the path component verbatim (commonly "issuer:account"), secret is
// Base32-decoded, and period/digits/algorithm fall back to KeePass's
// conventional defaults (30s, 8 digits, SHA1) when absent.
func Parse(uri string) (*TOTP, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("otp: %w", err)
	}
	if u.Scheme != "otpauth" {
		return nil, &UnsupportedSchemeError{Scheme: u.Scheme}
	}
	if u.Host != "totp" {
		return nil, &UnsupportedSchemeError{Scheme: u.Host}
	}

	q := u.Query()
	label := strings.TrimPrefix(u.Path, "/")

	secretStr := q.Get("secret")
	if secretStr == "" {
		return nil, &MissingFieldError{Field: "secret"}
	}
	secret, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(secretStr))
	if err != nil {
		return nil, fmt.Errorf("otp: decoding secret: %w", err)
	}

	issuer := q.Get("issuer")
	if issuer == "" {
		return nil, &MissingFieldError{Field: "issuer"}
	}

	period := uint64(defaultPeriod)
	if s := q.Get("period"); s != "" {
		period, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("otp: parsing period: %w", err)
		}
	}

	digits := defaultDigits
	if s := q.Get("digits"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("otp: parsing digits: %w", err)
		}
		digits = n
	}

	algorithm := SHA1
	if s := q.Get("algorithm"); s != "" {
		switch s {
		case "SHA1":
			algorithm = SHA1
		case "SHA256":
			algorithm = SHA256
		case "SHA512":
			algorithm = SHA512
		default:
			return nil, &UnsupportedAlgorithmError{Value: s}
		}
	}

	return &TOTP{
		Label:     label,
		Secret:    secret,
		Issuer:    issuer,
		Period:    period,
		Digits:    digits,
		Algorithm: algorithm,
	}, nil
}

// ValueAt computes the one-time code for unixSeconds, re-encoding Secret to
// Base32 for pquerna/otp's API (which only accepts Base32 secrets) and
// handing the period/digits/algorithm straight through.
func (t *TOTP) ValueAt(unixSeconds int64) (Code, error) {
	secretB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(t.Secret)

	code, err := totp.GenerateCodeCustom(secretB32, time.Unix(unixSeconds, 0).UTC(), totp.ValidateOpts{
		Period:    uint(t.Period),
		Digits:    otp.Digits(t.Digits),
		Algorithm: t.Algorithm.toOTP(),
	})
	if err != nil {
		return Code{}, fmt.Errorf("otp: generating code: %w", err)
	}

	elapsed := uint64(unixSeconds) % t.Period
	return Code{
		Code:     code,
		ValidFor: time.Duration(t.Period-elapsed) * time.Second,
		Period:   time.Duration(t.Period) * time.Second,
	}, nil
}
