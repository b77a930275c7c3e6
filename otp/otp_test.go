// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package otp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultAlgorithm(t *testing.T) {
	uri := "otpauth://totp/KeePassXC:none?secret=JBSWY3DPEHPK3PXP&period=30&digits=6&issuer=KeePassXC"

	parsed, err := Parse(uri)
	require.NoError(t, err)
	require.Equal(t, "KeePassXC:none", parsed.Label)
	require.Equal(t, []byte("Hello!\xDE\xAD\xBE\xEF"), parsed.Secret)
	require.Equal(t, "KeePassXC", parsed.Issuer)
	require.EqualValues(t, 30, parsed.Period)
	require.Equal(t, 6, parsed.Digits)
	require.Equal(t, SHA1, parsed.Algorithm)
}

func TestValueAt(t *testing.T) {
	parsed, err := Parse("otpauth://totp/KeePassXC:none?secret=JBSWY3DPEHPK3PXP&period=30&digits=6&issuer=KeePassXC")
	require.NoError(t, err)

	code, err := parsed.ValueAt(1234)
	require.NoError(t, err)
	require.Equal(t, "806863", code.Code)
}

func TestParseBadScheme(t *testing.T) {
	_, err := Parse("http://totp/sha512%20totp:none?secret=GEZDGNBVGY&period=30&digits=6&issuer=sha512+totp")
	require.Error(t, err)
	var scheme *UnsupportedSchemeError
	require.ErrorAs(t, err, &scheme)
}

func TestParseMissingSecret(t *testing.T) {
	_, err := Parse("otpauth://totp/missing_fields")
	require.Error(t, err)
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "secret", missing.Field)
}

func TestParseBadAlgorithm(t *testing.T) {
	_, err := Parse("otpauth://totp/sha512+totp:none?secret=GEZDGNBVGY&period=30&digits=6&issuer=sha512+totp&algorithm=SHA123")
	require.Error(t, err)
	var bad *UnsupportedAlgorithmError
	require.ErrorAs(t, err, &bad)
}
