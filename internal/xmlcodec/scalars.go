// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package xmlcodec implements the payload XML document codec (spec §4.9):
// the object-graph encoding bound to Meta/Root/Group/Entry and the
// document-order keystream application to protected values. Grounded on
// gokeepasslib's Content/MetaData/Group/Entry shapes (vendored as
// other_examples' tobischo-gokeepasslib-v3 encoder.go/decoder.go), adapted
// from struct-tag marshaling to a linear token pass per the design note on
// streaming inner-cipher state (spec §9).
package xmlcodec

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// XMLParseError wraps an encoding/xml error encountered mid-document.
type XMLParseError struct{ Err error }

func (e *XMLParseError) Error() string { return fmt.Sprintf("xmlcodec: xml parse error: %v", e.Err) }
func (e *XMLParseError) Unwrap() error { return e.Err }

// Base64Error wraps a base64 decoding failure.
type Base64Error struct{ Err error }

func (e *Base64Error) Error() string { return fmt.Sprintf("xmlcodec: base64 decode error: %v", e.Err) }
func (e *Base64Error) Unwrap() error { return e.Err }

// TimestampFormatError is returned when a Times field matches neither
// accepted wire representation (spec §3, §4.9).
type TimestampFormatError struct{ Value string }

func (e *TimestampFormatError) Error() string {
	return fmt.Sprintf("xmlcodec: invalid timestamp format %q", e.Value)
}

// ParseColorError is returned for a color attribute that is non-empty and
// not of the form #RRGGBB.
type ParseColorError struct{ Value string }

func (e *ParseColorError) Error() string {
	return fmt.Sprintf("xmlcodec: invalid color %q, want #RRGGBB", e.Value)
}

// BadEventError is returned when the decoder encounters an XML token of a
// different shape than the field being decoded expects.
type BadEventError struct{ Expected, Got string }

func (e *BadEventError) Error() string {
	return fmt.Sprintf("xmlcodec: unexpected xml event, expected %s, got %s", e.Expected, e.Got)
}

// kdbxEpoch is 0001-01-01T00:00:00 UTC, the zero point of the Base64
// little-endian-seconds timestamp encoding (spec §3).
var kdbxEpoch = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// DecodeTimestamp accepts either wire representation of a Times field:
// ISO-8601 (KDBX3) or Base64 of a little-endian 64-bit seconds offset from
// kdbxEpoch (KDBX4).
func DecodeTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err == nil && len(raw) == 8 {
		secs := int64(binary.LittleEndian.Uint64(raw))
		return kdbxEpoch.Add(time.Duration(secs) * time.Second), nil
	}
	return time.Time{}, &TimestampFormatError{Value: s}
}

// EncodeTimestampISO8601 encodes t in the KDBX3 wire representation.
func EncodeTimestampISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// EncodeTimestampBase64 encodes t in the KDBX4 wire representation.
func EncodeTimestampBase64(t time.Time) string {
	secs := int64(t.UTC().Sub(kdbxEpoch) / time.Second)
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], uint64(secs))
	return base64.StdEncoding.EncodeToString(raw[:])
}

// DecodeBool implements the "True"/"False" convention; empty or missing
// decodes to the zero value by the caller simply not invoking this
// function.
func DecodeBool(s string) bool { return strings.EqualFold(s, "true") }

// EncodeBool implements the "True"/"False" convention.
func EncodeBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// DecodeUUID decodes a Base64-encoded 16-byte UUID (spec §4.9).
func DecodeUUID(s string) ([16]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return [16]byte{}, &Base64Error{Err: err}
	}
	var out [16]byte
	if len(raw) != 16 {
		copy(out[:], raw)
		return out, nil
	}
	copy(out[:], raw)
	return out, nil
}

// EncodeUUID encodes a 16-byte UUID as Base64.
func EncodeUUID(u [16]byte) string { return base64.StdEncoding.EncodeToString(u[:]) }

// ColorValue is a #RRGGBB color.
type ColorValue struct{ R, G, B byte }

// DecodeColor parses a #RRGGBB string; an empty string means "none" and is
// represented by the caller skipping the field entirely.
func DecodeColor(s string) (ColorValue, error) {
	if len(s) != 7 || s[0] != '#' {
		return ColorValue{}, &ParseColorError{Value: s}
	}
	r, err1 := strconv.ParseUint(s[1:3], 16, 8)
	g, err2 := strconv.ParseUint(s[3:5], 16, 8)
	b, err3 := strconv.ParseUint(s[5:7], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return ColorValue{}, &ParseColorError{Value: s}
	}
	return ColorValue{R: byte(r), G: byte(g), B: byte(b)}, nil
}

// EncodeColor formats c as #RRGGBB.
func EncodeColor(c ColorValue) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// TriState is the three-way "null"/"True"/"False" convention used by
// Group.EnableAutoType/EnableSearching (spec §3, §9).
type TriState int

const (
	TriStateNull TriState = iota
	TriStateTrue
	TriStateFalse
)

// DecodeTriState parses the three accepted string forms, defaulting to
// TriStateNull for anything else (including empty/absent).
func DecodeTriState(s string) TriState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return TriStateTrue
	case "false":
		return TriStateFalse
	default:
		return TriStateNull
	}
}

// String renders the tri-state in its wire form.
func (t TriState) String() string {
	switch t {
	case TriStateTrue:
		return "True"
	case TriStateFalse:
		return "False"
	default:
		return "null"
	}
}
