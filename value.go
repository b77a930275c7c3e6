// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package kdbx

import "fmt"

// ValueKind discriminates the three cases of Value (spec §3).
type ValueKind int

const (
	// KindBytes holds raw, unprotected binary content.
	KindBytes ValueKind = iota
	// KindUnprotected holds plain UTF-8 text.
	KindUnprotected
	// KindProtected holds a secret that must be redacted on debug render
	// and zeroed when no longer needed.
	KindProtected
)

func (k ValueKind) String() string {
	switch k {
	case KindBytes:
		return "Bytes"
	case KindUnprotected:
		return "Unprotected"
	case KindProtected:
		return "Protected"
	default:
		return "Unknown"
	}
}

// Value is a tagged variant over an entry field's content (spec §3): raw
// bytes, plain text, or a protected secret. Equality and formatting are
// defined so that a Protected value never leaks through a %v/%s rendering —
// only Equal compares the underlying secret.
type Value struct {
	kind  ValueKind
	bytes []byte
	text  string
}

// NewBytesValue wraps raw content.
func NewBytesValue(b []byte) Value {
	return Value{kind: KindBytes, bytes: append([]byte(nil), b...)}
}

// NewUnprotectedValue wraps plain text.
func NewUnprotectedValue(s string) Value {
	return Value{kind: KindUnprotected, text: s}
}

// NewProtectedValue wraps a secret string.
func NewProtectedValue(s string) Value {
	return Value{kind: KindProtected, text: s}
}

// Kind reports which of the three cases v holds.
func (v Value) Kind() ValueKind { return v.kind }

// Bytes returns the raw content for KindBytes, and a UTF-8 encoding of the
// text for the other two kinds.
func (v Value) Bytes() []byte {
	if v.kind == KindBytes {
		return append([]byte(nil), v.bytes...)
	}
	return []byte(v.text)
}

// Reveal returns the underlying text for KindUnprotected and KindProtected,
// and a UTF-8 decoding attempt of the content for KindBytes. This is the
// only accessor that returns a protected secret; callers asking for a
// human-readable or loggable form should use String or GoString instead,
// which redact.
func (v Value) Reveal() string {
	if v.kind == KindBytes {
		return string(v.bytes)
	}
	return v.text
}

// String implements fmt.Stringer. A protected value never renders its
// secret through %v/%s; callers that need the secret must call Reveal.
func (v Value) String() string {
	if v.kind == KindProtected {
		return "Value{Protected, <redacted>}"
	}
	return v.Reveal()
}

// GoString implements fmt.GoStringer so that %#v never prints a protected
// secret either.
func (v Value) GoString() string {
	switch v.kind {
	case KindProtected:
		return "kdbx.Value{Protected, <redacted>}"
	case KindUnprotected:
		return fmt.Sprintf("kdbx.Value{Unprotected, %q}", v.text)
	default:
		return fmt.Sprintf("kdbx.Value{Bytes, %q}", v.bytes)
	}
}

// Equal compares two values by kind and content, including the secret
// content of protected values.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBytes:
		if len(v.bytes) != len(other.bytes) {
			return false
		}
		for i := range v.bytes {
			if v.bytes[i] != other.bytes[i] {
				return false
			}
		}
		return true
	default:
		return v.text == other.text
	}
}

// Zero overwrites a protected value's backing storage, used when a database
// (or a History snapshot it owned) is dropped (spec §3 Lifecycle, §5).
func (v *Value) Zero() {
	if v.kind != KindProtected {
		return
	}
	zeros := make([]byte, len(v.text))
	v.text = string(zeros)
	v.kind = KindBytes
	v.bytes = nil
}
