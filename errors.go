// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package kdbx

import "fmt"

// ErrIncorrectKey is returned when the supplied password, keyfile, or
// challenge-response does not match the database (KDBX3 StreamStartBytes
// mismatch, KDBX4 header HMAC mismatch, or KDB1 contents-hash mismatch).
var ErrIncorrectKey = fmt.Errorf("kdbx: incorrect key")

// ErrUnsupportedVersion is returned by Save for any version other than
// KDBX4, and by KDB1's Save (the format is read-only).
var ErrUnsupportedVersion = fmt.Errorf("kdbx: unsupported version for this operation")

// ErrRandomGeneration is returned when the RNG used during Save fails to
// produce a seed or IV.
var ErrRandomGeneration = fmt.Errorf("kdbx: random generation failed")

// ErrInvalidKeyFile is returned when a keyfile cannot be parsed under any of
// the three accepted formats.
var ErrInvalidKeyFile = fmt.Errorf("kdbx: invalid keyfile")

// ErrHeaderHashMismatch is returned when a KDBX4 header's SHA-256 does not
// match the stored hash, indicating file corruption rather than a bad key.
var ErrHeaderHashMismatch = fmt.Errorf("kdbx: header hash mismatch")

// InvalidKDBXVersionError is returned when the file's magic/application id
// does not map to a known KeePass container generation.
type InvalidKDBXVersionError struct {
	ApplicationID uint32
	Major, Minor  uint16
}

func (e *InvalidKDBXVersionError) Error() string {
	return fmt.Sprintf("kdbx: invalid kdbx identifier (application id 0x%08X, version %d.%d)",
		e.ApplicationID, e.Major, e.Minor)
}

// BlockHashMismatchError is returned when a block in the HMAC block stream
// (KDBX4) or the plain block stream (KDBX3) fails authentication.
type BlockHashMismatchError struct {
	BlockIndex uint64
}

func (e *BlockHashMismatchError) Error() string {
	return fmt.Sprintf("kdbx: block hash mismatch at block %d", e.BlockIndex)
}

// IncompleteOuterHeaderError is returned when a required outer header field
// is missing for the cipher/KDF the header otherwise selects.
type IncompleteOuterHeaderError struct {
	Name string
}

func (e *IncompleteOuterHeaderError) Error() string {
	return fmt.Sprintf("kdbx: incomplete outer header, missing %s", e.Name)
}

// IncompleteInnerHeaderError is returned when a required KDBX4 inner header
// field is missing.
type IncompleteInnerHeaderError struct {
	Name string
}

func (e *IncompleteInnerHeaderError) Error() string {
	return fmt.Sprintf("kdbx: incomplete inner header, missing %s", e.Name)
}

// InvalidOuterHeaderEntryError is returned for an outer TLV record id the
// codec does not recognize.
type InvalidOuterHeaderEntryError struct {
	ID byte
}

func (e *InvalidOuterHeaderEntryError) Error() string {
	return fmt.Sprintf("kdbx: invalid outer header entry id %d", e.ID)
}

// InvalidInnerHeaderEntryError is returned for an inner TLV record id the
// codec does not recognize.
type InvalidInnerHeaderEntryError struct {
	ID byte
}

func (e *InvalidInnerHeaderEntryError) Error() string {
	return fmt.Sprintf("kdbx: invalid inner header entry id %d", e.ID)
}

// InvalidOuterCipherIDError is returned when the header's cipher UUID does
// not map to a registered outer cipher family.
type InvalidOuterCipherIDError struct {
	UUID [16]byte
}

func (e *InvalidOuterCipherIDError) Error() string {
	return fmt.Sprintf("kdbx: invalid outer cipher id %x", e.UUID)
}

// InvalidInnerCipherIDError is returned when the inner-header stream id does
// not map to a registered inner cipher family.
type InvalidInnerCipherIDError struct {
	ID uint32
}

func (e *InvalidInnerCipherIDError) Error() string {
	return fmt.Sprintf("kdbx: invalid inner cipher id %d", e.ID)
}

// InvalidCompressionSuiteError is returned for an unrecognized compression id.
type InvalidCompressionSuiteError struct {
	ID uint32
}

func (e *InvalidCompressionSuiteError) Error() string {
	return fmt.Sprintf("kdbx: invalid compression suite id %d", e.ID)
}

// InvalidKDFUUIDError is returned when a variant dictionary's $UUID does not
// map to a known KDF family.
type InvalidKDFUUIDError struct {
	UUID [16]byte
}

func (e *InvalidKDFUUIDError) Error() string {
	return fmt.Sprintf("kdbx: invalid KDF uuid %x", e.UUID)
}

// InvalidKDFVersionError is returned for an Argon2 "V" parameter outside
// {0x10, 0x13}.
type InvalidKDFVersionError struct {
	Version uint32
}

func (e *InvalidKDFVersionError) Error() string {
	return fmt.Sprintf("kdbx: invalid argon2 version 0x%x", e.Version)
}

// MissingKDFParamError is returned when a required variant dictionary key is
// absent for the selected KDF family.
type MissingKDFParamError struct {
	Key string
}

func (e *MissingKDFParamError) Error() string {
	return fmt.Sprintf("kdbx: missing KDF parameter %q", e.Key)
}

// MistypedKDFParamError is returned when a variant dictionary key is present
// but carries the wrong value type for the selected KDF family.
type MistypedKDFParamError struct {
	Key string
}

func (e *MistypedKDFParamError) Error() string {
	return fmt.Sprintf("kdbx: KDF parameter %q has the wrong type", e.Key)
}

// InvalidVariantDictionaryVersionError is returned when a variant
// dictionary's 2-byte version field is not 0x0100-major.
type InvalidVariantDictionaryVersionError struct {
	Version uint16
}

func (e *InvalidVariantDictionaryVersionError) Error() string {
	return fmt.Sprintf("kdbx: invalid variant dictionary version 0x%04x", e.Version)
}

// InvalidVariantDictionaryValueTypeError is returned for an unrecognized
// variant dictionary type code.
type InvalidVariantDictionaryValueTypeError struct {
	Type byte
}

func (e *InvalidVariantDictionaryValueTypeError) Error() string {
	return fmt.Sprintf("kdbx: invalid variant dictionary value type 0x%02x", e.Type)
}

// InvalidFixedHeaderError is returned when a KDB1 file's fixed header
// (116 bytes after the file signature) fails a structural check (e.g. unknown cipher flag bits).
type InvalidFixedHeaderError struct {
	Reason string
}

func (e *InvalidFixedHeaderError) Error() string {
	return fmt.Sprintf("kdbx: invalid kdb1 fixed header: %s", e.Reason)
}

// InvalidKDBFieldLengthError is returned when a KDB1 group/entry field's
// length does not match the fixed length expected for its type code.
type InvalidKDBFieldLengthError struct {
	FieldType uint16
	Got, Want int
}

func (e *InvalidKDBFieldLengthError) Error() string {
	return fmt.Sprintf("kdbx: kdb1 field type 0x%04x has length %d, want %d", e.FieldType, e.Got, e.Want)
}

// XMLParseError wraps an underlying encoding/xml error encountered while
// decoding the inner document.
type XMLParseError struct {
	Err error
}

func (e *XMLParseError) Error() string { return fmt.Sprintf("kdbx: xml parse error: %v", e.Err) }
func (e *XMLParseError) Unwrap() error { return e.Err }

// Base64Error wraps a base64 decoding failure encountered while decoding an
// XML scalar (UUID, protected value, Base64 timestamp, ...).
type Base64Error struct {
	Err error
}

func (e *Base64Error) Error() string { return fmt.Sprintf("kdbx: base64 decode error: %v", e.Err) }
func (e *Base64Error) Unwrap() error { return e.Err }

// TimestampFormatError is returned when a Times field matches neither the
// ISO-8601 nor the Base64 little-endian-seconds representation.
type TimestampFormatError struct {
	Value string
}

func (e *TimestampFormatError) Error() string {
	return fmt.Sprintf("kdbx: invalid timestamp format %q", e.Value)
}

// ParseColorError is returned when a Group/Entry color attribute is not
// empty and not of the form "#RRGGBB".
type ParseColorError struct {
	Value string
}

func (e *ParseColorError) Error() string {
	return fmt.Sprintf("kdbx: invalid color %q, want #RRGGBB", e.Value)
}

// BadEventError is returned when the XML decoder encounters a token of a
// different shape than the field being decoded expects.
type BadEventError struct {
	Expected, Got string
}

func (e *BadEventError) Error() string {
	return fmt.Sprintf("kdbx: unexpected xml event, expected %s, got %s", e.Expected, e.Got)
}

// CipherInitError is returned when a cipher is constructed with a key or IV
// of the wrong length.
type CipherInitError struct {
	Reason string
}

func (e *CipherInitError) Error() string { return fmt.Sprintf("kdbx: cipher init error: %s", e.Reason) }

// ErrBadPadding names a PKCS#7 padding failure on decrypt. Open and GetXML
// report such a failure as ErrIncorrectKey and do not return ErrBadPadding.
var ErrBadPadding = fmt.Errorf("kdbx: bad padding")
