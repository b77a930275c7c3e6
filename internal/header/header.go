// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package header implements the outer file-format dispatch and the KDBX3/
// KDBX4 outer TLV header codec (spec §4.6), grounded on gokeepasslib's
// DBHeader/FileHeaders (vendored as other_examples' tobischo-gokeepasslib-v3
// header.go) and on the teacher's registry style for keyed records.
package header

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/openkdbx/kdbx/internal/cipher"
	"github.com/openkdbx/kdbx/internal/hashutil"
	"github.com/openkdbx/kdbx/internal/variantdict"
)

// Version identifies which of the four KDBX generations a file declares.
type Version int

const (
	VersionKDB1 Version = iota
	VersionKDBX2
	VersionKDBX3
	VersionKDBX4
)

var magic = [4]byte{0x03, 0xD9, 0xA2, 0x9A}

const (
	appIDKDB1 uint32 = 0xB54BFB65
	appIDKDBX2 uint32 = 0xB54BFB66
	appIDKDBX3And4 uint32 = 0xB54BFB67
)

// InvalidKDBXVersionError is returned for an (application_id, major, minor)
// combination that names no known generation.
type InvalidKDBXVersionError struct {
	ApplicationID    uint32
	Major, Minor     uint16
}

func (e *InvalidKDBXVersionError) Error() string {
	return fmt.Sprintf("header: invalid kdbx version: app_id=0x%08x major=%d minor=%d", e.ApplicationID, e.Major, e.Minor)
}

// ErrUnsupportedVersion is returned for a generation this library
// deliberately declines to read or write (KDBX2's pre-release format).
var ErrUnsupportedVersion = fmt.Errorf("header: unsupported version")

// Signature is the parsed magic/version prefix common to every generation.
// Raw holds the exact 12 bytes read, the prefix that the KDBX4 header hash
// and HMAC cover along with the outer TLV header (spec §4.6, §6).
type Signature struct {
	Version       Version
	ApplicationID uint32
	Major, Minor  uint16
	Raw           [12]byte
}

// ReadSignature consumes and classifies the 12-byte magic/version prefix.
func ReadSignature(r io.Reader) (Signature, error) {
	var raw [12]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Signature{}, err
	}

	var buf [4]byte
	copy(buf[:], raw[:4])
	if buf != magic {
		return Signature{}, &InvalidKDBXVersionError{}
	}

	appID := binary.LittleEndian.Uint32(raw[4:8])
	minor := binary.LittleEndian.Uint16(raw[8:10])
	major := binary.LittleEndian.Uint16(raw[10:12])

	switch {
	case appID == appIDKDB1:
		return Signature{Version: VersionKDB1, ApplicationID: appID, Major: major, Minor: minor, Raw: raw}, nil
	case appID == appIDKDBX2:
		return Signature{}, ErrUnsupportedVersion
	case appID == appIDKDBX3And4 && major == 3:
		return Signature{Version: VersionKDBX3, ApplicationID: appID, Major: major, Minor: minor, Raw: raw}, nil
	case appID == appIDKDBX3And4 && major == 4:
		return Signature{Version: VersionKDBX4, ApplicationID: appID, Major: major, Minor: minor, Raw: raw}, nil
	default:
		return Signature{}, &InvalidKDBXVersionError{ApplicationID: appID, Major: major, Minor: minor}
	}
}

// WriteSignature writes the magic/version prefix for v (KDBX3 or KDBX4),
// returning the 12 bytes written so the caller can feed them to WriteOuter
// as the header-hash/HMAC prefix.
func WriteSignature(w io.Writer, v Version) ([12]byte, error) {
	var major, minor uint16
	switch v {
	case VersionKDBX3:
		major, minor = 3, 1
	case VersionKDBX4:
		major, minor = 4, 0
	default:
		return [12]byte{}, fmt.Errorf("header: cannot write signature for version %d", v)
	}

	var raw [12]byte
	copy(raw[:4], magic[:])
	binary.LittleEndian.PutUint32(raw[4:8], appIDKDBX3And4)
	binary.LittleEndian.PutUint16(raw[8:10], minor)
	binary.LittleEndian.PutUint16(raw[10:12], major)

	if _, err := w.Write(raw[:]); err != nil {
		return [12]byte{}, err
	}
	return raw, nil
}

// Outer TLV record ids (spec §4.6).
const (
	fieldEnd                 byte = 0
	fieldComment             byte = 1
	fieldOuterCipherID       byte = 2
	fieldCompressionID       byte = 3
	fieldMasterSeed          byte = 4
	fieldTransformSeed       byte = 5
	fieldTransformRounds     byte = 6
	fieldEncryptionIV        byte = 7
	fieldProtectedStreamKey  byte = 8
	fieldStreamStartBytes    byte = 9
	fieldInnerRandomStreamID byte = 10
	fieldKdfParameters       byte = 11
	fieldPublicCustomData    byte = 12
)

// CompressionID selects the payload compression suite (spec §4.6).
type CompressionID uint32

const (
	CompressionNone CompressionID = 0
	CompressionGZip CompressionID = 1
)

// InvalidCompressionSuiteError is returned for a CompressionID outside
// {None, GZip}.
type InvalidCompressionSuiteError struct{ ID uint32 }

func (e *InvalidCompressionSuiteError) Error() string {
	return fmt.Sprintf("header: invalid compression suite %d", e.ID)
}

// InvalidOuterCipherIDError is returned for an OuterCipherID UUID not in the
// cipher registry.
type InvalidOuterCipherIDError struct{ UUID [16]byte }

func (e *InvalidOuterCipherIDError) Error() string {
	return fmt.Sprintf("header: invalid outer cipher id %x", e.UUID)
}

// InvalidOuterHeaderEntryError is returned for a record id outside the
// table in spec §4.6.
type InvalidOuterHeaderEntryError struct{ ID byte }

func (e *InvalidOuterHeaderEntryError) Error() string {
	return fmt.Sprintf("header: invalid outer header entry id %d", e.ID)
}

// IncompleteOuterHeaderError is returned when a field required by the
// file's generation/cipher/KDF combination never appeared.
type IncompleteOuterHeaderError struct{ Name string }

func (e *IncompleteOuterHeaderError) Error() string {
	return fmt.Sprintf("header: incomplete outer header: missing %s", e.Name)
}

// ErrHeaderHashMismatch is returned when the KDBX4 header's stored
// SHA-256 self-check fails (a file-integrity error, not an authentication
// one; spec §4.6).
var ErrHeaderHashMismatch = fmt.Errorf("header: header hash mismatch")

// ErrIncorrectKey is returned when the KDBX4 header's stored HMAC fails to
// validate under the caller's derived key (spec §4.6).
var ErrIncorrectKey = fmt.Errorf("header: incorrect key")

// Outer holds the decoded outer TLV header fields, generation-specific
// fields left at their zero value when not applicable.
type Outer struct {
	Version       Version
	OuterCipher   cipher.OuterCipherID
	Compression   CompressionID
	MasterSeed    [32]byte
	EncryptionIV  []byte

	// KDBX3-only.
	TransformSeed   [32]byte
	TransformRounds uint64

	// KDBX3-only: the inner stream is configured from the outer header.
	ProtectedStreamKey []byte
	StreamStartBytes   [32]byte
	InnerRandomStreamID cipher.InnerCipherID

	// KDBX4-only.
	KdfParameters    *variantdict.Dictionary
	PublicCustomData *variantdict.Dictionary

	// Raw holds the exact header bytes as read/about to be written, the
	// input to the KDBX4 header hash and HMAC.
	Raw []byte
}

func tlvLengthSize(v Version) int {
	if v == VersionKDBX4 {
		return 4
	}
	return 2
}

func readTLVLength(r io.Reader, v Version) (uint32, error) {
	if tlvLengthSize(v) == 4 {
		var n uint32
		err := binary.Read(r, binary.LittleEndian, &n)
		return n, err
	}
	var n uint16
	err := binary.Read(r, binary.LittleEndian, &n)
	return uint32(n), err
}

func writeTLVLength(w io.Writer, v Version, n int) error {
	if tlvLengthSize(v) == 4 {
		return binary.Write(w, binary.LittleEndian, uint32(n))
	}
	return binary.Write(w, binary.LittleEndian, uint16(n))
}

// ReadOuter parses the TLV outer header following the signature (KDBX3 or
// KDBX4 only; KDB1 has its own fixed layout, see the kdb1 package). sigRaw is
// the 12-byte magic/version prefix already consumed by ReadSignature: it is
// prepended to out.Raw so the KDBX4 header hash and HMAC cover the whole
// header, not just the TLV portion (spec §4.6, §6).
func ReadOuter(r io.Reader, v Version, sigRaw [12]byte) (*Outer, error) {
	var raw bytes.Buffer
	raw.Write(sigRaw[:])
	tee := io.TeeReader(r, &raw)

	out := &Outer{Version: v}
	var haveCipher, haveCompression, haveMasterSeed, haveIV bool
	var haveTransformSeed, haveTransformRounds bool
	var haveProtectedStreamKey, haveStreamStartBytes, haveInnerRandomStreamID bool
	var haveKdfParameters bool

	for {
		var id byte
		if err := binary.Read(tee, binary.LittleEndian, &id); err != nil {
			return nil, err
		}
		length, err := readTLVLength(tee, v)
		if err != nil {
			return nil, err
		}
		payload := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(tee, payload); err != nil {
				return nil, err
			}
		}

		switch id {
		case fieldEnd:
			out.Raw = raw.Bytes()
			if err := validateOuter(out, haveCipher, haveCompression, haveMasterSeed, haveIV,
				haveTransformSeed, haveTransformRounds, haveProtectedStreamKey,
				haveStreamStartBytes, haveInnerRandomStreamID, haveKdfParameters); err != nil {
				return nil, err
			}
			return out, nil

		case fieldComment:
			// ignored

		case fieldOuterCipherID:
			if len(payload) != 16 {
				return nil, &InvalidOuterCipherIDError{}
			}
			var u [16]byte
			copy(u[:], payload)
			out.OuterCipher = cipher.OuterCipherID(u)
			haveCipher = true

		case fieldCompressionID:
			if len(payload) != 4 {
				return nil, &InvalidCompressionSuiteError{}
			}
			cid := binary.LittleEndian.Uint32(payload)
			if cid != uint32(CompressionNone) && cid != uint32(CompressionGZip) {
				return nil, &InvalidCompressionSuiteError{ID: cid}
			}
			out.Compression = CompressionID(cid)
			haveCompression = true

		case fieldMasterSeed:
			if len(payload) != 32 {
				return nil, &IncompleteOuterHeaderError{"MasterSeed"}
			}
			copy(out.MasterSeed[:], payload)
			haveMasterSeed = true

		case fieldTransformSeed:
			if len(payload) != 32 {
				return nil, &IncompleteOuterHeaderError{"TransformSeed"}
			}
			copy(out.TransformSeed[:], payload)
			haveTransformSeed = true

		case fieldTransformRounds:
			if len(payload) != 8 {
				return nil, &IncompleteOuterHeaderError{"TransformRounds"}
			}
			out.TransformRounds = binary.LittleEndian.Uint64(payload)
			haveTransformRounds = true

		case fieldEncryptionIV:
			out.EncryptionIV = append([]byte(nil), payload...)
			haveIV = true

		case fieldProtectedStreamKey:
			out.ProtectedStreamKey = append([]byte(nil), payload...)
			haveProtectedStreamKey = true

		case fieldStreamStartBytes:
			if len(payload) != 32 {
				return nil, &IncompleteOuterHeaderError{"StreamStartBytes"}
			}
			copy(out.StreamStartBytes[:], payload)
			haveStreamStartBytes = true

		case fieldInnerRandomStreamID:
			if len(payload) != 4 {
				return nil, &IncompleteOuterHeaderError{"InnerRandomStreamID"}
			}
			out.InnerRandomStreamID = cipher.InnerCipherID(binary.LittleEndian.Uint32(payload))
			haveInnerRandomStreamID = true

		case fieldKdfParameters:
			d, err := variantdict.Decode(bytes.NewReader(payload))
			if err != nil {
				return nil, err
			}
			out.KdfParameters = d
			haveKdfParameters = true

		case fieldPublicCustomData:
			d, err := variantdict.Decode(bytes.NewReader(payload))
			if err != nil {
				return nil, err
			}
			out.PublicCustomData = d

		default:
			return nil, &InvalidOuterHeaderEntryError{ID: id}
		}
	}
}

func validateOuter(out *Outer, haveCipher, haveCompression, haveMasterSeed, haveIV,
	haveTransformSeed, haveTransformRounds, haveProtectedStreamKey,
	haveStreamStartBytes, haveInnerRandomStreamID, haveKdfParameters bool) error {
	if !haveCipher {
		return &IncompleteOuterHeaderError{"OuterCipherID"}
	}
	if !haveCompression {
		return &IncompleteOuterHeaderError{"CompressionID"}
	}
	if !haveMasterSeed {
		return &IncompleteOuterHeaderError{"MasterSeed"}
	}
	if !haveIV {
		return &IncompleteOuterHeaderError{"EncryptionIV"}
	}

	if out.Version == VersionKDBX3 {
		if !haveTransformSeed {
			return &IncompleteOuterHeaderError{"TransformSeed"}
		}
		if !haveTransformRounds {
			return &IncompleteOuterHeaderError{"TransformRounds"}
		}
		if !haveProtectedStreamKey {
			return &IncompleteOuterHeaderError{"ProtectedStreamKey"}
		}
		if !haveStreamStartBytes {
			return &IncompleteOuterHeaderError{"StreamStartBytes"}
		}
		if !haveInnerRandomStreamID {
			return &IncompleteOuterHeaderError{"InnerRandomStreamID"}
		}
	}

	if out.Version == VersionKDBX4 {
		if !haveKdfParameters {
			return &IncompleteOuterHeaderError{"KdfParameters"}
		}
	}

	return nil
}

// WriteOuter serializes out as a TLV outer header, terminated by an End
// record, returning the full header bytes for the caller to hash/HMAC
// (also stashed in out.Raw). sigRaw is the 12-byte magic/version prefix
// already written to w by WriteSignature: it is prepended to the returned
// bytes but is not written again here (spec §4.6, §6).
func WriteOuter(w io.Writer, out *Outer, sigRaw [12]byte) ([]byte, error) {
	var buf bytes.Buffer
	v := out.Version

	writeField := func(id byte, payload []byte) error {
		if err := binary.Write(&buf, binary.LittleEndian, id); err != nil {
			return err
		}
		if err := writeTLVLength(&buf, v, len(payload)); err != nil {
			return err
		}
		_, err := buf.Write(payload)
		return err
	}

	cipherUUID := [16]byte(out.OuterCipher)
	if err := writeField(fieldOuterCipherID, cipherUUID[:]); err != nil {
		return nil, err
	}

	var compBuf [4]byte
	binary.LittleEndian.PutUint32(compBuf[:], uint32(out.Compression))
	if err := writeField(fieldCompressionID, compBuf[:]); err != nil {
		return nil, err
	}

	if err := writeField(fieldMasterSeed, out.MasterSeed[:]); err != nil {
		return nil, err
	}

	if v == VersionKDBX3 {
		if err := writeField(fieldTransformSeed, out.TransformSeed[:]); err != nil {
			return nil, err
		}
		var roundsBuf [8]byte
		binary.LittleEndian.PutUint64(roundsBuf[:], out.TransformRounds)
		if err := writeField(fieldTransformRounds, roundsBuf[:]); err != nil {
			return nil, err
		}
	}

	if err := writeField(fieldEncryptionIV, out.EncryptionIV); err != nil {
		return nil, err
	}

	if v == VersionKDBX3 {
		if err := writeField(fieldProtectedStreamKey, out.ProtectedStreamKey); err != nil {
			return nil, err
		}
		if err := writeField(fieldStreamStartBytes, out.StreamStartBytes[:]); err != nil {
			return nil, err
		}
		var innerBuf [4]byte
		binary.LittleEndian.PutUint32(innerBuf[:], uint32(out.InnerRandomStreamID))
		if err := writeField(fieldInnerRandomStreamID, innerBuf[:]); err != nil {
			return nil, err
		}
	}

	if v == VersionKDBX4 {
		var kdfBuf bytes.Buffer
		if err := out.KdfParameters.Encode(&kdfBuf); err != nil {
			return nil, err
		}
		if err := writeField(fieldKdfParameters, kdfBuf.Bytes()); err != nil {
			return nil, err
		}
		if out.PublicCustomData != nil {
			var pcdBuf bytes.Buffer
			if err := out.PublicCustomData.Encode(&pcdBuf); err != nil {
				return nil, err
			}
			if err := writeField(fieldPublicCustomData, pcdBuf.Bytes()); err != nil {
				return nil, err
			}
		}
	}

	if err := writeField(fieldEnd, nil); err != nil {
		return nil, err
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	out.Raw = append(append([]byte(nil), sigRaw[:]...), buf.Bytes()...)
	return out.Raw, nil
}

// ReadKDBX4Authentication reads the 32-byte header hash and 32-byte header
// HMAC that follow a KDBX4 outer header, validating both against headerRaw
// and hmacKey. The hash is checked first (a mismatch means file corruption,
// spec §4.6); the HMAC is checked second (a mismatch means the wrong key).
func ReadKDBX4Authentication(r io.Reader, headerRaw []byte, hmacKey [64]byte, headerHMAC func([]byte, [64]byte) [32]byte) error {
	var hash [32]byte
	if _, err := io.ReadFull(r, hash[:]); err != nil {
		return err
	}
	if hashutil.SHA256(headerRaw) != hash {
		return ErrHeaderHashMismatch
	}

	var hmacVal [32]byte
	if _, err := io.ReadFull(r, hmacVal[:]); err != nil {
		return err
	}
	if headerHMAC(headerRaw, hmacKey) != hmacVal {
		return ErrIncorrectKey
	}
	return nil
}

// WriteKDBX4Authentication writes the header hash and HMAC following a
// freshly-written KDBX4 outer header.
func WriteKDBX4Authentication(w io.Writer, headerRaw []byte, hmacKey [64]byte, headerHMAC func([]byte, [64]byte) [32]byte) error {
	hash := hashutil.SHA256(headerRaw)
	if _, err := w.Write(hash[:]); err != nil {
		return err
	}
	hmacVal := headerHMAC(headerRaw, hmacKey)
	_, err := w.Write(hmacVal[:])
	return err
}
