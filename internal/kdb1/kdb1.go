// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package kdb1 implements read-only parsing of the legacy KDB1 format (spec
// §4.8): a fixed header (116 bytes after the file signature) followed by a single AES/Twofish-CBC
// ciphertext block holding flat group and entry TLV records. KDB1 predates
// the outer/inner TLV header split the rest of this module implements, so
// it gets its own small codec rather than sharing the header package.
package kdb1

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/openkdbx/kdbx/internal/cipher"
	"github.com/openkdbx/kdbx/internal/kdf"
)

const headerSize = 116

// Header is the fixed-layout KDB1 file header.
type Header struct {
	Flags           uint32
	Subversion      uint32
	MasterSeed      [16]byte
	IV              [16]byte
	NumGroups       uint32
	NumEntries      uint32
	ContentsHash    [32]byte
	TransformSeed   [32]byte
	TransformRounds uint32
}

// Outer cipher selection bits in Header.Flags (spec §4.8).
const (
	flagAES     uint32 = 0x02
	flagTwofish uint32 = 0x08
)

// InvalidFixedHeaderError is returned for a fixed-header field that fails a
// structural check (currently: no recognized cipher flag set).
type InvalidFixedHeaderError struct{ Reason string }

func (e *InvalidFixedHeaderError) Error() string {
	return fmt.Sprintf("kdb1: invalid fixed header: %s", e.Reason)
}

// ReadHeader parses the 116-byte fixed header that follows the file
// signature.
func ReadHeader(r io.Reader) (*Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h.Flags); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Subversion); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, h.MasterSeed[:]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, h.IV[:]); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.NumGroups); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.NumEntries); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, h.ContentsHash[:]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, h.TransformSeed[:]); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.TransformRounds); err != nil {
		return nil, err
	}
	return &h, nil
}

// OuterCipher returns the outer cipher family selected by h.Flags.
func (h *Header) OuterCipher() (cipher.OuterCipherID, error) {
	switch {
	case h.Flags&flagAES != 0:
		return cipher.AES256, nil
	case h.Flags&flagTwofish != 0:
		return cipher.Twofish, nil
	default:
		return cipher.OuterCipherID{}, &InvalidFixedHeaderError{"no recognized cipher flag in Flags"}
	}
}

// KDF returns the AES-KDF instance implied by the header's transform
// fields (KDB1 never uses Argon2, spec §4.8).
func (h *Header) KDF() kdf.KDF {
	var seed [32]byte
	copy(seed[:], h.TransformSeed[:])
	return kdf.AESKDF{Params: kdf.AESKDFParams{Seed: seed, Rounds: uint64(h.TransformRounds)}}
}

// Field type codes for group records (well-known KDB1 layout).
const (
	groupFieldIgnored    uint16 = 0x0000
	groupFieldID         uint16 = 0x0001
	groupFieldName       uint16 = 0x0002
	groupFieldCreated    uint16 = 0x0003
	groupFieldModified   uint16 = 0x0004
	groupFieldAccessed   uint16 = 0x0005
	groupFieldExpires    uint16 = 0x0006
	groupFieldImageID    uint16 = 0x0007
	groupFieldLevel      uint16 = 0x0008
	groupFieldFlags      uint16 = 0x0009
	fieldTerminator      uint16 = 0xFFFF
)

// Field type codes for entry records (well-known KDB1 layout).
const (
	entryFieldIgnored  uint16 = 0x0000
	entryFieldUUID     uint16 = 0x0001
	entryFieldGroupID  uint16 = 0x0002
	entryFieldImageID  uint16 = 0x0003
	entryFieldTitle    uint16 = 0x0004
	entryFieldURL      uint16 = 0x0005
	entryFieldUsername uint16 = 0x0006
	entryFieldPassword uint16 = 0x0007
	entryFieldNotes    uint16 = 0x0008
	entryFieldCreated  uint16 = 0x0009
	entryFieldModified uint16 = 0x000A
	entryFieldAccessed uint16 = 0x000B
	entryFieldExpires  uint16 = 0x000C
	entryFieldBinDesc  uint16 = 0x000D
	entryFieldBinData  uint16 = 0x000E
)

// InvalidKDBFieldLengthError is returned when a fixed-size field's declared
// length doesn't match its expected size.
type InvalidKDBFieldLengthError struct {
	FieldType  uint16
	Got, Want int
}

func (e *InvalidKDBFieldLengthError) Error() string {
	return fmt.Sprintf("kdb1: field 0x%04x has length %d, want %d", e.FieldType, e.Got, e.Want)
}

// Group is one flat KDB1 group record, before tree reconstruction.
type Group struct {
	ID       uint32
	Name     string
	Created  time.Time
	Modified time.Time
	Accessed time.Time
	Expires  time.Time
	ImageID  uint32
	Level    uint16
	Flags    uint32
}

// Entry is one flat KDB1 entry record.
type Entry struct {
	UUID     [16]byte
	GroupID  uint32
	ImageID  uint32
	Title    string
	URL      string
	Username string
	Password string
	Notes    string
	Created  time.Time
	Modified time.Time
	Accessed time.Time
	Expires  time.Time
	BinDesc  string
	BinData  []byte
}

// kdbTimeSize is the packed 5-byte KDB1 timestamp encoding (year:14,
// month:4, day:5, hour:5, minute:6, second:6 bits, big-endian bit-packed).
const kdbTimeSize = 5

func decodeKDBTime(b []byte) time.Time {
	if len(b) != kdbTimeSize {
		return time.Time{}
	}
	dw1, dw2, dw3, dw4, dw5 := int(b[0]), int(b[1]), int(b[2]), int(b[3]), int(b[4])
	year := (dw1 << 6) | (dw2 >> 2)
	month := ((dw2 & 0x3) << 2) | (dw3 >> 6)
	day := (dw3 >> 1) & 0x1F
	hour := ((dw3 & 0x1) << 4) | (dw4 >> 4)
	minute := ((dw4 & 0xF) << 2) | (dw5 >> 6)
	second := dw5 & 0x3F
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}

func readFieldHeader(r io.Reader) (uint16, uint32, error) {
	var typ uint16
	if err := binary.Read(r, binary.LittleEndian, &typ); err != nil {
		return 0, 0, err
	}
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return 0, 0, err
	}
	return typ, length, nil
}

func readCString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// ReadGroups parses h.NumGroups flat group records from the decrypted
// plaintext stream.
func ReadGroups(r io.Reader, n uint32) ([]Group, error) {
	groups := make([]Group, 0, n)
	for i := uint32(0); i < n; i++ {
		var g Group
		for {
			typ, length, err := readFieldHeader(r)
			if err != nil {
				return nil, err
			}
			payload := make([]byte, length)
			if length > 0 {
				if _, err := io.ReadFull(r, payload); err != nil {
					return nil, err
				}
			}
			switch typ {
			case fieldTerminator:
				groups = append(groups, g)
				goto nextGroup
			case groupFieldIgnored:
			case groupFieldID:
				if length != 4 {
					return nil, &InvalidKDBFieldLengthError{typ, int(length), 4}
				}
				g.ID = binary.LittleEndian.Uint32(payload)
			case groupFieldName:
				g.Name = readCString(payload)
			case groupFieldCreated:
				g.Created = decodeKDBTime(payload)
			case groupFieldModified:
				g.Modified = decodeKDBTime(payload)
			case groupFieldAccessed:
				g.Accessed = decodeKDBTime(payload)
			case groupFieldExpires:
				g.Expires = decodeKDBTime(payload)
			case groupFieldImageID:
				if length != 4 {
					return nil, &InvalidKDBFieldLengthError{typ, int(length), 4}
				}
				g.ImageID = binary.LittleEndian.Uint32(payload)
			case groupFieldLevel:
				if length != 2 {
					return nil, &InvalidKDBFieldLengthError{typ, int(length), 2}
				}
				g.Level = binary.LittleEndian.Uint16(payload)
			case groupFieldFlags:
				if length != 4 {
					return nil, &InvalidKDBFieldLengthError{typ, int(length), 4}
				}
				g.Flags = binary.LittleEndian.Uint32(payload)
			}
		}
	nextGroup:
	}
	return groups, nil
}

// ReadEntries parses h.NumEntries flat entry records from the decrypted
// plaintext stream.
func ReadEntries(r io.Reader, n uint32) ([]Entry, error) {
	entries := make([]Entry, 0, n)
	for i := uint32(0); i < n; i++ {
		var e Entry
		for {
			typ, length, err := readFieldHeader(r)
			if err != nil {
				return nil, err
			}
			payload := make([]byte, length)
			if length > 0 {
				if _, err := io.ReadFull(r, payload); err != nil {
					return nil, err
				}
			}
			switch typ {
			case fieldTerminator:
				entries = append(entries, e)
				goto nextEntry
			case entryFieldIgnored:
			case entryFieldUUID:
				if length != 16 {
					return nil, &InvalidKDBFieldLengthError{typ, int(length), 16}
				}
				copy(e.UUID[:], payload)
			case entryFieldGroupID:
				if length != 4 {
					return nil, &InvalidKDBFieldLengthError{typ, int(length), 4}
				}
				e.GroupID = binary.LittleEndian.Uint32(payload)
			case entryFieldImageID:
				if length != 4 {
					return nil, &InvalidKDBFieldLengthError{typ, int(length), 4}
				}
				e.ImageID = binary.LittleEndian.Uint32(payload)
			case entryFieldTitle:
				e.Title = readCString(payload)
			case entryFieldURL:
				e.URL = readCString(payload)
			case entryFieldUsername:
				e.Username = readCString(payload)
			case entryFieldPassword:
				e.Password = readCString(payload)
			case entryFieldNotes:
				e.Notes = readCString(payload)
			case entryFieldCreated:
				e.Created = decodeKDBTime(payload)
			case entryFieldModified:
				e.Modified = decodeKDBTime(payload)
			case entryFieldAccessed:
				e.Accessed = decodeKDBTime(payload)
			case entryFieldExpires:
				e.Expires = decodeKDBTime(payload)
			case entryFieldBinDesc:
				e.BinDesc = readCString(payload)
			case entryFieldBinData:
				e.BinData = append([]byte(nil), payload...)
			}
		}
	nextEntry:
	}
	return entries, nil
}

// Tree reconstructs the group hierarchy from each group's declared Level
// (depth), attaching entries to their owning GroupID (spec §4.8).
type Tree struct {
	Roots   []*TreeGroup
	ByID    map[uint32]*TreeGroup
}

// TreeGroup is a Group with its reconstructed children and owned entries.
type TreeGroup struct {
	Group
	Children []*TreeGroup
	Entries  []Entry
}

// BuildTree reconstructs the group tree from flat records using the
// level-stack algorithm: each group at level L becomes a child of the most
// recently seen group at level L-1.
func BuildTree(groups []Group, entries []Entry) *Tree {
	t := &Tree{ByID: make(map[uint32]*TreeGroup, len(groups))}

	nodes := make([]*TreeGroup, len(groups))
	var stack []*TreeGroup
	for i, g := range groups {
		node := &TreeGroup{Group: g}
		nodes[i] = node
		t.ByID[g.ID] = node

		for len(stack) > int(g.Level) {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == int(g.Level) && len(stack) > 0 {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
		} else if g.Level == 0 {
			t.Roots = append(t.Roots, node)
		}
		stack = append(stack[:g.Level], node)
	}

	for _, e := range entries {
		if g, ok := t.ByID[e.GroupID]; ok {
			g.Entries = append(g.Entries, e)
		}
	}

	return t
}
