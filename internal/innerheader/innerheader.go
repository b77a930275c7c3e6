// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package innerheader implements the KDBX4 inner TLV header (spec §4.7):
// the inner-stream configuration and binary attachments that precede the
// XML payload once the outer payload has been decrypted and decompressed.
package innerheader

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/openkdbx/kdbx/internal/cipher"
)

// Inner header record ids (spec §4.7).
const (
	fieldEnd                 byte = 0
	fieldInnerRandomStreamID byte = 1
	fieldInnerRandomStreamKey byte = 2
	fieldBinaryAttachment    byte = 3
)

// attachmentProtected is bit 0 of a BinaryAttachment record's flags byte
// (spec §4.7): the content should be held in memory-protected storage.
const attachmentProtected byte = 0x01

// Attachment is one binary carried by the inner header, in file order —
// the order the XML references by 0-based index (spec §4.9).
type Attachment struct {
	Protected bool
	Content   []byte
}

// InvalidInnerHeaderEntryError is returned for a record id outside the
// table in spec §4.7.
type InvalidInnerHeaderEntryError struct{ ID byte }

func (e *InvalidInnerHeaderEntryError) Error() string {
	return fmt.Sprintf("innerheader: invalid inner header entry id %d", e.ID)
}

// IncompleteInnerHeaderError is returned when InnerRandomStreamID or
// InnerRandomStreamKey never appeared before the End record.
type IncompleteInnerHeaderError struct{ Name string }

func (e *IncompleteInnerHeaderError) Error() string {
	return fmt.Sprintf("innerheader: incomplete inner header: missing %s", e.Name)
}

// Inner holds the decoded KDBX4 inner header.
type Inner struct {
	InnerRandomStreamID  cipher.InnerCipherID
	InnerRandomStreamKey []byte
	Attachments          []Attachment
}

func readTLVLength(r io.Reader) (uint32, error) {
	var n uint32
	err := binary.Read(r, binary.LittleEndian, &n)
	return n, err
}

// Read parses the inner TLV header from r (the start of the decompressed
// payload body, in KDBX4).
func Read(r io.Reader) (*Inner, error) {
	in := &Inner{}
	var haveID, haveKey bool

	for {
		var id byte
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, err
		}
		length, err := readTLVLength(r)
		if err != nil {
			return nil, err
		}
		payload := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(r, payload); err != nil {
				return nil, err
			}
		}

		switch id {
		case fieldEnd:
			if !haveID {
				return nil, &IncompleteInnerHeaderError{"InnerRandomStreamID"}
			}
			if !haveKey {
				return nil, &IncompleteInnerHeaderError{"InnerRandomStreamKey"}
			}
			return in, nil

		case fieldInnerRandomStreamID:
			if len(payload) != 4 {
				return nil, &IncompleteInnerHeaderError{"InnerRandomStreamID"}
			}
			in.InnerRandomStreamID = cipher.InnerCipherID(binary.LittleEndian.Uint32(payload))
			haveID = true

		case fieldInnerRandomStreamKey:
			in.InnerRandomStreamKey = append([]byte(nil), payload...)
			haveKey = true

		case fieldBinaryAttachment:
			if len(payload) == 0 {
				return nil, &IncompleteInnerHeaderError{"BinaryAttachment"}
			}
			in.Attachments = append(in.Attachments, Attachment{
				Protected: payload[0]&attachmentProtected != 0,
				Content:   append([]byte(nil), payload[1:]...),
			})

		default:
			return nil, &InvalidInnerHeaderEntryError{ID: id}
		}
	}
}

// Write serializes in as a KDBX4 inner TLV header, terminated by an End
// record.
func Write(w io.Writer, in *Inner) error {
	var buf bytes.Buffer

	writeField := func(id byte, payload []byte) error {
		if err := binary.Write(&buf, binary.LittleEndian, id); err != nil {
			return err
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(payload))); err != nil {
			return err
		}
		_, err := buf.Write(payload)
		return err
	}

	var idBuf [4]byte
	binary.LittleEndian.PutUint32(idBuf[:], uint32(in.InnerRandomStreamID))
	if err := writeField(fieldInnerRandomStreamID, idBuf[:]); err != nil {
		return err
	}
	if err := writeField(fieldInnerRandomStreamKey, in.InnerRandomStreamKey); err != nil {
		return err
	}

	for _, a := range in.Attachments {
		flags := byte(0)
		if a.Protected {
			flags = attachmentProtected
		}
		payload := append([]byte{flags}, a.Content...)
		if err := writeField(fieldBinaryAttachment, payload); err != nil {
			return err
		}
	}

	if err := writeField(fieldEnd, nil); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())
	return err
}
