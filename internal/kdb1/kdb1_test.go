// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package kdb1

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openkdbx/kdbx/internal/cipher"
	"github.com/openkdbx/kdbx/internal/kdf"
)

func writeField(buf *bytes.Buffer, typ uint16, payload []byte) {
	binary.Write(buf, binary.LittleEndian, typ)
	binary.Write(buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
}

func TestReadHeaderParsesFixedLayout(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, flagAES)
	binary.Write(&buf, binary.LittleEndian, uint32(2))
	buf.Write(make([]byte, 16)) // MasterSeed
	buf.Write(make([]byte, 16)) // IV
	binary.Write(&buf, binary.LittleEndian, uint32(1))
	binary.Write(&buf, binary.LittleEndian, uint32(1))
	buf.Write(make([]byte, 32)) // ContentsHash
	buf.Write(make([]byte, 32)) // TransformSeed
	binary.Write(&buf, binary.LittleEndian, uint32(6000))

	h, err := ReadHeader(&buf)
	require.NoError(t, err)
	require.Equal(t, uint32(1), h.NumGroups)
	require.Equal(t, uint32(1), h.NumEntries)
	require.Equal(t, uint32(6000), h.TransformRounds)

	oc, err := h.OuterCipher()
	require.NoError(t, err)
	require.Equal(t, cipher.AES256, oc)

	aesKDF, ok := h.KDF().(kdf.AESKDF)
	require.True(t, ok)
	require.Equal(t, uint64(6000), aesKDF.Params.Rounds)
}

func TestHeaderOuterCipherTwofish(t *testing.T) {
	h := &Header{Flags: flagTwofish}
	oc, err := h.OuterCipher()
	require.NoError(t, err)
	require.Equal(t, cipher.Twofish, oc)
}

func TestHeaderOuterCipherRejectsUnknownFlags(t *testing.T) {
	h := &Header{Flags: 0}
	_, err := h.OuterCipher()
	require.Error(t, err)
	var invalid *InvalidFixedHeaderError
	require.ErrorAs(t, err, &invalid)
}

func TestReadGroupsParsesFields(t *testing.T) {
	var buf bytes.Buffer
	idPayload := make([]byte, 4)
	binary.LittleEndian.PutUint32(idPayload, 42)
	writeField(&buf, groupFieldID, idPayload)
	writeField(&buf, groupFieldName, append([]byte("Root"), 0))
	levelPayload := make([]byte, 2)
	binary.LittleEndian.PutUint16(levelPayload, 0)
	writeField(&buf, groupFieldLevel, levelPayload)
	writeField(&buf, fieldTerminator, nil)

	groups, err := ReadGroups(&buf, 1)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, uint32(42), groups[0].ID)
	require.Equal(t, "Root", groups[0].Name)
}

func TestReadEntriesParsesFields(t *testing.T) {
	var buf bytes.Buffer
	var uuid [16]byte
	uuid[0] = 1
	writeField(&buf, entryFieldUUID, uuid[:])
	writeField(&buf, entryFieldTitle, append([]byte("example.com"), 0))
	writeField(&buf, entryFieldUsername, append([]byte("alice"), 0))
	writeField(&buf, entryFieldPassword, append([]byte("hunter2"), 0))
	writeField(&buf, fieldTerminator, nil)

	entries, err := ReadEntries(&buf, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, uuid, entries[0].UUID)
	require.Equal(t, "example.com", entries[0].Title)
	require.Equal(t, "alice", entries[0].Username)
	require.Equal(t, "hunter2", entries[0].Password)
}

func TestReadGroupsRejectsBadFieldLength(t *testing.T) {
	var buf bytes.Buffer
	writeField(&buf, groupFieldID, []byte{1, 2}) // wrong length, want 4
	writeField(&buf, fieldTerminator, nil)

	_, err := ReadGroups(&buf, 1)
	require.Error(t, err)
	var badLen *InvalidKDBFieldLengthError
	require.ErrorAs(t, err, &badLen)
}

func TestBuildTreeReconstructsHierarchy(t *testing.T) {
	groups := []Group{
		{ID: 1, Name: "Root", Level: 0},
		{ID: 2, Name: "Child", Level: 1},
		{ID: 3, Name: "Sibling Root", Level: 0},
	}
	entries := []Entry{
		{UUID: [16]byte{1}, GroupID: 2, Title: "in child"},
	}

	tree := BuildTree(groups, entries)
	require.Len(t, tree.Roots, 2)
	require.Equal(t, "Root", tree.Roots[0].Name)
	require.Len(t, tree.Roots[0].Children, 1)
	require.Equal(t, "Child", tree.Roots[0].Children[0].Name)
	require.Len(t, tree.Roots[0].Children[0].Entries, 1)
	require.Equal(t, "in child", tree.Roots[0].Children[0].Entries[0].Title)
}

func TestDecodeKDBTimeRejectsWrongLength(t *testing.T) {
	require.True(t, decodeKDBTime([]byte{1, 2, 3}).IsZero())
}
