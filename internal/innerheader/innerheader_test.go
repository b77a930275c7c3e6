// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package innerheader

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openkdbx/kdbx/internal/cipher"
)

func TestInnerHeaderRoundTrip(t *testing.T) {
	in := &Inner{
		InnerRandomStreamID:  cipher.InnerChaCha20,
		InnerRandomStreamKey: make([]byte, 64),
		Attachments: []Attachment{
			{Protected: true, Content: []byte("secret attachment")},
			{Protected: false, Content: []byte("public attachment")},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))

	decoded, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, in.InnerRandomStreamID, decoded.InnerRandomStreamID)
	require.Equal(t, in.InnerRandomStreamKey, decoded.InnerRandomStreamKey)
	require.Len(t, decoded.Attachments, 2)
	require.True(t, decoded.Attachments[0].Protected)
	require.False(t, decoded.Attachments[1].Protected)
	require.Equal(t, []byte("secret attachment"), decoded.Attachments[0].Content)
}

func TestInnerHeaderMissingStreamIDErrors(t *testing.T) {
	in := &Inner{InnerRandomStreamKey: make([]byte, 32)}
	var buf bytes.Buffer

	// Write only the key field then End, skipping the stream ID field.
	writeField := func(id byte, payload []byte) {
		buf.WriteByte(id)
		var lenBuf [4]byte
		lenBuf[0] = byte(len(payload))
		buf.Write(lenBuf[:])
		buf.Write(payload)
	}
	writeField(fieldInnerRandomStreamKey, in.InnerRandomStreamKey)
	writeField(fieldEnd, nil)

	_, err := Read(&buf)
	require.Error(t, err)
	var incomplete *IncompleteInnerHeaderError
	require.ErrorAs(t, err, &incomplete)
}

func TestInnerHeaderRejectsUnknownEntry(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(99)
	buf.Write([]byte{0, 0, 0, 0})

	_, err := Read(&buf)
	require.Error(t, err)
	var invalid *InvalidInnerHeaderEntryError
	require.ErrorAs(t, err, &invalid)
}
