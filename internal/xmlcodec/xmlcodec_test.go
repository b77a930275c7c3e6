// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package xmlcodec

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openkdbx/kdbx/internal/cipher"
)

func sampleDoc() *Document {
	now := time.Now().UTC().Truncate(time.Second)
	entryUUID := [16]byte{1}
	groupUUID := [16]byte{2}

	entry := &Entry{
		UUID: entryUUID,
		Times: Times{
			Creation:         &now,
			LastModification: &now,
		},
		Strings: []StringField{
			{Key: "Title", Value: "example.com"},
			{Key: "UserName", Value: "alice"},
			{Key: "Password", Value: "correct horse battery staple", Protected: true},
		},
	}

	root := &Group{
		UUID: groupUUID,
		Name: "Root",
		Times: Times{
			Creation:         &now,
			LastModification: &now,
		},
		Children: []GroupChild{{Entry: entry}},
	}

	return &Document{
		Meta: Meta{Generator: "kdbx-test", DatabaseName: "sample"},
		Root: root,
	}
}

// newMatchedStreams returns two independently-instantiated inner streams
// keyed identically, so one can be used to encode and the other to decode
// without sharing mutable state (mirroring how Save/Open each build their
// own InnerStream from the same InnerRandomStreamKey).
func newMatchedStreams(t *testing.T) (enc, dec *cipher.InnerStream) {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	enc, err := cipher.NewInnerStream(cipher.InnerChaCha20, key)
	require.NoError(t, err)
	dec, err = cipher.NewInnerStream(cipher.InnerChaCha20, key)
	require.NoError(t, err)
	return enc, dec
}

func TestEncodeDecodeRoundTripWithProtectedValue(t *testing.T) {
	doc := sampleDoc()
	encStream, decStream := newMatchedStreams(t)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc, encStream))

	// The serialized XML must never contain the plaintext secret.
	require.NotContains(t, buf.String(), "correct horse battery staple")
	require.Contains(t, buf.String(), `Protected="True"`)

	decoded, err := Decode(&buf, decStream)
	require.NoError(t, err)

	require.Equal(t, "sample", decoded.Meta.DatabaseName)
	require.Equal(t, "Root", decoded.Root.Name)
	require.Len(t, decoded.Root.Children, 1)

	got := decoded.Root.Children[0].Entry
	require.NotNil(t, got)
	require.Equal(t, "example.com", got.Strings[0].Value)
	require.Equal(t, "alice", got.Strings[1].Value)
}

func TestEncodeDecodeRoundTripPlainValuesNoStream(t *testing.T) {
	doc := sampleDoc()
	doc.Root.Children[0].Entry.Strings[2].Protected = false

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc, nil))

	decoded, err := Decode(&buf, nil)
	require.NoError(t, err)
	got := decoded.Root.Children[0].Entry
	require.Equal(t, "correct horse battery staple", got.Strings[2].Value)
}

func TestDecodeSkipsUnknownElements(t *testing.T) {
	xmlDoc := `<?xml version="1.0" encoding="utf-8" standalone="yes"?>
<KeePassFile>
	<SomeFutureElement><Nested>ignored</Nested></SomeFutureElement>
	<Meta><Generator>test</Generator></Meta>
	<Root><Group><UUID>AgICAgICAgICAgICAgICAg==</UUID><Name>Root</Name></Group></Root>
</KeePassFile>`

	doc, err := Decode(bytes.NewBufferString(xmlDoc), nil)
	require.NoError(t, err)
	require.Equal(t, "test", doc.Meta.Generator)
	require.Equal(t, "Root", doc.Root.Name)
}
