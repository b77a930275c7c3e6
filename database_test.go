// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package kdbx

import (
	"bytes"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleDatabase() *Database {
	now := NewTimes(time.Now().UTC())
	entry := &Entry{
		UUID: [16]byte{1},
		Fields: map[string]Value{
			"Title":    NewUnprotectedValue("example.com"),
			"UserName": NewUnprotectedValue("alice"),
			"Password": NewProtectedValue("correct horse battery staple"),
		},
		Times: now,
	}
	root := &Group{
		UUID:     [16]byte{0xFF},
		Name:     "Root",
		Times:    now,
		Children: []Node{entry},
	}
	return &Database{
		Config: DefaultConfig(),
		Meta:   Meta{Generator: "kdbx-test", DatabaseName: "sample"},
		Root:   root,
	}
}

func TestRoundTripKDBX4(t *testing.T) {
	db := sampleDatabase()
	key := NewDatabaseKey().WithPassword("hunter2")

	var buf bytes.Buffer
	require.NoError(t, db.Save(&buf, key))

	reopened, err := Open(bytes.NewReader(buf.Bytes()), key)
	require.NoError(t, err)

	require.Equal(t, "sample", reopened.Meta.DatabaseName)
	require.Len(t, reopened.Root.Children, 1)

	entry := reopened.Root.Children[0].(*Entry)
	require.Equal(t, "example.com", entry.Title())
	require.Equal(t, "alice", entry.Username())
	require.Equal(t, "correct horse battery staple", entry.Password())

	v, ok := entry.Get("Password")
	require.True(t, ok)
	require.Equal(t, KindProtected, v.Kind())
}

func TestRoundTripPreservesOuterCipherAndVersion(t *testing.T) {
	db := sampleDatabase()
	key := NewDatabaseKey().WithPassword("hunter2")

	var buf bytes.Buffer
	require.NoError(t, db.SaveWithRand(&buf, key, rand.Reader))

	reopened, err := Open(bytes.NewReader(buf.Bytes()), key)
	require.NoError(t, err)
	require.Equal(t, db.Config.OuterCipher, reopened.Config.OuterCipher)
	require.Equal(t, VersionKDBX4, reopened.Config.Version)
}

func TestOpenWithEmptyKeyFails(t *testing.T) {
	db := sampleDatabase()
	var buf bytes.Buffer
	require.NoError(t, db.Save(&buf, NewDatabaseKey().WithPassword("hunter2")))

	_, err := Open(bytes.NewReader(buf.Bytes()), NewDatabaseKey())
	require.ErrorIs(t, err, ErrIncorrectKey)
}

func TestOpenWithWrongPasswordFails(t *testing.T) {
	db := sampleDatabase()
	var buf bytes.Buffer
	require.NoError(t, db.Save(&buf, NewDatabaseKey().WithPassword("hunter2")))

	_, err := Open(bytes.NewReader(buf.Bytes()), NewDatabaseKey().WithPassword("wrong"))
	require.ErrorIs(t, err, ErrIncorrectKey)
}

func TestSaveRejectsNonKDBX4Version(t *testing.T) {
	db := sampleDatabase()
	db.Config.Version = VersionKDBX3

	var buf bytes.Buffer
	err := db.Save(&buf, NewDatabaseKey().WithPassword("hunter2"))
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestGetVersionAfterSave(t *testing.T) {
	db := sampleDatabase()
	var buf bytes.Buffer
	require.NoError(t, db.Save(&buf, NewDatabaseKey().WithPassword("hunter2")))

	version, err := GetVersion(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, VersionKDBX4, version)
}

func TestGetXMLLeavesProtectedValuesOpaque(t *testing.T) {
	db := sampleDatabase()
	key := NewDatabaseKey().WithPassword("hunter2")

	var buf bytes.Buffer
	require.NoError(t, db.Save(&buf, key))

	xmlBytes, err := GetXML(bytes.NewReader(buf.Bytes()), key)
	require.NoError(t, err)
	require.NotContains(t, string(xmlBytes), "correct horse battery staple")
	require.Contains(t, string(xmlBytes), "<String>")
}

func TestHistorySurvivesRoundTrip(t *testing.T) {
	db := sampleDatabase()
	entry := db.Root.Children[0].(*Entry)
	entry.History = []*Entry{
		{
			UUID: entry.UUID,
			Fields: map[string]Value{
				"Title": NewUnprotectedValue("example.com"),
			},
			Times: entry.Times,
		},
	}

	key := NewDatabaseKey().WithPassword("hunter2")
	var buf bytes.Buffer
	require.NoError(t, db.Save(&buf, key))

	reopened, err := Open(bytes.NewReader(buf.Bytes()), key)
	require.NoError(t, err)

	reEntry := reopened.Root.Children[0].(*Entry)
	require.Len(t, reEntry.History, 1)
}
