// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package merge

import (
	"testing"
	"time"

	"github.com/openkdbx/kdbx"
	"github.com/stretchr/testify/require"
)

func newEntry(uuid byte, title string, modified time.Time) *kdbx.Entry {
	return &kdbx.Entry{
		UUID: [16]byte{uuid},
		Fields: map[string]kdbx.Value{
			"Title": kdbx.NewUnprotectedValue(title),
		},
		Times: kdbx.Times{LastModification: &modified},
	}
}

func rootWith(nodes ...kdbx.Node) *kdbx.Group {
	modified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &kdbx.Group{
		UUID:     [16]byte{0xFF},
		Name:     "Root",
		Times:    kdbx.Times{LastModification: &modified},
		Children: nodes,
	}
}

func TestMergeCreatesNewEntry(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dst := &kdbx.Database{Root: rootWith()}
	src := &kdbx.Database{Root: rootWith(newEntry(1, "new entry", base))}

	report, err := Merge(dst, src)
	require.NoError(t, err)
	require.Len(t, dst.Root.Children, 1)
	require.Equal(t, EntryCreated, report.Events[0].Type)
}

func TestMergeKeepsNewerSide(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	dstEntry := newEntry(1, "dst version", older)
	srcEntry := newEntry(1, "src version", newer)

	dst := &kdbx.Database{Root: rootWith(dstEntry)}
	src := &kdbx.Database{Root: rootWith(srcEntry)}

	report, err := Merge(dst, src)
	require.NoError(t, err)

	merged := dst.Root.Children[0].(*kdbx.Entry)
	v, _ := merged.Get("Title")
	require.Equal(t, "src version", v.Reveal())
	require.Len(t, merged.History, 1)
	require.Equal(t, "dst version", mustReveal(merged.History[0]))
	require.Equal(t, EntryUpdated, report.Events[0].Type)
}

func TestMergeIdenticalTimestampNoDivergeIsNoOp(t *testing.T) {
	same := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dst := &kdbx.Database{Root: rootWith(newEntry(1, "same", same))}
	src := &kdbx.Database{Root: rootWith(newEntry(1, "same", same))}

	report, err := Merge(dst, src)
	require.NoError(t, err)
	require.Empty(t, report.Events)
}

func TestMergeIdenticalTimestampDivergedIsError(t *testing.T) {
	same := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dst := &kdbx.Database{Root: rootWith(newEntry(1, "dst", same))}
	src := &kdbx.Database{Root: rootWith(newEntry(1, "src", same))}

	_, err := Merge(dst, src)
	require.Error(t, err)
	var diverged *DivergedEntryError
	require.ErrorAs(t, err, &diverged)
}

func TestMergePrunesTombstonedEntry(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	deletedAt := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	dst := &kdbx.Database{Root: rootWith(newEntry(1, "to be deleted", created))}
	src := &kdbx.Database{
		Root:           rootWith(),
		DeletedObjects: []kdbx.DeletedObject{{UUID: [16]byte{1}, DeletionTime: deletedAt}},
	}

	report, err := Merge(dst, src)
	require.NoError(t, err)
	require.Empty(t, dst.Root.Children)
	require.Equal(t, EntryDeleted, report.Events[0].Type)
}

func mustReveal(e *kdbx.Entry) string {
	v, _ := e.Get("Title")
	return v.Reveal()
}
