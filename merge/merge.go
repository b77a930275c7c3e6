// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package merge combines two open databases into one, the way two KeePass
// clients reconcile offline edits to the same file (grounded on
// original_source's db/merge.rs and db/entry.rs Entry::merge /
// Entry::merge_history): newer Times.LastModification wins per node, the
// losing side's content becomes a history snapshot, and src's tombstones
// (DeletedObjects) prune anything dst still carries past its deletion time.
package merge

import (
	"fmt"
	"sort"
	"time"

	"github.com/openkdbx/kdbx"
)

// EventType classifies one change Merge made to dst.
type EventType int

const (
	EntryCreated EventType = iota
	EntryUpdated
	EntryDeleted
	GroupCreated
	GroupUpdated
	GroupDeleted
)

func (t EventType) String() string {
	switch t {
	case EntryCreated:
		return "EntryCreated"
	case EntryUpdated:
		return "EntryUpdated"
	case EntryDeleted:
		return "EntryDeleted"
	case GroupCreated:
		return "GroupCreated"
	case GroupUpdated:
		return "GroupUpdated"
	case GroupDeleted:
		return "GroupDeleted"
	default:
		return "Unknown"
	}
}

// Event records one change Merge made, for callers that want to surface a
// changelog to the user.
type Event struct {
	NodeUUID [16]byte
	Type     EventType
}

// Report summarizes everything Merge did.
type Report struct {
	Warnings []string
	Events   []Event
}

func (r *Report) append(other *Report) {
	if other == nil {
		return
	}
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Events = append(r.Events, other.Events...)
}

// DivergedEntryError is returned when two copies of an entry carry the same
// LastModification timestamp but different content — a sign one side was
// edited without updating its timestamp (grounded on merge.rs's
// EntryModificationTimeNotUpdated).
type DivergedEntryError struct{ UUID [16]byte }

func (e *DivergedEntryError) Error() string {
	return fmt.Sprintf("merge: entry %x has an unchanged modification time but diverged content", e.UUID)
}

// DuplicateHistoryEntriesError is returned when two history snapshots of
// the same entry share a LastModification timestamp but differ in content
// (grounded on merge.rs's DuplicateHistoryEntries).
type DuplicateHistoryEntriesError struct{ UUID [16]byte }

func (e *DuplicateHistoryEntriesError) Error() string {
	return fmt.Sprintf("merge: entry %x has diverged history snapshots with the same timestamp", e.UUID)
}

// Merge folds src's tree into dst in place: nodes present only in src are
// created in dst, nodes present in both are reconciled by Times, and src's
// tombstones are applied to dst. dst is the database that should be saved
// afterward; src is left untouched.
func Merge(dst, src *kdbx.Database) (*Report, error) {
	report := &Report{}

	if src == nil {
		return report, nil
	}

	if dst.Root == nil {
		dst.Root = src.Root
		dst.DeletedObjects = mergeDeletedObjects(dst.DeletedObjects, src.DeletedObjects)
		return report, nil
	}

	if src.Root != nil {
		sub, err := mergeGroup(dst.Root, src.Root)
		if err != nil {
			return nil, err
		}
		report.append(sub)
	}

	tombstones := make(map[[16]byte]time.Time, len(src.DeletedObjects))
	for _, d := range src.DeletedObjects {
		tombstones[d.UUID] = d.DeletionTime
	}
	report.Events = append(report.Events, pruneDeleted(dst.Root, tombstones)...)

	dst.DeletedObjects = mergeDeletedObjects(dst.DeletedObjects, src.DeletedObjects)
	return report, nil
}

func mergeGroup(dst, src *kdbx.Group) (*Report, error) {
	report := &Report{}

	srcModified := timeOrEpoch(src.Times.LastModification)
	dstModified := timeOrEpoch(dst.Times.LastModification)
	if srcModified.After(dstModified) {
		copyGroupFields(dst, src)
		report.Events = append(report.Events, Event{NodeUUID: dst.UUID, Type: GroupUpdated})
	}

	dstIndex := indexChildren(dst)
	for _, node := range src.Children {
		uuid, ok := childUUID(node)
		if !ok {
			continue
		}
		existing, ok := dstIndex[uuid]
		if !ok {
			dst.Children = append(dst.Children, node)
			dstIndex[uuid] = node
			report.Events = append(report.Events, eventForCreate(node))
			continue
		}

		switch s := node.(type) {
		case *kdbx.Entry:
			d, ok := existing.(*kdbx.Entry)
			if !ok {
				continue
			}
			sub, err := mergeEntry(d, s)
			if err != nil {
				return nil, err
			}
			report.append(sub)
		case *kdbx.Group:
			d, ok := existing.(*kdbx.Group)
			if !ok {
				continue
			}
			sub, err := mergeGroup(d, s)
			if err != nil {
				return nil, err
			}
			report.append(sub)
		}
	}

	return report, nil
}

func mergeEntry(dst, src *kdbx.Entry) (*Report, error) {
	report := &Report{}

	srcModified := timeOrEpoch(src.Times.LastModification)
	dstModified := timeOrEpoch(dst.Times.LastModification)

	if srcModified.Equal(dstModified) {
		if !entryContentEqual(dst, src) {
			return nil, &DivergedEntryError{UUID: dst.UUID}
		}
		return report, nil
	}

	mergedHistory, err := mergeHistories(dst.History, src.History)
	if err != nil {
		return nil, err
	}

	var newer, older *kdbx.Entry
	if dstModified.After(srcModified) {
		newer, older = dst, src
	} else {
		newer, older = src, dst
	}
	mergedHistory, err = appendHistorySnapshot(mergedHistory, older)
	if err != nil {
		return nil, err
	}

	locationChanged := dst.Times.LocationChanged
	*dst = *newer
	dst.History = mergedHistory
	if locationChanged != nil {
		dst.Times.LocationChanged = locationChanged
	}

	report.Events = append(report.Events, Event{NodeUUID: dst.UUID, Type: EntryUpdated})
	return report, nil
}

func indexChildren(g *kdbx.Group) map[[16]byte]kdbx.Node {
	out := make(map[[16]byte]kdbx.Node, len(g.Children))
	for _, n := range g.Children {
		if uuid, ok := childUUID(n); ok {
			out[uuid] = n
		}
	}
	return out
}

func childUUID(n kdbx.Node) ([16]byte, bool) {
	switch v := n.(type) {
	case *kdbx.Entry:
		return v.UUID, true
	case *kdbx.Group:
		return v.UUID, true
	default:
		return [16]byte{}, false
	}
}

func nodeModified(n kdbx.Node) *time.Time {
	switch v := n.(type) {
	case *kdbx.Entry:
		return v.Times.LastModification
	case *kdbx.Group:
		return v.Times.LastModification
	default:
		return nil
	}
}

func eventForCreate(n kdbx.Node) Event {
	switch v := n.(type) {
	case *kdbx.Entry:
		return Event{NodeUUID: v.UUID, Type: EntryCreated}
	case *kdbx.Group:
		return Event{NodeUUID: v.UUID, Type: GroupCreated}
	default:
		return Event{}
	}
}

func eventForDelete(n kdbx.Node) Event {
	switch v := n.(type) {
	case *kdbx.Entry:
		return Event{NodeUUID: v.UUID, Type: EntryDeleted}
	case *kdbx.Group:
		return Event{NodeUUID: v.UUID, Type: GroupDeleted}
	default:
		return Event{}
	}
}

func copyGroupFields(dst, src *kdbx.Group) {
	dst.Name = src.Name
	dst.Notes = src.Notes
	dst.IconID = src.IconID
	dst.CustomIconUUID = src.CustomIconUUID
	dst.Times = src.Times
	dst.CustomData = src.CustomData
	dst.IsExpanded = src.IsExpanded
	dst.DefaultAutotypeSequence = src.DefaultAutotypeSequence
	dst.EnableAutotype = src.EnableAutotype
	dst.EnableSearching = src.EnableSearching
	dst.LastTopVisibleEntry = src.LastTopVisibleEntry
}

func timeOrEpoch(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func entryContentEqual(a, b *kdbx.Entry) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for k, v := range a.Fields {
		ov, ok := b.Fields[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// snapshotOf returns a history entry for e: a shallow copy with its own
// History cleared, since a history snapshot never carries history of its
// own (spec invariant on Entry.History).
func snapshotOf(e *kdbx.Entry) *kdbx.Entry {
	cp := *e
	cp.History = nil
	return &cp
}

func mergeHistories(a, b []*kdbx.Entry) ([]*kdbx.Entry, error) {
	byTime := make(map[int64]*kdbx.Entry, len(a)+len(b))
	var order []int64

	add := func(e *kdbx.Entry) error {
		key := timeOrEpoch(e.Times.LastModification).Unix()
		if existing, ok := byTime[key]; ok {
			if !entryContentEqual(existing, e) {
				return &DuplicateHistoryEntriesError{UUID: e.UUID}
			}
			return nil
		}
		byTime[key] = e
		order = append(order, key)
		return nil
	}

	for _, e := range a {
		if err := add(e); err != nil {
			return nil, err
		}
	}
	for _, e := range b {
		if err := add(e); err != nil {
			return nil, err
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] > order[j] })
	out := make([]*kdbx.Entry, len(order))
	for i, k := range order {
		out[i] = byTime[k]
	}
	return out, nil
}

func appendHistorySnapshot(history []*kdbx.Entry, e *kdbx.Entry) ([]*kdbx.Entry, error) {
	return mergeHistories(history, []*kdbx.Entry{snapshotOf(e)})
}

func pruneDeleted(g *kdbx.Group, tombstones map[[16]byte]time.Time) []Event {
	if g == nil {
		return nil
	}
	var events []Event
	kept := g.Children[:0]
	for _, n := range g.Children {
		uuid, ok := childUUID(n)
		if ok {
			if cutoff, tomb := tombstones[uuid]; tomb {
				if !timeOrEpoch(nodeModified(n)).After(cutoff) {
					events = append(events, eventForDelete(n))
					continue
				}
			}
		}
		if sub, ok := n.(*kdbx.Group); ok {
			events = append(events, pruneDeleted(sub, tombstones)...)
		}
		kept = append(kept, n)
	}
	g.Children = kept
	return events
}

func mergeDeletedObjects(a, b []kdbx.DeletedObject) []kdbx.DeletedObject {
	byUUID := make(map[[16]byte]kdbx.DeletedObject, len(a)+len(b))
	var order [][16]byte
	add := func(d kdbx.DeletedObject) {
		existing, ok := byUUID[d.UUID]
		if !ok {
			byUUID[d.UUID] = d
			order = append(order, d.UUID)
			return
		}
		if d.DeletionTime.Before(existing.DeletionTime) {
			byUUID[d.UUID] = d
		}
	}
	for _, d := range a {
		add(d)
	}
	for _, d := range b {
		add(d)
	}
	out := make([]kdbx.DeletedObject, len(order))
	for i, uuid := range order {
		out[i] = byUUID[uuid]
	}
	return out
}
