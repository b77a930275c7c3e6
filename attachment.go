// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package kdbx

import "time"

// Attachment is a binary owned by the Database and referenced by entries
// via index (spec §3 supplement, grounded on original_source's
// db/types/attachment.rs). In KDBX3 attachments live under Meta/Binaries;
// in KDBX4 they are carried by the inner header (spec §4.7, §4.9).
type Attachment struct {
	id        int
	data      []byte
	protected bool
}

// ID returns the attachment's 0-based index, the value an entry's
// <Binary><Value Ref="..."/> points at.
func (a *Attachment) ID() int { return a.id }

// Data returns the attachment's raw content.
func (a *Attachment) Data() []byte { return append([]byte(nil), a.data...) }

// Protected reports whether the inner header flagged this attachment for
// memory-protected storage (KDBX4 inner-header flag bit 0, spec §4.7).
func (a *Attachment) Protected() bool { return a.protected }

// CustomIcon is a user-supplied icon image referenced by Group/Entry
// CustomIconUUID (spec §3 supplement, grounded on original_source's
// db/types/icon.rs). Name and LastModificationTime are KDBX 4.1+ additions
// carried opaquely, since neither has invariants in this codec beyond
// round-tripping.
type CustomIcon struct {
	UUID                 [16]byte
	Data                 []byte
	Name                 string
	LastModificationTime *time.Time
}

// AutotypeAssociation binds an autotype keystroke sequence override to a
// specific target window title (spec §3 supplement, grounded on
// original_source's db/types/entry.rs Autotype block).
type AutotypeAssociation struct {
	Window            string
	KeystrokeSequence string
}

// AutotypeSetting is an entry's optional autotype block (spec §3
// supplement): whether autotype is enabled for this entry, whether the
// clipboard should be obfuscated during entry, the default keystroke
// sequence, and per-window overrides.
type AutotypeSetting struct {
	Enabled                bool
	ObfuscateDataTransfer  bool
	DefaultSequence        string
	Associations           []AutotypeAssociation
}

// DeletedObject records a tombstone for a group/entry removed from the
// tree: its UUID and the time of deletion (spec §3 Database field
// deleted_objects).
type DeletedObject struct {
	UUID         [16]byte
	DeletionTime time.Time
}
