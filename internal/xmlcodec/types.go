// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package xmlcodec

import "time"

// Document is the decoded/to-be-encoded payload XML (spec §4.9): a root
// element with Meta and Root>Group children. It is a plain DTO — the
// root kdbx package owns the real object model and converts to/from this
// shape at the package boundary, since internal packages cannot import it.
type Document struct {
	Meta           Meta
	Root           *Group
	DeletedObjects []DeletedObject
}

// Times mirrors spec §3's five optional timestamps plus Expires/UsageCount.
type Times struct {
	Creation         *time.Time
	LastModification *time.Time
	LastAccess       *time.Time
	Expiry           *time.Time
	LocationChanged  *time.Time
	Expires          *bool
	UsageCount       *uint64
}

// StringField is one <String><Key>/<Value> pair of an Entry (spec §4.9).
type StringField struct {
	Key       string
	Value     string // plaintext always, regardless of Protected
	Protected bool
}

// BinaryRef is one <Binary><Key>/<Value Ref="..."> pair of an Entry.
type BinaryRef struct {
	Key string
	Ref int
}

// AutotypeAssociation is one <Association> of an Entry's <AutoType> block.
type AutotypeAssociation struct {
	Window            string
	KeystrokeSequence string
}

// Autotype mirrors an Entry's optional <AutoType> block.
type Autotype struct {
	Enabled               bool
	ObfuscateDataTransfer bool
	DefaultSequence       string
	Associations          []AutotypeAssociation
}

// CustomDataItem is one <Item><Key>/<Value> pair of a CustomData map.
type CustomDataItem struct {
	Key   string
	Value string
}

// Entry mirrors spec §3's Entry, plus History as []*Entry with their own
// History always empty.
type Entry struct {
	UUID            [16]byte
	IconID          *int32
	CustomIconUUID  *[16]byte
	ForegroundColor string
	BackgroundColor string
	OverrideURL     string
	QualityCheck    *bool
	Tags            []string

	Times      Times
	CustomData []CustomDataItem

	Strings  []StringField
	Binaries []BinaryRef
	Autotype *Autotype

	History []*Entry
}

// Group mirrors spec §3's Group; Children interleaves *Group and *Entry in
// document order via GroupChild.
type Group struct {
	UUID           [16]byte
	Name           string
	Notes          string
	IconID         *int32
	CustomIconUUID *[16]byte

	Times      Times
	CustomData []CustomDataItem

	IsExpanded              bool
	DefaultAutotypeSequence string
	EnableAutotype          TriState
	EnableSearching         TriState
	LastTopVisibleEntry     *[16]byte

	Children []GroupChild
}

// GroupChild tags one child of a Group as either a subgroup or an entry,
// preserving document order across the two kinds (spec §3: "any
// interleaving").
type GroupChild struct {
	Group *Group
	Entry *Entry
}

// MetaBinary is a KDBX3-only <Meta><Binaries><Binary> attachment, keyed by
// the ID attribute that Entry Binary references point at (spec §4.9).
type MetaBinary struct {
	ID         int
	Compressed bool
	Content    []byte
}

// CustomIcon mirrors spec §3 supplement's CustomIcon.
type CustomIcon struct {
	UUID                 [16]byte
	Data                 []byte
	Name                 string
	LastModificationTime *time.Time
}

// MemoryProtection mirrors spec §3 Meta's memory-protection flags.
type MemoryProtection struct {
	Title    bool
	UserName bool
	Password bool
	URL      bool
	Notes    bool
}

// Meta mirrors spec §3's Meta element.
type Meta struct {
	Generator string

	DatabaseName               string
	DatabaseNameChanged        *time.Time
	DatabaseDescription        string
	DatabaseDescriptionChanged *time.Time
	DefaultUserName            string
	DefaultUserNameChanged     *time.Time

	MaintenanceHistoryDays *uint32
	Color                  string

	MasterKeyChanged     *time.Time
	MasterKeyChangeRec   *int64
	MasterKeyChangeForce *int64

	MemoryProtection MemoryProtection

	RecycleBinEnabled *bool
	RecycleBinUUID    *[16]byte
	RecycleBinChanged *time.Time

	EntryTemplatesGroup        *[16]byte
	EntryTemplatesGroupChanged *time.Time

	LastSelectedGroup   *[16]byte
	LastTopVisibleGroup *[16]byte

	HistoryMaxItems *int32
	HistoryMaxSize  *int64

	SettingsChanged *time.Time

	CustomIcons []CustomIcon
	CustomData  []CustomDataItem

	// Binaries is the KDBX3-only Meta/Binaries list (spec §4.9); KDBX4
	// carries attachments in the inner header instead.
	Binaries []MetaBinary
}

// DeletedObject mirrors spec §3 Database field deleted_objects.
type DeletedObject struct {
	UUID         [16]byte
	DeletionTime time.Time
}
