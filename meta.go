// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package kdbx

import "time"

// MemoryProtection records which of the five standard entry fields KeePass
// clients should treat as protected-by-default when creating new entries
// (spec §3 Meta).
type MemoryProtection struct {
	Title    bool
	UserName bool
	Password bool
	URL      bool
	Notes    bool
}

// Meta holds the database-wide, user-visible metadata (spec §3).
type Meta struct {
	Generator string

	DatabaseName           string
	DatabaseNameChanged     *time.Time
	DatabaseDescription     string
	DatabaseDescriptionChanged *time.Time
	DefaultUserName         string
	DefaultUserNameChanged  *time.Time

	MaintenanceHistoryDays *uint32
	Color                  string

	MasterKeyChanged            *time.Time
	MasterKeyChangeRec          *int64
	MasterKeyChangeForce        *int64

	MemoryProtection MemoryProtection

	RecycleBinEnabled    *bool
	RecycleBinUUID       *[16]byte
	RecycleBinChanged    *time.Time

	EntryTemplatesGroup        *[16]byte
	EntryTemplatesGroupChanged *time.Time

	LastSelectedGroup    *[16]byte
	LastTopVisibleGroup  *[16]byte

	HistoryMaxItems *int32
	HistoryMaxSize  *int64

	SettingsChanged *time.Time

	CustomIcons []CustomIcon
	CustomData  map[string]string
}
