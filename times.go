// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package kdbx

import "time"

// kdbxEpoch is 0001-01-01T00:00:00, the zero point of the Base64 little-
// endian-seconds timestamp encoding used by KDBX4 (spec §3).
var kdbxEpoch = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// Times holds the five optional timestamps and usage counter carried by
// every Group and Entry (spec §3). Timestamps are naive: KeePass stores no
// timezone, so these are treated as UTC wall-clock values throughout.
type Times struct {
	Creation         *time.Time
	LastModification *time.Time
	LastAccess       *time.Time
	Expiry           *time.Time
	LocationChanged  *time.Time

	Expires    *bool
	UsageCount *uint64
}

// NewTimes returns a Times with Creation/LastModification/LastAccess/
// LocationChanged set to now and Expires false, the defaults a freshly
// constructed Group or Entry gets.
func NewTimes(now time.Time) Times {
	n := now.UTC()
	f := false
	return Times{
		Creation:         &n,
		LastModification: &n,
		LastAccess:       &n,
		LocationChanged:  &n,
		Expires:          &f,
	}
}

func timePtr(t time.Time) *time.Time { return &t }
