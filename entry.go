// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package kdbx

// Color is a #RRGGBB color value (spec §3, §4.9).
type Color struct {
	R, G, B byte
}

// Entry is a node of the tree rooted at Database.Root (spec §3).
type Entry struct {
	UUID   [16]byte
	Fields map[string]Value

	Autotype *AutotypeSetting
	Tags     []string

	Times      Times
	CustomData map[string]string

	IconID         *int
	CustomIconUUID *[16]byte
	ForegroundColor *Color
	BackgroundColor *Color
	OverrideURL     string
	QualityCheck    *bool

	// History holds prior snapshots of this entry, newest first. A
	// History entry's own History is always empty (spec §3).
	History []*Entry
}

func (e *Entry) nodeUUID() [16]byte { return e.UUID }
func (e *Entry) isNode()            {}

// Get returns the named field's value and whether it was present.
func (e *Entry) Get(name string) (Value, bool) {
	v, ok := e.Fields[name]
	return v, ok
}

// Title, Username, Password, URL, and Notes are the five standard field
// names KeePass defines by convention (spec §4.9 field-name table); these
// accessors return "" when the field is absent.
func (e *Entry) Title() string    { return e.fieldText("Title") }
func (e *Entry) Username() string { return e.fieldText("UserName") }
func (e *Entry) Password() string { return e.fieldText("Password") }
func (e *Entry) URL() string      { return e.fieldText("URL") }
func (e *Entry) Notes() string    { return e.fieldText("Notes") }

func (e *Entry) fieldText(name string) string {
	v, ok := e.Fields[name]
	if !ok {
		return ""
	}
	return v.Reveal()
}

// Zero zeroes every protected field in this entry and its history
// snapshots (spec §3 Lifecycle, §5).
func (e *Entry) Zero() {
	for k, v := range e.Fields {
		v.Zero()
		e.Fields[k] = v
	}
	for _, h := range e.History {
		h.Zero()
	}
}
