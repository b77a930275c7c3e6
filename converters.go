// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package kdbx

import (
	"sort"

	"github.com/openkdbx/kdbx/internal/xmlcodec"
)

// This file converts between the payload XML codec's plain DTOs
// (internal/xmlcodec) and the public object model (Group/Entry/Meta/...):
// the internal packages cannot import the root package, so the boundary
// conversion lives here (spec §9 design note on the import-cycle split).

func toTimes(t xmlcodec.Times) Times {
	return Times{
		Creation:         t.Creation,
		LastModification: t.LastModification,
		LastAccess:       t.LastAccess,
		Expiry:           t.Expiry,
		LocationChanged:  t.LocationChanged,
		Expires:          t.Expires,
		UsageCount:       t.UsageCount,
	}
}

func fromTimes(t Times) xmlcodec.Times {
	return xmlcodec.Times{
		Creation:         t.Creation,
		LastModification: t.LastModification,
		LastAccess:       t.LastAccess,
		Expiry:           t.Expiry,
		LocationChanged:  t.LocationChanged,
		Expires:          t.Expires,
		UsageCount:       t.UsageCount,
	}
}

func toCustomData(items []xmlcodec.CustomDataItem) map[string]string {
	if len(items) == 0 {
		return nil
	}
	m := make(map[string]string, len(items))
	for _, it := range items {
		m[it.Key] = it.Value
	}
	return m
}

func fromCustomData(m map[string]string) []xmlcodec.CustomDataItem {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]xmlcodec.CustomDataItem, 0, len(m))
	for _, k := range keys {
		items = append(items, xmlcodec.CustomDataItem{Key: k, Value: m[k]})
	}
	return items
}

func toCustomIcons(icons []xmlcodec.CustomIcon) []CustomIcon {
	if len(icons) == 0 {
		return nil
	}
	out := make([]CustomIcon, len(icons))
	for i, ic := range icons {
		out[i] = CustomIcon{
			UUID:                 ic.UUID,
			Data:                 ic.Data,
			Name:                 ic.Name,
			LastModificationTime: ic.LastModificationTime,
		}
	}
	return out
}

func fromCustomIcons(icons []CustomIcon) []xmlcodec.CustomIcon {
	if len(icons) == 0 {
		return nil
	}
	out := make([]xmlcodec.CustomIcon, len(icons))
	for i, ic := range icons {
		out[i] = xmlcodec.CustomIcon{
			UUID:                 ic.UUID,
			Data:                 ic.Data,
			Name:                 ic.Name,
			LastModificationTime: ic.LastModificationTime,
		}
	}
	return out
}

func toMemoryProtection(mp xmlcodec.MemoryProtection) MemoryProtection {
	return MemoryProtection(mp)
}

func fromMemoryProtection(mp MemoryProtection) xmlcodec.MemoryProtection {
	return xmlcodec.MemoryProtection(mp)
}

func toMeta(m xmlcodec.Meta) Meta {
	return Meta{
		Generator: m.Generator,

		DatabaseName:               m.DatabaseName,
		DatabaseNameChanged:        m.DatabaseNameChanged,
		DatabaseDescription:        m.DatabaseDescription,
		DatabaseDescriptionChanged: m.DatabaseDescriptionChanged,
		DefaultUserName:            m.DefaultUserName,
		DefaultUserNameChanged:     m.DefaultUserNameChanged,

		MaintenanceHistoryDays: m.MaintenanceHistoryDays,
		Color:                  m.Color,

		MasterKeyChanged:     m.MasterKeyChanged,
		MasterKeyChangeRec:   m.MasterKeyChangeRec,
		MasterKeyChangeForce: m.MasterKeyChangeForce,

		MemoryProtection: toMemoryProtection(m.MemoryProtection),

		RecycleBinEnabled: m.RecycleBinEnabled,
		RecycleBinUUID:    m.RecycleBinUUID,
		RecycleBinChanged: m.RecycleBinChanged,

		EntryTemplatesGroup:        m.EntryTemplatesGroup,
		EntryTemplatesGroupChanged: m.EntryTemplatesGroupChanged,

		LastSelectedGroup:   m.LastSelectedGroup,
		LastTopVisibleGroup: m.LastTopVisibleGroup,

		HistoryMaxItems: m.HistoryMaxItems,
		HistoryMaxSize:  m.HistoryMaxSize,

		SettingsChanged: m.SettingsChanged,

		CustomIcons: toCustomIcons(m.CustomIcons),
		CustomData:  toCustomData(m.CustomData),
	}
}

func fromMeta(m Meta) xmlcodec.Meta {
	return xmlcodec.Meta{
		Generator: m.Generator,

		DatabaseName:               m.DatabaseName,
		DatabaseNameChanged:        m.DatabaseNameChanged,
		DatabaseDescription:        m.DatabaseDescription,
		DatabaseDescriptionChanged: m.DatabaseDescriptionChanged,
		DefaultUserName:            m.DefaultUserName,
		DefaultUserNameChanged:     m.DefaultUserNameChanged,

		MaintenanceHistoryDays: m.MaintenanceHistoryDays,
		Color:                  m.Color,

		MasterKeyChanged:     m.MasterKeyChanged,
		MasterKeyChangeRec:   m.MasterKeyChangeRec,
		MasterKeyChangeForce: m.MasterKeyChangeForce,

		MemoryProtection: fromMemoryProtection(m.MemoryProtection),

		RecycleBinEnabled: m.RecycleBinEnabled,
		RecycleBinUUID:    m.RecycleBinUUID,
		RecycleBinChanged: m.RecycleBinChanged,

		EntryTemplatesGroup:        m.EntryTemplatesGroup,
		EntryTemplatesGroupChanged: m.EntryTemplatesGroupChanged,

		LastSelectedGroup:   m.LastSelectedGroup,
		LastTopVisibleGroup: m.LastTopVisibleGroup,

		HistoryMaxItems: m.HistoryMaxItems,
		HistoryMaxSize:  m.HistoryMaxSize,

		SettingsChanged: m.SettingsChanged,

		CustomIcons: fromCustomIcons(m.CustomIcons),
		CustomData:  fromCustomData(m.CustomData),
	}
}

// attachmentLookup maps a KDBX3 Meta/Binaries ID to its already-decompressed
// content, used to resolve an Entry's <Binary><Value Ref="..."> indirection
// into a direct byte slice (spec §4.9).
type attachmentLookup map[int][]byte

func toColor(s string) (*Color, error) {
	if s == "" {
		return nil, nil
	}
	c, err := xmlcodec.DecodeColor(s)
	if err != nil {
		return nil, &ParseColorError{Value: s}
	}
	return &Color{R: c.R, G: c.G, B: c.B}, nil
}

func fromColor(c *Color) string {
	if c == nil {
		return ""
	}
	return xmlcodec.EncodeColor(xmlcodec.ColorValue{R: c.R, G: c.G, B: c.B})
}

func toEntry(xe *xmlcodec.Entry, attachments attachmentLookup) (*Entry, error) {
	e := &Entry{
		UUID:       xe.UUID,
		Fields:     make(map[string]Value, len(xe.Strings)),
		Tags:       xe.Tags,
		Times:      toTimes(xe.Times),
		CustomData: toCustomData(xe.CustomData),

		OverrideURL:  xe.OverrideURL,
		QualityCheck: xe.QualityCheck,
	}

	if xe.IconID != nil {
		v := int(*xe.IconID)
		e.IconID = &v
	}
	e.CustomIconUUID = xe.CustomIconUUID

	fg, err := toColor(xe.ForegroundColor)
	if err != nil {
		return nil, err
	}
	e.ForegroundColor = fg
	bg, err := toColor(xe.BackgroundColor)
	if err != nil {
		return nil, err
	}
	e.BackgroundColor = bg

	for _, sf := range xe.Strings {
		if sf.Protected {
			e.Fields[sf.Key] = NewProtectedValue(sf.Value)
		} else {
			e.Fields[sf.Key] = NewUnprotectedValue(sf.Value)
		}
	}

	for _, br := range xe.Binaries {
		data := attachments[br.Ref]
		e.Fields[br.Key] = NewBytesValue(data)
	}

	if xe.Autotype != nil {
		at := &AutotypeSetting{
			Enabled:               xe.Autotype.Enabled,
			ObfuscateDataTransfer: xe.Autotype.ObfuscateDataTransfer,
			DefaultSequence:       xe.Autotype.DefaultSequence,
		}
		for _, a := range xe.Autotype.Associations {
			at.Associations = append(at.Associations, AutotypeAssociation{
				Window:            a.Window,
				KeystrokeSequence: a.KeystrokeSequence,
			})
		}
		e.Autotype = at
	}

	for _, xh := range xe.History {
		h, err := toEntry(xh, attachments)
		if err != nil {
			return nil, err
		}
		e.History = append(e.History, h)
	}

	return e, nil
}

// binaryFieldKeys, given an Entry's Fields, reports which keys hold
// KindBytes values (attachments) rather than string content — those get
// written as <Binary> refs rather than <String> values (spec §4.9).
func binaryFieldKeys(fields map[string]Value) []string {
	var keys []string
	for k, v := range fields {
		if v.Kind() == KindBytes {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func stringFieldKeys(fields map[string]Value) []string {
	var keys []string
	for k, v := range fields {
		if v.Kind() != KindBytes {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// fromEntry converts e into its XML DTO. nextAttachmentID assigns a fresh
// Meta/Binaries or inner-header slot to every KindBytes field it encounters,
// appending the content to *attachments in assignment order.
func fromEntry(e *Entry, attachments *[][]byte) *xmlcodec.Entry {
	xe := &xmlcodec.Entry{
		UUID:         e.UUID,
		ForegroundColor: fromColor(e.ForegroundColor),
		BackgroundColor: fromColor(e.BackgroundColor),
		OverrideURL:  e.OverrideURL,
		QualityCheck: e.QualityCheck,
		Tags:         e.Tags,
		Times:        fromTimes(e.Times),
		CustomData:   fromCustomData(e.CustomData),
	}
	if e.IconID != nil {
		v := int32(*e.IconID)
		xe.IconID = &v
	}
	xe.CustomIconUUID = e.CustomIconUUID

	for _, k := range stringFieldKeys(e.Fields) {
		v := e.Fields[k]
		xe.Strings = append(xe.Strings, xmlcodec.StringField{
			Key:       k,
			Value:     v.Reveal(),
			Protected: v.Kind() == KindProtected,
		})
	}

	for _, k := range binaryFieldKeys(e.Fields) {
		v := e.Fields[k]
		id := len(*attachments)
		*attachments = append(*attachments, v.Bytes())
		xe.Binaries = append(xe.Binaries, xmlcodec.BinaryRef{Key: k, Ref: id})
	}

	if e.Autotype != nil {
		at := &xmlcodec.Autotype{
			Enabled:               e.Autotype.Enabled,
			ObfuscateDataTransfer: e.Autotype.ObfuscateDataTransfer,
			DefaultSequence:       e.Autotype.DefaultSequence,
		}
		for _, a := range e.Autotype.Associations {
			at.Associations = append(at.Associations, xmlcodec.AutotypeAssociation{
				Window:            a.Window,
				KeystrokeSequence: a.KeystrokeSequence,
			})
		}
		xe.Autotype = at
	}

	for _, h := range e.History {
		xe.History = append(xe.History, fromEntry(h, attachments))
	}

	return xe
}

func toGroup(xg *xmlcodec.Group, attachments attachmentLookup) (*Group, error) {
	g := &Group{
		UUID:       xg.UUID,
		Name:       xg.Name,
		Notes:      xg.Notes,
		Times:      toTimes(xg.Times),
		CustomData: toCustomData(xg.CustomData),

		IsExpanded:          xg.IsExpanded,
		EnableAutotype:      TriState(xg.EnableAutotype),
		EnableSearching:     TriState(xg.EnableSearching),
		LastTopVisibleEntry: xg.LastTopVisibleEntry,
	}
	if xg.IconID != nil {
		v := int(*xg.IconID)
		g.IconID = &v
	}
	g.CustomIconUUID = xg.CustomIconUUID
	if xg.DefaultAutotypeSequence != "" {
		s := xg.DefaultAutotypeSequence
		g.DefaultAutotypeSequence = &s
	}

	for _, child := range xg.Children {
		switch {
		case child.Group != nil:
			sub, err := toGroup(child.Group, attachments)
			if err != nil {
				return nil, err
			}
			g.Children = append(g.Children, sub)
		case child.Entry != nil:
			e, err := toEntry(child.Entry, attachments)
			if err != nil {
				return nil, err
			}
			g.Children = append(g.Children, e)
		}
	}

	return g, nil
}

func fromGroup(g *Group, attachments *[][]byte) *xmlcodec.Group {
	xg := &xmlcodec.Group{
		UUID:       g.UUID,
		Name:       g.Name,
		Notes:      g.Notes,
		Times:      fromTimes(g.Times),
		CustomData: fromCustomData(g.CustomData),

		IsExpanded:          g.IsExpanded,
		EnableAutotype:      xmlcodec.TriState(g.EnableAutotype),
		EnableSearching:     xmlcodec.TriState(g.EnableSearching),
		LastTopVisibleEntry: g.LastTopVisibleEntry,
	}
	if g.IconID != nil {
		v := int32(*g.IconID)
		xg.IconID = &v
	}
	xg.CustomIconUUID = g.CustomIconUUID
	if g.DefaultAutotypeSequence != nil {
		xg.DefaultAutotypeSequence = *g.DefaultAutotypeSequence
	}

	for _, n := range g.Children {
		switch v := n.(type) {
		case *Group:
			xg.Children = append(xg.Children, xmlcodec.GroupChild{Group: fromGroup(v, attachments)})
		case *Entry:
			xg.Children = append(xg.Children, xmlcodec.GroupChild{Entry: fromEntry(v, attachments)})
		}
	}

	return xg
}

func toDeletedObjects(xd []xmlcodec.DeletedObject) []DeletedObject {
	if len(xd) == 0 {
		return nil
	}
	out := make([]DeletedObject, len(xd))
	for i, d := range xd {
		out[i] = DeletedObject{UUID: d.UUID, DeletionTime: d.DeletionTime}
	}
	return out
}

func fromDeletedObjects(d []DeletedObject) []xmlcodec.DeletedObject {
	if len(d) == 0 {
		return nil
	}
	out := make([]xmlcodec.DeletedObject, len(d))
	for i, do := range d {
		out[i] = xmlcodec.DeletedObject{UUID: do.UUID, DeletionTime: do.DeletionTime}
	}
	return out
}

// newAttachments wraps raw binary payloads (already decompressed/resolved)
// into the public Attachment list, in assignment order.
func newAttachments(contents [][]byte, protected func(id int) bool) []*Attachment {
	out := make([]*Attachment, len(contents))
	for i, c := range contents {
		out[i] = &Attachment{id: i, data: c, protected: protected(i)}
	}
	return out
}
