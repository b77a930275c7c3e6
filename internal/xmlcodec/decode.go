// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package xmlcodec

import (
	"encoding/base64"
	"encoding/xml"
	"io"
	"strconv"
	"time"

	"github.com/openkdbx/kdbx/internal/cipher"
)

// Decode parses the payload XML document from r, applying stream to every
// protected value it encounters, in document order (spec §4.9, §9). stream
// may be nil if the document is known to carry no protected values (never
// true for a real KDBX file, but convenient for tests of the Meta/Group
// shape alone).
func Decode(r io.Reader, stream *cipher.InnerStream) (*Document, error) {
	d := xml.NewDecoder(r)
	doc := &Document{}

	for {
		tok, err := d.Token()
		if err == io.EOF {
			return doc, nil
		}
		if err != nil {
			return nil, &XMLParseError{Err: err}
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "KeePassFile":
			if err := decodeKeePassFile(d, doc, stream); err != nil {
				return nil, err
			}
			return doc, nil
		default:
			if err := d.Skip(); err != nil {
				return nil, &XMLParseError{Err: err}
			}
		}
	}
}

func decodeKeePassFile(d *xml.Decoder, doc *Document, stream *cipher.InnerStream) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Meta":
				meta, err := decodeMeta(d)
				if err != nil {
					return err
				}
				doc.Meta = *meta
			case "Root":
				root, deleted, err := decodeRoot(d, stream)
				if err != nil {
					return err
				}
				doc.Root = root
				doc.DeletedObjects = deleted
			default:
				if err := d.Skip(); err != nil {
					return &XMLParseError{Err: err}
				}
			}
		case xml.EndElement:
			if t.Name.Local == "KeePassFile" {
				return nil
			}
		}
	}
}

// childText reads a single text-only element's content and consumes its
// end tag. start has already been consumed by the caller.
func childText(d *xml.Decoder) (string, error) {
	var text string
	for {
		tok, err := d.Token()
		if err != nil {
			return "", &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.CharData:
			text += string(t)
		case xml.EndElement:
			return text, nil
		case xml.StartElement:
			if err := d.Skip(); err != nil {
				return "", &XMLParseError{Err: err}
			}
		}
	}
}

func decodeMeta(d *xml.Decoder) (*Meta, error) {
	m := &Meta{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "Meta" {
				return m, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "Generator":
				m.Generator, err = childText(d)
			case "DatabaseName":
				m.DatabaseName, err = childText(d)
			case "DatabaseNameChanged":
				m.DatabaseNameChanged, err = decodeTimePtr(d)
			case "DatabaseDescription":
				m.DatabaseDescription, err = childText(d)
			case "DatabaseDescriptionChanged":
				m.DatabaseDescriptionChanged, err = decodeTimePtr(d)
			case "DefaultUserName":
				m.DefaultUserName, err = childText(d)
			case "DefaultUserNameChanged":
				m.DefaultUserNameChanged, err = decodeTimePtr(d)
			case "MaintenanceHistoryDays":
				var s string
				if s, err = childText(d); err == nil && s != "" {
					var n uint64
					if n, err = strconv.ParseUint(s, 10, 32); err == nil {
						v := uint32(n)
						m.MaintenanceHistoryDays = &v
					}
				}
			case "Color":
				m.Color, err = childText(d)
			case "MasterKeyChanged":
				m.MasterKeyChanged, err = decodeTimePtr(d)
			case "MasterKeyChangeRec":
				m.MasterKeyChangeRec, err = decodeInt64Ptr(d)
			case "MasterKeyChangeForce":
				m.MasterKeyChangeForce, err = decodeInt64Ptr(d)
			case "MemoryProtection":
				err = decodeMemoryProtection(d, &m.MemoryProtection)
			case "RecycleBinEnabled":
				var s string
				if s, err = childText(d); err == nil {
					v := DecodeBool(s)
					m.RecycleBinEnabled = &v
				}
			case "RecycleBinUUID":
				m.RecycleBinUUID, err = decodeUUIDPtr(d)
			case "RecycleBinChanged":
				m.RecycleBinChanged, err = decodeTimePtr(d)
			case "EntryTemplatesGroup":
				m.EntryTemplatesGroup, err = decodeUUIDPtr(d)
			case "EntryTemplatesGroupChanged":
				m.EntryTemplatesGroupChanged, err = decodeTimePtr(d)
			case "LastSelectedGroup":
				m.LastSelectedGroup, err = decodeUUIDPtr(d)
			case "LastTopVisibleGroup":
				m.LastTopVisibleGroup, err = decodeUUIDPtr(d)
			case "HistoryMaxItems":
				var s string
				if s, err = childText(d); err == nil && s != "" {
					var n int64
					if n, err = strconv.ParseInt(s, 10, 32); err == nil {
						v := int32(n)
						m.HistoryMaxItems = &v
					}
				}
			case "HistoryMaxSize":
				m.HistoryMaxSize, err = decodeInt64Ptr(d)
			case "SettingsChanged":
				m.SettingsChanged, err = decodeTimePtr(d)
			case "CustomIcons":
				m.CustomIcons, err = decodeCustomIcons(d)
			case "CustomData":
				m.CustomData, err = decodeCustomData(d)
			case "Binaries":
				m.Binaries, err = decodeMetaBinaries(d)
			default:
				err = d.Skip()
			}
			if err != nil {
				return nil, err
			}
		}
	}
}

func decodeTimePtr(d *xml.Decoder) (*time.Time, error) {
	s, err := childText(d)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	t, err := DecodeTimestamp(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func decodeInt64Ptr(d *xml.Decoder) (*int64, error) {
	s, err := childText(d)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, nil
	}
	return &n, nil
}

func decodeUUIDPtr(d *xml.Decoder) (*[16]byte, error) {
	s, err := childText(d)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	u, err := DecodeUUID(s)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func decodeMemoryProtection(d *xml.Decoder, mp *MemoryProtection) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "MemoryProtection" {
				return nil
			}
		case xml.StartElement:
			var dst *bool
			switch t.Name.Local {
			case "ProtectTitle":
				dst = &mp.Title
			case "ProtectUserName":
				dst = &mp.UserName
			case "ProtectPassword":
				dst = &mp.Password
			case "ProtectURL":
				dst = &mp.URL
			case "ProtectNotes":
				dst = &mp.Notes
			}
			s, err := childText(d)
			if err != nil {
				return err
			}
			if dst != nil {
				*dst = DecodeBool(s)
			}
		}
	}
}

func decodeCustomData(d *xml.Decoder) ([]CustomDataItem, error) {
	var items []CustomDataItem
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "CustomData" {
				return items, nil
			}
		case xml.StartElement:
			if t.Name.Local != "Item" {
				if err := d.Skip(); err != nil {
					return nil, &XMLParseError{Err: err}
				}
				continue
			}
			item, err := decodeCustomDataItem(d)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
}

func decodeCustomDataItem(d *xml.Decoder) (CustomDataItem, error) {
	var item CustomDataItem
	for {
		tok, err := d.Token()
		if err != nil {
			return item, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "Item" {
				return item, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "Key":
				item.Key, err = childText(d)
			case "Value":
				item.Value, err = childText(d)
			default:
				err = d.Skip()
			}
			if err != nil {
				return item, err
			}
		}
	}
}

func decodeCustomIcons(d *xml.Decoder) ([]CustomIcon, error) {
	var icons []CustomIcon
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "CustomIcons" {
				return icons, nil
			}
		case xml.StartElement:
			if t.Name.Local != "Icon" {
				if err := d.Skip(); err != nil {
					return nil, &XMLParseError{Err: err}
				}
				continue
			}
			icon, err := decodeCustomIcon(d)
			if err != nil {
				return nil, err
			}
			icons = append(icons, icon)
		}
	}
}

func decodeCustomIcon(d *xml.Decoder) (CustomIcon, error) {
	var icon CustomIcon
	for {
		tok, err := d.Token()
		if err != nil {
			return icon, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "Icon" {
				return icon, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "UUID":
				var s string
				if s, err = childText(d); err == nil {
					icon.UUID, err = DecodeUUID(s)
				}
			case "Data":
				var s string
				if s, err = childText(d); err == nil {
					var raw []byte
					if raw, err = base64.StdEncoding.DecodeString(s); err == nil {
						icon.Data = raw
					} else {
						err = &Base64Error{Err: err}
					}
				}
			case "Name":
				icon.Name, err = childText(d)
			case "LastModificationTime":
				icon.LastModificationTime, err = decodeTimePtr(d)
			default:
				err = d.Skip()
			}
			if err != nil {
				return icon, err
			}
		}
	}
}

func decodeMetaBinaries(d *xml.Decoder) ([]MetaBinary, error) {
	var binaries []MetaBinary
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "Binaries" {
				return binaries, nil
			}
		case xml.StartElement:
			if t.Name.Local != "Binary" {
				if err := d.Skip(); err != nil {
					return nil, &XMLParseError{Err: err}
				}
				continue
			}
			b := MetaBinary{}
			for _, a := range t.Attr {
				switch a.Name.Local {
				case "ID":
					if n, err := strconv.Atoi(a.Value); err == nil {
						b.ID = n
					}
				case "Compressed":
					b.Compressed = DecodeBool(a.Value)
				}
			}
			text, err := childText(d)
			if err != nil {
				return nil, err
			}
			raw, err := base64.StdEncoding.DecodeString(text)
			if err != nil {
				return nil, &Base64Error{Err: err}
			}
			b.Content = raw
			binaries = append(binaries, b)
		}
	}
}
