// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package xmlcodec

import (
	"encoding/base64"
	"encoding/xml"
	"strconv"

	"github.com/openkdbx/kdbx/internal/cipher"
)

func decodeRoot(d *xml.Decoder, stream *cipher.InnerStream) (*Group, []DeletedObject, error) {
	var root *Group
	var deleted []DeletedObject

	for {
		tok, err := d.Token()
		if err != nil {
			return nil, nil, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "Root" {
				return root, deleted, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "Group":
				root, err = decodeGroup(d, t, stream)
			case "DeletedObjects":
				deleted, err = decodeDeletedObjects(d)
			default:
				err = d.Skip()
			}
			if err != nil {
				return nil, nil, err
			}
		}
	}
}

func decodeDeletedObjects(d *xml.Decoder) ([]DeletedObject, error) {
	var out []DeletedObject
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "DeletedObjects" {
				return out, nil
			}
		case xml.StartElement:
			if t.Name.Local != "DeletedObject" {
				if err := d.Skip(); err != nil {
					return nil, &XMLParseError{Err: err}
				}
				continue
			}
			var obj DeletedObject
			for {
				tok2, err := d.Token()
				if err != nil {
					return nil, &XMLParseError{Err: err}
				}
				switch t2 := tok2.(type) {
				case xml.EndElement:
					if t2.Name.Local == "DeletedObject" {
						out = append(out, obj)
						goto nextDeleted
					}
				case xml.StartElement:
					switch t2.Name.Local {
					case "UUID":
						s, err := childText(d)
						if err != nil {
							return nil, err
						}
						obj.UUID, err = DecodeUUID(s)
						if err != nil {
							return nil, err
						}
					case "DeletionTime":
						tp, err := decodeTimePtr(d)
						if err != nil {
							return nil, err
						}
						if tp != nil {
							obj.DeletionTime = *tp
						}
					default:
						if err := d.Skip(); err != nil {
							return nil, &XMLParseError{Err: err}
						}
					}
				}
			}
		nextDeleted:
		}
	}
}

func decodeGroup(d *xml.Decoder, start xml.StartElement, stream *cipher.InnerStream) (*Group, error) {
	g := &Group{EnableAutotype: TriStateNull, EnableSearching: TriStateNull}

	for {
		tok, err := d.Token()
		if err != nil {
			return nil, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "Group" {
				return g, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "UUID":
				var s string
				if s, err = childText(d); err == nil {
					g.UUID, err = DecodeUUID(s)
				}
			case "Name":
				g.Name, err = childText(d)
			case "Notes":
				g.Notes, err = childText(d)
			case "IconID":
				var s string
				if s, err = childText(d); err == nil && s != "" {
					var n int64
					if n, err = strconv.ParseInt(s, 10, 32); err == nil {
						v := int32(n)
						g.IconID = &v
					}
				}
			case "CustomIconUUID":
				g.CustomIconUUID, err = decodeUUIDPtr(d)
			case "Times":
				g.Times, err = decodeTimes(d)
			case "IsExpanded":
				var s string
				if s, err = childText(d); err == nil {
					g.IsExpanded = DecodeBool(s)
				}
			case "DefaultAutoTypeSequence":
				g.DefaultAutotypeSequence, err = childText(d)
			case "EnableAutoType":
				var s string
				if s, err = childText(d); err == nil {
					g.EnableAutotype = DecodeTriState(s)
				}
			case "EnableSearching":
				var s string
				if s, err = childText(d); err == nil {
					g.EnableSearching = DecodeTriState(s)
				}
			case "LastTopVisibleEntry":
				g.LastTopVisibleEntry, err = decodeUUIDPtr(d)
			case "CustomData":
				g.CustomData, err = decodeCustomData(d)
			case "Group":
				var sub *Group
				sub, err = decodeGroup(d, t, stream)
				if err == nil {
					g.Children = append(g.Children, GroupChild{Group: sub})
				}
			case "Entry":
				var e *Entry
				e, err = decodeEntry(d, stream)
				if err == nil {
					g.Children = append(g.Children, GroupChild{Entry: e})
				}
			default:
				err = d.Skip()
			}
			if err != nil {
				return nil, err
			}
		}
	}
}

func decodeTimes(d *xml.Decoder) (Times, error) {
	var times Times
	for {
		tok, err := d.Token()
		if err != nil {
			return times, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "Times" {
				return times, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "CreationTime":
				times.Creation, err = decodeTimePtr(d)
			case "LastModificationTime":
				times.LastModification, err = decodeTimePtr(d)
			case "LastAccessTime":
				times.LastAccess, err = decodeTimePtr(d)
			case "ExpiryTime":
				times.Expiry, err = decodeTimePtr(d)
			case "LocationChanged":
				times.LocationChanged, err = decodeTimePtr(d)
			case "Expires":
				var s string
				if s, err = childText(d); err == nil {
					v := DecodeBool(s)
					times.Expires = &v
				}
			case "UsageCount":
				var s string
				if s, err = childText(d); err == nil && s != "" {
					var n uint64
					if n, err = strconv.ParseUint(s, 10, 64); err == nil {
						times.UsageCount = &n
					}
				}
			default:
				err = d.Skip()
			}
			if err != nil {
				return times, err
			}
		}
	}
}

func decodeEntry(d *xml.Decoder, stream *cipher.InnerStream) (*Entry, error) {
	e := &Entry{}

	for {
		tok, err := d.Token()
		if err != nil {
			return nil, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "Entry" {
				return e, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "UUID":
				var s string
				if s, err = childText(d); err == nil {
					e.UUID, err = DecodeUUID(s)
				}
			case "IconID":
				var s string
				if s, err = childText(d); err == nil && s != "" {
					var n int64
					if n, err = strconv.ParseInt(s, 10, 32); err == nil {
						v := int32(n)
						e.IconID = &v
					}
				}
			case "CustomIconUUID":
				e.CustomIconUUID, err = decodeUUIDPtr(d)
			case "ForegroundColor":
				e.ForegroundColor, err = childText(d)
			case "BackgroundColor":
				e.BackgroundColor, err = childText(d)
			case "OverrideURL":
				e.OverrideURL, err = childText(d)
			case "QualityCheck":
				var s string
				if s, err = childText(d); err == nil {
					v := DecodeBool(s)
					e.QualityCheck = &v
				}
			case "Tags":
				var s string
				s, err = childText(d)
				if err == nil && s != "" {
					e.Tags = splitTags(s)
				}
			case "Times":
				e.Times, err = decodeTimes(d)
			case "CustomData":
				e.CustomData, err = decodeCustomData(d)
			case "String":
				var sf StringField
				sf, err = decodeStringField(d, stream)
				if err == nil {
					e.Strings = append(e.Strings, sf)
				}
			case "Binary":
				var br BinaryRef
				br, err = decodeBinaryRef(d)
				if err == nil {
					e.Binaries = append(e.Binaries, br)
				}
			case "AutoType":
				e.Autotype, err = decodeAutotype(d)
			case "History":
				e.History, err = decodeHistory(d, stream)
			default:
				err = d.Skip()
			}
			if err != nil {
				return nil, err
			}
		}
	}
}

func splitTags(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ';' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func decodeStringField(d *xml.Decoder, stream *cipher.InnerStream) (StringField, error) {
	var sf StringField
	for {
		tok, err := d.Token()
		if err != nil {
			return sf, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "String" {
				return sf, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "Key":
				sf.Key, err = childText(d)
			case "Value":
				protected := false
				for _, a := range t.Attr {
					if a.Name.Local == "Protected" {
						protected = DecodeBool(a.Value)
					}
				}
				sf.Protected = protected
				text, terr := childText(d)
				if terr != nil {
					return sf, terr
				}
				if protected {
					if text == "" {
						sf.Value = ""
						break
					}
					raw, berr := base64.StdEncoding.DecodeString(text)
					if berr != nil {
						return sf, &Base64Error{Err: berr}
					}
					plain := make([]byte, len(raw))
					stream.XOR(plain, raw)
					sf.Value = string(plain)
				} else {
					sf.Value = text
				}
			default:
				err = d.Skip()
			}
			if err != nil {
				return sf, err
			}
		}
	}
}

func decodeBinaryRef(d *xml.Decoder) (BinaryRef, error) {
	var br BinaryRef
	for {
		tok, err := d.Token()
		if err != nil {
			return br, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "Binary" {
				return br, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "Key":
				br.Key, err = childText(d)
			case "Value":
				for _, a := range t.Attr {
					if a.Name.Local == "Ref" {
						if n, aerr := strconv.Atoi(a.Value); aerr == nil {
							br.Ref = n
						}
					}
				}
				_, err = childText(d)
			default:
				err = d.Skip()
			}
			if err != nil {
				return br, err
			}
		}
	}
}

func decodeAutotype(d *xml.Decoder) (*Autotype, error) {
	at := &Autotype{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "AutoType" {
				return at, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "Enabled":
				var s string
				if s, err = childText(d); err == nil {
					at.Enabled = DecodeBool(s)
				}
			case "DataTransferObfuscation":
				var s string
				if s, err = childText(d); err == nil {
					at.ObfuscateDataTransfer = s != "0" && s != ""
				}
			case "DefaultSequence":
				at.DefaultSequence, err = childText(d)
			case "Association":
				var assoc AutotypeAssociation
				assoc, err = decodeAssociation(d)
				if err == nil {
					at.Associations = append(at.Associations, assoc)
				}
			default:
				err = d.Skip()
			}
			if err != nil {
				return nil, err
			}
		}
	}
}

func decodeAssociation(d *xml.Decoder) (AutotypeAssociation, error) {
	var a AutotypeAssociation
	for {
		tok, err := d.Token()
		if err != nil {
			return a, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "Association" {
				return a, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "Window":
				a.Window, err = childText(d)
			case "KeystrokeSequence":
				a.KeystrokeSequence, err = childText(d)
			default:
				err = d.Skip()
			}
			if err != nil {
				return a, err
			}
		}
	}
}

func decodeHistory(d *xml.Decoder, stream *cipher.InnerStream) ([]*Entry, error) {
	var out []*Entry
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, &XMLParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "History" {
				return out, nil
			}
		case xml.StartElement:
			if t.Name.Local != "Entry" {
				if err := d.Skip(); err != nil {
					return nil, &XMLParseError{Err: err}
				}
				continue
			}
			e, err := decodeEntry(d, stream)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
	}
}
