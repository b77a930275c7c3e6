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

// Encode serializes doc as the payload XML document, applying stream to
// every protected value in the same document order Decode would visit them
// in, so a round trip through Decode/Encode with the same stream position
// reproduces the original ciphertext (spec §4.9, §9).
func Encode(w io.Writer, doc *Document, stream *cipher.InnerStream) error {
	e := xml.NewEncoder(w)
	e.Indent("", "\t")

	if err := e.EncodeToken(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="utf-8" standalone="yes"`)}); err != nil {
		return err
	}

	root := xml.StartElement{Name: xml.Name{Local: "KeePassFile"}}
	if err := e.EncodeToken(root); err != nil {
		return err
	}

	if err := encodeMeta(e, &doc.Meta); err != nil {
		return err
	}
	if err := encodeRoot(e, doc, stream); err != nil {
		return err
	}

	if err := e.EncodeToken(root.End()); err != nil {
		return err
	}
	return e.Flush()
}

func startEl(name string) xml.StartElement {
	return xml.StartElement{Name: xml.Name{Local: name}}
}

func writeElement(e *xml.Encoder, name, text string) error {
	se := startEl(name)
	if err := e.EncodeToken(se); err != nil {
		return err
	}
	if text != "" {
		if err := e.EncodeToken(xml.CharData(text)); err != nil {
			return err
		}
	}
	return e.EncodeToken(se.End())
}

func writeTimePtr(e *xml.Encoder, name string, t *time.Time) error {
	if t == nil {
		return nil
	}
	return writeElement(e, name, EncodeTimestampBase64(*t))
}

func writeInt64Ptr(e *xml.Encoder, name string, v *int64) error {
	if v == nil {
		return nil
	}
	return writeElement(e, name, strconv.FormatInt(*v, 10))
}

func writeUUIDPtr(e *xml.Encoder, name string, u *[16]byte) error {
	if u == nil {
		return nil
	}
	return writeElement(e, name, EncodeUUID(*u))
}

func encodeMeta(e *xml.Encoder, m *Meta) error {
	meta := startEl("Meta")
	if err := e.EncodeToken(meta); err != nil {
		return err
	}

	if err := writeElement(e, "Generator", m.Generator); err != nil {
		return err
	}
	if err := writeElement(e, "DatabaseName", m.DatabaseName); err != nil {
		return err
	}
	if err := writeTimePtr(e, "DatabaseNameChanged", m.DatabaseNameChanged); err != nil {
		return err
	}
	if err := writeElement(e, "DatabaseDescription", m.DatabaseDescription); err != nil {
		return err
	}
	if err := writeTimePtr(e, "DatabaseDescriptionChanged", m.DatabaseDescriptionChanged); err != nil {
		return err
	}
	if err := writeElement(e, "DefaultUserName", m.DefaultUserName); err != nil {
		return err
	}
	if err := writeTimePtr(e, "DefaultUserNameChanged", m.DefaultUserNameChanged); err != nil {
		return err
	}
	if m.MaintenanceHistoryDays != nil {
		if err := writeElement(e, "MaintenanceHistoryDays", strconv.FormatUint(uint64(*m.MaintenanceHistoryDays), 10)); err != nil {
			return err
		}
	}
	if err := writeElement(e, "Color", m.Color); err != nil {
		return err
	}
	if err := writeTimePtr(e, "MasterKeyChanged", m.MasterKeyChanged); err != nil {
		return err
	}
	if err := writeInt64Ptr(e, "MasterKeyChangeRec", m.MasterKeyChangeRec); err != nil {
		return err
	}
	if err := writeInt64Ptr(e, "MasterKeyChangeForce", m.MasterKeyChangeForce); err != nil {
		return err
	}
	if err := encodeMemoryProtection(e, &m.MemoryProtection); err != nil {
		return err
	}
	if m.RecycleBinEnabled != nil {
		if err := writeElement(e, "RecycleBinEnabled", EncodeBool(*m.RecycleBinEnabled)); err != nil {
			return err
		}
	}
	if err := writeUUIDPtr(e, "RecycleBinUUID", m.RecycleBinUUID); err != nil {
		return err
	}
	if err := writeTimePtr(e, "RecycleBinChanged", m.RecycleBinChanged); err != nil {
		return err
	}
	if err := writeUUIDPtr(e, "EntryTemplatesGroup", m.EntryTemplatesGroup); err != nil {
		return err
	}
	if err := writeTimePtr(e, "EntryTemplatesGroupChanged", m.EntryTemplatesGroupChanged); err != nil {
		return err
	}
	if err := writeUUIDPtr(e, "LastSelectedGroup", m.LastSelectedGroup); err != nil {
		return err
	}
	if err := writeUUIDPtr(e, "LastTopVisibleGroup", m.LastTopVisibleGroup); err != nil {
		return err
	}
	if m.HistoryMaxItems != nil {
		if err := writeElement(e, "HistoryMaxItems", strconv.FormatInt(int64(*m.HistoryMaxItems), 10)); err != nil {
			return err
		}
	}
	if err := writeInt64Ptr(e, "HistoryMaxSize", m.HistoryMaxSize); err != nil {
		return err
	}
	if err := writeTimePtr(e, "SettingsChanged", m.SettingsChanged); err != nil {
		return err
	}
	if len(m.CustomIcons) > 0 {
		if err := encodeCustomIcons(e, m.CustomIcons); err != nil {
			return err
		}
	}
	if err := encodeCustomData(e, m.CustomData); err != nil {
		return err
	}
	if len(m.Binaries) > 0 {
		if err := encodeMetaBinaries(e, m.Binaries); err != nil {
			return err
		}
	}

	return e.EncodeToken(meta.End())
}

func encodeMemoryProtection(e *xml.Encoder, mp *MemoryProtection) error {
	mpEl := startEl("MemoryProtection")
	if err := e.EncodeToken(mpEl); err != nil {
		return err
	}
	fields := []struct {
		name string
		val  bool
	}{
		{"ProtectTitle", mp.Title},
		{"ProtectUserName", mp.UserName},
		{"ProtectPassword", mp.Password},
		{"ProtectURL", mp.URL},
		{"ProtectNotes", mp.Notes},
	}
	for _, f := range fields {
		if err := writeElement(e, f.name, EncodeBool(f.val)); err != nil {
			return err
		}
	}
	return e.EncodeToken(mpEl.End())
}

func encodeCustomData(e *xml.Encoder, items []CustomDataItem) error {
	cd := startEl("CustomData")
	if err := e.EncodeToken(cd); err != nil {
		return err
	}
	for _, item := range items {
		it := startEl("Item")
		if err := e.EncodeToken(it); err != nil {
			return err
		}
		if err := writeElement(e, "Key", item.Key); err != nil {
			return err
		}
		if err := writeElement(e, "Value", item.Value); err != nil {
			return err
		}
		if err := e.EncodeToken(it.End()); err != nil {
			return err
		}
	}
	return e.EncodeToken(cd.End())
}

func encodeCustomIcons(e *xml.Encoder, icons []CustomIcon) error {
	ci := startEl("CustomIcons")
	if err := e.EncodeToken(ci); err != nil {
		return err
	}
	for _, icon := range icons {
		iconEl := startEl("Icon")
		if err := e.EncodeToken(iconEl); err != nil {
			return err
		}
		if err := writeElement(e, "UUID", EncodeUUID(icon.UUID)); err != nil {
			return err
		}
		if err := writeElement(e, "Data", base64.StdEncoding.EncodeToString(icon.Data)); err != nil {
			return err
		}
		if icon.Name != "" {
			if err := writeElement(e, "Name", icon.Name); err != nil {
				return err
			}
		}
		if err := writeTimePtr(e, "LastModificationTime", icon.LastModificationTime); err != nil {
			return err
		}
		if err := e.EncodeToken(iconEl.End()); err != nil {
			return err
		}
	}
	return e.EncodeToken(ci.End())
}

func encodeMetaBinaries(e *xml.Encoder, binaries []MetaBinary) error {
	bs := startEl("Binaries")
	if err := e.EncodeToken(bs); err != nil {
		return err
	}
	for _, b := range binaries {
		be := xml.StartElement{
			Name: xml.Name{Local: "Binary"},
			Attr: []xml.Attr{
				{Name: xml.Name{Local: "ID"}, Value: strconv.Itoa(b.ID)},
				{Name: xml.Name{Local: "Compressed"}, Value: EncodeBool(b.Compressed)},
			},
		}
		if err := e.EncodeToken(be); err != nil {
			return err
		}
		if err := e.EncodeToken(xml.CharData(base64.StdEncoding.EncodeToString(b.Content))); err != nil {
			return err
		}
		if err := e.EncodeToken(be.End()); err != nil {
			return err
		}
	}
	return e.EncodeToken(bs.End())
}

func encodeRoot(e *xml.Encoder, doc *Document, stream *cipher.InnerStream) error {
	root := startEl("Root")
	if err := e.EncodeToken(root); err != nil {
		return err
	}
	if doc.Root != nil {
		if err := encodeGroup(e, doc.Root, stream); err != nil {
			return err
		}
	}
	if err := encodeDeletedObjects(e, doc.DeletedObjects); err != nil {
		return err
	}
	return e.EncodeToken(root.End())
}

func encodeDeletedObjects(e *xml.Encoder, objs []DeletedObject) error {
	do := startEl("DeletedObjects")
	if err := e.EncodeToken(do); err != nil {
		return err
	}
	for _, obj := range objs {
		el := startEl("DeletedObject")
		if err := e.EncodeToken(el); err != nil {
			return err
		}
		if err := writeElement(e, "UUID", EncodeUUID(obj.UUID)); err != nil {
			return err
		}
		if err := writeElement(e, "DeletionTime", EncodeTimestampBase64(obj.DeletionTime)); err != nil {
			return err
		}
		if err := e.EncodeToken(el.End()); err != nil {
			return err
		}
	}
	return e.EncodeToken(do.End())
}

func encodeGroup(e *xml.Encoder, g *Group, stream *cipher.InnerStream) error {
	el := startEl("Group")
	if err := e.EncodeToken(el); err != nil {
		return err
	}

	if err := writeElement(e, "UUID", EncodeUUID(g.UUID)); err != nil {
		return err
	}
	if err := writeElement(e, "Name", g.Name); err != nil {
		return err
	}
	if err := writeElement(e, "Notes", g.Notes); err != nil {
		return err
	}
	if g.IconID != nil {
		if err := writeElement(e, "IconID", strconv.FormatInt(int64(*g.IconID), 10)); err != nil {
			return err
		}
	}
	if err := writeUUIDPtr(e, "CustomIconUUID", g.CustomIconUUID); err != nil {
		return err
	}
	if err := encodeTimes(e, &g.Times); err != nil {
		return err
	}
	if err := writeElement(e, "IsExpanded", EncodeBool(g.IsExpanded)); err != nil {
		return err
	}
	if err := writeElement(e, "DefaultAutoTypeSequence", g.DefaultAutotypeSequence); err != nil {
		return err
	}
	if err := writeElement(e, "EnableAutoType", g.EnableAutotype.String()); err != nil {
		return err
	}
	if err := writeElement(e, "EnableSearching", g.EnableSearching.String()); err != nil {
		return err
	}
	if err := writeUUIDPtr(e, "LastTopVisibleEntry", g.LastTopVisibleEntry); err != nil {
		return err
	}
	if err := encodeCustomData(e, g.CustomData); err != nil {
		return err
	}

	for _, child := range g.Children {
		switch {
		case child.Group != nil:
			if err := encodeGroup(e, child.Group, stream); err != nil {
				return err
			}
		case child.Entry != nil:
			if err := encodeEntry(e, child.Entry, stream); err != nil {
				return err
			}
		}
	}

	return e.EncodeToken(el.End())
}

func encodeTimes(e *xml.Encoder, t *Times) error {
	el := startEl("Times")
	if err := e.EncodeToken(el); err != nil {
		return err
	}
	if t.Expires != nil {
		if err := writeElement(e, "Expires", EncodeBool(*t.Expires)); err != nil {
			return err
		}
	}
	if err := writeTimePtr(e, "LastModificationTime", t.LastModification); err != nil {
		return err
	}
	if err := writeTimePtr(e, "CreationTime", t.Creation); err != nil {
		return err
	}
	if err := writeTimePtr(e, "LastAccessTime", t.LastAccess); err != nil {
		return err
	}
	if err := writeTimePtr(e, "ExpiryTime", t.Expiry); err != nil {
		return err
	}
	if t.UsageCount != nil {
		if err := writeElement(e, "UsageCount", strconv.FormatUint(*t.UsageCount, 10)); err != nil {
			return err
		}
	}
	if err := writeTimePtr(e, "LocationChanged", t.LocationChanged); err != nil {
		return err
	}
	return e.EncodeToken(el.End())
}

func encodeEntry(e *xml.Encoder, ent *Entry, stream *cipher.InnerStream) error {
	el := startEl("Entry")
	if err := e.EncodeToken(el); err != nil {
		return err
	}

	if err := writeElement(e, "UUID", EncodeUUID(ent.UUID)); err != nil {
		return err
	}
	if ent.IconID != nil {
		if err := writeElement(e, "IconID", strconv.FormatInt(int64(*ent.IconID), 10)); err != nil {
			return err
		}
	}
	if err := writeUUIDPtr(e, "CustomIconUUID", ent.CustomIconUUID); err != nil {
		return err
	}
	if err := writeElement(e, "ForegroundColor", ent.ForegroundColor); err != nil {
		return err
	}
	if err := writeElement(e, "BackgroundColor", ent.BackgroundColor); err != nil {
		return err
	}
	if err := writeElement(e, "OverrideURL", ent.OverrideURL); err != nil {
		return err
	}
	if ent.QualityCheck != nil {
		if err := writeElement(e, "QualityCheck", EncodeBool(*ent.QualityCheck)); err != nil {
			return err
		}
	}
	if len(ent.Tags) > 0 {
		if err := writeElement(e, "Tags", joinTags(ent.Tags)); err != nil {
			return err
		}
	}
	if err := encodeTimes(e, &ent.Times); err != nil {
		return err
	}
	if err := encodeCustomData(e, ent.CustomData); err != nil {
		return err
	}
	for _, sf := range ent.Strings {
		if err := encodeStringField(e, sf, stream); err != nil {
			return err
		}
	}
	for _, br := range ent.Binaries {
		if err := encodeBinaryRef(e, br); err != nil {
			return err
		}
	}
	if ent.Autotype != nil {
		if err := encodeAutotype(e, ent.Autotype); err != nil {
			return err
		}
	}
	if len(ent.History) > 0 {
		if err := encodeHistory(e, ent.History, stream); err != nil {
			return err
		}
	}

	return e.EncodeToken(el.End())
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ";"
		}
		out += t
	}
	return out
}

func encodeStringField(e *xml.Encoder, sf StringField, stream *cipher.InnerStream) error {
	el := startEl("String")
	if err := e.EncodeToken(el); err != nil {
		return err
	}
	if err := writeElement(e, "Key", sf.Key); err != nil {
		return err
	}

	valueEl := startEl("Value")
	text := sf.Value
	if sf.Protected {
		valueEl.Attr = []xml.Attr{{Name: xml.Name{Local: "Protected"}, Value: "True"}}
		if text != "" {
			cipherBytes := make([]byte, len(text))
			stream.XOR(cipherBytes, []byte(text))
			text = base64.StdEncoding.EncodeToString(cipherBytes)
		}
	}
	if err := e.EncodeToken(valueEl); err != nil {
		return err
	}
	if text != "" {
		if err := e.EncodeToken(xml.CharData(text)); err != nil {
			return err
		}
	}
	if err := e.EncodeToken(valueEl.End()); err != nil {
		return err
	}

	return e.EncodeToken(el.End())
}

func encodeBinaryRef(e *xml.Encoder, br BinaryRef) error {
	el := startEl("Binary")
	if err := e.EncodeToken(el); err != nil {
		return err
	}
	if err := writeElement(e, "Key", br.Key); err != nil {
		return err
	}
	valueEl := xml.StartElement{
		Name: xml.Name{Local: "Value"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "Ref"}, Value: strconv.Itoa(br.Ref)}},
	}
	if err := e.EncodeToken(valueEl); err != nil {
		return err
	}
	if err := e.EncodeToken(valueEl.End()); err != nil {
		return err
	}
	return e.EncodeToken(el.End())
}

func encodeAutotype(e *xml.Encoder, at *Autotype) error {
	el := startEl("AutoType")
	if err := e.EncodeToken(el); err != nil {
		return err
	}
	if err := writeElement(e, "Enabled", EncodeBool(at.Enabled)); err != nil {
		return err
	}
	if err := writeElement(e, "DataTransferObfuscation", boolToFlag(at.ObfuscateDataTransfer)); err != nil {
		return err
	}
	if at.DefaultSequence != "" {
		if err := writeElement(e, "DefaultSequence", at.DefaultSequence); err != nil {
			return err
		}
	}
	for _, assoc := range at.Associations {
		assocEl := startEl("Association")
		if err := e.EncodeToken(assocEl); err != nil {
			return err
		}
		if err := writeElement(e, "Window", assoc.Window); err != nil {
			return err
		}
		if err := writeElement(e, "KeystrokeSequence", assoc.KeystrokeSequence); err != nil {
			return err
		}
		if err := e.EncodeToken(assocEl.End()); err != nil {
			return err
		}
	}
	return e.EncodeToken(el.End())
}

func boolToFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func encodeHistory(e *xml.Encoder, history []*Entry, stream *cipher.InnerStream) error {
	el := startEl("History")
	if err := e.EncodeToken(el); err != nil {
		return err
	}
	for _, ent := range history {
		if err := encodeEntry(e, ent, stream); err != nil {
			return err
		}
	}
	return e.EncodeToken(el.End())
}
