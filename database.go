// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package kdbx implements a codec for the KeePass KDBX password-database
// container: KDB1 (read-only), KDBX3, and KDBX4 (spec §4). Open and Save
// drive the full pipeline — outer header, key derivation, block framing,
// inner header, and the payload XML — through the internal/ packages; this
// file is the only place that wires them together and translates their
// internal error kinds into the package's public error taxonomy (errors.go).
package kdbx

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/openkdbx/kdbx/internal/blockstream"
	"github.com/openkdbx/kdbx/internal/cipher"
	"github.com/openkdbx/kdbx/internal/hashutil"
	"github.com/openkdbx/kdbx/internal/header"
	"github.com/openkdbx/kdbx/internal/innerheader"
	"github.com/openkdbx/kdbx/internal/kdb1"
	"github.com/openkdbx/kdbx/internal/kdf"
	"github.com/openkdbx/kdbx/internal/key"
	"github.com/openkdbx/kdbx/internal/variantdict"
	"github.com/openkdbx/kdbx/internal/xmlcodec"
)

// Database is a fully decoded KeePass container (spec §3): the Config it
// was read under (or will be written with), its metadata, its attachment
// pool, its group/entry tree, and the tombstones of anything deleted from
// it.
type Database struct {
	Config         Config
	Meta           Meta
	Attachments    []*Attachment
	Root           *Group
	DeletedObjects []DeletedObject
}

// Open parses any supported KDBX generation from r (spec §6).
func Open(r io.Reader, dk DatabaseKey) (*Database, error) {
	return openDatabase(context.Background(), r, dk)
}

// OpenWithRand behaves like Open. Parsing an existing container consumes no
// randomness of its own; rnd is accepted for API symmetry with Save/
// SaveWithRand (spec §6) and is otherwise unused.
func OpenWithRand(r io.Reader, dk DatabaseKey, rnd io.Reader) (*Database, error) {
	_ = rnd
	return openDatabase(context.Background(), r, dk)
}

// GetVersion reads only the 12-byte magic/version prefix (spec §6).
func GetVersion(r io.Reader) (DatabaseVersion, error) {
	sig, err := header.ReadSignature(r)
	if err != nil {
		return 0, translateSignatureErr(err)
	}
	return DatabaseVersion(sig.Version), nil
}

// GetXML returns the decrypted inner XML document of a KDBX3/KDBX4
// container (spec §6): the payload after outer decryption, decompression,
// and (for KDBX4) inner-header removal, but before the per-field protected-
// value keystream is applied — i.e. exactly the bytes a `dump-xml` style
// tool would show, with protected values still opaque Base64.
func GetXML(r io.Reader, dk DatabaseKey) ([]byte, error) {
	if dk.IsEmpty() {
		return nil, ErrIncorrectKey
	}
	sig, err := header.ReadSignature(r)
	if err != nil {
		return nil, translateSignatureErr(err)
	}
	switch sig.Version {
	case header.VersionKDBX3:
		xmlBytes, _, _, err := decryptKDBX3Payload(r, dk, sig.Raw)
		return xmlBytes, err
	case header.VersionKDBX4:
		xmlBytes, _, _, _, err := decryptKDBX4Payload(r, dk, sig.Raw)
		return xmlBytes, err
	default:
		return nil, ErrUnsupportedVersion
	}
}

func openDatabase(ctx context.Context, r io.Reader, dk DatabaseKey) (*Database, error) {
	if dk.IsEmpty() {
		return nil, ErrIncorrectKey
	}
	sig, err := header.ReadSignature(r)
	if err != nil {
		return nil, translateSignatureErr(err)
	}
	switch sig.Version {
	case header.VersionKDB1:
		return openKDB1(ctx, r, dk)
	case header.VersionKDBX3:
		return openKDBX3(ctx, r, dk, sig.Raw)
	case header.VersionKDBX4:
		return openKDBX4(ctx, r, dk, sig.Raw)
	default:
		return nil, ErrUnsupportedVersion
	}
}

func translateSignatureErr(err error) error {
	if errors.Is(err, header.ErrUnsupportedVersion) {
		return ErrUnsupportedVersion
	}
	var ve *header.InvalidKDBXVersionError
	if errors.As(err, &ve) {
		return &InvalidKDBXVersionError{ApplicationID: ve.ApplicationID, Major: ve.Major, Minor: ve.Minor}
	}
	return fmt.Errorf("kdbx: reading signature: %w", err)
}

// translateOuterErr maps header/kdf/variantdict error kinds surfaced while
// reading and authenticating the outer header into the public taxonomy.
func translateOuterErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, header.ErrHeaderHashMismatch) {
		return ErrHeaderHashMismatch
	}
	if errors.Is(err, header.ErrIncorrectKey) {
		return ErrIncorrectKey
	}
	if errors.Is(err, key.ErrIncorrectKey) {
		return ErrIncorrectKey
	}
	if errors.Is(err, cipher.ErrBadPadding) {
		return ErrIncorrectKey
	}

	var incomplete *header.IncompleteOuterHeaderError
	if errors.As(err, &incomplete) {
		return &IncompleteOuterHeaderError{Name: incomplete.Name}
	}
	var invalidEntry *header.InvalidOuterHeaderEntryError
	if errors.As(err, &invalidEntry) {
		return &InvalidOuterHeaderEntryError{ID: invalidEntry.ID}
	}
	var invalidCipher *header.InvalidOuterCipherIDError
	if errors.As(err, &invalidCipher) {
		return &InvalidOuterCipherIDError{UUID: invalidCipher.UUID}
	}
	var invalidCompression *header.InvalidCompressionSuiteError
	if errors.As(err, &invalidCompression) {
		return &InvalidCompressionSuiteError{ID: invalidCompression.ID}
	}

	var missingParam *kdf.MissingParamError
	if errors.As(err, &missingParam) {
		return &MissingKDFParamError{Key: missingParam.Key}
	}
	var mistypedParam *kdf.MistypedParamError
	if errors.As(err, &mistypedParam) {
		return &MistypedKDFParamError{Key: mistypedParam.Key}
	}
	var invalidUUID *kdf.InvalidUUIDError
	if errors.As(err, &invalidUUID) {
		return &InvalidKDFUUIDError{UUID: invalidUUID.UUID}
	}
	var invalidVersion *kdf.InvalidVersionError
	if errors.As(err, &invalidVersion) {
		return &InvalidKDFVersionError{Version: invalidVersion.Version}
	}
	var invalidVDVersion *variantdict.InvalidVersionError
	if errors.As(err, &invalidVDVersion) {
		return &InvalidVariantDictionaryVersionError{Version: invalidVDVersion.Version}
	}
	var invalidVDType *variantdict.InvalidValueTypeError
	if errors.As(err, &invalidVDType) {
		return &InvalidVariantDictionaryValueTypeError{Type: invalidVDType.Type}
	}

	var blockMismatch *blockstream.BlockHashMismatchError
	if errors.As(err, &blockMismatch) {
		return &BlockHashMismatchError{BlockIndex: blockMismatch.BlockIndex}
	}

	var cipherInit *cipher.CipherInitError
	if errors.As(err, &cipherInit) {
		return &CipherInitError{Reason: cipherInit.Reason}
	}

	return fmt.Errorf("kdbx: %w", err)
}

func lookupOuterFamily(id cipher.OuterCipherID) (cipher.OuterCipherFamily, error) {
	family, ok := cipher.LookupOuter(id)
	if !ok {
		return cipher.OuterCipherFamily{}, &InvalidOuterCipherIDError{UUID: [16]byte(id)}
	}
	return family, nil
}

func validInnerCipherID(id cipher.InnerCipherID) bool {
	switch id {
	case cipher.InnerPlain, cipher.InnerSalsa20, cipher.InnerChaCha20:
		return true
	default:
		return false
	}
}

func decompressIfNeeded(data []byte, compression header.CompressionID) ([]byte, error) {
	if compression != header.CompressionGZip {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("kdbx: gzip: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("kdbx: gzip: %w", err)
	}
	return out, nil
}

// decryptKDBX3Payload reads and authenticates a KDBX3 container's outer
// header and payload, returning the decrypted inner XML (spec §4.5, §4.6).
func decryptKDBX3Payload(r io.Reader, dk DatabaseKey, sigRaw [12]byte) ([]byte, *header.Outer, [32]byte, error) {
	var transformed [32]byte

	outer, err := header.ReadOuter(r, header.VersionKDBX3, sigRaw)
	if err != nil {
		return nil, nil, transformed, translateOuterErr(err)
	}

	kdfInst := kdf.AESKDF{Params: kdf.AESKDFParams{Seed: outer.TransformSeed, Rounds: outer.TransformRounds}}

	elems, err := dk.resolve(context.Background(), outer.TransformSeed[:])
	if err != nil {
		return nil, nil, transformed, err
	}
	composite, err := key.CompositeKDBX(elems)
	if err != nil {
		return nil, nil, transformed, translateOuterErr(err)
	}
	transformed, err = key.TransformedKey(composite, kdfInst)
	if err != nil {
		return nil, nil, transformed, err
	}
	masterKey := key.MasterKey(outer.MasterSeed, transformed)

	family, err := lookupOuterFamily(outer.OuterCipher)
	if err != nil {
		return nil, nil, transformed, err
	}

	ciphertext, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, transformed, fmt.Errorf("kdbx: reading payload: %w", err)
	}
	plain, err := family.Decrypt(masterKey[:], outer.EncryptionIV, ciphertext)
	if err != nil {
		return nil, nil, transformed, translateOuterErr(err)
	}

	if len(plain) < 32 || [32]byte(plain[:32]) != outer.StreamStartBytes {
		return nil, nil, transformed, ErrIncorrectKey
	}

	blockData, err := blockstream.DecomposeKDBX3(bytes.NewReader(plain[32:]))
	if err != nil {
		return nil, nil, transformed, translateOuterErr(err)
	}

	xmlBytes, err := decompressIfNeeded(blockData, outer.Compression)
	if err != nil {
		return nil, nil, transformed, err
	}
	return xmlBytes, outer, transformed, nil
}

func openKDBX3(ctx context.Context, r io.Reader, dk DatabaseKey, sigRaw [12]byte) (*Database, error) {
	xmlBytes, outer, _, err := decryptKDBX3Payload(r, dk, sigRaw)
	if err != nil {
		return nil, err
	}

	if !validInnerCipherID(outer.InnerRandomStreamID) {
		return nil, &InvalidInnerCipherIDError{ID: uint32(outer.InnerRandomStreamID)}
	}
	streamKey := hashutil.SHA256(outer.ProtectedStreamKey)
	stream, err := cipher.NewInnerStream(outer.InnerRandomStreamID, streamKey[:])
	if err != nil {
		return nil, translateOuterErr(err)
	}

	doc, err := xmlcodec.Decode(bytes.NewReader(xmlBytes), stream)
	if err != nil {
		return nil, translateXMLErr(err)
	}

	db, attachments := newDatabaseFromDocument(doc)
	for _, b := range doc.Meta.Binaries {
		content := b.Content
		if b.Compressed {
			content, err = decompressIfNeeded(content, header.CompressionGZip)
			if err != nil {
				return nil, err
			}
		}
		attachments[b.ID] = content
		db.Attachments = append(db.Attachments, &Attachment{id: b.ID, data: content, protected: false})
	}
	if err := db.resolveRoot(doc, attachments); err != nil {
		return nil, err
	}

	db.Config = Config{
		Version:     VersionKDBX3,
		OuterCipher: outer.OuterCipher,
		Compression: outer.Compression,
		InnerCipher: outer.InnerRandomStreamID,
		KDF:         kdf.AESKDF{Params: kdf.AESKDFParams{Seed: outer.TransformSeed, Rounds: outer.TransformRounds}},
	}
	return db, nil
}

// decryptKDBX4Payload reads and authenticates a KDBX4 container's outer
// header, HMAC block stream, and inner header, returning the decrypted
// inner XML (spec §4.5, §4.6, §4.7).
func decryptKDBX4Payload(r io.Reader, dk DatabaseKey, sigRaw [12]byte) ([]byte, *header.Outer, *innerheader.Inner, kdf.KDF, error) {
	outer, err := header.ReadOuter(r, header.VersionKDBX4, sigRaw)
	if err != nil {
		return nil, nil, nil, nil, translateOuterErr(err)
	}

	kdfInst, err := kdf.DecodeParams(outer.KdfParameters)
	if err != nil {
		return nil, nil, nil, nil, translateOuterErr(err)
	}

	elems, err := dk.resolve(context.Background(), kdfSeedBytes(kdfInst))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	composite, err := key.CompositeKDBX(elems)
	if err != nil {
		return nil, nil, nil, nil, translateOuterErr(err)
	}
	transformed, err := key.TransformedKey(composite, kdfInst)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	masterKey := key.MasterKey(outer.MasterSeed, transformed)
	hmacKey := key.HMACKey(outer.MasterSeed, transformed)

	if err := header.ReadKDBX4Authentication(r, outer.Raw, hmacKey, blockstream.HeaderHMAC); err != nil {
		return nil, nil, nil, nil, translateOuterErr(err)
	}

	ciphertext, err := blockstream.DecomposeKDBX4(r, hmacKey)
	if err != nil {
		return nil, nil, nil, nil, translateOuterErr(err)
	}

	family, err := lookupOuterFamily(outer.OuterCipher)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	decrypted, err := family.Decrypt(masterKey[:], outer.EncryptionIV, ciphertext)
	if err != nil {
		return nil, nil, nil, nil, translateOuterErr(err)
	}

	decrypted, err = decompressIfNeeded(decrypted, outer.Compression)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	br := bytes.NewReader(decrypted)
	inner, err := innerheader.Read(br)
	if err != nil {
		return nil, nil, nil, nil, translateInnerHeaderErr(err)
	}
	xmlBytes, err := io.ReadAll(br)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("kdbx: reading xml payload: %w", err)
	}
	return xmlBytes, outer, inner, kdfInst, nil
}

func translateInnerHeaderErr(err error) error {
	var invalidEntry *innerheader.InvalidInnerHeaderEntryError
	if errors.As(err, &invalidEntry) {
		return &InvalidInnerHeaderEntryError{ID: invalidEntry.ID}
	}
	var incomplete *innerheader.IncompleteInnerHeaderError
	if errors.As(err, &incomplete) {
		return &IncompleteInnerHeaderError{Name: incomplete.Name}
	}
	return fmt.Errorf("kdbx: reading inner header: %w", err)
}

func translateXMLErr(err error) error {
	var parseErr *xmlcodec.XMLParseError
	if errors.As(err, &parseErr) {
		return &XMLParseError{Err: parseErr.Err}
	}
	var b64Err *xmlcodec.Base64Error
	if errors.As(err, &b64Err) {
		return &Base64Error{Err: b64Err.Err}
	}
	var tsErr *xmlcodec.TimestampFormatError
	if errors.As(err, &tsErr) {
		return &TimestampFormatError{Value: tsErr.Value}
	}
	var evErr *xmlcodec.BadEventError
	if errors.As(err, &evErr) {
		return &BadEventError{Expected: evErr.Expected, Got: evErr.Got}
	}
	return fmt.Errorf("kdbx: %w", err)
}

func openKDBX4(ctx context.Context, r io.Reader, dk DatabaseKey, sigRaw [12]byte) (*Database, error) {
	xmlBytes, outer, inner, kdfInst, err := decryptKDBX4Payload(r, dk, sigRaw)
	if err != nil {
		return nil, err
	}

	if !validInnerCipherID(inner.InnerRandomStreamID) {
		return nil, &InvalidInnerCipherIDError{ID: uint32(inner.InnerRandomStreamID)}
	}
	stream, err := cipher.NewInnerStream(inner.InnerRandomStreamID, inner.InnerRandomStreamKey)
	if err != nil {
		return nil, translateOuterErr(err)
	}

	doc, err := xmlcodec.Decode(bytes.NewReader(xmlBytes), stream)
	if err != nil {
		return nil, translateXMLErr(err)
	}

	db, attachments := newDatabaseFromDocument(doc)
	for i, a := range inner.Attachments {
		attachments[i] = a.Content
		db.Attachments = append(db.Attachments, &Attachment{id: i, data: a.Content, protected: a.Protected})
	}
	if err := db.resolveRoot(doc, attachments); err != nil {
		return nil, err
	}

	db.Config = Config{
		Version:          VersionKDBX4,
		OuterCipher:      outer.OuterCipher,
		Compression:      outer.Compression,
		InnerCipher:      inner.InnerRandomStreamID,
		KDF:              kdfInst,
		PublicCustomData: outer.PublicCustomData,
	}
	return db, nil
}

func newDatabaseFromDocument(doc *xmlcodec.Document) (*Database, attachmentLookup) {
	db := &Database{Meta: toMeta(doc.Meta), DeletedObjects: toDeletedObjects(doc.DeletedObjects)}
	return db, make(attachmentLookup)
}

func (db *Database) resolveRoot(doc *xmlcodec.Document, attachments attachmentLookup) error {
	if doc.Root == nil {
		return nil
	}
	root, err := toGroup(doc.Root, attachments)
	if err != nil {
		return err
	}
	db.Root = root
	return nil
}

func openKDB1(ctx context.Context, r io.Reader, dk DatabaseKey) (*Database, error) {
	h, err := kdb1.ReadHeader(r)
	if err != nil {
		return nil, fmt.Errorf("kdbx: reading kdb1 header: %w", err)
	}
	outerCipher, err := h.OuterCipher()
	if err != nil {
		var fixed *kdb1.InvalidFixedHeaderError
		if errors.As(err, &fixed) {
			return nil, &InvalidFixedHeaderError{Reason: fixed.Reason}
		}
		return nil, err
	}
	kdfInst := h.KDF()

	elems, err := dk.resolve(ctx, h.TransformSeed[:])
	if err != nil {
		return nil, err
	}
	composite, err := key.CompositeKDB1(elems)
	if err != nil {
		if errors.Is(err, key.ErrIncorrectKey) {
			return nil, ErrIncorrectKey
		}
		return nil, err
	}
	transformed, err := key.TransformedKey(composite, kdfInst)
	if err != nil {
		return nil, err
	}
	masterKey := hashutil.SHA256(h.MasterSeed[:], transformed[:])

	family, err := lookupOuterFamily(outerCipher)
	if err != nil {
		return nil, err
	}
	ciphertext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("kdbx: reading payload: %w", err)
	}
	plain, err := family.Decrypt(masterKey[:], h.IV[:], ciphertext)
	if err != nil {
		return nil, ErrIncorrectKey
	}
	if hashutil.SHA256(plain) != h.ContentsHash {
		return nil, ErrIncorrectKey
	}

	body := bytes.NewReader(plain)
	groups, err := kdb1.ReadGroups(body, h.NumGroups)
	if err != nil {
		return nil, fmt.Errorf("kdbx: reading kdb1 groups: %w", err)
	}
	entries, err := kdb1.ReadEntries(body, h.NumEntries)
	if err != nil {
		return nil, fmt.Errorf("kdbx: reading kdb1 entries: %w", err)
	}
	tree := kdb1.BuildTree(groups, entries)

	db := &Database{
		Root: convertKDB1Tree(tree),
		Config: Config{
			Version:     VersionKDB1,
			OuterCipher: outerCipher,
			Compression: header.CompressionNone,
			InnerCipher: cipher.InnerPlain,
			KDF:         kdfInst,
		},
	}
	return db, nil
}

// Save writes db as a KDBX4 container (spec §6); it is the only version
// this codec writes. Calling Save on a Database loaded from KDB1 or KDBX3
// (db.Config.Version unchanged since Open) returns ErrUnsupportedVersion.
func (db *Database) Save(w io.Writer, dk DatabaseKey) error {
	return db.SaveWithRand(w, dk, rand.Reader)
}

// SaveWithRand behaves like Save, drawing every fresh seed/IV/key from rnd
// instead of crypto/rand.Reader (spec §9: deterministic round-trip tests
// inject a fixed stream here).
func (db *Database) SaveWithRand(w io.Writer, dk DatabaseKey, rnd io.Reader) error {
	if db.Config.Version != VersionKDBX4 {
		return ErrUnsupportedVersion
	}
	if dk.IsEmpty() {
		return ErrIncorrectKey
	}

	kdfInst := db.Config.KDF
	if kdfInst == nil {
		kdfInst = DefaultConfig().KDF
	}
	kdfInst, err := refreshKDFSeed(kdfInst, rnd)
	if err != nil {
		return err
	}
	db.Config.KDF = kdfInst

	elems, err := dk.resolve(context.Background(), kdfSeedBytes(kdfInst))
	if err != nil {
		return err
	}
	composite, err := key.CompositeKDBX(elems)
	if err != nil {
		if errors.Is(err, key.ErrIncorrectKey) {
			return ErrIncorrectKey
		}
		return err
	}
	transformed, err := key.TransformedKey(composite, kdfInst)
	if err != nil {
		return err
	}

	var masterSeed [32]byte
	if _, err := io.ReadFull(rnd, masterSeed[:]); err != nil {
		return ErrRandomGeneration
	}
	masterKey := key.MasterKey(masterSeed, transformed)
	hmacKey := key.HMACKey(masterSeed, transformed)

	family, err := lookupOuterFamily(db.Config.OuterCipher)
	if err != nil {
		return err
	}
	iv := make([]byte, family.IVSize)
	if _, err := io.ReadFull(rnd, iv); err != nil {
		return ErrRandomGeneration
	}

	innerKey, err := freshInnerKey(db.Config.InnerCipher, rnd)
	if err != nil {
		return err
	}
	stream, err := cipher.NewInnerStream(db.Config.InnerCipher, innerKey)
	if err != nil {
		return &CipherInitError{Reason: err.Error()}
	}

	var attachmentBufs [][]byte
	doc := &xmlcodec.Document{
		Meta:           fromMeta(db.Meta),
		Root:           fromGroup(db.Root, &attachmentBufs),
		DeletedObjects: fromDeletedObjects(db.DeletedObjects),
	}

	var xmlBuf bytes.Buffer
	if err := xmlcodec.Encode(&xmlBuf, doc, stream); err != nil {
		return err
	}

	inner := &innerheader.Inner{InnerRandomStreamID: db.Config.InnerCipher, InnerRandomStreamKey: innerKey}
	for _, content := range attachmentBufs {
		inner.Attachments = append(inner.Attachments, innerheader.Attachment{Content: content})
	}
	var innerBuf bytes.Buffer
	if err := innerheader.Write(&innerBuf, inner); err != nil {
		return err
	}

	payload := append(innerBuf.Bytes(), xmlBuf.Bytes()...)
	if db.Config.Compression == header.CompressionGZip {
		var gz bytes.Buffer
		zw := gzip.NewWriter(&gz)
		if _, err := zw.Write(payload); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		payload = gz.Bytes()
	}

	ciphertext, err := family.Encrypt(masterKey[:], iv, payload)
	if err != nil {
		return err
	}

	kdfDict, _, err := kdf.EncodeParams(kdfInst)
	if err != nil {
		return fmt.Errorf("kdbx: encoding kdf parameters: %w", err)
	}

	outer := &header.Outer{
		Version:          header.VersionKDBX4,
		OuterCipher:      db.Config.OuterCipher,
		Compression:      db.Config.Compression,
		MasterSeed:       masterSeed,
		EncryptionIV:     iv,
		KdfParameters:    kdfDict,
		PublicCustomData: db.Config.PublicCustomData,
	}

	sigRaw, err := header.WriteSignature(w, header.VersionKDBX4)
	if err != nil {
		return err
	}
	headerRaw, err := header.WriteOuter(w, outer, sigRaw)
	if err != nil {
		return err
	}
	if err := header.WriteKDBX4Authentication(w, headerRaw, hmacKey, blockstream.HeaderHMAC); err != nil {
		return err
	}
	return blockstream.ComposeKDBX4(w, ciphertext, hmacKey)
}

// refreshKDFSeed returns a copy of kdfInst with a freshly randomized
// seed/salt, since a KDF seed must never be reused across saves (spec
// §4.2, §4.3).
func refreshKDFSeed(kdfInst kdf.KDF, rnd io.Reader) (kdf.KDF, error) {
	switch k := kdfInst.(type) {
	case kdf.AESKDF:
		var seed [32]byte
		if _, err := io.ReadFull(rnd, seed[:]); err != nil {
			return nil, ErrRandomGeneration
		}
		k.Params.Seed = seed
		return k, nil
	case kdf.Argon2KDF:
		salt := make([]byte, 32)
		if _, err := io.ReadFull(rnd, salt); err != nil {
			return nil, ErrRandomGeneration
		}
		k.Params.Salt = salt
		return k, nil
	default:
		return nil, fmt.Errorf("kdbx: unknown KDF implementation %T", kdfInst)
	}
}

// kdfSeedBytes returns the KDF's own seed/salt, the value queried as the
// challenge-response challenge and as input to the variant dictionary
// (spec §4.3, §4.4).
func kdfSeedBytes(k kdf.KDF) []byte {
	switch kk := k.(type) {
	case kdf.AESKDF:
		return kk.Params.Seed[:]
	case kdf.Argon2KDF:
		return kk.Params.Salt
	default:
		return nil
	}
}

// freshInnerKey generates a fresh InnerRandomStreamKey of the canonical
// byte count for id (none for the plain stream): Salsa20 takes its key directly (so must be exactly
// 32 bytes), while ChaCha20 hashes whatever length it is given down to its
// actual key/nonce material (spec §4.1), so a generous 64 bytes is used.
func freshInnerKey(id cipher.InnerCipherID, rnd io.Reader) ([]byte, error) {
	if id == cipher.InnerPlain {
		return nil, nil
	}
	size := 64
	if id == cipher.InnerSalsa20 {
		size = 32
	}
	key := make([]byte, size)
	if _, err := io.ReadFull(rnd, key); err != nil {
		return nil, ErrRandomGeneration
	}
	return key, nil
}

func convertKDB1Tree(tree *kdb1.Tree) *Group {
	root := &Group{Name: "Root"}
	for _, r := range tree.Roots {
		root.Children = append(root.Children, convertKDB1Group(r))
	}
	return root
}

func convertKDB1Group(tg *kdb1.TreeGroup) *Group {
	created, modified, accessed, expiry := tg.Created, tg.Modified, tg.Accessed, tg.Expires
	iconID := int(tg.ImageID)
	g := &Group{
		UUID:   kdb1GroupUUID(tg.ID),
		Name:   tg.Name,
		IconID: &iconID,
		Times: Times{
			Creation:         &created,
			LastModification: &modified,
			LastAccess:       &accessed,
			Expiry:           &expiry,
		},
	}
	for _, sub := range tg.Children {
		g.Children = append(g.Children, convertKDB1Group(sub))
	}
	for _, e := range tg.Entries {
		g.Children = append(g.Children, convertKDB1Entry(e))
	}
	return g
}

func convertKDB1Entry(e kdb1.Entry) *Entry {
	created, modified, accessed, expiry := e.Created, e.Modified, e.Accessed, e.Expires
	iconID := int(e.ImageID)
	en := &Entry{
		UUID:   e.UUID,
		IconID: &iconID,
		Fields: map[string]Value{
			"Title":    NewUnprotectedValue(e.Title),
			"UserName": NewUnprotectedValue(e.Username),
			"Password": NewProtectedValue(e.Password),
			"URL":      NewUnprotectedValue(e.URL),
			"Notes":    NewUnprotectedValue(e.Notes),
		},
		Times: Times{
			Creation:         &created,
			LastModification: &modified,
			LastAccess:       &accessed,
			Expiry:           &expiry,
		},
	}
	if len(e.BinData) > 0 {
		name := e.BinDesc
		if name == "" {
			name = "attachment"
		}
		en.Fields[name] = NewBytesValue(e.BinData)
	}
	return en
}

// kdb1GroupUUID derives a stable 16-byte identifier for a KDB1 group, which
// natively has only a uint32 ID (spec §4.8 supplement): the low 16 bytes of
// SHA-256(id), so that merges and lookups behave consistently across loads
// of the same file.
func kdb1GroupUUID(id uint32) [16]byte {
	var buf [4]byte
	buf[0] = byte(id)
	buf[1] = byte(id >> 8)
	buf[2] = byte(id >> 16)
	buf[3] = byte(id >> 24)
	sum := hashutil.SHA256(buf[:])
	var out [16]byte
	copy(out[:], sum[:16])
	return out
}
