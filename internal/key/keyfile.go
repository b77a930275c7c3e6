// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package key implements composite/transformed/master key assembly (spec
// §4.4) and keyfile parsing (spec §6).
package key

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/openkdbx/kdbx/internal/hashutil"
)

// ErrInvalidKeyFile is returned when none of the three accepted keyfile
// formats apply.
var ErrInvalidKeyFile = fmt.Errorf("key: invalid keyfile")

type xmlKeyFile struct {
	Meta struct {
		Version string `xml:"Version"`
	} `xml:"Meta"`
	Key struct {
		Data string `xml:"Data"`
	} `xml:"Key"`
}

// ParseKeyFile auto-detects and parses a keyfile, returning its 32-byte key
// element (spec §6):
//  1. XML <KeyFile><Key><Data>...</Data></Key></KeyFile>, hex if
//     <Meta><Version>2.0</Version></Meta> is present, else Base64 (falling
//     back to raw bytes if Base64 decoding fails).
//  2. A 32-byte file, used verbatim.
//  3. Any other file: SHA-256 of its contents.
func ParseKeyFile(r io.Reader) ([32]byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return [32]byte{}, err
	}

	if key, ok := parseXMLKeyFile(raw); ok {
		return key, nil
	}

	if len(raw) == 32 {
		var out [32]byte
		copy(out[:], raw)
		return out, nil
	}

	return hashutil.SHA256(raw), nil
}

// ParseKeyFileDetailed behaves like ParseKeyFile but additionally reports
// whether raw was a bare 32-byte file used verbatim (case 2), the detail
// KDB1's verbatim-composite-key rule needs (spec §4.4, §4.8).
func ParseKeyFileDetailed(r io.Reader) (key [32]byte, verbatim bool, err error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return [32]byte{}, false, err
	}

	if k, ok := parseXMLKeyFile(raw); ok {
		return k, false, nil
	}

	if len(raw) == 32 {
		var out [32]byte
		copy(out[:], raw)
		return out, true, nil
	}

	return hashutil.SHA256(raw), false, nil
}

func parseXMLKeyFile(raw []byte) ([32]byte, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return [32]byte{}, false
	}

	var kf xmlKeyFile
	if err := xml.Unmarshal(raw, &kf); err != nil {
		return [32]byte{}, false
	}
	if kf.Key.Data == "" {
		return [32]byte{}, false
	}

	if strings.TrimSpace(kf.Meta.Version) == "2.0" {
		hexStr := strings.Join(strings.Fields(kf.Key.Data), "")
		decoded, err := hex.DecodeString(hexStr)
		if err != nil || len(decoded) != 32 {
			return [32]byte{}, false
		}
		var out [32]byte
		copy(out[:], decoded)
		return out, true
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(kf.Key.Data))
	if err != nil {
		decoded = []byte(kf.Key.Data)
	}
	if len(decoded) != 32 {
		return [32]byte{}, false
	}
	var out [32]byte
	copy(out[:], decoded)
	return out, true
}
