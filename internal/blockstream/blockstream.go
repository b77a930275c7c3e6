// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package blockstream implements the two payload framings used to carry
// encrypted content after the outer header (spec §4.5, §6): KDBX3's
// unauthenticated SHA-256-checked blocks, and KDBX4's HMAC-authenticated
// block stream. Grounded on gokeepasslib's composeContentBlocks31/4 and
// decomposeContentBlocks31/4 (vendored as other_examples'
// tobischo-gokeepasslib-v3 encoder.go/decoder.go).
package blockstream

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"math"

	"github.com/openkdbx/kdbx/internal/hashutil"
	"github.com/openkdbx/kdbx/internal/key"
)

// BlockHashMismatchError is returned when a block's checksum/HMAC fails to
// validate.
type BlockHashMismatchError struct{ BlockIndex uint64 }

func (e *BlockHashMismatchError) Error() string {
	return "blockstream: hash mismatch at block " + itoa(e.BlockIndex)
}

func itoa(n uint64) string {
	return string(binaryDigits(n))
}

func binaryDigits(n uint64) []byte {
	if n == 0 {
		return []byte{'0'}
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	return buf
}

// HeaderHMACIndex is the block index reserved for authenticating the outer
// header alone (spec §4.5): block_index = u64::MAX.
const HeaderHMACIndex = math.MaxUint64

// HeaderHMAC returns the HMAC authenticating the outer header bytes under
// the per-block sub-key for HeaderHMACIndex.
func HeaderHMAC(header []byte, hmacKey [64]byte) [32]byte {
	subKey := key.BlockHMACSubKey(HeaderHMACIndex, hmacKey)
	return hashutil.HMACSHA256(subKey[:], header)
}

// DecomposeKDBX3 reads the KDBX3 block format: repeated
// (block_id:u32, block_hash:32, block_size:u32, data) records terminated by
// a zero-size block, each validated against its stored SHA-256.
func DecomposeKDBX3(r io.Reader) ([]byte, error) {
	var out bytes.Buffer
	var blockID uint32
	for {
		if err := binary.Read(r, binary.LittleEndian, &blockID); err != nil {
			return nil, err
		}
		var hash [32]byte
		if _, err := io.ReadFull(r, hash[:]); err != nil {
			return nil, err
		}
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		if sha256.Sum256(data) != hash {
			return nil, &BlockHashMismatchError{BlockIndex: uint64(blockID)}
		}
		out.Write(data)
	}
}

// ComposeKDBX3 writes content as a single KDBX3 block stream (the canonical
// writer puts the whole payload in one block before the terminator).
func ComposeKDBX3(w io.Writer, content []byte) error {
	if len(content) > 0 {
		if err := writeKDBX3Block(w, 0, content); err != nil {
			return err
		}
	}
	return writeKDBX3Block(w, 1, nil)
}

func writeKDBX3Block(w io.Writer, blockID uint32, data []byte) error {
	hash := sha256.Sum256(data)
	if err := binary.Write(w, binary.LittleEndian, blockID); err != nil {
		return err
	}
	if _, err := w.Write(hash[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// DefaultBlockSize is the canonical block size used when composing the
// KDBX4 HMAC block stream (spec §4.5).
const DefaultBlockSize = 1 << 20 // 1 MiB

// DecomposeKDBX4 reads the KDBX4 HMAC block stream: repeated
// (hmac:32, size:u32, data) records terminated by size==0, each
// authenticated under the per-block HMAC sub-key derived from hmacKey.
func DecomposeKDBX4(r io.Reader, hmacKey [64]byte) ([]byte, error) {
	var out bytes.Buffer
	var blockIndex uint64
	for {
		var hmacVal [32]byte
		if _, err := io.ReadFull(r, hmacVal[:]); err != nil {
			return nil, err
		}
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		data := make([]byte, size)
		if size > 0 {
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, err
			}
		}

		subKey := key.BlockHMACSubKey(blockIndex, hmacKey)
		var idxBuf [8]byte
		binary.LittleEndian.PutUint64(idxBuf[:], blockIndex)
		var sizeBuf [4]byte
		binary.LittleEndian.PutUint32(sizeBuf[:], size)
		computed := hashutil.HMACSHA256(subKey[:], idxBuf[:], sizeBuf[:], data)
		if computed != hmacVal {
			return nil, &BlockHashMismatchError{BlockIndex: blockIndex}
		}

		if size == 0 {
			return out.Bytes(), nil
		}
		out.Write(data)
		blockIndex++
	}
}

// ComposeKDBX4 writes content as a sequence of HMAC-authenticated blocks of
// DefaultBlockSize, terminated by a zero-size block.
func ComposeKDBX4(w io.Writer, content []byte, hmacKey [64]byte) error {
	var blockIndex uint64
	for len(content) > 0 {
		n := DefaultBlockSize
		if n > len(content) {
			n = len(content)
		}
		if err := writeKDBX4Block(w, blockIndex, content[:n], hmacKey); err != nil {
			return err
		}
		content = content[n:]
		blockIndex++
	}
	return writeKDBX4Block(w, blockIndex, nil, hmacKey)
}

func writeKDBX4Block(w io.Writer, blockIndex uint64, data []byte, hmacKey [64]byte) error {
	subKey := key.BlockHMACSubKey(blockIndex, hmacKey)
	var idxBuf [8]byte
	binary.LittleEndian.PutUint64(idxBuf[:], blockIndex)
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(data)))
	mac := hashutil.HMACSHA256(subKey[:], idxBuf[:], sizeBuf[:], data)

	if _, err := w.Write(mac[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}
