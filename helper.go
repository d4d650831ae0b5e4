// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdb

import (
	"bytes"
	"encoding/binary"
	"path"
	"path/filepath"
	"runtime"

	"golang.org/x/text/encoding/unicode"
)

// ReadUint64 reads a little-endian uint64 at offset.
func (p *PPDBFile) ReadUint64(offset uint32) (uint64, error) {
	if offset+8 > p.size || offset+8 < offset {
		return 0, offsetErrorf(ErrOutOfBounds, offset)
	}
	return binary.LittleEndian.Uint64(p.data[offset:]), nil
}

// ReadUint32 reads a little-endian uint32 at offset.
func (p *PPDBFile) ReadUint32(offset uint32) (uint32, error) {
	if offset+4 > p.size || offset+4 < offset {
		return 0, offsetErrorf(ErrOutOfBounds, offset)
	}
	return binary.LittleEndian.Uint32(p.data[offset:]), nil
}

// ReadUint16 reads a little-endian uint16 at offset.
func (p *PPDBFile) ReadUint16(offset uint32) (uint16, error) {
	if offset+2 > p.size || offset+2 < offset {
		return 0, offsetErrorf(ErrOutOfBounds, offset)
	}
	return binary.LittleEndian.Uint16(p.data[offset:]), nil
}

// ReadUint8 reads a single byte at offset.
func (p *PPDBFile) ReadUint8(offset uint32) (uint8, error) {
	if offset+1 > p.size {
		return 0, offsetErrorf(ErrOutOfBounds, offset)
	}
	return p.data[offset], nil
}

// ReadBytesAtOffset returns the exact byte slice [offset, offset+size).
func (p *PPDBFile) ReadBytesAtOffset(offset, size uint32) ([]byte, error) {
	totalSize := offset + size
	// Integer overflow.
	if (totalSize > offset) != (size > 0) {
		return nil, offsetErrorf(ErrOutOfBounds, offset)
	}
	if offset > p.size || totalSize > p.size {
		return nil, offsetErrorf(ErrOutOfBounds, offset)
	}
	return p.data[offset:totalSize], nil
}

func (p *PPDBFile) structUnpack(iface interface{}, offset, size uint32) error {
	totalSize := offset + size
	if (totalSize > offset) != (size > 0) {
		return offsetErrorf(ErrOutOfBounds, offset)
	}
	if offset > p.size || totalSize > p.size {
		return offsetErrorf(ErrOutOfBounds, offset)
	}
	buf := bytes.NewReader(p.data[offset:totalSize])
	return binary.Read(buf, binary.LittleEndian, iface)
}

// getStringAtOffset reads a NUL-terminated, padded string slice of size
// bytes starting at offset, trimming the trailing NUL padding.
func (p *PPDBFile) getStringAtOffset(offset, size uint32) (string, error) {
	b, err := p.ReadBytesAtOffset(offset, size)
	if err != nil {
		return "", err
	}
	n := bytes.IndexByte(b, 0)
	if n < 0 {
		n = len(b)
	}
	return string(b[:n]), nil
}

// decodeUTF16String decodes a NUL-terminated UTF-16LE byte slice, the
// convention used by the #US heap's trailing terminator byte.
func decodeUTF16String(b []byte) (string, error) {
	n := bytes.Index(b, []byte{0, 0})
	if n < 0 {
		n = len(b)
	} else {
		n++
	}
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	s, err := decoder.Bytes(b[:n])
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// IsBitSet returns true when bit pos of n is set.
func IsBitSet(n uint64, pos int) bool {
	return n&(1<<uint(pos)) != 0
}

func getAbsoluteFilePath(testfile string) string {
	_, p, _, _ := runtime.Caller(0)
	return path.Join(filepath.Dir(p), testfile)
}
