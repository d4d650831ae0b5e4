// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdbcache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sort"

	mmap "github.com/edsrzf/mmap-go"
)

var (
	// ErrBadMagic is returned when the buffer does not begin with "PDBc".
	ErrBadMagic = errors.New("ppdbcache: bad magic, not a PPDBCache")
	// ErrUnsupportedVersion is returned for an unrecognized cache version.
	ErrUnsupportedVersion = errors.New("ppdbcache: unsupported cache version")
	// ErrTruncated is returned when a section extends past the buffer end.
	ErrTruncated = errors.New("ppdbcache: truncated cache")
)

// Cache is a memory-mappable, read-only PPDBCache.
type Cache struct {
	data []byte
	mm   mmap.MMap
	f    *os.File

	methodCount     uint32
	spCount         uint32
	fileCount       uint32
	stringTableSize uint32

	methodEntriesOffset uint32
	spEntriesOffset     uint32
	filesOffset         uint32
	stringTableOffset   uint32
}

// Open memory-maps a cache file and validates its header.
func Open(name string) (*Cache, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	c, err := ParseBytes(data)
	if err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}
	c.mm = data
	c.f = f
	return c, nil
}

// ParseBytes validates an in-memory cache buffer the caller continues to
// own.
func ParseBytes(data []byte) (*Cache, error) {
	if len(data) < headerSize {
		return nil, ErrTruncated
	}
	if !bytes.Equal(data[0:4], cacheMagic[:]) {
		return nil, ErrBadMagic
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != cacheVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	c := &Cache{data: data}
	c.methodCount = binary.LittleEndian.Uint32(data[16:20])
	c.spCount = binary.LittleEndian.Uint32(data[20:24])
	c.fileCount = binary.LittleEndian.Uint32(data[24:28])
	c.stringTableSize = binary.LittleEndian.Uint32(data[28:32])

	c.methodEntriesOffset = headerSize
	methodEntriesEnd := c.methodEntriesOffset + c.methodCount*methodEntrySize
	c.spEntriesOffset = align8(methodEntriesEnd)
	spEntriesEnd := c.spEntriesOffset + c.spCount*sequencePointEntrySize
	c.filesOffset = align8(spEntriesEnd)
	filesEnd := c.filesOffset + c.fileCount*fileEntrySize
	c.stringTableOffset = align8(filesEnd)
	stringTableEnd := c.stringTableOffset + c.stringTableSize

	if stringTableEnd > uint32(len(data)) || stringTableEnd < c.stringTableOffset {
		return nil, ErrTruncated
	}

	return c, nil
}

// Close releases the memory map and file handle, if any.
func (c *Cache) Close() error {
	if c.mm != nil {
		_ = c.mm.Unmap()
	}
	if c.f != nil {
		return c.f.Close()
	}
	return nil
}

func (c *Cache) methodEntry(i uint32) (token, spStart, spCount uint32) {
	off := c.methodEntriesOffset + i*methodEntrySize
	token = binary.LittleEndian.Uint32(c.data[off : off+4])
	spStart = binary.LittleEndian.Uint32(c.data[off+4 : off+8])
	spCount = binary.LittleEndian.Uint32(c.data[off+8 : off+12])
	return
}

func (c *Cache) sequencePointEntry(i uint32) (ilOffset, line, column, fileIndex uint32) {
	off := c.spEntriesOffset + i*sequencePointEntrySize
	ilOffset = binary.LittleEndian.Uint32(c.data[off : off+4])
	line = binary.LittleEndian.Uint32(c.data[off+4 : off+8])
	column = binary.LittleEndian.Uint32(c.data[off+8 : off+12])
	fileIndex = binary.LittleEndian.Uint32(c.data[off+12 : off+16])
	return
}

func (c *Cache) filePath(fileIndex uint32) string {
	off := c.filesOffset + fileIndex*fileEntrySize
	pathOff := c.stringTableOffset + binary.LittleEndian.Uint32(c.data[off:off+4])
	end := pathOff
	for end < uint32(len(c.data)) && c.data[end] != 0 {
		end++
	}
	return string(c.data[pathOff:end])
}

// Lookup resolves a (MethodDef MetadataToken, IL offset) pair to its source
// location: the greatest sequence point at or before il, within the
// method's slice. It returns ok == false if the token is unknown or the
// method has no sequence point at or before il.
func (c *Cache) Lookup(methodToken, il uint32) (SourceLocation, bool) {
	methodIdx := sort.Search(int(c.methodCount), func(i int) bool {
		token, _, _ := c.methodEntry(uint32(i))
		return token >= methodToken
	})
	if uint32(methodIdx) >= c.methodCount {
		return SourceLocation{}, false
	}
	token, spStart, spCount := c.methodEntry(uint32(methodIdx))
	if token != methodToken || spCount == 0 {
		return SourceLocation{}, false
	}

	// Greatest entry with il_offset <= il, within [spStart, spStart+spCount).
	n := sort.Search(int(spCount), func(i int) bool {
		ilOffset, _, _, _ := c.sequencePointEntry(spStart + uint32(i))
		return ilOffset > il
	})
	if n == 0 {
		return SourceLocation{}, false
	}
	_, line, column, fileIndex := c.sequencePointEntry(spStart + uint32(n-1))
	if fileIndex >= c.fileCount {
		return SourceLocation{}, false
	}

	loc := SourceLocation{
		File:   c.filePath(fileIndex),
		Line:   line,
		Column: column,
	}
	if line == hiddenLine {
		loc.Hidden = true
	}
	return loc, true
}
