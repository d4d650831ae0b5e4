// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdbcache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/saferwall/ppdb"
)

type methodGroup struct {
	token  uint32
	points []ppdb.SequencePoint
}

// Build enumerates every method's sequence points from a parsed PPDB and
// assembles the PPDBCache binary layout: a sorted method_entry array, a
// flat sequence_point_entry array, a files array, and a string table of
// interned document paths.
func Build(p *ppdb.PPDBFile) ([]byte, error) {
	var stringTable bytes.Buffer
	stringOffsets := make(map[string]uint32)
	internString := func(s string) uint32 {
		if off, ok := stringOffsets[s]; ok {
			return off
		}
		off := uint32(stringTable.Len())
		stringTable.WriteString(s)
		stringTable.WriteByte(0)
		stringOffsets[s] = off
		return off
	}

	var files []uint32
	fileIndices := make(map[string]uint32)
	internFile := func(path string) uint32 {
		if idx, ok := fileIndices[path]; ok {
			return idx
		}
		idx := uint32(len(files))
		files = append(files, internString(path))
		fileIndices[path] = idx
		return idx
	}

	var groups []methodGroup
	count := p.MethodCount()
	for row := uint32(1); row <= count; row++ {
		md, err := p.MethodDebugInfo(row)
		if err != nil {
			return nil, err
		}
		points, err := md.SequencePoints()
		if err != nil {
			return nil, err
		}
		if len(points) == 0 {
			continue
		}
		groups = append(groups, methodGroup{token: MethodToken(row), points: points})
	}

	// MethodDebugInformation is enumerated in ascending row order, so
	// groups are already token-ascending; sort defensively rather than
	// trust that invariant silently.
	sort.Slice(groups, func(i, j int) bool { return groups[i].token < groups[j].token })

	var methodEntries bytes.Buffer
	var spEntries bytes.Buffer
	spCursor := uint32(0)

	for _, g := range groups {
		start := spCursor
		var n uint32
		haveLast := false
		var lastIL uint32

		for _, sp := range g.points {
			if sp.IsHidden {
				// Hidden sequence points are not written.
				continue
			}
			if haveLast && sp.ILOffset <= lastIL {
				return nil, fmt.Errorf("%w: method %#x: sequence points not strictly ascending by il_offset", ppdb.ErrInternal, g.token)
			}
			haveLast = true
			lastIL = sp.ILOffset

			path, err := p.DocumentPath(sp.Document)
			if err != nil {
				return nil, err
			}
			fi := internFile(path)

			var buf [sequencePointEntrySize]byte
			binary.LittleEndian.PutUint32(buf[0:4], sp.ILOffset)
			binary.LittleEndian.PutUint32(buf[4:8], sp.StartLine)
			binary.LittleEndian.PutUint32(buf[8:12], uint32(sp.StartColumn))
			binary.LittleEndian.PutUint32(buf[12:16], fi)
			spEntries.Write(buf[:])
			n++
			spCursor++
		}

		if n == 0 {
			// Every point in this method was hidden.
			continue
		}

		var buf [methodEntrySize]byte
		binary.LittleEndian.PutUint32(buf[0:4], g.token)
		binary.LittleEndian.PutUint32(buf[4:8], start)
		binary.LittleEndian.PutUint32(buf[8:12], n)
		methodEntries.Write(buf[:])
	}

	methodCount := uint32(methodEntries.Len()) / methodEntrySize
	spCount := uint32(spEntries.Len()) / sequencePointEntrySize
	fileCount := uint32(len(files))

	var out bytes.Buffer
	out.Write(make([]byte, headerSize))

	writeAligned := func(b []byte) uint32 {
		off := uint32(out.Len())
		out.Write(b)
		if pad := align8(uint32(out.Len())) - uint32(out.Len()); pad > 0 {
			out.Write(make([]byte, pad))
		}
		return off
	}

	writeAligned(methodEntries.Bytes())
	writeAligned(spEntries.Bytes())

	var filesBuf bytes.Buffer
	for _, off := range files {
		var b [fileEntrySize]byte
		binary.LittleEndian.PutUint32(b[:], off)
		filesBuf.Write(b[:])
	}
	writeAligned(filesBuf.Bytes())
	writeAligned(stringTable.Bytes())

	buf := out.Bytes()
	copy(buf[0:4], cacheMagic[:])
	binary.LittleEndian.PutUint32(buf[4:8], cacheVersion)
	// buf[8:16] (checksum) is patched below, after the body is final.
	binary.LittleEndian.PutUint32(buf[16:20], methodCount)
	binary.LittleEndian.PutUint32(buf[20:24], spCount)
	binary.LittleEndian.PutUint32(buf[24:28], fileCount)
	binary.LittleEndian.PutUint32(buf[28:32], uint32(stringTable.Len()))

	checksum := xxhash.Sum64(buf[headerSize:])
	binary.LittleEndian.PutUint64(buf[8:16], checksum)

	return buf, nil
}
