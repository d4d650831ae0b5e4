// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package ppdbcache builds and reads PPDBCache: a self-describing,
// versioned, memory-mappable binary index from (MetadataToken, IL offset)
// to (source file, line, column), produced once from a parsed Portable PDB
// and thereafter queryable without re-parsing ECMA-335 metadata.
package ppdbcache

import "github.com/saferwall/ppdb"

// cacheMagic is the 4-byte on-disk magic, "PDBc".
var cacheMagic = [4]byte{'P', 'D', 'B', 'c'}

// cacheVersion is the only version this package writes and accepts.
const cacheVersion = 2

// headerSize is the fixed header: magic(4) + version(4) + checksum(8) +
// methodCount(4) + sequencePointCount(4) + fileCount(4) + stringTableSize(4).
const headerSize = 32

// methodEntrySize is (method_token, sp_start, sp_count), all u32.
const methodEntrySize = 12

// sequencePointEntrySize is (il_offset, line, column, file_index), all u32.
const sequencePointEntrySize = 16

// fileEntrySize is a single (path_offset: u32) slot.
const fileEntrySize = 4

// hiddenLine is the Microsoft "hidden line" convention some external
// writers emit; our own writer never produces it, but the reader still
// recognizes it for interoperability with caches built from other sources.
const hiddenLine = 0xFEEFEE

// align8 rounds n up to the next multiple of 8.
func align8(n uint32) uint32 {
	return (n + 7) &^ 7
}

// SourceLocation is the result of a cache lookup.
type SourceLocation struct {
	File   string
	Line   uint32
	Column uint32
	// Hidden is set when Line equals the 0xFEEFEE sentinel some external
	// PDB writers use to mark IL with no source mapping.
	Hidden bool
}

// MethodToken mirrors ppdb's 32-bit MetadataToken convention: the MethodDef
// table tag in the high byte, a 1-based row index in the low three bytes.
func MethodToken(methodDefRow uint32) uint32 {
	return (uint32(ppdb.MethodDefTableTag) << 24) | methodDefRow
}
