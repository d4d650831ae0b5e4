// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package ppdb parses Microsoft Portable PDB files: the ECMA-335 metadata
// stream layout specialized with the debug tables (Document,
// MethodDebugInformation, LocalScope, LocalVariable, LocalConstant,
// ImportScope, CustomDebugInformation) and their sequence-points blob
// encoding.
package ppdb

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/saferwall/ppdb/log"
)

// MaxDefaultSequencePointsPerMethod bounds how many sequence-point records a
// single method's blob may decode to before SequencePoints gives up and
// returns ErrBadSequencePoints, guarding against a malformed blob encoding a
// never-ending record stream.
const MaxDefaultSequencePointsPerMethod = 1 << 16

// PPDBFile is a borrowed, read-only view over a byte buffer holding a
// standalone Portable PDB. It owns nothing but the indices and column-width
// tables derived from the metadata root; it stays valid only as long as its
// backing buffer does.
type PPDBFile struct {
	Header MetadataHeader

	streams map[string]streamRange

	pdbID           [20]byte
	entryPointToken uint32
	// externalRowCounts holds the row counts of the tables of the main
	// assembly this PDB debugs, as declared by the #Pdb stream. They size
	// coded- and simple table-indices that may point at the main assembly
	// (LocalScope.Method, CustomDebugInformation.Parent) -- those tables
	// never have rows of their own in this file.
	externalRowCounts [64]uint32

	tableHeader tableStreamHeader
	rowCounts   [64]uint32
	rowSizes    [64]uint32
	baseOffsets [64]uint32

	stringIndexSize uint32
	guidIndexSize   uint32
	blobIndexSize   uint32

	stringHeap streamRange
	usHeap     streamRange
	guidHeap   streamRange
	blobHeap   streamRange

	documents        []Document
	methodDebugInfos []MethodDebugInformation
	localScopes      []LocalScope
	localVariables   []LocalVariable
	localConstants   []LocalConstant
	importScopes     []ImportScope
	customDebugInfos []CustomDebugInformation

	data []byte
	size uint32
	mm   mmap.MMap
	f    *os.File

	opts   *Options
	logger *log.Helper
}

// streamRange is a byte range within the backing buffer, file-relative to
// the start of the metadata root.
type streamRange struct {
	Offset uint32
	Size   uint32
}

// Options configures parsing. It mirrors Fast/Logger from a typical
// memory-mapped binary-format parser's options, plus a defensive ceiling
// against runaway sequence-points blobs.
type Options struct {
	// Fast parses only the stream layout and the #Pdb stream (C1),
	// skipping the #~ table stream entirely. By default (false) all PDB
	// tables are decoded eagerly.
	Fast bool

	// MaxSequencePointsPerMethod caps how many records SequencePoints will
	// decode for a single method; by default MaxDefaultSequencePointsPerMethod.
	MaxSequencePointsPerMethod uint32

	// Logger is a custom logger; by default a stderr logger filtered to
	// LevelError.
	Logger log.Logger
}

// New instantiates a PPDBFile by memory-mapping the named file.
func New(name string, opts *Options) (*PPDBFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	p := newPPDBFile(opts)
	p.data = data
	p.size = uint32(len(data))
	p.mm = data
	p.f = f
	return p, nil
}

// NewBytes instantiates a PPDBFile over an in-memory buffer the caller
// continues to own; Close is then a no-op.
func NewBytes(data []byte, opts *Options) (*PPDBFile, error) {
	p := newPPDBFile(opts)
	p.data = data
	p.size = uint32(len(data))
	return p, nil
}

func newPPDBFile(opts *Options) *PPDBFile {
	p := &PPDBFile{}
	if opts != nil {
		p.opts = opts
	} else {
		p.opts = &Options{}
	}
	if p.opts.MaxSequencePointsPerMethod == 0 {
		p.opts.MaxSequencePointsPerMethod = MaxDefaultSequencePointsPerMethod
	}

	var logger log.Logger
	if p.opts.Logger == nil {
		logger = log.NewStdLogger(os.Stderr)
		p.logger = log.NewHelper(log.NewFilter(logger, log.FilterLevel(log.LevelError)))
	} else {
		p.logger = log.NewHelper(p.opts.Logger)
	}

	p.streams = make(map[string]streamRange)
	return p
}

// Close releases the backing memory map, if any, and the underlying file
// handle.
func (p *PPDBFile) Close() error {
	if p.mm != nil {
		_ = p.mm.Unmap()
	}
	if p.f != nil {
		return p.f.Close()
	}
	return nil
}

// Parse validates the metadata root, locates the required streams, and
// decodes the PDB-specific metadata tables.
func (p *PPDBFile) Parse() error {
	if p.size < 16 {
		return offsetErrorf(ErrTruncated, 0)
	}

	next, err := p.parseMetadataHeader(0)
	if err != nil {
		return err
	}

	if err := p.parseStreamHeaders(next); err != nil {
		return err
	}

	pdbRange, ok := p.streams["#Pdb"]
	if !ok {
		return offsetErrorf(ErrMissingRequiredStream, 0)
	}
	tildeRange, ok := p.streams["#~"]
	if !ok {
		return offsetErrorf(ErrMissingRequiredStream, 0)
	}

	if err := p.parsePdbStream(pdbRange); err != nil {
		return err
	}

	if p.opts.Fast {
		return nil
	}

	return p.parseTableStream(tildeRange)
}
