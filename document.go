// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdb

import (
	"strings"
	"unicode/utf8"
)

// DocumentInfo is the decoded, externally-consumable view of a Document
// row: a full source path plus its content hash and language identity.
type DocumentInfo struct {
	Path          string
	Hash          []byte
	HashAlgorithm [16]byte
	Language      [16]byte
}

// Documents returns every document this PDB describes, in Document table
// row order (row index + 1 == MethodDebugInformation.Document value).
func (p *PPDBFile) Documents() ([]DocumentInfo, error) {
	out := make([]DocumentInfo, 0, len(p.documents))
	for _, d := range p.documents {
		info, err := p.documentInfo(d)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func (p *PPDBFile) documentInfo(d Document) (DocumentInfo, error) {
	path, err := p.documentPath(d)
	if err != nil {
		return DocumentInfo{}, err
	}
	hash, err := p.BlobAt(d.Hash)
	if err != nil {
		return DocumentInfo{}, err
	}
	hashAlg, err := p.GUIDAt(d.HashAlgorithm)
	if err != nil {
		return DocumentInfo{}, err
	}
	lang, err := p.GUIDAt(d.Language)
	if err != nil {
		return DocumentInfo{}, err
	}
	return DocumentInfo{Path: path, Hash: hash, HashAlgorithm: hashAlg, Language: lang}, nil
}

// DocumentPath resolves a 1-based Document row index to its assembled
// path, as used by the cache writer to intern SequencePoint.Document values.
func (p *PPDBFile) DocumentPath(row uint32) (string, error) {
	return p.documentPathByRow(row)
}

// documentPathByRow resolves a 1-based Document row index to its assembled
// path, as used by MethodDebugInformation.Document and sequence-points
// document-change records.
func (p *PPDBFile) documentPathByRow(row uint32) (string, error) {
	if row == 0 || row > uint32(len(p.documents)) {
		return "", offsetErrorf(ErrOutOfBounds, row)
	}
	return p.documentPath(p.documents[row-1])
}

// documentPath assembles a Document row's name blob: a leading separator
// byte followed by a list of compressed-integer part-blob-indices, each
// resolved against #Blob and joined by the separator. A part index of 0
// denotes an empty path component (used to preserve a leading separator,
// e.g. the empty component before "/x/Foo.cs"'s first "/").
func (p *PPDBFile) documentPath(d Document) (string, error) {
	blob, err := p.BlobAt(d.Name)
	if err != nil {
		return "", err
	}
	if len(blob) == 0 {
		return "", nil
	}

	sep := blob[0]
	pos := uint32(1)
	var parts []string
	for pos < uint32(len(blob)) {
		idx, consumed, err := decodeCompressedUint(blob, pos)
		if err != nil {
			return "", err
		}
		pos += consumed

		if idx == 0 {
			parts = append(parts, "")
			continue
		}
		part, err := p.BlobAt(idx)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(part) {
			return "", offsetErrorf(ErrInvalidString, idx)
		}
		parts = append(parts, string(part))
	}

	if sep == 0 {
		return strings.Join(parts, ""), nil
	}
	return strings.Join(parts, string(rune(sep))), nil
}
