// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/flate"
)

// embeddedSourceGUID is the CustomDebugInformation.Kind value identifying
// an embedded-source payload: {0E8A571B-6926-466E-B4AD-8AB04611F5FE} in
// .NET's mixed-endian GUID byte layout.
var embeddedSourceGUID = [16]byte{
	0x1B, 0x57, 0x8A, 0x0E,
	0x26, 0x69,
	0x6E, 0x46,
	0xB4, 0xAD, 0x8A, 0xB0, 0x46, 0x11, 0xF5, 0xFE,
}

// hasCustomDebugInfoDocumentTag is Document's tag value within the
// HasCustomDebugInformation coded index, i.e. its position in
// idxHasCustomDebugInformation.idx.
const hasCustomDebugInfoDocumentTag = 22

// EmbeddedSource locates and inflates the embedded source text for the
// given 1-based Document row, if one was embedded in this PDB. The second
// return value is false when no CustomDebugInformation row carries an
// EmbeddedSource payload for that document.
func (p *PPDBFile) EmbeddedSource(documentRow uint32) (string, bool, error) {
	if documentRow == 0 || documentRow > uint32(len(p.documents)) {
		return "", false, offsetErrorf(ErrOutOfBounds, documentRow)
	}

	tagbits := idxHasCustomDebugInformation.tagbits
	tagMask := uint32(1)<<tagbits - 1

	for _, row := range p.customDebugInfos {
		tag := row.Parent & tagMask
		idx := row.Parent >> tagbits
		if tag != hasCustomDebugInfoDocumentTag || idx != documentRow {
			continue
		}

		kind, err := p.GUIDAt(row.Kind)
		if err != nil {
			return "", false, err
		}
		if kind != embeddedSourceGUID {
			continue
		}

		text, err := p.decodeEmbeddedSource(row.Value)
		if err != nil {
			return "", false, err
		}
		return text, true, nil
	}

	return "", false, nil
}

// decodeEmbeddedSource decodes a CustomDebugInformation.Value blob holding
// an embedded-source payload: a 4-byte little-endian format integer (0 ==
// raw bytes follow; positive == uncompressed length, deflate-compressed
// payload follows), then the payload itself.
func (p *PPDBFile) decodeEmbeddedSource(blobIdx uint32) (string, error) {
	blob, err := p.BlobAt(blobIdx)
	if err != nil {
		return "", err
	}
	if len(blob) < 4 {
		return "", offsetErrorf(ErrBadEmbeddedSource, blobIdx)
	}

	format := int32(binary.LittleEndian.Uint32(blob[:4]))
	payload := blob[4:]

	var raw []byte
	switch {
	case format == 0:
		raw = payload
	case format > 0:
		r := flate.NewReader(bytes.NewReader(payload))
		defer r.Close()
		buf := make([]byte, format)
		n, err := io.ReadFull(r, buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return "", fmt.Errorf("%w: %v", ErrBadEmbeddedSource, err)
		}
		raw = buf[:n]
	default:
		return "", offsetErrorf(ErrBadEmbeddedSource, blobIdx)
	}

	if !utf8.Valid(raw) {
		return "", offsetErrorf(ErrBadEmbeddedSource, blobIdx)
	}

	// Defensive sniff, the same sniff-before-trust the icon decoder applies
	// to resource bytes: a mismatch is logged, not fatal, since source text
	// in unusual encodings or with shebangs can legitimately miss a
	// text/plain classification.
	if mt := mimetype.Detect(raw); !mt.Is("text/plain") {
		p.logger.Debugf("embedded source blob %#x sniffed as %s, not text/plain", blobIdx, mt.String())
	}

	return string(raw), nil
}
