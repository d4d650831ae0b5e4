// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdb

import "unicode/utf8"

// StringAt returns the UTF-8 slice of the #Strings heap starting at off and
// running to the next NUL byte.
func (p *PPDBFile) StringAt(off uint32) (string, error) {
	h := p.stringHeap
	if off >= h.Size {
		return "", offsetErrorf(ErrOutOfBounds, off)
	}
	base := h.Offset + off
	b, err := p.ReadBytesAtOffset(base, h.Size-off)
	if err != nil {
		return "", err
	}
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	if n == len(b) {
		return "", offsetErrorf(ErrOutOfBounds, base)
	}
	if !utf8.Valid(b[:n]) {
		return "", offsetErrorf(ErrInvalidString, base)
	}
	return string(b[:n]), nil
}

// BlobAt decodes the compressed-integer length prefix at off within the
// #Blob heap and returns the following exact slice.
func (p *PPDBFile) BlobAt(off uint32) ([]byte, error) {
	h := p.blobHeap
	if off >= h.Size {
		return nil, offsetErrorf(ErrOutOfBounds, off)
	}
	base := h.Offset + off
	length, consumed, err := decodeCompressedUint(p.data, base)
	if err != nil {
		return nil, err
	}
	payloadOff := base + consumed
	if payloadOff+length > h.Offset+h.Size {
		return nil, offsetErrorf(ErrBadBlob, payloadOff)
	}
	return p.ReadBytesAtOffset(payloadOff, length)
}

// GUIDAt returns the 16-byte slot at the given 1-based index into the #GUID
// heap; index 0 denotes "absent" and returns the zero GUID.
func (p *PPDBFile) GUIDAt(index uint32) ([16]byte, error) {
	var g [16]byte
	if index == 0 {
		return g, nil
	}
	h := p.guidHeap
	off := h.Offset + (index-1)*16
	if (index-1)*16+16 > h.Size {
		return g, offsetErrorf(ErrOutOfBounds, off)
	}
	b, err := p.ReadBytesAtOffset(off, 16)
	if err != nil {
		return g, err
	}
	copy(g[:], b)
	return g, nil
}

// UserStringAt decodes the blob-prefixed UTF-16LE user string at off within
// the #US heap, dropping its trailing terminator byte.
func (p *PPDBFile) UserStringAt(off uint32) (string, error) {
	h := p.usHeap
	if off >= h.Size {
		return "", offsetErrorf(ErrOutOfBounds, off)
	}
	base := h.Offset + off
	length, consumed, err := decodeCompressedUint(p.data, base)
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	payloadOff := base + consumed
	if payloadOff+length > h.Offset+h.Size {
		return "", offsetErrorf(ErrOutOfBounds, payloadOff)
	}
	// The trailing byte is a terminator flag, not part of the UTF-16 text.
	textLen := length - 1
	b, err := p.ReadBytesAtOffset(payloadOff, textLen)
	if err != nil {
		return "", err
	}
	return decodeUTF16String(b)
}
