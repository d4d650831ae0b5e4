// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdb

import (
	"errors"
	"testing"
)

func newTestFile() *PPDBFile {
	return newPPDBFile(nil)
}

func TestDecodeSequencePointsSingle(t *testing.T) {
	p := newTestFile()

	// local-signature placeholder, then one record:
	// il_offset=0, deltaLines=1, deltaColumns=5 (plain), startLine=10, startColumn=2 (plain, first point).
	blob := []byte{
		0x00,       // local signature
		0x00,       // il_offset (absolute, first record)
		0x01,       // deltaLines
		0x05,       // deltaColumns (plain, deltaLines != 0)
		0x0A,       // startLine
		0x02,       // startColumn
	}

	points, err := p.decodeSequencePoints(blob, 7)
	if err != nil {
		t.Fatalf("decodeSequencePoints failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("got %d points, want 1", len(points))
	}
	want := SequencePoint{
		ILOffset: 0, Document: 7, StartLine: 10, StartColumn: 2, EndLine: 11, EndColumn: 7,
	}
	if points[0] != want {
		t.Errorf("got %+v, want %+v", points[0], want)
	}
}

func TestDecodeSequencePointsHidden(t *testing.T) {
	p := newTestFile()

	blob := []byte{
		0x00, // local signature
		0x00, // il_offset
		0x00, // deltaLines == 0
		0x00, // deltaColumns (zigzag 0) -> hidden
	}

	points, err := p.decodeSequencePoints(blob, 1)
	if err != nil {
		t.Fatalf("decodeSequencePoints failed: %v", err)
	}
	if len(points) != 1 || !points[0].IsHidden {
		t.Fatalf("got %+v, want a single hidden point", points)
	}
}

func TestDecodeSequencePointsDocumentChange(t *testing.T) {
	p := newTestFile()

	// No enclosing document (rowDocument == 0): blob carries a leading
	// document index, then one point in doc 5, a document-change record
	// to doc 9, then one more point.
	blob := []byte{
		0x00, // local signature
		0x05, // leading document index

		0x00, 0x01, 0x00, 0x0A, 0x02, // point 1: il=0, 1 line, 0 col-delta (plain), start 10:2
		0x00, 0x09, // document-change record: delta==0, new doc index 9

		0x04, 0x01, 0x00, 0x00, 0x00, // point 2: il=4 (delta), same 1-line span, zero zigzag deltas from prev start
	}

	points, err := p.decodeSequencePoints(blob, 0)
	if err != nil {
		t.Fatalf("decodeSequencePoints failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2: %+v", len(points), points)
	}
	if points[0].Document != 5 {
		t.Errorf("point 0 document = %d, want 5", points[0].Document)
	}
	if points[1].Document != 9 {
		t.Errorf("point 1 document = %d, want 9", points[1].Document)
	}
	if points[1].ILOffset != 4 {
		t.Errorf("point 1 il_offset = %d, want 4", points[1].ILOffset)
	}
}

func TestDecodeSequencePointsMultiplePointsMonotonic(t *testing.T) {
	p := newTestFile()

	blob := []byte{
		0x00,                         // local signature
		0x05, 0x01, 0x00, 0x0A, 0x02, // point 1: il=5, start 10:2, span 1x0
		0x05, 0x01, 0x00, 0x00, 0x00, // point 2: il=5+5=10, same start (zigzag 0,0)
	}
	points, err := p.decodeSequencePoints(blob, 1)
	if err != nil {
		t.Fatalf("decodeSequencePoints failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].ILOffset != 5 || points[1].ILOffset != 10 {
		t.Errorf("il offsets = %d, %d, want 5, 10", points[0].ILOffset, points[1].ILOffset)
	}
}

func TestDecodeSequencePointsInvalidSpan(t *testing.T) {
	p := newTestFile()

	// startLine == 0 violates the "startLine < 1" invariant.
	blob := []byte{
		0x00,                         // local signature
		0x00, 0x01, 0x00, 0x00, 0x02, // point 1: il=0, 1 line, 0 col-delta, startLine=0 (invalid)
	}
	points, err := p.decodeSequencePoints(blob, 1)
	if err == nil {
		t.Fatal("expected an error for an invalid span")
	}
	if !errors.Is(err, ErrBadSequencePoints) {
		t.Errorf("got %v, want an ErrBadSequencePoints-wrapped error", err)
	}
	if len(points) != 0 {
		t.Errorf("got %d partial points, want 0", len(points))
	}
}

func TestDecodeSequencePointsTruncated(t *testing.T) {
	p := newTestFile()
	blob := []byte{0x00, 0x00, 0x01} // cut off mid-record
	_, err := p.decodeSequencePoints(blob, 1)
	if err == nil {
		t.Fatal("expected an error for a truncated blob")
	}
	if !errors.Is(err, ErrBadBlob) {
		t.Errorf("got %v, want an ErrBadBlob-wrapped error", err)
	}
}
