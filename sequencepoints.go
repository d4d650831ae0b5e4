// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdb

import "fmt"

// SequencePoint maps an IL offset within a method body to a source span.
// Hidden points have all four line/column fields zeroed and exist only as
// sentinels marking IL with no meaningful source mapping.
type SequencePoint struct {
	ILOffset    uint32
	Document    uint32 // 1-based Document row index, effective at this point
	StartLine   uint32
	StartColumn uint16
	EndLine     uint32
	EndColumn   uint16
	IsHidden    bool
}

// MethodDebug is the MethodDebugInformation row for one MethodDef, the
// entry point for decoding its sequence points.
type MethodDebug struct {
	p   *PPDBFile
	row MethodDebugInformation
}

// MethodCount returns the number of rows in the MethodDebugInformation
// table, one per MethodDef row in the main assembly this PDB debugs.
func (p *PPDBFile) MethodCount() uint32 {
	return uint32(len(p.methodDebugInfos))
}

// MethodDebugInfo returns the MethodDebugInformation row for the given
// 1-based MethodDef row index (the two tables share row indices 1:1).
func (p *PPDBFile) MethodDebugInfo(methodRow uint32) (*MethodDebug, error) {
	if methodRow == 0 || methodRow > uint32(len(p.methodDebugInfos)) {
		return nil, offsetErrorf(ErrOutOfBounds, methodRow)
	}
	return &MethodDebug{p: p, row: p.methodDebugInfos[methodRow-1]}, nil
}

// SequencePoints decodes the method's sequence-points blob. A method with
// no sequence points (SequencePoints is the zero blob-index or points to an
// empty blob) returns a nil slice and no error.
func (m *MethodDebug) SequencePoints() ([]SequencePoint, error) {
	if m.row.SequencePoints == 0 {
		return nil, nil
	}
	blob, err := m.p.BlobAt(m.row.SequencePoints)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return nil, nil
	}
	return m.p.decodeSequencePoints(blob, m.row.Document)
}

// decodeSequencePoints decodes a method's sequence-points blob. rowDocument
// is the enclosing MethodDebugInformation row's Document column; 0 means
// the blob carries its own leading document record.
//
// On an invariant violation the already-decoded points are returned
// alongside a wrapped ErrBadSequencePoints naming the offending record
// index; a single bad record aborts only this method's decode.
func (p *PPDBFile) decodeSequencePoints(blob []byte, rowDocument uint32) ([]SequencePoint, error) {
	pos := uint32(0)

	// header-LocalSignature: skipped beyond its width.
	_, consumed, err := decodeCompressedUint(blob, pos)
	if err != nil {
		return nil, err
	}
	pos += consumed

	currentDoc := rowDocument
	if rowDocument == 0 {
		docIdx, consumed, err := decodeCompressedUint(blob, pos)
		if err != nil {
			return nil, err
		}
		pos += consumed
		currentDoc = docIdx
	}

	var points []SequencePoint
	var prevStartLine uint32
	var prevStartColumn int32
	havePrevPoint := false

	var runningIL uint32
	haveEmitted := false
	seenFirstRecord := false

	maxPoints := p.opts.MaxSequencePointsPerMethod
	recordIndex := 0

	for pos < uint32(len(blob)) {
		recordIndex++
		if uint32(recordIndex) > maxPoints {
			return points, fmt.Errorf("%w: record %d exceeds the per-method limit", ErrBadSequencePoints, recordIndex)
		}

		delta, consumed, err := decodeCompressedUint(blob, pos)
		if err != nil {
			return points, err
		}
		pos += consumed

		if delta == 0 && seenFirstRecord {
			newDoc, consumed, err := decodeCompressedUint(blob, pos)
			if err != nil {
				return points, err
			}
			pos += consumed
			currentDoc = newDoc
			continue
		}

		if !seenFirstRecord {
			runningIL = delta
		} else {
			runningIL += delta
		}
		seenFirstRecord = true

		if haveEmitted && runningIL <= points[len(points)-1].ILOffset {
			return points, fmt.Errorf("%w: record %d: il_offset did not increase", ErrBadSequencePoints, recordIndex)
		}

		deltaLines, consumed, err := decodeCompressedUint(blob, pos)
		if err != nil {
			return points, err
		}
		pos += consumed

		var deltaColumns int32
		if deltaLines != 0 {
			dc, consumed, err := decodeCompressedUint(blob, pos)
			if err != nil {
				return points, err
			}
			pos += consumed
			deltaColumns = int32(dc)
		} else {
			raw, consumed, err := decodeCompressedUint(blob, pos)
			if err != nil {
				return points, err
			}
			pos += consumed
			deltaColumns = zigzagDecode(raw)
		}

		if deltaLines == 0 && deltaColumns == 0 {
			points = append(points, SequencePoint{ILOffset: runningIL, Document: currentDoc, IsHidden: true})
			haveEmitted = true
			continue
		}

		var startLine uint32
		var startColumn int32
		if !havePrevPoint {
			sl, consumed, err := decodeCompressedUint(blob, pos)
			if err != nil {
				return points, err
			}
			pos += consumed
			sc, consumed, err := decodeCompressedUint(blob, pos)
			if err != nil {
				return points, err
			}
			pos += consumed
			startLine = sl
			startColumn = int32(sc)
		} else {
			slRaw, consumed, err := decodeCompressedUint(blob, pos)
			if err != nil {
				return points, err
			}
			pos += consumed
			scRaw, consumed, err := decodeCompressedUint(blob, pos)
			if err != nil {
				return points, err
			}
			pos += consumed
			startLine = uint32(int64(prevStartLine) + int64(zigzagDecode(slRaw)))
			startColumn = prevStartColumn + zigzagDecode(scRaw)
		}
		havePrevPoint = true
		prevStartLine = startLine
		prevStartColumn = startColumn

		endLine := startLine + deltaLines
		endColumn := startColumn + deltaColumns

		if startLine < 1 || endLine < startLine || startColumn < 0 || endColumn < 0 {
			return points, fmt.Errorf("%w: record %d: invalid span", ErrBadSequencePoints, recordIndex)
		}

		points = append(points, SequencePoint{
			ILOffset:    runningIL,
			Document:    currentDoc,
			StartLine:   startLine,
			StartColumn: uint16(startColumn),
			EndLine:     endLine,
			EndColumn:   uint16(endColumn),
		})
		haveEmitted = true
	}

	return points, nil
}
