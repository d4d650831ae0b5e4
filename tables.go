// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdb

import "fmt"

// MethodDefTableTag is the high byte of a MetadataToken identifying the
// MethodDef table, per the ECMA-335 MetadataToken convention.
const MethodDefTableTag = 0x06

// Metadata table indices. The values are the real ECMA-335 bit positions
// (the high byte of a MetadataToken), so a table index doubles as the bit
// position to test against a MaskValid/referenced-type-systems mask. Only
// the handful of standard tables a PDB's own tables can point into are
// named here; the rest of the ECMA-335 table universe is never decoded by
// this package (see tables_pdb.go), only referenced for coded-index width
// sizing via externalRowCounts.
const (
	tableModule                 = 0
	tableTypeRef                = 1
	tableTypeDef                = 2
	tableField                  = 4
	tableMethodDef               = 6
	tableParam                  = 8
	tableInterfaceImpl          = 9
	tableMemberRef              = 10
	tableDeclSecurity           = 14
	tableStandAloneSig          = 17
	tableEvent                  = 20
	tableProperty               = 23
	tableModuleRef              = 26
	tableTypeSpec               = 27
	tableAssembly               = 32
	tableAssemblyRef            = 35
	tableFileMD                 = 38
	tableExportedType           = 39
	tableManifestResource       = 40
	tableGenericParam           = 42
	tableMethodSpec             = 43
	tableGenericParamConstraint = 44

	tableDocument               = 0x30
	tableMethodDebugInformation = 0x31
	tableLocalScope             = 0x32
	tableLocalVariable          = 0x33
	tableLocalConstant          = 0x34
	tableImportScope            = 0x35
	tableStateMachineMethod     = 0x36
	tableCustomDebugInformation = 0x37
)

// tableStreamHeader is the #~ stream header.
type tableStreamHeader struct {
	Reserved     uint32
	MajorVersion uint8
	MinorVersion uint8
	HeapSizes    uint8
	Reserved2    uint8
	Valid        uint64
	Sorted       uint64
}

const tableStreamHeaderSize = 24

// parsePdbStream decodes the #Pdb stream: a 20-byte PDB id, the entry-point
// MetadataToken, and the row counts of every referenced main-assembly
// table, keyed by table bit position.
func (p *PPDBFile) parsePdbStream(r streamRange) error {
	if r.Size < 32 {
		return offsetErrorf(ErrTruncated, r.Offset)
	}
	id, err := p.ReadBytesAtOffset(r.Offset, 20)
	if err != nil {
		return err
	}
	copy(p.pdbID[:], id)

	if p.entryPointToken, err = p.ReadUint32(r.Offset + 20); err != nil {
		return err
	}

	mask, err := p.ReadUint64(r.Offset + 24)
	if err != nil {
		return err
	}

	offset := r.Offset + 32
	for i := 0; i < 64; i++ {
		if !IsBitSet(mask, i) {
			continue
		}
		rc, err := p.ReadUint32(offset)
		if err != nil {
			return err
		}
		p.externalRowCounts[i] = rc
		offset += 4
	}
	return nil
}

// tableRowCount returns the row count of table i, preferring a row count
// decoded from this file's own #~ stream and falling back to the
// externally-referenced row count from the #Pdb stream.
func (p *PPDBFile) tableRowCount(i int) uint32 {
	if rc := p.rowCounts[i]; rc != 0 {
		return rc
	}
	return p.externalRowCounts[i]
}

// simpleIndexWidth is the width, in bytes, of a plain table-index column
// referencing a table with the given row count.
func simpleIndexWidth(rowCount uint32) uint32 {
	if rowCount > 0xFFFF {
		return 4
	}
	return 2
}

// parseTableStream decodes the #~ stream header, the per-table row counts,
// and every PDB-specific table's rows.
func (p *PPDBFile) parseTableStream(r streamRange) error {
	if r.Size < tableStreamHeaderSize {
		return offsetErrorf(ErrTruncated, r.Offset)
	}

	var err error
	if p.tableHeader.Reserved, err = p.ReadUint32(r.Offset); err != nil {
		return err
	}
	if p.tableHeader.MajorVersion, err = p.ReadUint8(r.Offset + 4); err != nil {
		return err
	}
	if p.tableHeader.MinorVersion, err = p.ReadUint8(r.Offset + 5); err != nil {
		return err
	}
	if p.tableHeader.HeapSizes, err = p.ReadUint8(r.Offset + 6); err != nil {
		return err
	}
	if p.tableHeader.Reserved2, err = p.ReadUint8(r.Offset + 7); err != nil {
		return err
	}
	if p.tableHeader.Valid, err = p.ReadUint64(r.Offset + 8); err != nil {
		return err
	}
	if p.tableHeader.Sorted, err = p.ReadUint64(r.Offset + 16); err != nil {
		return err
	}

	if p.tableHeader.HeapSizes&0x01 != 0 {
		p.stringIndexSize = 4
	} else {
		p.stringIndexSize = 2
	}
	if p.tableHeader.HeapSizes&0x02 != 0 {
		p.guidIndexSize = 4
	} else {
		p.guidIndexSize = 2
	}
	if p.tableHeader.HeapSizes&0x04 != 0 {
		p.blobIndexSize = 4
	} else {
		p.blobIndexSize = 2
	}

	offset := r.Offset + tableStreamHeaderSize
	for i := 0; i < 64; i++ {
		if !IsBitSet(p.tableHeader.Valid, i) {
			continue
		}
		rc, err := p.ReadUint32(offset)
		if err != nil {
			return err
		}
		p.rowCounts[i] = rc
		offset += 4
	}

	for i := 0; i < 64; i++ {
		if !IsBitSet(p.tableHeader.Valid, i) {
			continue
		}
		rc := p.rowCounts[i]
		rowSize, err := p.tableRowSize(i)
		if err != nil {
			return err
		}
		p.baseOffsets[i] = offset
		p.rowSizes[i] = rowSize

		total := rc * rowSize
		if offset+total > r.Offset+r.Size || offset+total < offset {
			return offsetErrorf(ErrInvalidStream, offset)
		}

		switch i {
		case tableDocument:
			p.documents, err = p.parseDocumentTable(offset, rc, rowSize)
		case tableMethodDebugInformation:
			p.methodDebugInfos, err = p.parseMethodDebugInformationTable(offset, rc, rowSize)
		case tableLocalScope:
			p.localScopes, err = p.parseLocalScopeTable(offset, rc, rowSize)
		case tableLocalVariable:
			p.localVariables, err = p.parseLocalVariableTable(offset, rc, rowSize)
		case tableLocalConstant:
			p.localConstants, err = p.parseLocalConstantTable(offset, rc, rowSize)
		case tableImportScope:
			p.importScopes, err = p.parseImportScopeTable(offset, rc, rowSize)
		case tableCustomDebugInformation:
			p.customDebugInfos, err = p.parseCustomDebugInformationTable(offset, rc, rowSize)
		case tableStateMachineMethod:
			// Structurally validated above (offset/size bounds); its two
			// MethodDef-ref columns are never consulted by source lookups.
		}
		if err != nil {
			return err
		}

		offset += total
	}

	return nil
}

// tableRowSize computes the row size of table i by summing its column
// widths, which depend on the heap-index widths and on other tables' row
// counts.
func (p *PPDBFile) tableRowSize(i int) (uint32, error) {
	switch i {
	case tableDocument:
		return 2*p.blobIndexSize + 2*p.guidIndexSize, nil

	case tableMethodDebugInformation:
		docIdx := simpleIndexWidth(p.tableRowCount(tableDocument))
		return docIdx + p.blobIndexSize, nil

	case tableLocalScope:
		methodIdx := simpleIndexWidth(p.tableRowCount(tableMethodDef))
		importScopeIdx := simpleIndexWidth(p.tableRowCount(tableImportScope))
		localVarIdx := simpleIndexWidth(p.tableRowCount(tableLocalVariable))
		localConstIdx := simpleIndexWidth(p.tableRowCount(tableLocalConstant))
		return methodIdx + importScopeIdx + localVarIdx + localConstIdx + 4 + 4, nil

	case tableLocalVariable:
		return 2 + 2 + p.stringIndexSize, nil

	case tableLocalConstant:
		return p.stringIndexSize + p.blobIndexSize, nil

	case tableImportScope:
		importScopeIdx := simpleIndexWidth(p.tableRowCount(tableImportScope))
		return importScopeIdx + p.blobIndexSize, nil

	case tableStateMachineMethod:
		methodIdx := simpleIndexWidth(p.tableRowCount(tableMethodDef))
		return 2 * methodIdx, nil

	case tableCustomDebugInformation:
		parentIdx := p.codedIndexWidth(idxHasCustomDebugInformation)
		return parentIdx + p.guidIndexSize + p.blobIndexSize, nil

	default:
		return 0, fmt.Errorf("%w: unsupported metadata table %#x", ErrUnsupportedVersion, i)
	}
}
