// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdb

// codedidx describes a coded-index column: tagbits low bits of the encoded
// value select among idx's target tables, the remaining bits are the
// 1-based row index into whichever table the tag selects.
type codedidx struct {
	tagbits uint32
	idx     []int
}

// idxHasCustomDebugInformation is the CustomDebugInformation.Parent coded
// index. Its target list spans both the referenced main-assembly tables
// (whose row counts come from the #Pdb stream) and this file's own
// Document/LocalScope/LocalVariable/LocalConstant/ImportScope tables, since
// a CustomDebugInformation row may annotate any of those.
var idxHasCustomDebugInformation = codedidx{
	tagbits: 5,
	idx: []int{
		tableMethodDef, tableField, tableTypeRef, tableTypeDef, tableParam,
		tableInterfaceImpl, tableMemberRef, tableModule, tableDeclSecurity,
		tableProperty, tableEvent, tableStandAloneSig, tableModuleRef,
		tableTypeSpec, tableAssembly, tableAssemblyRef, tableFileMD,
		tableExportedType, tableManifestResource, tableGenericParam,
		tableGenericParamConstraint, tableMethodSpec,
		tableDocument, tableLocalScope, tableLocalVariable,
		tableLocalConstant, tableImportScope,
	},
}

// codedIndexWidth is 2 bytes if every potentially-referenced table has at
// most (2^16 - 1) >> tagbits rows, else 4.
func (p *PPDBFile) codedIndexWidth(c codedidx) uint32 {
	threshold := uint32(0xFFFF) >> c.tagbits
	for _, t := range c.idx {
		if p.tableRowCount(t) > threshold {
			return 4
		}
	}
	return 2
}

// readCodedIndex reads a coded-index column of the given width at offset.
func (p *PPDBFile) readCodedIndex(c codedidx, offset uint32) (uint32, uint32, error) {
	width := p.codedIndexWidth(c)
	switch width {
	case 2:
		v, err := p.ReadUint16(offset)
		return uint32(v), width, err
	default:
		v, err := p.ReadUint32(offset)
		return v, width, err
	}
}
