// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdb

// Document is a row of the Document table, identifying one source file.
type Document struct {
	// Name is the #Blob offset of the document-name blob (separator byte
	// followed by part-blob indices).
	Name uint32
	// HashAlgorithm is the #GUID index identifying the hash algorithm.
	HashAlgorithm uint32
	// Hash is the #Blob offset of the content hash.
	Hash uint32
	// Language is the #GUID index identifying the source language.
	Language uint32
}

// MethodDebugInformation is a row of the MethodDebugInformation table, one
// per MethodDef row (1:1, same row index).
type MethodDebugInformation struct {
	// Document is the Document table-index of the method's sole document,
	// or 0 if the sequence-points blob carries its own leading document
	// record (used when a method spans more than one document).
	Document uint32
	// SequencePoints is the #Blob offset of the sequence-points blob, or 0
	// if the method has none.
	SequencePoints uint32
}

// LocalScope is a row of the LocalScope table.
type LocalScope struct {
	Method       uint32
	ImportScope  uint32
	VariableList uint32
	ConstantList uint32
	StartOffset  uint32
	Length       uint32
}

// LocalVariable is a row of the LocalVariable table.
type LocalVariable struct {
	Attributes uint16
	Index      uint16
	Name       uint32
}

// LocalConstant is a row of the LocalConstant table.
type LocalConstant struct {
	Name      uint32
	Signature uint32
}

// ImportScope is a row of the ImportScope table.
type ImportScope struct {
	Parent  uint32
	Imports uint32
}

// CustomDebugInformation is a row of the CustomDebugInformation table.
type CustomDebugInformation struct {
	// Parent is the raw HasCustomDebugInformation coded-index value.
	Parent uint32
	// Kind is the #GUID index identifying what Value holds.
	Kind uint32
	// Value is the #Blob offset of the kind-specific payload.
	Value uint32
}

func (p *PPDBFile) readSimpleIndex(width, offset uint32) (uint32, error) {
	if width == 2 {
		v, err := p.ReadUint16(offset)
		return uint32(v), err
	}
	return p.ReadUint32(offset)
}

func (p *PPDBFile) parseDocumentTable(base, rowCount, rowSize uint32) ([]Document, error) {
	rows := make([]Document, rowCount)
	for i := uint32(0); i < rowCount; i++ {
		off := base + i*rowSize
		var err error
		row := Document{}
		if row.Name, err = p.readSimpleIndex(p.blobIndexSize, off); err != nil {
			return nil, err
		}
		off += p.blobIndexSize
		if row.HashAlgorithm, err = p.readSimpleIndex(p.guidIndexSize, off); err != nil {
			return nil, err
		}
		off += p.guidIndexSize
		if row.Hash, err = p.readSimpleIndex(p.blobIndexSize, off); err != nil {
			return nil, err
		}
		off += p.blobIndexSize
		if row.Language, err = p.readSimpleIndex(p.guidIndexSize, off); err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}

func (p *PPDBFile) parseMethodDebugInformationTable(base, rowCount, rowSize uint32) ([]MethodDebugInformation, error) {
	docIdxSize := simpleIndexWidth(p.tableRowCount(tableDocument))
	rows := make([]MethodDebugInformation, rowCount)
	for i := uint32(0); i < rowCount; i++ {
		off := base + i*rowSize
		var err error
		row := MethodDebugInformation{}
		if row.Document, err = p.readSimpleIndex(docIdxSize, off); err != nil {
			return nil, err
		}
		off += docIdxSize
		if row.SequencePoints, err = p.readSimpleIndex(p.blobIndexSize, off); err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}

func (p *PPDBFile) parseLocalScopeTable(base, rowCount, rowSize uint32) ([]LocalScope, error) {
	methodIdxSize := simpleIndexWidth(p.tableRowCount(tableMethodDef))
	importScopeIdxSize := simpleIndexWidth(p.tableRowCount(tableImportScope))
	localVarIdxSize := simpleIndexWidth(p.tableRowCount(tableLocalVariable))
	localConstIdxSize := simpleIndexWidth(p.tableRowCount(tableLocalConstant))

	rows := make([]LocalScope, rowCount)
	for i := uint32(0); i < rowCount; i++ {
		off := base + i*rowSize
		var err error
		row := LocalScope{}
		if row.Method, err = p.readSimpleIndex(methodIdxSize, off); err != nil {
			return nil, err
		}
		off += methodIdxSize
		if row.ImportScope, err = p.readSimpleIndex(importScopeIdxSize, off); err != nil {
			return nil, err
		}
		off += importScopeIdxSize
		if row.VariableList, err = p.readSimpleIndex(localVarIdxSize, off); err != nil {
			return nil, err
		}
		off += localVarIdxSize
		if row.ConstantList, err = p.readSimpleIndex(localConstIdxSize, off); err != nil {
			return nil, err
		}
		off += localConstIdxSize
		if row.StartOffset, err = p.ReadUint32(off); err != nil {
			return nil, err
		}
		off += 4
		if row.Length, err = p.ReadUint32(off); err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}

func (p *PPDBFile) parseLocalVariableTable(base, rowCount, rowSize uint32) ([]LocalVariable, error) {
	rows := make([]LocalVariable, rowCount)
	for i := uint32(0); i < rowCount; i++ {
		off := base + i*rowSize
		var err error
		row := LocalVariable{}
		if row.Attributes, err = p.ReadUint16(off); err != nil {
			return nil, err
		}
		off += 2
		if row.Index, err = p.ReadUint16(off); err != nil {
			return nil, err
		}
		off += 2
		if row.Name, err = p.readSimpleIndex(p.stringIndexSize, off); err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}

func (p *PPDBFile) parseLocalConstantTable(base, rowCount, rowSize uint32) ([]LocalConstant, error) {
	rows := make([]LocalConstant, rowCount)
	for i := uint32(0); i < rowCount; i++ {
		off := base + i*rowSize
		var err error
		row := LocalConstant{}
		if row.Name, err = p.readSimpleIndex(p.stringIndexSize, off); err != nil {
			return nil, err
		}
		off += p.stringIndexSize
		if row.Signature, err = p.readSimpleIndex(p.blobIndexSize, off); err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}

func (p *PPDBFile) parseImportScopeTable(base, rowCount, rowSize uint32) ([]ImportScope, error) {
	importScopeIdxSize := simpleIndexWidth(p.tableRowCount(tableImportScope))
	rows := make([]ImportScope, rowCount)
	for i := uint32(0); i < rowCount; i++ {
		off := base + i*rowSize
		var err error
		row := ImportScope{}
		if row.Parent, err = p.readSimpleIndex(importScopeIdxSize, off); err != nil {
			return nil, err
		}
		off += importScopeIdxSize
		if row.Imports, err = p.readSimpleIndex(p.blobIndexSize, off); err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}

func (p *PPDBFile) parseCustomDebugInformationTable(base, rowCount, rowSize uint32) ([]CustomDebugInformation, error) {
	rows := make([]CustomDebugInformation, rowCount)
	for i := uint32(0); i < rowCount; i++ {
		off := base + i*rowSize
		var err error
		var width uint32
		row := CustomDebugInformation{}
		if row.Parent, width, err = p.readCodedIndex(idxHasCustomDebugInformation, off); err != nil {
			return nil, err
		}
		off += width
		if row.Kind, err = p.readSimpleIndex(p.guidIndexSize, off); err != nil {
			return nil, err
		}
		off += p.guidIndexSize
		if row.Value, err = p.readSimpleIndex(p.blobIndexSize, off); err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}
