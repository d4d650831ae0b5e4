// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdb

// LocalScopes returns the LocalScope rows owned by the given MethodDef row,
// in table order.
func (p *PPDBFile) LocalScopes(methodRow uint32) []LocalScope {
	var out []LocalScope
	for _, s := range p.localScopes {
		if s.Method == methodRow {
			out = append(out, s)
		}
	}
	return out
}

// scopeVariableRange returns the half-open [start, end) row range of the
// LocalVariable table owned by the LocalScope row at index i (0-based),
// following the ECMA-335 run-to-the-next-row list-column convention: a
// scope's variables run from its VariableList column up to the next scope's
// VariableList column, or the end of the table for the last scope.
func (p *PPDBFile) scopeVariableRange(i int) (uint32, uint32) {
	start := p.localScopes[i].VariableList
	end := uint32(len(p.localVariables)) + 1
	if i+1 < len(p.localScopes) {
		end = p.localScopes[i+1].VariableList
	}
	return start, end
}

func (p *PPDBFile) scopeConstantRange(i int) (uint32, uint32) {
	start := p.localScopes[i].ConstantList
	end := uint32(len(p.localConstants)) + 1
	if i+1 < len(p.localScopes) {
		end = p.localScopes[i+1].ConstantList
	}
	return start, end
}

// LocalVariablesInScope returns the LocalVariable rows belonging to the
// LocalScope table row scopeRow (1-based).
func (p *PPDBFile) LocalVariablesInScope(scopeRow uint32) []LocalVariable {
	if scopeRow < 1 || int(scopeRow) > len(p.localScopes) {
		return nil
	}
	start, end := p.scopeVariableRange(int(scopeRow - 1))
	return p.sliceVariables(start, end)
}

func (p *PPDBFile) sliceVariables(start, end uint32) []LocalVariable {
	if start < 1 || start > end {
		return nil
	}
	lo := start - 1
	hi := end - 1
	if hi > uint32(len(p.localVariables)) {
		hi = uint32(len(p.localVariables))
	}
	if lo >= hi {
		return nil
	}
	return p.localVariables[lo:hi]
}

// LocalConstantsInScope returns the LocalConstant rows belonging to the
// LocalScope table row scopeRow (1-based).
func (p *PPDBFile) LocalConstantsInScope(scopeRow uint32) []LocalConstant {
	if scopeRow < 1 || int(scopeRow) > len(p.localScopes) {
		return nil
	}
	start, end := p.scopeConstantRange(int(scopeRow - 1))
	return p.sliceConstants(start, end)
}

func (p *PPDBFile) sliceConstants(start, end uint32) []LocalConstant {
	if start < 1 || start > end {
		return nil
	}
	lo := start - 1
	hi := end - 1
	if hi > uint32(len(p.localConstants)) {
		hi = uint32(len(p.localConstants))
	}
	if lo >= hi {
		return nil
	}
	return p.localConstants[lo:hi]
}

// ImportScopeRow returns the ImportScope table row at the given 1-based
// index.
func (p *PPDBFile) ImportScopeRow(row uint32) (ImportScope, bool) {
	if row < 1 || int(row) > len(p.importScopes) {
		return ImportScope{}, false
	}
	return p.importScopes[row-1], true
}
