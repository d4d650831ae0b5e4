// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdbcache

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/saferwall/ppdb"
)

// The builders below hand-assemble standalone Portable PDBs that exercise
// end-to-end cache construction: the metadata root, six streams (#Pdb, #~,
// #Strings, #US, #GUID, #Blob), one or more Document rows and a single
// MethodDebugInformation row.

func encCompressed(v uint32) []byte {
	switch {
	case v <= 0x7F:
		return []byte{byte(v)}
	case v <= 0x3FFF:
		return []byte{byte(0x80 | (v >> 8)), byte(v)}
	default:
		return []byte{byte(0xC0 | (v >> 24)), byte(v >> 16), byte(v >> 8), byte(v)}
	}
}

func zigzag(n int32) uint32 {
	return uint32((n << 1) ^ (n >> 31))
}

func paddedName(name string) []byte {
	b := append([]byte(name), 0x00)
	for len(b)%4 != 0 {
		b = append(b, 0x00)
	}
	return b
}

func u16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// buildPDB assembles a standalone Portable PDB with one Document row per
// docNames entry and a single MethodDebugInformation row (Document =
// mdiDocument, SequencePoints = spBody).
func buildPDB(docNames []string, mdiDocument uint32, spBody []byte) []byte {
	// #Blob heap.
	blob := []byte{0x00} // reserved: offset 0 means "absent"/empty
	addBlob := func(payload []byte) uint32 {
		off := uint32(len(blob))
		blob = append(blob, encCompressed(uint32(len(payload)))...)
		blob = append(blob, payload...)
		return off
	}

	docNameIdxs := make([]uint32, len(docNames))
	for i, name := range docNames {
		literalIdx := addBlob([]byte(name))
		docNamePayload := append([]byte{0x00}, encCompressed(literalIdx)...)
		docNameIdxs[i] = addBlob(docNamePayload)
	}

	spIdx := addBlob(spBody)

	strings_ := []byte{0x00}
	us := []byte{0x00}
	guid := make([]byte, 32)

	// #~ table stream: one Document row per docNames entry, in order.
	var docRows []byte
	for _, idx := range docNameIdxs {
		row := append(u16(uint16(idx)), u16(0)...) // Name, HashAlgorithm
		row = append(row, u16(0)...)                // Hash
		row = append(row, u16(0)...)                // Language
		docRows = append(docRows, row...)
	}

	mdiRow := append(u16(uint16(mdiDocument)), u16(uint16(spIdx))...)

	const tableDocumentBit = 0x30
	const tableMethodDebugInformationBit = 0x31
	valid := uint64(1)<<tableDocumentBit | uint64(1)<<tableMethodDebugInformationBit

	tilde := append([]byte{}, u32(0)...) // Reserved
	tilde = append(tilde, 1, 0, 0, 0)    // MajorVersion, MinorVersion, HeapSizes, Reserved2
	tilde = append(tilde, u64(valid)...) // Valid
	tilde = append(tilde, u64(0)...)     // Sorted
	tilde = append(tilde, u32(uint32(len(docNames)))...) // Document row count
	tilde = append(tilde, u32(1)...)                     // MethodDebugInformation row count
	tilde = append(tilde, docRows...)
	tilde = append(tilde, mdiRow...)

	pdbStream := make([]byte, 32) // 20-byte id + 4-byte entry point + 8-byte zero mask

	// Stream header array (fixed size, independent of content placement).
	streamNames := []struct {
		name string
		size uint32
	}{
		{"#Pdb", uint32(len(pdbStream))},
		{"#~", uint32(len(tilde))},
		{"#Strings", uint32(len(strings_))},
		{"#US", uint32(len(us))},
		{"#GUID", uint32(len(guid))},
		{"#Blob", uint32(len(blob))},
	}

	headerArraySize := uint32(0)
	for _, s := range streamNames {
		headerArraySize += 8 + uint32(len(paddedName(s.name)))
	}

	const metadataRootSize = 32
	contentStart := uint32(metadataRootSize) + headerArraySize

	offsets := make([]uint32, len(streamNames))
	cursor := contentStart
	sections := [][]byte{pdbStream, tilde, strings_, us, guid, blob}
	for i, s := range sections {
		offsets[i] = cursor
		cursor += uint32(len(s))
	}

	var streamHeaders []byte
	for i, s := range streamNames {
		streamHeaders = append(streamHeaders, u32(offsets[i])...)
		streamHeaders = append(streamHeaders, u32(s.size)...)
		streamHeaders = append(streamHeaders, paddedName(s.name)...)
	}

	version := paddedName("PDB v1.0") // "PDB v1.0\0" padded to a 4-byte boundary
	var root []byte
	root = append(root, byte(0x42), byte(0x53), byte(0x4A), byte(0x42)) // BSJB, little-endian
	root = append(root, u16(1)...)                                     // MajorVersion
	root = append(root, u16(0)...)                                     // MinorVersion
	root = append(root, u32(0)...)                                     // ExtraData
	root = append(root, u32(uint32(len(version)))...)
	root = append(root, version...)
	root = append(root, 0x00, 0x00) // Flags + 1-byte padding
	root = append(root, u16(uint16(len(streamNames)))...)

	var out []byte
	out = append(out, root...)
	out = append(out, streamHeaders...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

func u64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// buildScenarioPDB assembles the smallest standalone Portable PDB that
// exercises end-to-end cache construction, matching the scenario-table
// fixture: document "/x/Foo.cs", method token 0x06000001, sequence points
// [(il=0, line=10, col=9), (il=7, line=11, col=9)].
func buildScenarioPDB() []byte {
	spBody := []byte{
		0x00,                         // local signature
		0x00, 0x01, 0x00, 0x0A, 0x09, // point 1: il=0 (abs), 1 line, col-delta 0, start 10:9
	}
	// point 2: il=0+7=7, 1 line, col-delta 0 (plain), start line/col as
	// zigzag deltas from point 1's start (10,9) -> (11,9): +1, +0.
	spBody = append(spBody, 0x07, 0x01, 0x00, byte(zigzag(1)), byte(zigzag(0)))
	return buildPDB([]string{"/x/Foo.cs"}, 1, spBody)
}

// buildDocChangeScenarioPDB builds a two-document fixture ("/a.cs", "/b.cs")
// whose single method starts in document 1 and switches to document 2
// mid-method via a document-change record at il=10.
func buildDocChangeScenarioPDB() []byte {
	spBody := []byte{
		0x00, // local signature
		0x01, // leading document index: start in doc 1

		0x00, 0x01, 0x00, 0x0A, 0x09, // point 1: il=0, 1 line, col-delta 0, start 10:9
		0x00, 0x02, // document-change record: delta==0, new doc index 2

		0x0A, 0x01, 0x00, 0x00, 0x00, // point 2: il=0+10=10, same span, zero zigzag deltas
	}
	return buildPDB([]string{"/a.cs", "/b.cs"}, 0, spBody)
}

func openScenarioPDB(t *testing.T) *ppdb.PPDBFile {
	t.Helper()
	p, err := ppdb.NewBytes(buildScenarioPDB(), &ppdb.Options{})
	if err != nil {
		t.Fatalf("NewBytes failed: %v", err)
	}
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return p
}

func TestBuildAndLookupScenario(t *testing.T) {
	p := openScenarioPDB(t)

	buf, err := Build(p)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	c, err := ParseBytes(buf)
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}

	token := MethodToken(1)
	if token != 0x06000001 {
		t.Fatalf("MethodToken(1) = %#x, want 0x06000001", token)
	}

	tests := []struct {
		name   string
		token  uint32
		il     uint32
		wantOk bool
		line   uint32
		col    uint32
	}{
		{"scenario 1", token, 0, true, 10, 9},
		{"scenario 2", token, 5, true, 10, 9},
		{"scenario 3", token, 7, true, 11, 9},
		{"scenario 4", token, 999, true, 11, 9},
		{"scenario 5", 0x06000002, 0, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, ok := c.Lookup(tt.token, tt.il)
			if ok != tt.wantOk {
				t.Fatalf("Lookup() ok = %v, want %v", ok, tt.wantOk)
			}
			if !tt.wantOk {
				return
			}
			if loc.Line != tt.line || loc.Column != tt.col {
				t.Errorf("Lookup() = (line=%d, col=%d), want (line=%d, col=%d)", loc.Line, loc.Column, tt.line, tt.col)
			}
			if loc.File != "/x/Foo.cs" {
				t.Errorf("Lookup().File = %q, want %q", loc.File, "/x/Foo.cs")
			}
		})
	}
}

func TestLookupDocumentChange(t *testing.T) {
	p, err := ppdb.NewBytes(buildDocChangeScenarioPDB(), &ppdb.Options{})
	if err != nil {
		t.Fatalf("NewBytes failed: %v", err)
	}
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	buf, err := Build(p)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	c, err := ParseBytes(buf)
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}

	token := MethodToken(1)
	loc, ok := c.Lookup(token, 10)
	if !ok {
		t.Fatal("Lookup(token, 10) ok = false, want true")
	}
	if loc.File != "/b.cs" {
		t.Errorf("Lookup(token, 10).File = %q, want %q", loc.File, "/b.cs")
	}

	loc, ok = c.Lookup(token, 0)
	if !ok {
		t.Fatal("Lookup(token, 0) ok = false, want true")
	}
	if loc.File != "/a.cs" {
		t.Errorf("Lookup(token, 0).File = %q, want %q", loc.File, "/a.cs")
	}
}

func TestOpenBadMagic(t *testing.T) {
	data := make([]byte, 32)
	_, err := ParseBytes(data)
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("ParseBytes() error = %v, want ErrBadMagic", err)
	}
}

func TestParsePPDBBadMagic(t *testing.T) {
	// Scenario 6: a PPDB whose first 4 bytes are not the BSJB signature.
	p, err := ppdb.NewBytes(make([]byte, 32), &ppdb.Options{})
	if err != nil {
		t.Fatalf("NewBytes should not fail before Parse: %v", err)
	}
	if err := p.Parse(); !errors.Is(err, ppdb.ErrBadMagic) {
		t.Fatalf("Parse() error = %v, want ErrBadMagic", err)
	}
}
