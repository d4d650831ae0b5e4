// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdb

import "testing"

// blobBuilder assembles a #Blob heap by hand, returning the offset of each
// length-prefixed entry appended to it (the value BlobAt expects).
type blobBuilder struct {
	// buf starts with a single reserved 0x00 byte: blob offset/part-index 0
	// is never a real entry, it means "absent"/"empty component".
	buf []byte
}

func newBlobBuilder() *blobBuilder {
	return &blobBuilder{buf: []byte{0x00}}
}

func (b *blobBuilder) add(payload []byte) uint32 {
	off := uint32(len(b.buf))
	b.buf = append(b.buf, encodeCompressedUint(uint32(len(payload)))...)
	b.buf = append(b.buf, payload...)
	return off
}

func newDocumentPathFile(t *testing.T, sep byte, parts []string) (*PPDBFile, Document) {
	t.Helper()
	bb := newBlobBuilder()

	var nameBody []byte
	nameBody = append(nameBody, sep)
	for _, part := range parts {
		if part == "" {
			nameBody = append(nameBody, encodeCompressedUint(0)...)
			continue
		}
		idx := bb.add([]byte(part))
		nameBody = append(nameBody, encodeCompressedUint(idx)...)
	}
	nameOff := bb.add(nameBody)
	hashOff := bb.add(nil)

	p := newPPDBFile(nil)
	p.data = bb.buf
	p.size = uint32(len(bb.buf))
	p.blobHeap = streamRange{Offset: 0, Size: uint32(len(bb.buf))}

	return p, Document{Name: nameOff, Hash: hashOff}
}

func TestDocumentPathLiteral(t *testing.T) {
	p, d := newDocumentPathFile(t, 0, []string{"/x/Foo.cs"})
	got, err := p.documentPath(d)
	if err != nil {
		t.Fatalf("documentPath failed: %v", err)
	}
	if got != "/x/Foo.cs" {
		t.Errorf("documentPath() = %q, want %q", got, "/x/Foo.cs")
	}
}

func TestDocumentPathJoinedParts(t *testing.T) {
	p, d := newDocumentPathFile(t, '/', []string{"", "x", "Foo.cs"})
	got, err := p.documentPath(d)
	if err != nil {
		t.Fatalf("documentPath failed: %v", err)
	}
	if got != "/x/Foo.cs" {
		t.Errorf("documentPath() = %q, want %q", got, "/x/Foo.cs")
	}
}

func TestDocumentPathEmptyBlob(t *testing.T) {
	p := newPPDBFile(nil)
	p.data = []byte{0x00}
	p.size = 1
	p.blobHeap = streamRange{Offset: 0, Size: 1}

	got, err := p.documentPath(Document{Name: 0})
	if err != nil {
		t.Fatalf("documentPath failed: %v", err)
	}
	if got != "" {
		t.Errorf("documentPath() = %q, want empty string", got)
	}
}
