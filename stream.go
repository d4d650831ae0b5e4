// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdb

// metadataRootSignature is the storage signature ("BSJB" read as
// characters) every Portable PDB begins with.
const metadataRootSignature = 0x424A5342

// MetadataHeader is the storage signature and storage header at the start
// of the metadata root.
type MetadataHeader struct {
	// Signature must be metadataRootSignature.
	Signature uint32

	// MajorVersion of the metadata root format.
	MajorVersion uint16

	// MinorVersion of the metadata root format.
	MinorVersion uint16

	// ExtraData is reserved; set to 0.
	ExtraData uint32

	// VersionStringLength is the length of Version, before 4-byte padding.
	VersionStringLength uint32

	// Version is the runtime version string (e.g. "PDB v1.0").
	Version string

	// Flags is reserved; set to 0.
	Flags uint8

	// Streams is the number of stream headers that follow.
	Streams uint16
}

// parseMetadataHeader decodes the metadata root at offset and returns the
// file offset immediately following it, where the stream headers begin.
func (p *PPDBFile) parseMetadataHeader(offset uint32) (uint32, error) {
	var err error
	mh := MetadataHeader{}

	if mh.Signature, err = p.ReadUint32(offset); err != nil {
		return 0, err
	}
	if mh.Signature != metadataRootSignature {
		return 0, offsetErrorf(ErrBadMagic, offset)
	}
	if mh.MajorVersion, err = p.ReadUint16(offset + 4); err != nil {
		return 0, err
	}
	if mh.MajorVersion != 1 {
		return 0, offsetErrorf(ErrUnsupportedVersion, offset+4)
	}
	if mh.MinorVersion, err = p.ReadUint16(offset + 6); err != nil {
		return 0, err
	}
	if mh.ExtraData, err = p.ReadUint32(offset + 8); err != nil {
		return 0, err
	}
	if mh.VersionStringLength, err = p.ReadUint32(offset + 12); err != nil {
		return 0, err
	}

	mh.Version, err = p.getStringAtOffset(offset+16, mh.VersionStringLength)
	if err != nil {
		return 0, err
	}

	next := offset + 16 + mh.VersionStringLength
	if mh.Flags, err = p.ReadUint8(next); err != nil {
		return 0, err
	}
	if mh.Streams, err = p.ReadUint16(next + 2); err != nil {
		return 0, err
	}

	p.Header = mh
	return next + 4, nil
}

// parseStreamHeaders walks the stream header array starting at offset,
// recording the byte range of every stream under its name. Streams with
// unknown names are kept in the map but otherwise ignored, not rejected.
func (p *PPDBFile) parseStreamHeaders(offset uint32) error {
	for i := uint16(0); i < p.Header.Streams; i++ {
		var rangeOffset, rangeSize uint32
		var err error
		if rangeOffset, err = p.ReadUint32(offset); err != nil {
			return err
		}
		if rangeSize, err = p.ReadUint32(offset + 4); err != nil {
			return err
		}
		offset += 8

		var name []byte
		for j := uint32(0); ; j++ {
			c, err := p.ReadUint8(offset)
			if err != nil {
				return err
			}
			offset++
			if c == 0 {
				// Consume padding up to the next 4-byte boundary.
				for offset%4 != 0 {
					offset++
				}
				break
			}
			name = append(name, c)
			if j > 255 {
				return offsetErrorf(ErrTruncated, offset)
			}
		}

		if rangeOffset > p.size || rangeOffset+rangeSize > p.size || rangeOffset+rangeSize < rangeOffset {
			return offsetErrorf(ErrInvalidStream, rangeOffset)
		}

		p.streams[string(name)] = streamRange{Offset: rangeOffset, Size: rangeSize}
	}

	if sr, ok := p.streams["#Strings"]; ok {
		p.stringHeap = sr
	}
	if sr, ok := p.streams["#US"]; ok {
		p.usHeap = sr
	}
	if sr, ok := p.streams["#GUID"]; ok {
		p.guidHeap = sr
	}
	if sr, ok := p.streams["#Blob"]; ok {
		p.blobHeap = sr
	}

	return nil
}
