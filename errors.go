// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package ppdb

import (
	"errors"
	"fmt"
)

// Sentinel errors for the PPDB parser. Each one corresponds to an Error Kind
// of the core: detection-site context (byte offset, record index, ...) is
// attached with fmt.Errorf("%w: ...", ErrX, ...) rather than by defining a
// new type per call site.
var (
	// ErrBadMagic is returned when the file does not begin with the BSJB
	// metadata root signature.
	ErrBadMagic = errors.New("ppdb: bad magic, not a Portable PDB")

	// ErrUnsupportedVersion is returned when the metadata root's major
	// version is not recognized.
	ErrUnsupportedVersion = errors.New("ppdb: unsupported metadata version")

	// ErrTruncated is returned when a read would run past the end of the
	// buffer.
	ErrTruncated = errors.New("ppdb: truncated data")

	// ErrInvalidStream is returned when a stream header's offset/size is
	// inconsistent with the buffer size.
	ErrInvalidStream = errors.New("ppdb: invalid stream")

	// ErrMissingRequiredStream is returned when the #~ or #Pdb stream is
	// absent.
	ErrMissingRequiredStream = errors.New("ppdb: missing required stream")

	// ErrOutOfBounds is returned when a heap or table index falls outside
	// its backing range.
	ErrOutOfBounds = errors.New("ppdb: index out of bounds")

	// ErrInvalidString is returned when a string heap entry (or a document
	// name part) is not valid UTF-8.
	ErrInvalidString = errors.New("ppdb: invalid string")

	// ErrBadBlob is returned when a compressed-integer length prefix is
	// malformed or its payload is truncated.
	ErrBadBlob = errors.New("ppdb: malformed blob")

	// ErrBadSequencePoints is returned when the sequence-points blob
	// decoder observes an invariant violation.
	ErrBadSequencePoints = errors.New("ppdb: malformed sequence points")

	// ErrBadEmbeddedSource is returned when the embedded-source deflate
	// stream or its UTF-8 decoding fails.
	ErrBadEmbeddedSource = errors.New("ppdb: malformed embedded source")

	// ErrInternal signals a writer invariant violation that should be
	// unreachable in a correct implementation.
	ErrInternal = errors.New("ppdb: internal invariant violated")
)

// offsetErrorf wraps a sentinel error with the byte offset where it was
// detected.
func offsetErrorf(err error, offset uint32) error {
	return fmt.Errorf("%w: at offset %#x", err, offset)
}
