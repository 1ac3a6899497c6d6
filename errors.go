package pereloc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTruncatedHeader indicates that a block header would extend past the end of the buffer
	ErrTruncatedHeader = errors.New("block header is truncated")

	// ErrInvalidBlockSize indicates that a block declares a size too small to hold its own header
	ErrInvalidBlockSize = errors.New("block size is smaller than the block header")

	// ErrMisalignedEntries indicates that the space after a block header is not a whole number of 16-bit entries
	ErrMisalignedEntries = errors.New("block entries are not 16-bit aligned")

	// ErrTruncatedBlock indicates that a block's declared size extends past the end of the buffer
	ErrTruncatedBlock = errors.New("block is truncated")

	// ErrSizeMismatch indicates that the blocks of a directory do not add up to exactly the directory's declared size
	ErrSizeMismatch = errors.New("relocation blocks do not match the declared directory size")

	// ErrUnknownRelocationType indicates that an entry's type code is not one of the known [RelocationType]-s
	ErrUnknownRelocationType = errors.New("unknown relocation type")

	// ErrDirectoryOutOfBounds indicates that a directory starts outside the buffer, or declares more than the limit set
	// with [WithMaxDirectorySize]
	ErrDirectoryOutOfBounds = errors.New("relocation directory is out of bounds")

	// ErrModeUnset indicates that a [Decoder] was requested without choosing between [ModeStrict] and [ModeLenient]
	ErrModeUnset = errors.New("decoder mode must be set to strict or lenient")
)

// DecodeError describes a structural violation found while decoding a relocation directory. Err is always one of the
// package's sentinel errors, so callers can match with [errors.Is] and inspect the details with [errors.As].
type DecodeError struct {
	// Err is the sentinel error describing the kind of violation
	Err error

	// Offset is the byte offset within the decoded buffer at which the violation was detected, or -1 when the value
	// was decoded on its own rather than from a buffer
	Offset int

	// Index is the position of the offending entry within its block, or -1 if the violation is not about an entry
	Index int

	// Ordinal is the raw type code of the offending entry; only meaningful for [ErrUnknownRelocationType]
	Ordinal uint8

	// Declared and Consumed are the declared directory size and the number of bytes the blocks actually covered; only
	// meaningful for [ErrSizeMismatch]
	Declared uint32
	Consumed uint32
}

func (e *DecodeError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Err.Error())
	if e.Offset >= 0 {
		fmt.Fprintf(&sb, " at offset %#x", e.Offset)
	}

	switch {
	case errors.Is(e.Err, ErrUnknownRelocationType) && e.Index >= 0:
		fmt.Fprintf(&sb, " (entry %d, type %d)", e.Index, e.Ordinal)
	case errors.Is(e.Err, ErrUnknownRelocationType):
		fmt.Fprintf(&sb, " (type %d)", e.Ordinal)
	case errors.Is(e.Err, ErrSizeMismatch):
		fmt.Fprintf(&sb, " (declared %d bytes, consumed %d bytes)", e.Declared, e.Consumed)
	}

	return sb.String()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newDecodeError(err error, offset int) *DecodeError {
	return &DecodeError{Err: err, Offset: offset, Index: -1}
}

func newUnknownTypeError(ordinal uint8) *DecodeError {
	return &DecodeError{Err: ErrUnknownRelocationType, Offset: -1, Index: -1, Ordinal: ordinal}
}
