package encode

import (
	"encoding/binary"
	"errors"
	"github.com/davejbax/go-pereloc/internal/spec"
)

// ErrBufferTooSmall indicates that the given byte buffer cannot hold the requested number of entries
var ErrBufferTooSmall = errors.New("provided slice buffer is not big enough to hold all entries")

// PackEntry builds the on-disk 16-bit word of a base relocation entry from a type ordinal and an offset within the
// page. Only the low 4 bits of the ordinal and the low 12 bits of the offset are used.
func PackEntry(ordinal uint8, offset uint16) uint16 {
	// Layout is TTTT OOOO OOOO OOOO
	return uint16(ordinal&spec.EntryTypeMask)<<spec.EntryOffsetBits | offset&spec.EntryOffsetMask
}

// SplitEntry is the inverse of [PackEntry]: it returns the 4-bit type ordinal and 12-bit page offset held by raw
func SplitEntry(raw uint16) (ordinal uint8, offset uint16) {
	return uint8(raw >> spec.EntryOffsetBits), raw & spec.EntryOffsetMask
}

// ReadEntries decodes count consecutive little endian entry words from the start of b
func ReadEntries(b []byte, count int) ([]uint16, error) {
	if count < 0 || len(b)/spec.EntrySize < count {
		return nil, ErrBufferTooSmall
	}

	words := make([]uint16, count)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(b[i*spec.EntrySize:])
	}

	return words, nil
}

// PutEntries is the inverse of [ReadEntries]: it writes each word of entries into b in little endian order, returning
// the number of bytes written
func PutEntries(b []byte, entries []uint16) (int, error) {
	if len(b)/spec.EntrySize < len(entries) {
		return 0, ErrBufferTooSmall
	}

	for i, e := range entries {
		binary.LittleEndian.PutUint16(b[i*spec.EntrySize:], e)
	}

	return len(entries) * spec.EntrySize, nil
}
