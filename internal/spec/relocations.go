package spec

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/itchio/headway/counter"
	"github.com/lunixbochs/struc"
	"io"
)

// ErrShortHeader indicates that fewer than [BlockHeaderSize] bytes were available to read a [BlockHeader] from
var ErrShortHeader = errors.New("not enough bytes to hold a base relocation block header")

// DirectoryEntryBaseReloc is the index of the base relocation table within the optional header's data directories
//
// PE Format, "Optional Header Data Directories (Image Only)"
const DirectoryEntryBaseReloc = 5

// PageSize is the size of the page described by a single base relocation block. Every entry's offset is relative to
// the start of that page, which is why offsets fit in 12 bits.
//
// PE Format, "Base Relocation Block"
const PageSize = 0x1000

const (
	// BlockHeaderSize is the size of the fixed part of a base relocation block: the page RVA followed by the block
	// size, both 32-bit little endian
	BlockHeaderSize = 8

	// EntrySize is the size of a single type/offset entry following the block header
	EntrySize = 2
)

// The low 12 bits of an entry hold the offset into the page; the high 4 bits hold the relocation type.
//
// PE Format, "Base Relocation Block"
const (
	EntryOffsetBits = 12
	EntryOffsetMask = 1<<EntryOffsetBits - 1
	EntryTypeMask   = 0xF
)

// BlockHeader starts every base relocation block. BlockSize counts the header itself plus all of the entries that
// follow it, so the next block always starts BlockSize bytes after this header.
//
// BlockHeader can be encoded and decoded by the [struc] library.
//
// PE Format, "Base Relocation Block"
type BlockHeader struct {
	PageRVA   uint32 `struc:"uint32,little"`
	BlockSize uint32 `struc:"uint32,little"`
}

// Ensure BlockHeader implements [io.WriterTo]
var _ io.WriterTo = BlockHeader{}

// ReadBlockHeader decodes the [BlockHeader] found at the start of b. Any bytes after the first [BlockHeaderSize] are
// ignored.
func ReadBlockHeader(b []byte) (BlockHeader, error) {
	if len(b) < BlockHeaderSize {
		return BlockHeader{}, ErrShortHeader
	}

	var h BlockHeader
	if err := struc.Unpack(bytes.NewReader(b[:BlockHeaderSize]), &h); err != nil {
		return BlockHeader{}, fmt.Errorf("failed to unpack block header: %w", err)
	}

	return h, nil
}

func (h BlockHeader) WriteTo(w io.Writer) (int64, error) {
	cw := counter.NewWriter(w)
	if err := struc.Pack(cw, &h); err != nil {
		return cw.Count(), fmt.Errorf("failed to pack block header: %w", err)
	}

	return cw.Count(), nil
}
