package pereloc

import (
	"errors"
	"fmt"
	"github.com/davejbax/go-pereloc/internal/encode"
	"github.com/davejbax/go-pereloc/internal/spec"
	"github.com/itchio/headway/counter"
	"github.com/sirupsen/logrus"
	"io"
	"iter"
)

var errInconsistentBlockSize = errors.New("block size does not match its number of entries")

// Block is one base relocation block: the relocations to apply within a single 4 KiB page of the image.
//
// Size is the on-disk size of the block, including its 8-byte header. Entries are kept in on-disk order, padding
// entries included, so a decoded block always has (Size - 8) / 2 entries.
//
// Block implements [io.WriterTo], which reproduces the on-disk encoding exactly.
type Block struct {
	PageRVA uint32
	Size    uint32
	Entries []Entry
}

// Ensure Block implements [io.WriterTo]
var _ io.WriterTo = &Block{}

// Target is the location of a single relocation, as an RVA within the image
type Target struct {
	RVA  uint32
	Type RelocationType
}

// DecodeBlock decodes the block starting at offset within buf. It returns the block along with the offset at which
// the following block would start.
//
// The header must fit in buf ([ErrTruncatedHeader]), declare at least its own size ([ErrInvalidBlockSize]) and a
// whole number of entries ([ErrMisalignedEntries]), and the block must fit in buf ([ErrTruncatedBlock]). Entries with
// unknown types are handled according to the decoder's [Mode].
func (d *Decoder) DecodeBlock(buf []byte, offset int) (*Block, int, error) {
	header, err := readBlockHeader(buf, offset)
	if err != nil {
		return nil, 0, err
	}

	return d.decodeEntries(buf, offset, header)
}

// readBlockHeader reads and validates the header at offset, without looking at the entries that follow it
func readBlockHeader(buf []byte, offset int) (spec.BlockHeader, error) {
	if offset < 0 || offset > len(buf) || len(buf)-offset < spec.BlockHeaderSize {
		return spec.BlockHeader{}, newDecodeError(ErrTruncatedHeader, offset)
	}

	header, err := spec.ReadBlockHeader(buf[offset:])
	if err != nil {
		return spec.BlockHeader{}, fmt.Errorf("failed to read block header at offset %#x: %w", offset, err)
	}

	if header.BlockSize < spec.BlockHeaderSize {
		return spec.BlockHeader{}, newDecodeError(ErrInvalidBlockSize, offset)
	}

	if (header.BlockSize-spec.BlockHeaderSize)%spec.EntrySize != 0 {
		return spec.BlockHeader{}, newDecodeError(ErrMisalignedEntries, offset)
	}

	return header, nil
}

func (d *Decoder) decodeEntries(buf []byte, offset int, header spec.BlockHeader) (*Block, int, error) {
	// Compare in 64 bits: BlockSize comes straight from the file and may be anything up to 4 GiB
	if uint64(header.BlockSize) > uint64(len(buf)-offset) {
		return nil, 0, newDecodeError(ErrTruncatedBlock, offset)
	}

	next := offset + int(header.BlockSize)
	start := offset + spec.BlockHeaderSize
	count := int(header.BlockSize-spec.BlockHeaderSize) / spec.EntrySize

	words, err := encode.ReadEntries(buf[start:next], count)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read entries of block at offset %#x: %w", offset, err)
	}

	block := &Block{
		PageRVA: header.PageRVA,
		Size:    header.BlockSize,
		Entries: make([]Entry, count),
	}

	for i, raw := range words {
		entry, err := d.DecodeEntry(raw)
		if err != nil {
			return nil, 0, &DecodeError{
				Err:     ErrUnknownRelocationType,
				Offset:  start + i*spec.EntrySize,
				Index:   i,
				Ordinal: uint8(entry.Type),
			}
		}

		if !entry.Type.Known() {
			d.log.WithFields(logrus.Fields{
				"offset":   start + i*spec.EntrySize,
				"page_rva": header.PageRVA,
				"index":    i,
				"type":     uint8(entry.Type),
			}).Warn("keeping relocation entry with unknown type")
		}

		block.Entries[i] = entry
	}

	return block, next, nil
}

func (b *Block) WriteTo(w io.Writer) (int64, error) {
	if int64(b.Size) != int64(spec.BlockHeaderSize+len(b.Entries)*spec.EntrySize) {
		return 0, errInconsistentBlockSize
	}

	cw := counter.NewWriter(w)

	header := spec.BlockHeader{PageRVA: b.PageRVA, BlockSize: b.Size}
	if _, err := header.WriteTo(cw); err != nil {
		return cw.Count(), fmt.Errorf("failed to write block header: %w", err)
	}

	words := make([]uint16, len(b.Entries))
	for i, entry := range b.Entries {
		words[i] = entry.Raw()
	}

	entries := make([]byte, len(words)*spec.EntrySize)
	if _, err := encode.PutEntries(entries, words); err != nil {
		return cw.Count(), fmt.Errorf("failed to encode block entries: %w", err)
	}

	if _, err := cw.Write(entries); err != nil {
		return cw.Count(), fmt.Errorf("failed to write block entries: %w", err)
	}

	return cw.Count(), nil
}

// Targets yields the RVA of every relocation in the block, in on-disk order. Entries of type [TypeAbsolute] are
// skipped, as the loader does, which includes any padding entry.
func (b *Block) Targets() iter.Seq[Target] {
	return func(yield func(Target) bool) {
		for _, entry := range b.Entries {
			if entry.Type == TypeAbsolute {
				continue
			}

			if !yield(Target{RVA: b.PageRVA + uint32(entry.Offset), Type: entry.Type}) {
				return
			}
		}
	}
}
