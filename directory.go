package pereloc

import (
	"fmt"
	"github.com/davejbax/go-pereloc/internal/spec"
	"github.com/sirupsen/logrus"
	"iter"
	"math"
)

// Directory is a decoded base relocation directory: every block in the table, in on-disk order.
//
// DeclaredSize is the size given by the image's data directory. A successfully decoded Directory always satisfies
// Consumed() == DeclaredSize.
type Directory struct {
	Blocks       []*Block
	DeclaredSize uint32
}

// DecodeDirectory decodes the relocation directory occupying declaredSize bytes of buf from start onwards.
//
// Blocks are decoded one after the other until the declared size is used up. The blocks must cover the declared
// region exactly: if the final block runs past its end, or the bytes left over are too few to hold another block,
// decoding fails with [ErrSizeMismatch]. Nothing past the declared region is ever read. A declared size of zero gives
// an empty directory.
//
// If the declared region runs past the end of buf, blocks are still decoded up to the end of buf, and the first block
// that does not fit fails with [ErrTruncatedHeader] or [ErrTruncatedBlock]. A start outside buf, or a declared size
// above the limit set with [WithMaxDirectorySize], is rejected up front with [ErrDirectoryOutOfBounds].
func (d *Decoder) DecodeDirectory(buf []byte, start int, declaredSize uint32) (*Directory, error) {
	if start < 0 || start > len(buf) || uint64(start)+uint64(declaredSize) > math.MaxInt {
		return nil, newDecodeError(ErrDirectoryOutOfBounds, start)
	}

	if d.maxDirectorySize > 0 && declaredSize > d.maxDirectorySize {
		return nil, newDecodeError(ErrDirectoryOutOfBounds, start)
	}

	log := d.log.WithFields(logrus.Fields{
		"offset":        start,
		"declared_size": declaredSize,
	})

	end := start + int(declaredSize)

	// Limiting the buffer to the declared region means a block can never be decoded from bytes past its end
	region := buf[:min(end, len(buf))]

	directory := &Directory{
		Blocks:       make([]*Block, 0),
		DeclaredSize: declaredSize,
	}

	cursor := start
	for cursor < end {
		if end-cursor < spec.BlockHeaderSize {
			return nil, newSizeMismatchError(cursor, declaredSize, uint64(cursor-start))
		}

		header, err := readBlockHeader(region, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to decode block %d: %w", len(directory.Blocks), err)
		}

		if blockEnd := uint64(cursor) + uint64(header.BlockSize); blockEnd > uint64(end) {
			return nil, newSizeMismatchError(cursor, declaredSize, blockEnd-uint64(start))
		}

		block, next, err := d.decodeEntries(region, cursor, header)
		if err != nil {
			return nil, fmt.Errorf("failed to decode block %d: %w", len(directory.Blocks), err)
		}

		log.WithFields(logrus.Fields{
			"block":      len(directory.Blocks),
			"page_rva":   block.PageRVA,
			"block_size": block.Size,
			"entries":    len(block.Entries),
		}).Debug("decoded relocation block")

		directory.Blocks = append(directory.Blocks, block)
		cursor = next
	}

	log.WithField("blocks", len(directory.Blocks)).Debug("decoded relocation directory")

	return directory, nil
}

func newSizeMismatchError(offset int, declared uint32, consumed uint64) *DecodeError {
	err := newDecodeError(ErrSizeMismatch, offset)
	err.Declared = declared
	err.Consumed = uint32(min(consumed, math.MaxUint32))

	return err
}

// EntryCount returns the total number of entries across all blocks, padding entries included
func (d *Directory) EntryCount() int {
	count := 0
	for _, block := range d.Blocks {
		count += len(block.Entries)
	}

	return count
}

// Consumed returns the number of bytes covered by the directory's blocks
func (d *Directory) Consumed() uint32 {
	var consumed uint32
	for _, block := range d.Blocks {
		consumed += block.Size
	}

	return consumed
}

// Targets yields the relocation targets of every block in turn; see [Block.Targets]
func (d *Directory) Targets() iter.Seq[Target] {
	return func(yield func(Target) bool) {
		for _, block := range d.Blocks {
			for target := range block.Targets() {
				if !yield(target) {
					return
				}
			}
		}
	}
}
