package main

import (
	"fmt"
	"github.com/davejbax/go-pereloc"
	"io"
	"slices"
)

// writeDirectory prints every block header followed by its entries. The value column is always zero, as we never
// resolve the bytes being relocated.
func writeDirectory(w io.Writer, directory *pereloc.Directory) error {
	for _, block := range directory.Blocks {
		if _, err := fmt.Fprintf(w, "%X RVA, %8X SizeOfBlock\n", block.PageRVA, block.Size); err != nil {
			return fmt.Errorf("failed to write block header: %w", err)
		}

		for _, entry := range block.Entries {
			if _, err := fmt.Fprintf(w, " %3X  %-17s  %08X\n", entry.Offset, entry.Type, 0); err != nil {
				return fmt.Errorf("failed to write entry: %w", err)
			}
		}
	}

	return nil
}

// writeSummary prints the number of entries of each relocation type, in type order
func writeSummary(w io.Writer, directory *pereloc.Directory) error {
	counts := make(map[pereloc.RelocationType]int)
	for _, block := range directory.Blocks {
		for _, entry := range block.Entries {
			counts[entry.Type]++
		}
	}

	types := make([]pereloc.RelocationType, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	slices.Sort(types)

	if _, err := fmt.Fprintf(w, "%d blocks, %d entries, %d bytes\n", len(directory.Blocks), directory.EntryCount(), directory.Consumed()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	for _, t := range types {
		if _, err := fmt.Fprintf(w, " %-17s  %d\n", t, counts[t]); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	return nil
}
