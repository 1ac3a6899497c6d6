package pereloc

import (
	"debug/pe"
	"errors"
	"fmt"
	"github.com/davejbax/go-pereloc/internal/spec"
)

var (
	// ErrNoDirectory indicates that an image has no base relocation directory, e.g. because relocations were stripped
	ErrNoDirectory = errors.New("image has no base relocation directory")

	// ErrUnmappedRVA indicates that no section of an image contains the base relocation directory's RVA
	ErrUnmappedRVA = errors.New("base relocation directory is not within any section")
)

// Location describes where an image's base relocation directory lives
type Location struct {
	// RVA and Size are the base relocation entry of the optional header's data directories
	RVA  uint32
	Size uint32

	// Section is the section containing the directory, and SectionOffset is the directory's offset from the start of
	// that section's raw data
	Section       *pe.Section
	SectionOffset int
}

// LocateDirectory finds the base relocation directory of f. It returns [ErrNoDirectory] if the image does not have
// one, and [ErrUnmappedRVA] if its RVA is not backed by the raw data of any section.
func LocateDirectory(f *pe.File) (Location, error) {
	var directories []pe.DataDirectory

	switch header := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		directories = header.DataDirectory[:min(header.NumberOfRvaAndSizes, uint32(len(header.DataDirectory)))]
	case *pe.OptionalHeader64:
		directories = header.DataDirectory[:min(header.NumberOfRvaAndSizes, uint32(len(header.DataDirectory)))]
	default:
		// Object files have no optional header, and hence no data directories
		return Location{}, ErrNoDirectory
	}

	if len(directories) <= spec.DirectoryEntryBaseReloc {
		return Location{}, ErrNoDirectory
	}

	entry := directories[spec.DirectoryEntryBaseReloc]
	if entry.VirtualAddress == 0 || entry.Size == 0 {
		return Location{}, ErrNoDirectory
	}

	section, offset, err := sectionForRVA(f.Sections, entry.VirtualAddress)
	if err != nil {
		return Location{}, err
	}

	return Location{
		RVA:           entry.VirtualAddress,
		Size:          entry.Size,
		Section:       section,
		SectionOffset: offset,
	}, nil
}

// sectionForRVA finds the section whose raw data backs rva, returning it along with rva's offset into that data
func sectionForRVA(sections []*pe.Section, rva uint32) (*pe.Section, int, error) {
	for _, section := range sections {
		// Only the raw data is of any use to us: bytes past it are zero-filled by the loader and are not in the file
		if section.Size == 0 {
			continue
		}

		if rva >= section.VirtualAddress && uint64(rva) < uint64(section.VirtualAddress)+uint64(section.Size) {
			return section, int(rva - section.VirtualAddress), nil
		}
	}

	return nil, 0, fmt.Errorf("RVA %#x: %w", rva, ErrUnmappedRVA)
}

// ReadDirectory locates and decodes the base relocation directory of f. An image without a base relocation directory
// gives an empty [Directory] rather than an error.
func (d *Decoder) ReadDirectory(f *pe.File) (*Directory, error) {
	location, err := LocateDirectory(f)
	if errors.Is(err, ErrNoDirectory) {
		return &Directory{Blocks: make([]*Block, 0)}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to locate base relocation directory: %w", err)
	}

	data, err := location.Section.Data()
	if err != nil {
		return nil, fmt.Errorf("failed to read section %s: %w", location.Section.Name, err)
	}

	directory, err := d.DecodeDirectory(data, location.SectionOffset, location.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base relocation directory in section %s: %w", location.Section.Name, err)
	}

	return directory, nil
}
