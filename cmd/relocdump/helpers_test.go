package main

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
)

const (
	testSectionRVA    = 0x1000
	testSectionOffset = 0x200
)

// encodeBlock builds the on-disk bytes of a block holding the given raw entries
func encodeBlock(pageRVA uint32, entries ...uint16) []byte {
	block := binary.LittleEndian.AppendUint32(nil, pageRVA)
	block = binary.LittleEndian.AppendUint32(block, uint32(8+2*len(entries)))
	for _, entry := range entries {
		block = binary.LittleEndian.AppendUint16(block, entry)
	}

	return block
}

// writePE writes a minimal PE32+ image to a temporary file and returns its path. The image has a single .reloc
// section holding directoryBytes, which the base relocation data directory entry covers exactly.
func writePE(t *testing.T, directoryBytes []byte) string {
	var buff bytes.Buffer

	dosHeader := make([]byte, 0x40)
	copy(dosHeader, "MZ")
	binary.LittleEndian.PutUint32(dosHeader[0x3c:], 0x40)
	buff.Write(dosHeader)
	buff.WriteString("PE\x00\x00")

	optionalHeader := pe.OptionalHeader64{
		Magic:               0x20b,
		ImageBase:           0x140000000,
		SectionAlignment:    0x1000,
		FileAlignment:       0x200,
		SizeOfImage:         0x2000,
		SizeOfHeaders:       testSectionOffset,
		NumberOfRvaAndSizes: 16,
	}
	optionalHeader.DataDirectory[5] = pe.DataDirectory{VirtualAddress: testSectionRVA, Size: uint32(len(directoryBytes))}

	fileHeader := pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_AMD64,
		NumberOfSections:     1,
		SizeOfOptionalHeader: uint16(binary.Size(optionalHeader)),
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_LARGE_ADDRESS_AWARE,
	}

	sectionHeader := pe.SectionHeader32{
		VirtualSize:      uint32(len(directoryBytes)),
		VirtualAddress:   testSectionRVA,
		SizeOfRawData:    uint32(len(directoryBytes)),
		PointerToRawData: testSectionOffset,
		Characteristics:  pe.IMAGE_SCN_CNT_INITIALIZED_DATA | pe.IMAGE_SCN_MEM_READ | pe.IMAGE_SCN_MEM_DISCARDABLE,
	}
	copy(sectionHeader.Name[:], ".reloc")

	for _, header := range []any{fileHeader, optionalHeader, sectionHeader} {
		require.NoError(t, binary.Write(&buff, binary.LittleEndian, header), "Writing PE headers should not fail")
	}

	buff.Write(make([]byte, testSectionOffset-buff.Len()))
	buff.Write(directoryBytes)

	path := filepath.Join(t.TempDir(), "image.exe")
	require.NoError(t, os.WriteFile(path, buff.Bytes(), 0o644), "Writing the PE image should not fail")

	return path
}

// setFlags sets the command-line flags for the duration of the test
func setFlags(t *testing.T, lenientFlag bool, summaryFlag bool) {
	lenient, summary = lenientFlag, summaryFlag
	t.Cleanup(func() {
		lenient, summary = false, false
	})
}
