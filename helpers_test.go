package pereloc_test

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"github.com/davejbax/go-pereloc"
	"github.com/stretchr/testify/require"
	"testing"
)

// encodeBlock builds the on-disk bytes of a block holding the given raw entries, with a correct block size
func encodeBlock(pageRVA uint32, entries ...uint16) []byte {
	block := blockHeader(pageRVA, uint32(8+2*len(entries)))
	for _, entry := range entries {
		block = binary.LittleEndian.AppendUint16(block, entry)
	}

	return block
}

// blockHeader builds just the 8-byte header of a block, with whatever size we like
func blockHeader(pageRVA uint32, size uint32) []byte {
	header := binary.LittleEndian.AppendUint32(nil, pageRVA)
	return binary.LittleEndian.AppendUint32(header, size)
}

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func newDecoder(t *testing.T, mode pereloc.Mode, opts ...pereloc.Option) *pereloc.Decoder {
	decoder, err := pereloc.NewDecoder(mode, opts...)
	require.NoError(t, err, "NewDecoder should not return an error for a valid mode")
	require.NotNil(t, decoder, "NewDecoder should return a non-nil decoder when no error")

	return decoder
}

const (
	testSectionRVA    = 0x1000
	testSectionOffset = 0x200
)

// buildPE creates a minimal PE32+ image with a single section, named .reloc, holding sectionData. The base relocation
// data directory entry is set to dirRVA and dirSize; the section is mapped at testSectionRVA.
func buildPE(t *testing.T, sectionData []byte, dirRVA uint32, dirSize uint32) []byte {
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
	optionalHeader.DataDirectory[5] = pe.DataDirectory{VirtualAddress: dirRVA, Size: dirSize}

	fileHeader := pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_AMD64,
		NumberOfSections:     1,
		SizeOfOptionalHeader: uint16(binary.Size(optionalHeader)),
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_LARGE_ADDRESS_AWARE,
	}

	sectionHeader := pe.SectionHeader32{
		VirtualSize:      uint32(len(sectionData)),
		VirtualAddress:   testSectionRVA,
		SizeOfRawData:    uint32(len(sectionData)),
		PointerToRawData: testSectionOffset,
		Characteristics:  pe.IMAGE_SCN_CNT_INITIALIZED_DATA | pe.IMAGE_SCN_MEM_READ | pe.IMAGE_SCN_MEM_DISCARDABLE,
	}
	copy(sectionHeader.Name[:], ".reloc")

	for _, header := range []any{fileHeader, optionalHeader, sectionHeader} {
		require.NoError(t, binary.Write(&buff, binary.LittleEndian, header), "Writing PE headers should not fail")
	}

	require.LessOrEqual(t, buff.Len(), testSectionOffset, "PE headers should fit before the section data")
	buff.Write(make([]byte, testSectionOffset-buff.Len()))
	buff.Write(sectionData)

	return buff.Bytes()
}

func openPE(t *testing.T, image []byte) *pe.File {
	f, err := pe.NewFile(bytes.NewReader(image))
	require.NoError(t, err, "Synthetic PE image should be readable by debug/pe")
	t.Cleanup(func() { _ = f.Close() })

	return f
}
