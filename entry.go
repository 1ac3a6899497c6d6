package pereloc

import (
	"fmt"
	"github.com/davejbax/go-pereloc/internal/encode"
)

// Entry is a single decoded relocation: the type of patch to apply, and where in its block's page to apply it.
//
// Offset is always less than 4096. Type is always [RelocationType.Known] unless the entry was decoded in
// [ModeLenient], in which case it holds the raw 4-bit code.
type Entry struct {
	Type   RelocationType
	Offset uint16
}

// DecodeEntry splits a raw 16-bit relocation entry into its type and page offset. It always applies the strict
// policy: if the type code is unknown, the offset is still returned, alongside a [*DecodeError] wrapping
// [ErrUnknownRelocationType].
func DecodeEntry(raw uint16) (RelocationType, uint16, error) {
	ordinal, offset := encode.SplitEntry(raw)
	t, err := ParseRelocationType(ordinal)

	return t, offset, err
}

// DecodeEntry decodes raw into an [Entry] according to the decoder's mode. In [ModeLenient] an unknown type code is
// kept in the returned entry and no error is returned.
func (d *Decoder) DecodeEntry(raw uint16) (Entry, error) {
	t, offset, err := DecodeEntry(raw)
	entry := Entry{Type: t, Offset: offset}

	if err != nil && d.mode != ModeLenient {
		return entry, err
	}

	return entry, nil
}

// Raw returns the 16-bit on-disk encoding of the entry
func (e Entry) Raw() uint16 {
	return encode.PackEntry(uint8(e.Type), e.Offset)
}

// IsPadding reports whether e is the zero entry used to pad a block to a 32-bit boundary. Padding entries carry no
// relocation, but are kept in [Block.Entries] so that a block can be re-encoded exactly.
func (e Entry) IsPadding() bool {
	return e.Type == TypeAbsolute && e.Offset == 0
}

func (e Entry) String() string {
	return fmt.Sprintf("%s+%#03x", e.Type, e.Offset)
}
