// Package pereloc decodes the base relocation directory of a Portable Executable image: the table of per-page blocks
// telling a loader which addresses to patch when the image is not loaded at its preferred base.
package pereloc

import (
	"fmt"
)

// RelocationType is the 4-bit type code held in the top of every relocation entry. The numeric value is the on-disk
// code itself.
//
// PE Format, "Base Relocation Types"
type RelocationType uint8

const (
	TypeAbsolute RelocationType = iota
	TypeHigh
	TypeLow
	TypeHighLow
	TypeHighAdj
	TypeMIPSJmpAddr
	TypeSection
	TypeRel
	TypeUnknown
	TypeMIPSJmpAddr16
	TypeDir64
	TypeHigh3Adj

	// NumRelocationTypes is the number of known relocation types. Ordinals at or above this are not part of the
	// enumeration, even though the 4-bit field can hold them.
	NumRelocationTypes
)

var relocationTypeNames = [NumRelocationTypes]string{
	TypeAbsolute:      "ABSOLUTE",
	TypeHigh:          "HIGH",
	TypeLow:           "LOW",
	TypeHighLow:       "HIGHLOW",
	TypeHighAdj:       "HIGHADJ",
	TypeMIPSJmpAddr:   "MIPS_JMPADDR",
	TypeSection:       "SECTION",
	TypeRel:           "REL",
	TypeUnknown:       "UNKNOWN",
	TypeMIPSJmpAddr16: "MIPS_JMPADDR16",
	TypeDir64:         "DIR64",
	TypeHigh3Adj:      "HIGH3ADJ",
}

// ParseRelocationType converts a raw type ordinal into a [RelocationType], failing with a [*DecodeError] wrapping
// [ErrUnknownRelocationType] if the ordinal is not one of the known types. The unchecked conversion is still returned
// alongside the error.
func ParseRelocationType(ordinal uint8) (RelocationType, error) {
	t := RelocationType(ordinal)
	if !t.Known() {
		return t, newUnknownTypeError(ordinal)
	}

	return t, nil
}

// Known reports whether t is one of the enumerated relocation types. Only entries decoded in [ModeLenient] can hold a
// type that is not known.
func (t RelocationType) Known() bool {
	return t < NumRelocationTypes
}

func (t RelocationType) String() string {
	if !t.Known() {
		return fmt.Sprintf("RelocationType(%d)", uint8(t))
	}

	return relocationTypeNames[t]
}
