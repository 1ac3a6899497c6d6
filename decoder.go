package pereloc

import (
	"github.com/sirupsen/logrus"
	"io"
)

// Mode selects how a [Decoder] treats entries whose type code is not a known [RelocationType]. Every other kind of
// violation aborts decoding regardless of mode.
type Mode uint8

const (
	// ModeUnset is the zero value and is rejected by [NewDecoder]: the policy for unknown types has to be chosen
	ModeUnset Mode = iota

	// ModeStrict aborts decoding at the first entry with an unknown type code
	ModeStrict

	// ModeLenient keeps entries with unknown type codes, storing the raw ordinal in [Entry.Type], and carries on
	ModeLenient
)

func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeLenient:
		return "lenient"
	default:
		return "unset"
	}
}

// Decoder decodes entries, blocks, and whole relocation directories. A Decoder holds no state besides its
// configuration, so a single Decoder may be shared between goroutines decoding different buffers.
type Decoder struct {
	mode             Mode
	maxDirectorySize uint32
	log              logrus.FieldLogger
}

// Option configures a [Decoder]
type Option func(*Decoder)

// WithLogger sets the logger used to trace the directory walk and to warn about unknown types kept in
// [ModeLenient]. By default, or if log is nil, nothing is logged.
func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Decoder) {
		if log != nil {
			d.log = log
		}
	}
}

// WithMaxDirectorySize rejects directories that declare more than size bytes with [ErrDirectoryOutOfBounds], before
// any block is read. Zero, the default, bounds directories only by the buffer they are decoded from.
func WithMaxDirectorySize(size uint32) Option {
	return func(d *Decoder) {
		d.maxDirectorySize = size
	}
}

// NewDecoder creates a [Decoder] using the given policy for unknown relocation types. mode must be [ModeStrict] or
// [ModeLenient]; anything else gives [ErrModeUnset].
func NewDecoder(mode Mode, opts ...Option) (*Decoder, error) {
	if mode != ModeStrict && mode != ModeLenient {
		return nil, ErrModeUnset
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	d := &Decoder{
		mode: mode,
		log:  discard,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Mode returns the policy this decoder applies to unknown relocation types
func (d *Decoder) Mode() Mode {
	return d.mode
}
