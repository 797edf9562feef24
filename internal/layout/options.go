package layout

import (
	"encoding/binary"
	"fmt"
	"strings"

	"typelib/internal/trace"
)

// Options configures an Engine.
type Options struct {
	// ByteOrder is used to decode container headers and numeric values.
	ByteOrder binary.ByteOrder
	// CountWidth is the width in bytes of the element count that prefixes
	// containers without a dedicated encoding: 1, 2, 4 or 8.
	CountWidth int
	// Encodings overrides the container encoding per model name.
	Encodings map[string]ContainerEncoding
	Tracer    trace.Tracer
}

// DefaultOptions returns little-endian, 8-byte counts, no tracing.
func DefaultOptions() Options {
	return Options{
		ByteOrder:  binary.LittleEndian,
		CountWidth: 8,
		Tracer:     trace.Nop,
	}
}

// ParseByteOrder accepts "little" and "big".
func ParseByteOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(s) {
	case "", "little", "le", "little_endian":
		return binary.LittleEndian, nil
	case "big", "be", "big_endian":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("invalid byte order: %q (expected: little|big)", s)
	}
}

func (o *Options) normalize() error {
	if o.ByteOrder == nil {
		o.ByteOrder = binary.LittleEndian
	}
	if o.CountWidth == 0 {
		o.CountWidth = 8
	}
	switch o.CountWidth {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("invalid count width %d (expected 1, 2, 4 or 8)", o.CountWidth)
	}
	if o.Tracer == nil {
		o.Tracer = trace.Nop
	}
	return nil
}
