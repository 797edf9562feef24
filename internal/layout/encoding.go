package layout

import (
	"encoding/binary"

	"fortio.org/safecast"

	"typelib/internal/typeerr"
)

// ContainerEncoding decodes the self-describing part of a container value.
// The elements are expected to follow the header back to back.
type ContainerEncoding interface {
	// Header reads the header of the container value starting at
	// buf[offset:] and returns the element count and the header length.
	Header(buf []byte, offset int) (count int, size int, err error)
}

// CountPrefixed is a header made of a single unsigned element count.
type CountPrefixed struct {
	Width int // 1, 2, 4 or 8
	Order binary.ByteOrder
}

func (c CountPrefixed) Header(buf []byte, offset int) (int, int, error) {
	if offset < 0 || len(buf)-offset < c.Width {
		return 0, 0, typeerr.New(typeerr.ClassLayout, typeerr.KindBufferTooSmall).
			Detail("container header needs %d bytes at offset %d, buffer has %d", c.Width, offset, len(buf)).
			Build()
	}
	b := buf[offset : offset+c.Width]
	var n uint64
	switch c.Width {
	case 1:
		n = uint64(b[0])
	case 2:
		n = uint64(c.Order.Uint16(b))
	case 4:
		n = uint64(c.Order.Uint32(b))
	case 8:
		n = c.Order.Uint64(b)
	default:
		return 0, 0, typeerr.New(typeerr.ClassLayout, typeerr.KindInvalidContainer).
			Detail("unsupported count width %d", c.Width).
			Build()
	}
	count, err := safecast.Conv[int](n)
	if err != nil {
		return 0, 0, typeerr.New(typeerr.ClassLayout, typeerr.KindInvalidContainer).
			Cause(err).
			Detail("element count %d does not fit in memory", n).
			Build()
	}
	return count, c.Width, nil
}

// PutCount appends a count header for n elements to dst. n is truncated
// to the header width.
func (c CountPrefixed) PutCount(dst []byte, n int) []byte {
	var b [8]byte
	v := uint64(n)
	switch c.Width {
	case 1:
		b[0] = byte(v)
	case 2:
		c.Order.PutUint16(b[:], uint16(v))
	case 4:
		c.Order.PutUint32(b[:], uint32(v))
	default:
		c.Order.PutUint64(b[:], v)
		return append(dst, b[:]...)
	}
	return append(dst, b[:c.Width]...)
}
