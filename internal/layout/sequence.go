package layout

import (
	"typelib/internal/typeerr"
	"typelib/internal/types"
)

// Sequence is a run of count values of one element type laid out back to
// back in a buffer. Element offsets are found by walking from the first
// element; the walk is remembered, so visiting elements in ascending order
// costs one pass overall.
type Sequence struct {
	engine *Engine
	elem   *types.Type
	buf    []byte
	start  int
	count  int

	fixed bool
	size  int   // element size when fixed
	ends  []int // ends[i] is the absolute end offset of element i
}

// NewSequence returns the sequence of count elem values starting at
// buf[offset:].
func (e *Engine) NewSequence(elem *types.Type, buf []byte, offset, count int) (*Sequence, error) {
	if offset < 0 || offset > len(buf) {
		return nil, typeerr.BufferTooSmall(elem.Name(), offset, len(buf))
	}
	if count < 0 {
		return nil, typeerr.OutOfBounds(elem.Name(), count, 0)
	}
	return e.newSequence(elem, buf, offset, count)
}

func (e *Engine) newSequence(elem *types.Type, buf []byte, offset, count int) (*Sequence, error) {
	info := e.cache.get(elem)
	if info.err != nil {
		return nil, info.err
	}
	s := &Sequence{
		engine: e,
		elem:   elem,
		buf:    buf,
		start:  offset,
		count:  count,
		fixed:  info.fixed,
		size:   info.size,
	}
	return s, nil
}

// Len returns the element count.
func (s *Sequence) Len() int { return s.count }

// Element returns the element type.
func (s *Sequence) Element() *types.Type { return s.elem }

// OffsetAndSize returns the absolute offset and the size of element i.
func (s *Sequence) OffsetAndSize(i int) (offset, size int, err error) {
	if i < 0 || i >= s.count {
		return 0, 0, typeerr.OutOfBounds(s.elem.Name(), i, s.count)
	}
	if s.fixed {
		offset = s.start + i*s.size
		if offset+s.size > len(s.buf) {
			return 0, 0, typeerr.BufferTooSmall(s.elem.Name(), offset+s.size, len(s.buf))
		}
		return offset, s.size, nil
	}
	for len(s.ends) <= i {
		pos := s.start
		if n := len(s.ends); n > 0 {
			pos = s.ends[n-1]
		}
		sz, err := s.engine.BufferSizeAt(s.elem, s.buf, pos)
		if err != nil {
			return 0, 0, err
		}
		if pos+sz > len(s.buf) {
			return 0, 0, typeerr.BufferTooSmall(s.elem.Name(), pos+sz, len(s.buf))
		}
		s.ends = append(s.ends, pos+sz)
	}
	offset = s.start
	if i > 0 {
		offset = s.ends[i-1]
	}
	return offset, s.ends[i] - offset, nil
}

// Span returns the number of bytes covered by all elements.
func (s *Sequence) Span() (int, error) {
	if s.count == 0 {
		return 0, nil
	}
	if s.fixed {
		return s.count * s.size, nil
	}
	offset, size, err := s.OffsetAndSize(s.count - 1)
	if err != nil {
		return 0, err
	}
	return offset + size - s.start, nil
}
