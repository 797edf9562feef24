package layout

import (
	"errors"
	"math/bits"

	"fortio.org/safecast"

	"typelib/internal/trace"
	"typelib/internal/typeerr"
	"typelib/internal/types"
)

// Engine computes the in-buffer size of values. Descriptors are read, never
// modified; the engine caches per-descriptor facts, so call Reset after
// resizing types. An Engine is not safe for concurrent use.
type Engine struct {
	opts  Options
	cache *cache
}

// New returns an engine configured by opts.
func New(opts Options) (*Engine, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	return &Engine{opts: opts, cache: newCache()}, nil
}

// Options returns the normalized options.
func (e *Engine) Options() Options {
	return e.opts
}

// Reset drops cached descriptor facts.
func (e *Engine) Reset() {
	e.cache.reset()
}

// Encoding returns the container encoding used for model.
func (e *Engine) Encoding(model string) ContainerEncoding {
	if enc, ok := e.opts.Encodings[model]; ok {
		return enc
	}
	return CountPrefixed{Width: e.opts.CountWidth, Order: e.opts.ByteOrder}
}

// BufferSize is BufferSizeAt at offset 0.
func (e *Engine) BufferSize(t *types.Type, buf []byte) (int, error) {
	return e.BufferSizeAt(t, buf, 0)
}

// BufferSizeAt returns how many bytes the value of t starting at
// buf[offset:] spans. Fixed-size types answer with their static size
// without looking at buf.
func (e *Engine) BufferSizeAt(t *types.Type, buf []byte, offset int) (int, error) {
	info := e.cache.get(t)
	if info.err != nil {
		return 0, info.err
	}
	if info.fixed {
		return info.size, nil
	}
	if offset < 0 || offset > len(buf) {
		return 0, typeerr.BufferTooSmall(t.Name(), offset, len(buf))
	}
	trace.Point(e.opts.Tracer, trace.ScopeLayout, "walk", t.Name(), 0)

	switch t.Kind() {
	case types.KindCompound:
		pos := offset
		for _, f := range t.Fields() {
			size, err := e.BufferSizeAt(f.Type(), buf, pos)
			if err != nil {
				return 0, err
			}
			skip, err := toInt(t, f.Skip)
			if err != nil {
				return 0, err
			}
			pos += size + skip
		}
		return pos - offset, nil

	case types.KindArray:
		count, err := toInt(t, t.Length())
		if err != nil {
			return 0, err
		}
		return e.elementsSpan(t, t.Element(), buf, offset, count)

	case types.KindContainer:
		count, header, err := e.Encoding(t.ContainerModel()).Header(buf, offset)
		if err != nil {
			return 0, withType(err, t)
		}
		span, err := e.elementsSpan(t, t.Element(), buf, offset+header, count)
		if err != nil {
			return 0, err
		}
		return header + span, nil
	}
	return info.size, nil
}

// elementsSpan is the span of count elements of elem starting at offset.
func (e *Engine) elementsSpan(owner, elem *types.Type, buf []byte, offset, count int) (int, error) {
	if count == 0 {
		return 0, nil
	}
	info := e.cache.get(elem)
	if info.err != nil {
		return 0, info.err
	}
	if info.fixed {
		hi, span := bits.Mul64(uint64(info.size), uint64(count))
		if hi != 0 {
			return 0, typeerr.Overflow(owner.Name(), nil)
		}
		n, err := toInt(owner, span)
		if err != nil {
			return 0, err
		}
		// container counts come from the buffer and must be checked against it
		if owner.Kind() == types.KindContainer && n > len(buf)-offset {
			return 0, typeerr.BufferTooSmall(owner.Name(), offset+n, len(buf))
		}
		return n, nil
	}
	seq, err := e.newSequence(elem, buf, offset, count)
	if err != nil {
		return 0, err
	}
	return seq.Span()
}

func toInt(t *types.Type, v uint64) (int, error) {
	n, err := safecast.Conv[int](v)
	if err != nil {
		return 0, typeerr.Overflow(t.Name(), err)
	}
	return n, nil
}

// withType fills in the type name of layout errors raised below the
// type level.
func withType(err error, t *types.Type) error {
	var e *typeerr.Error
	if errors.As(err, &e) && e.Type == "" {
		cp := *e
		cp.Type = t.Name()
		return &cp
	}
	return err
}
