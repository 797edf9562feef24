package types

import (
	"math/bits"
	"strconv"

	"go.uber.org/zap"

	"typelib/internal/trace"
	"typelib/internal/typeerr"
)

// ApplyResize recomputes the layout of t once some of its dependencies
// changed size, sizes giving the new size of each changed type. Arrays
// multiply their length by the new element size. Compound fields move to
// the running max of their offset and the previous field's new end; the
// compound grows by as much as its last field's end moved, and skips are
// recomputed from the new offsets. changed is false when t is left as it
// was.
func (t *Type) ApplyResize(sizes map[*Type]uint64) (newSize uint64, changed bool, err error) {
	l, err := t.resized(sizes)
	if err != nil || l == nil {
		return t.size, false, err
	}
	l.commit(t)
	return l.size, true, nil
}

// pendingLayout is a recomputed layout not yet applied to its type.
type pendingLayout struct {
	size    uint64
	offsets []uint64 // compounds only
	skips   []uint64
}

func (l *pendingLayout) commit(t *Type) {
	t.size = l.size
	if l.offsets == nil {
		return
	}
	for i, f := range t.compoundInfo().fields {
		f.Offset = l.offsets[i]
		f.Skip = l.skips[i]
	}
}

// resized computes t's layout under sizes without modifying anything. It
// returns nil when the layout stays the same.
func (t *Type) resized(sizes map[*Type]uint64) (*pendingLayout, error) {
	sizeOf := func(x *Type) uint64 {
		if s, ok := sizes[x]; ok {
			return s
		}
		return x.size
	}

	switch t.kind {
	case KindArray:
		hi, size := bits.Mul64(sizeOf(t.Element()), t.length)
		if hi != 0 {
			return nil, typeerr.Overflow(t.name, nil)
		}
		if size == t.size {
			return nil, nil
		}
		return &pendingLayout{size: size}, nil

	case KindCompound:
		fields := t.compoundInfo().fields
		if len(fields) == 0 {
			return nil, nil
		}
		offsets := make([]uint64, len(fields))
		moved := false
		var prevEnd uint64
		for i, f := range fields {
			offsets[i] = f.Offset
			if i > 0 && prevEnd > f.Offset {
				offsets[i] = prevEnd
				moved = true
			}
			prevEnd = offsets[i] + sizeOf(f.Type())
		}
		// skips keep offset[i+1] = offset[i] + size + skip
		skips := make([]uint64, len(fields))
		for i, f := range fields {
			skips[i] = f.Skip
			if i+1 < len(fields) {
				if end := offsets[i] + sizeOf(f.Type()); offsets[i+1] >= end && offsets[i+1]-end != f.Skip {
					skips[i] = offsets[i+1] - end
					moved = true
				}
			}
		}
		size := t.size
		if oldEnd := fields[len(fields)-1].End(); prevEnd > oldEnd {
			size += prevEnd - oldEnd
		}
		if size == t.size && !moved {
			return nil, nil
		}
		return &pendingLayout{size: size, offsets: offsets, skips: skips}, nil

	default:
		return nil, nil
	}
}

// Resize assigns new static sizes to the given types, typically opaques
// whose concrete layout became known, and propagates them to the arrays and
// compounds built on them. It returns every type whose size or layout
// changed, mapped to its new size.
func (r *Registry) Resize(sizes map[*Type]uint64) (map[*Type]uint64, error) {
	span := trace.Begin(r.tracer, trace.ScopeRegistry, "resize", 0)
	changed := make(map[*Type]uint64, len(sizes))
	for t, size := range sizes {
		if err := r.checkOwned(t); err != nil {
			span.End(err.Error())
			return nil, err
		}
		if t.size != size {
			changed[t] = size
		}
	}

	// layouts are computed against the old sizes and applied at the end
	pending := make(map[*Type]*pendingLayout, len(changed))
	for _, t := range r.Sorted() {
		if _, ok := sizes[t]; ok {
			continue
		}
		l, err := t.resized(changed)
		if err != nil {
			span.End(err.Error())
			return nil, err
		}
		if l != nil {
			pending[t] = l
			changed[t] = l.size
		}
	}

	for t, size := range changed {
		if l, ok := pending[t]; ok {
			l.commit(t)
		} else {
			t.size = size
		}
		Logger().Debug("type resized", zap.String("name", t.name), zap.Uint64("size", t.size))
	}
	span.WithExtra("changed", strconv.Itoa(len(changed)))
	span.End("")
	return changed, nil
}
