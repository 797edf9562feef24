package layout

import (
	"math"

	"typelib/internal/typeerr"
	"typelib/internal/types"
)

// Value is a typed view over the bytes of one value. It never copies or
// retains more than the slice it was given.
type Value struct {
	engine *Engine
	t      *types.Type
	buf    []byte
}

// NewValue checks that buf holds exactly one value of t.
func (e *Engine) NewValue(t *types.Type, buf []byte) (Value, error) {
	size, err := e.BufferSizeAt(t, buf, 0)
	if err != nil {
		return Value{}, err
	}
	switch {
	case len(buf) < size:
		return Value{}, typeerr.BufferTooSmall(t.Name(), size, len(buf))
	case len(buf) > size:
		return Value{}, typeerr.BufferTooLarge(t.Name(), size, len(buf))
	}
	return Value{engine: e, t: t, buf: buf}, nil
}

// At returns the value of t starting at buf[offset:], sized by the
// engine.
func (e *Engine) At(t *types.Type, buf []byte, offset int) (Value, error) {
	size, err := e.BufferSizeAt(t, buf, offset)
	if err != nil {
		return Value{}, err
	}
	if offset < 0 || offset+size > len(buf) {
		return Value{}, typeerr.BufferTooSmall(t.Name(), offset+size, len(buf))
	}
	return Value{engine: e, t: t, buf: buf[offset : offset+size]}, nil
}

func (v Value) Type() *types.Type { return v.t }

// Bytes returns the value's bytes.
func (v Value) Bytes() []byte { return v.buf }

// Field returns the compound field called name.
func (v Value) Field(name string) (Value, error) {
	f, ok := v.t.Field(name)
	if !ok {
		return Value{}, typeerr.New(typeerr.ClassName, typeerr.KindNotFound).
			Type(v.t.Name()).
			Field(name).
			Detail("no such field").
			Build()
	}
	return v.FieldByIndex(f.Index)
}

// FieldByIndex returns the compound field at position i. Fields of
// fixed-size compounds sit at their declared offsets; in other compounds
// they follow each other, separated by their skip.
func (v Value) FieldByIndex(i int) (Value, error) {
	fields := v.t.Fields()
	if i < 0 || i >= len(fields) {
		return Value{}, typeerr.OutOfBounds(v.t.Name(), i, len(fields))
	}
	if v.t.FixedBufferSize() {
		offset, err := toInt(v.t, fields[i].Offset)
		if err != nil {
			return Value{}, err
		}
		return v.engine.At(fields[i].Type(), v.buf, offset)
	}
	pos := 0
	for _, f := range fields[:i] {
		size, err := v.engine.BufferSizeAt(f.Type(), v.buf, pos)
		if err != nil {
			return Value{}, err
		}
		skip, err := toInt(v.t, f.Skip)
		if err != nil {
			return Value{}, err
		}
		pos += size + skip
	}
	return v.engine.At(fields[i].Type(), v.buf, pos)
}

// elements returns the element sequence of arrays and containers.
func (v Value) elements() (*Sequence, error) {
	switch v.t.Kind() {
	case types.KindArray:
		count, err := toInt(v.t, v.t.Length())
		if err != nil {
			return nil, err
		}
		return v.engine.newSequence(v.t.Element(), v.buf, 0, count)
	case types.KindContainer:
		count, header, err := v.engine.Encoding(v.t.ContainerModel()).Header(v.buf, 0)
		if err != nil {
			return nil, withType(err, v.t)
		}
		return v.engine.newSequence(v.t.Element(), v.buf, header, count)
	default:
		return nil, typeerr.New(typeerr.ClassLayout, typeerr.KindInvalidContainer).
			Type(v.t.Name()).
			Detail("%s values have no elements", v.t.Kind()).
			Build()
	}
}

// Len returns the element count of arrays and containers.
func (v Value) Len() (int, error) {
	seq, err := v.elements()
	if err != nil {
		return 0, err
	}
	return seq.Len(), nil
}

// Element returns element i of an array or container.
func (v Value) Element(i int) (Value, error) {
	seq, err := v.elements()
	if err != nil {
		return Value{}, err
	}
	offset, size, err := seq.OffsetAndSize(i)
	if err != nil {
		return Value{}, err
	}
	return Value{engine: v.engine, t: seq.Element(), buf: v.buf[offset : offset+size]}, nil
}

// Elements returns every element, walking the buffer once.
func (v Value) Elements() ([]Value, error) {
	seq, err := v.elements()
	if err != nil {
		return nil, err
	}
	out := make([]Value, 0, seq.Len())
	for i := range seq.Len() {
		offset, size, err := seq.OffsetAndSize(i)
		if err != nil {
			return nil, err
		}
		out = append(out, Value{engine: v.engine, t: seq.Element(), buf: v.buf[offset : offset+size]})
	}
	return out, nil
}

func (v Value) scalar(kinds ...types.Kind) (uint64, error) {
	ok := false
	for _, k := range kinds {
		ok = ok || v.t.Kind() == k
	}
	if !ok {
		return 0, typeerr.New(typeerr.ClassLayout, typeerr.KindMismatchingTypeModel).
			Type(v.t.Name()).
			Detail("%s value is not a scalar", v.t.Kind()).
			Build()
	}
	order := v.engine.opts.ByteOrder
	switch len(v.buf) {
	case 1:
		return uint64(v.buf[0]), nil
	case 2:
		return uint64(order.Uint16(v.buf)), nil
	case 4:
		return uint64(order.Uint32(v.buf)), nil
	case 8:
		return order.Uint64(v.buf), nil
	default:
		return 0, typeerr.New(typeerr.ClassLayout, typeerr.KindInvalidSize).
			Type(v.t.Name()).
			Detail("no scalar encoding for %d bytes", len(v.buf)).
			Build()
	}
}

// Uint decodes an unsigned integer, character or enum value.
func (v Value) Uint() (uint64, error) {
	return v.scalar(types.KindNumeric, types.KindCharacter, types.KindEnum)
}

// Int decodes a signed integer or enum value, sign-extending it.
func (v Value) Int() (int64, error) {
	raw, err := v.scalar(types.KindNumeric, types.KindCharacter, types.KindEnum)
	if err != nil {
		return 0, err
	}
	shift := 64 - 8*len(v.buf)
	return int64(raw<<shift) >> shift, nil
}

// Float decodes a 4 or 8 byte floating point value.
func (v Value) Float() (float64, error) {
	if v.t.Kind() != types.KindNumeric || v.t.Category() != types.NumericFloat {
		return 0, typeerr.New(typeerr.ClassLayout, typeerr.KindMismatchingNumericKind).
			Type(v.t.Name()).
			Detail("not a floating point type").
			Build()
	}
	raw, err := v.scalar(types.KindNumeric)
	if err != nil {
		return 0, err
	}
	switch len(v.buf) {
	case 4:
		return float64(math.Float32frombits(uint32(raw))), nil
	case 8:
		return math.Float64frombits(raw), nil
	default:
		return 0, typeerr.New(typeerr.ClassLayout, typeerr.KindInvalidSize).
			Type(v.t.Name()).
			Detail("no float encoding for %d bytes", len(v.buf)).
			Build()
	}
}

// Symbol returns the enum symbol the value holds.
func (v Value) Symbol() (string, error) {
	n, err := v.Int()
	if err != nil {
		return "", err
	}
	name, ok := v.t.SymbolName(n)
	if !ok {
		return "", typeerr.New(typeerr.ClassLayout, typeerr.KindNotFound).
			Type(v.t.Name()).
			Detail("no symbol for value %d", n).
			Build()
	}
	return name, nil
}
