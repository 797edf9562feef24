package types

import (
	"fmt"

	"fortio.org/safecast"

	"typelib/internal/typeerr"
)

// Symbol is one name/value pair of an enum.
type Symbol struct {
	Name  string `json:"name" msgpack:"name"`
	Value int64  `json:"value" msgpack:"value"`
}

type enumInfo struct {
	symbols []Symbol
	byName  map[string]int64
	byValue map[int64]string
}

// Symbols returns the enum symbols in declaration order.
func (t *Type) Symbols() []Symbol {
	info := t.enumInfo()
	if info == nil {
		return nil
	}
	return append([]Symbol(nil), info.symbols...)
}

// SymbolValue returns the value of an enum symbol.
func (t *Type) SymbolValue(name string) (int64, bool) {
	info := t.enumInfo()
	if info == nil {
		return 0, false
	}
	v, ok := info.byName[name]
	return v, ok
}

// SymbolName returns the symbol mapped to value.
func (t *Type) SymbolName(value int64) (string, bool) {
	info := t.enumInfo()
	if info == nil {
		return "", false
	}
	name, ok := info.byValue[value]
	return name, ok
}

func (t *Type) enumInfo() *enumInfo {
	if t.kind != KindEnum || t.payload == 0 || int(t.payload) >= len(t.registry.enums) {
		return nil
	}
	return &t.registry.enums[t.payload]
}

func (r *Registry) appendEnumInfo() uint32 {
	r.enums = append(r.enums, enumInfo{
		byName:  make(map[string]int64, 8),
		byValue: make(map[int64]string, 8),
	})
	slot, err := safecast.Conv[uint32](len(r.enums) - 1)
	if err != nil {
		panic(fmt.Errorf("enum info overflow: %w", err))
	}
	return slot
}

// EnumBuilder adds symbols to an enum under construction.
type EnumBuilder struct {
	enum *Type
}

// Add declares symbol with value. Names and values are both unique inside
// one enum.
func (b *EnumBuilder) Add(symbol string, value int64) error {
	info := b.enum.enumInfo()
	if symbol == "" {
		return typeerr.New(typeerr.ClassStructural, typeerr.KindDuplicateSymbol).
			Type(b.enum.name).
			Detail("symbol name must not be empty").
			Build()
	}
	if _, dup := info.byName[symbol]; dup {
		return typeerr.New(typeerr.ClassStructural, typeerr.KindDuplicateSymbol).
			Type(b.enum.name).
			Field(symbol).
			Detail("symbol already defined").
			Build()
	}
	if other, dup := info.byValue[value]; dup {
		return typeerr.New(typeerr.ClassStructural, typeerr.KindDuplicateSymbol).
			Type(b.enum.name).
			Field(symbol).
			Detail("value %d already used by %s", value, other).
			Build()
	}
	info.symbols = append(info.symbols, Symbol{Name: symbol, Value: value})
	info.byName[symbol] = value
	info.byValue[value] = symbol
	return nil
}

// CreateEnum registers an enum of the given size and runs build to declare
// its symbols.
func (r *Registry) CreateEnum(name string, size uint64, build func(*EnumBuilder) error) (*Type, error) {
	name, err := r.checkName(name)
	if err != nil {
		return nil, err
	}
	if err := checkSize(name, size); err != nil {
		return nil, err
	}
	m := r.mark()
	t := r.register(&Type{name: name, kind: KindEnum, size: size, payload: r.appendEnumInfo()})
	if build != nil {
		if err := build(&EnumBuilder{enum: t}); err != nil {
			r.rollback(m)
			return nil, err
		}
	}
	return t, nil
}
