package types

import (
	"strconv"

	"go.uber.org/zap"

	"typelib/internal/trace"
	"typelib/internal/typeerr"
)

// ValidateMerge checks that local and other, usually owned by different
// registries, can be unified. Compound fields are compared by name, offset
// and field type name only: field types are validated on their own when the
// registries are merged.
func ValidateMerge(local, other *Type) error {
	if local.name != other.name {
		return typeerr.Mismatch(typeerr.KindMismatchingTypeName, local.name, other.name, "names differ")
	}
	if local.kind != other.kind {
		return typeerr.Mismatch(typeerr.KindMismatchingTypeModel, local.name, other.name,
			"%s vs %s", local.kind, other.kind)
	}
	if local.size != other.size {
		return typeerr.Mismatch(typeerr.KindMismatchingTypeSize, local.name, other.name,
			"size %d vs %d", local.size, other.size)
	}
	if local.opaque != other.opaque {
		return typeerr.Mismatch(typeerr.KindMismatchingTypeOpaqueFlag, local.name, other.name,
			"opaque %v vs %v", local.opaque, other.opaque)
	}
	if local.null != other.null {
		return typeerr.Mismatch(typeerr.KindMismatchingTypeNullFlag, local.name, other.name,
			"null %v vs %v", local.null, other.null)
	}

	switch local.kind {
	case KindNumeric:
		if local.category != other.category {
			return typeerr.Mismatch(typeerr.KindMismatchingNumericKind, local.name, other.name,
				"%s vs %s", local.category, other.category)
		}
	case KindEnum:
		if !symbolsEqual(local.Symbols(), other.Symbols()) {
			return typeerr.Mismatch(typeerr.KindMismatchingEnumSymbols, local.name, other.name, "symbol tables differ")
		}
	case KindCompound:
		return validateCompoundMerge(local, other)
	case KindContainer:
		if local.model != other.model {
			return typeerr.Mismatch(typeerr.KindMismatchingContainerModel, local.name, other.name,
				"%s vs %s", local.model, other.model)
		}
		return validateDerefMerge(local, other)
	case KindArray:
		return validateDerefMerge(local, other)
	}
	return nil
}

func validateDerefMerge(local, other *Type) error {
	if le, oe := local.Element().name, other.Element().name; le != oe {
		return typeerr.Mismatch(typeerr.KindMismatchingDerefType, local.name, other.name,
			"element %s vs %s", le, oe)
	}
	return nil
}

func validateCompoundMerge(local, other *Type) error {
	lf, of := local.Fields(), other.Fields()
	if len(lf) != len(of) {
		return typeerr.Mismatch(typeerr.KindMismatchingFieldCount, local.name, other.name,
			"%d vs %d fields", len(lf), len(of))
	}
	for i := range lf {
		l, o := lf[i], of[i]
		if l.Name != o.Name {
			return typeerr.New(typeerr.ClassStructural, typeerr.KindMismatchingFieldName).
				Type(local.name).
				Other(other.name).
				Field(l.Name).
				Detail("field %d is %s vs %s", i, l.Name, o.Name).
				Build()
		}
		if l.Offset != o.Offset {
			return typeerr.New(typeerr.ClassStructural, typeerr.KindMismatchingFieldOffset).
				Type(local.name).
				Other(other.name).
				Field(l.Name).
				Detail("offset %d vs %d", l.Offset, o.Offset).
				Build()
		}
		if lt, ot := l.Type().name, o.Type().name; lt != ot {
			return typeerr.New(typeerr.ClassStructural, typeerr.KindMismatchingFieldType).
				Type(local.name).
				Other(other.name).
				Field(l.Name).
				Detail("type %s vs %s", lt, ot).
				Build()
		}
	}
	return nil
}

// mergeMetadata unions other's metadata into local, per field for
// compounds. Sizes, offsets and names are never touched.
func mergeMetadata(local, other *Type) {
	local.meta.Merge(other.meta)
	if local.kind != KindCompound {
		return
	}
	of := other.Fields()
	for i, f := range local.Fields() {
		f.meta.Merge(of[i].meta)
	}
}

// Merge brings every type of other into r. Types r already has must pass
// ValidateMerge and get other's metadata; missing ones are copied with
// their dependencies. Types are processed in dependency order and the merge
// stops at the first error: the types merged so far stay, the failing one
// leaves no trace.
func (r *Registry) Merge(other *Registry) error {
	if other == r {
		return nil
	}
	span := trace.Begin(r.tracer, trace.ScopeRegistry, "merge", 0)
	merged, copied := 0, 0
	err := r.merge(other, &merged, &copied)
	span.WithExtra("merged", strconv.Itoa(merged)).WithExtra("copied", strconv.Itoa(copied))
	if err != nil {
		span.End(err.Error())
		return err
	}
	span.End("")
	return nil
}

func (r *Registry) merge(other *Registry, merged, copied *int) error {
	for _, m := range other.ContainerModels() {
		if _, err := r.ensureModel(m); err != nil {
			return err
		}
	}

	for _, ot := range other.Sorted() {
		if lt, ok := r.lookupType(ot.name); ok {
			if err := ValidateMerge(lt, ot); err != nil {
				return err
			}
			mergeMetadata(lt, ot)
			*merged++
			Logger().Debug("type merged", zap.String("name", lt.name))
			continue
		}
		if _, err := ot.CopyTo(r); err != nil {
			return err
		}
		*copied++
	}

	for _, alias := range other.aliasSeq {
		target := other.types[other.aliases[alias]]
		local, ok := r.lookupType(target.name)
		if !ok {
			return typeerr.NotFound("alias target", target.name)
		}
		if existing, ok := r.AliasTarget(alias); ok {
			if existing != local {
				return typeerr.Mismatch(typeerr.KindMismatchingTypeName, alias, alias,
					"alias points to %s vs %s", existing.name, target.name)
			}
			continue
		}
		if err := r.CreateAlias(alias, local); err != nil {
			return err
		}
	}
	return nil
}
