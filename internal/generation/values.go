// Package generation turns resolved row specs into concrete rows.
package generation

import (
	"fmt"
	"iter"
	"strings"

	"rowsynth/internal/fieldspec"
	"rowsynth/internal/schema"
	"rowsynth/internal/util"
	"rowsynth/internal/valuesource"
)

// DataType selects how field values are drawn.
type DataType int

// DataType constants.
const (
	Random DataType = iota
	FullSequential
)

func (d DataType) String() string {
	if d == FullSequential {
		return "full_sequential"
	}
	return "random"
}

// ParseDataType maps a config name to a DataType.
func ParseDataType(name string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "random":
		return Random, nil
	case "full_sequential", "full-sequential", "sequential":
		return FullSequential, nil
	default:
		return Random, fmt.Errorf("unknown data type %q", name)
	}
}

// FieldSpecValueGenerator produces the values of one field.
type FieldSpecValueGenerator struct {
	Strategy DataType
	Rand     util.RandomSource
	// EnumerationLimit overrides the linear enumeration limit when positive.
	EnumerationLimit uint64
}

// SourceFor builds the value source admitted by spec. Null is included
// when the field is declared nullable and the spec leaves nullability open.
func (g FieldSpecValueGenerator) SourceFor(field schema.Field, spec fieldspec.FieldSpec) valuesource.FieldValueSource {
	if spec.IsImpossible() {
		return valuesource.Empty()
	}
	if spec.MustBeNull() {
		return valuesource.NullOnly{}
	}
	var values valuesource.FieldValueSource
	if wl := spec.Whitelist(); wl != nil {
		values = valuesource.Whitelist{List: wl}
	} else if r, ok := spec.Numeric(); ok {
		src := valuesource.NumericSource(r)
		src.EnumerationLimit = g.EnumerationLimit
		values = src
	} else if r, ok := spec.DateTime(); ok {
		src := valuesource.DateTimeSource(r)
		src.EnumerationLimit = g.EnumerationLimit
		values = src
	} else if r, ok := spec.Strings(); ok {
		values = valuesource.Strings{Restriction: r}
	} else {
		util.Invariantf("field %s has no value restriction", field.Name)
	}
	if len(spec.Blacklist()) > 0 {
		values = valuesource.Filtered{Inner: values, Keep: func(v any) bool { return !spec.IsBlacklisted(v) }}
	}
	if field.Nullable && spec.Nullability() == fieldspec.Unconstrained {
		return valuesource.WithNull(values)
	}
	return values
}

// Sequential reports whether values of field are enumerated rather than drawn.
func (g FieldSpecValueGenerator) Sequential(field schema.Field) bool {
	return field.Unique || g.Strategy == FullSequential
}

// Generate yields the values of field under spec. Unique fields and the
// full-sequential strategy enumerate; otherwise values are drawn at random.
func (g FieldSpecValueGenerator) Generate(field schema.Field, spec fieldspec.FieldSpec) iter.Seq[any] {
	return g.GenerateFromSource(field, g.SourceFor(field, spec))
}

// GenerateFromSource is Generate over a prepared source.
func (g FieldSpecValueGenerator) GenerateFromSource(field schema.Field, src valuesource.FieldValueSource) iter.Seq[any] {
	if g.Sequential(field) {
		return src.AllValues()
	}
	return src.RandomValues(g.Rand)
}
