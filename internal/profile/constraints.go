package profile

import (
	"sort"
	"strings"

	"rowsynth/internal/constraint"
	"rowsynth/internal/restriction"
	"rowsynth/internal/schema"

	"github.com/pkg/errors"
)

// constraintDoc is one entry of the profile's constraint list. Exactly one
// predicate key may be set, plus `field` for atomic predicates.
type constraintDoc struct {
	Field string `yaml:"field"`

	EqualTo               any   `yaml:"equalTo"`
	InSet                 []any `yaml:"inSet"`
	GreaterThan           any   `yaml:"greaterThan"`
	GreaterThanOrEqualTo  any   `yaml:"greaterThanOrEqualTo"`
	LessThan              any   `yaml:"lessThan"`
	LessThanOrEqualTo     any   `yaml:"lessThanOrEqualTo"`
	After                 any   `yaml:"after"`
	AfterOrAt             any   `yaml:"afterOrAt"`
	Before                any   `yaml:"before"`
	BeforeOrAt            any   `yaml:"beforeOrAt"`
	MatchingRegex         any   `yaml:"matchingRegex"`
	ContainingRegex       any   `yaml:"containingRegex"`
	OfLength              any   `yaml:"ofLength"`
	ShorterThan           any   `yaml:"shorterThan"`
	LongerThan            any   `yaml:"longerThan"`
	GranularTo            any   `yaml:"granularTo"`
	IsNull                *bool `yaml:"isNull"`
	EqualToField          any   `yaml:"equalToField"`
	NotEqualToField       any   `yaml:"notEqualToField"`
	GreaterThanField      any   `yaml:"greaterThanField"`
	GreaterThanOrEqualToF any   `yaml:"greaterThanOrEqualToField"`
	LessThanField         any   `yaml:"lessThanField"`
	LessThanOrEqualToF    any   `yaml:"lessThanOrEqualToField"`
	AfterField            any   `yaml:"afterField"`
	AfterOrAtField        any   `yaml:"afterOrAtField"`
	BeforeField           any   `yaml:"beforeField"`
	BeforeOrAtField       any   `yaml:"beforeOrAtField"`

	Offset int64  `yaml:"offset"`
	Unit   string `yaml:"offsetUnit"`

	AllOf []constraintDoc `yaml:"allOf"`
	AnyOf []constraintDoc `yaml:"anyOf"`
	Not   *constraintDoc  `yaml:"not"`
	If    *constraintDoc  `yaml:"if"`
	Then  *constraintDoc  `yaml:"then"`
	Else  *constraintDoc  `yaml:"else"`
}

type predicate struct {
	key   string
	value any
}

func (d constraintDoc) predicates() []predicate {
	all := []predicate{
		{"equalTo", d.EqualTo},
		{"inSet", nilIfEmpty(d.InSet)},
		{"greaterThan", d.GreaterThan},
		{"greaterThanOrEqualTo", d.GreaterThanOrEqualTo},
		{"lessThan", d.LessThan},
		{"lessThanOrEqualTo", d.LessThanOrEqualTo},
		{"after", d.After},
		{"afterOrAt", d.AfterOrAt},
		{"before", d.Before},
		{"beforeOrAt", d.BeforeOrAt},
		{"matchingRegex", d.MatchingRegex},
		{"containingRegex", d.ContainingRegex},
		{"ofLength", d.OfLength},
		{"shorterThan", d.ShorterThan},
		{"longerThan", d.LongerThan},
		{"granularTo", d.GranularTo},
		{"isNull", boolOrNil(d.IsNull)},
		{"equalToField", d.EqualToField},
		{"notEqualToField", d.NotEqualToField},
		{"greaterThanField", d.GreaterThanField},
		{"greaterThanOrEqualToField", d.GreaterThanOrEqualToF},
		{"lessThanField", d.LessThanField},
		{"lessThanOrEqualToField", d.LessThanOrEqualToF},
		{"afterField", d.AfterField},
		{"afterOrAtField", d.AfterOrAtField},
		{"beforeField", d.BeforeField},
		{"beforeOrAtField", d.BeforeOrAtField},
	}
	out := all[:0]
	for _, p := range all {
		if p.value != nil {
			out = append(out, p)
		}
	}
	return out
}

func nilIfEmpty(v []any) any {
	if len(v) == 0 {
		return nil
	}
	return v
}

func boolOrNil(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

func (d constraintDoc) logicalKeys() []string {
	var keys []string
	if d.AllOf != nil {
		keys = append(keys, "allOf")
	}
	if d.AnyOf != nil {
		keys = append(keys, "anyOf")
	}
	if d.Not != nil {
		keys = append(keys, "not")
	}
	if d.If != nil || d.Then != nil || d.Else != nil {
		keys = append(keys, "if")
	}
	return keys
}

// compiler turns constraint documents into constraints over declared fields.
type compiler struct {
	fields schema.ProfileFields
}

func (c compiler) compile(d constraintDoc) (constraint.Constraint, error) {
	preds := d.predicates()
	logical := d.logicalKeys()
	switch {
	case len(preds)+len(logical) == 0:
		return nil, errors.New("constraint has no predicate")
	case len(preds)+len(logical) > 1:
		keys := logical
		for _, p := range preds {
			keys = append(keys, p.key)
		}
		sort.Strings(keys)
		return nil, errors.Errorf("constraint mixes predicates %s", strings.Join(keys, ", "))
	case len(logical) == 1:
		if d.Field != "" {
			return nil, errors.Errorf("%s must not name a field", logical[0])
		}
		return c.compileLogical(d, logical[0])
	}
	f, ok := c.fields.ByName(d.Field)
	if !ok {
		if d.Field == "" {
			return nil, errors.Errorf("%s requires a field", preds[0].key)
		}
		return nil, errors.Errorf("unknown field %q", d.Field)
	}
	if _, rel := relationKinds[preds[0].key]; !rel && (d.Offset != 0 || d.Unit != "") {
		return nil, errors.Errorf("%s on %s takes no offset", preds[0].key, f.Name)
	}
	a, err := c.compileAtomic(f, preds[0], d)
	if err != nil {
		return nil, errors.Wrapf(err, "%s on %s", preds[0].key, f.Name)
	}
	return a, nil
}

func (c compiler) compileList(docs []constraintDoc, key string) ([]constraint.Constraint, error) {
	out := make([]constraint.Constraint, 0, len(docs))
	for i, d := range docs {
		cc, err := c.compile(d)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", key, i)
		}
		out = append(out, cc)
	}
	return out, nil
}

func (c compiler) compileLogical(d constraintDoc, key string) (constraint.Constraint, error) {
	switch key {
	case "allOf":
		cs, err := c.compileList(d.AllOf, key)
		if err != nil {
			return nil, err
		}
		return constraint.AllOf{Constraints: cs}, nil
	case "anyOf":
		if len(d.AnyOf) == 0 {
			return nil, errors.New("anyOf requires at least one option")
		}
		cs, err := c.compileList(d.AnyOf, key)
		if err != nil {
			return nil, err
		}
		return constraint.AnyOf{Constraints: cs}, nil
	case "not":
		inner, err := c.compile(*d.Not)
		if err != nil {
			return nil, errors.Wrap(err, "not")
		}
		return constraint.Not{Inner: inner}, nil
	default:
		if d.If == nil || d.Then == nil {
			return nil, errors.New("conditional requires if and then")
		}
		cond, err := c.compile(*d.If)
		if err != nil {
			return nil, errors.Wrap(err, "if")
		}
		then, err := c.compile(*d.Then)
		if err != nil {
			return nil, errors.Wrap(err, "then")
		}
		out := constraint.Conditional{If: cond, Then: then}
		if d.Else != nil {
			out.Else, err = c.compile(*d.Else)
			if err != nil {
				return nil, errors.Wrap(err, "else")
			}
		}
		return out, nil
	}
}

var numericBounds = map[string]constraint.BoundOp{
	"greaterThan":          constraint.GreaterThan,
	"greaterThanOrEqualTo": constraint.GreaterThanOrEqual,
	"lessThan":             constraint.LessThan,
	"lessThanOrEqualTo":    constraint.LessThanOrEqual,
}

var dateBounds = map[string]constraint.BoundOp{
	"after":      constraint.GreaterThan,
	"afterOrAt":  constraint.GreaterThanOrEqual,
	"before":     constraint.LessThan,
	"beforeOrAt": constraint.LessThanOrEqual,
}

var lengthOps = map[string]constraint.LengthOp{
	"ofLength":    constraint.OfLength,
	"shorterThan": constraint.ShorterThan,
	"longerThan":  constraint.LongerThan,
}

var relationKinds = map[string]constraint.RelationKind{
	"equalToField":              constraint.RelEqual,
	"notEqualToField":           constraint.RelNotEqual,
	"greaterThanField":          constraint.RelGreaterThan,
	"greaterThanOrEqualToField": constraint.RelGreaterThanOrEqual,
	"lessThanField":             constraint.RelLessThan,
	"lessThanOrEqualToField":    constraint.RelLessThanOrEqual,
	"afterField":                constraint.RelGreaterThan,
	"afterOrAtField":            constraint.RelGreaterThanOrEqual,
	"beforeField":               constraint.RelLessThan,
	"beforeOrAtField":           constraint.RelLessThanOrEqual,
}

func (c compiler) compileAtomic(f schema.Field, p predicate, d constraintDoc) (constraint.Constraint, error) {
	if op, ok := numericBounds[p.key]; ok {
		if err := requireKind(f, schema.KindNumeric); err != nil {
			return nil, err
		}
		v, err := toDecimal(p.value)
		if err != nil {
			return nil, err
		}
		return constraint.NumericBound{F: f, Op: op, Value: v}, nil
	}
	if op, ok := dateBounds[p.key]; ok {
		if err := requireKind(f, schema.KindDatetime); err != nil {
			return nil, err
		}
		v, err := toDateTime(p.value)
		if err != nil {
			return nil, err
		}
		return constraint.DateBound{F: f, Op: op, Value: v}, nil
	}
	if op, ok := lengthOps[p.key]; ok {
		if err := requireKind(f, schema.KindString); err != nil {
			return nil, err
		}
		n, err := toInt(p.value)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, errors.Errorf("length %d must not be negative", n)
		}
		return constraint.StringLength{F: f, Op: op, Length: n}, nil
	}
	if kind, ok := relationKinds[p.key]; ok {
		return c.compileRelation(f, kind, p, d)
	}
	switch p.key {
	case "equalTo":
		v, err := coerceValue(f, p.value)
		if err != nil {
			return nil, err
		}
		return constraint.EqualTo(f, v), nil
	case "inSet":
		return compileInSet(f, p.value.([]any))
	case "matchingRegex", "containingRegex":
		if err := requireKind(f, schema.KindString); err != nil {
			return nil, err
		}
		src, ok := p.value.(string)
		if !ok {
			return nil, errors.Errorf("expected a regex string, got %T", p.value)
		}
		pat, err := restriction.NewPattern(src, p.key == "matchingRegex")
		if err != nil {
			return nil, errors.Wrap(err, "compile regex")
		}
		return constraint.Matches{F: f, Pattern: pat}, nil
	case "granularTo":
		return compileGranularTo(f, p.value)
	case "isNull":
		if p.value.(bool) {
			return constraint.IsNull{F: f}, nil
		}
		return constraint.Negate(constraint.IsNull{F: f}), nil
	}
	return nil, errors.Errorf("unsupported predicate %s", p.key)
}

func compileInSet(f schema.Field, raw []any) (constraint.Constraint, error) {
	elements := make([]restriction.WeightedElement, 0, len(raw))
	for i, item := range raw {
		value, weight := item, 1.0
		if m, ok := item.(map[string]any); ok {
			value = m["value"]
			if w, ok := m["weight"]; ok {
				d, err := toDecimal(w)
				if err != nil {
					return nil, errors.Wrapf(err, "inSet[%d] weight", i)
				}
				weight = d.InexactFloat64()
			}
		}
		v, err := coerceValue(f, value)
		if err != nil {
			return nil, errors.Wrapf(err, "inSet[%d]", i)
		}
		if v == nil {
			return nil, errors.Errorf("inSet[%d]: null is not a set member, use isNull", i)
		}
		elements = append(elements, restriction.WeightedElement{Value: v, Weight: weight})
	}
	return constraint.InSet{F: f, Values: restriction.NewDistributedList(elements)}, nil
}

func compileGranularTo(f schema.Field, raw any) (constraint.Constraint, error) {
	switch f.Type.Kind() {
	case schema.KindNumeric:
		step, err := toDecimal(raw)
		if err != nil {
			return nil, err
		}
		g, err := restriction.GranularityFromStep(step)
		if err != nil {
			return nil, err
		}
		return constraint.NumericGranularTo{F: f, Scale: g.Scale()}, nil
	case schema.KindDatetime:
		name, _ := raw.(string)
		unit, ok := restriction.ParseTimeUnit(name)
		if !ok {
			return nil, errors.Errorf("unknown time unit %v", raw)
		}
		return constraint.DateGranularTo{F: f, Unit: unit}, nil
	default:
		return nil, errors.Errorf("granularTo does not apply to %s fields", f.Type)
	}
}

func (c compiler) compileRelation(f schema.Field, kind constraint.RelationKind, p predicate, d constraintDoc) (constraint.Constraint, error) {
	name, ok := p.value.(string)
	if !ok {
		return nil, errors.Errorf("expected a field name, got %T", p.value)
	}
	other, ok := c.fields.ByName(name)
	if !ok {
		return nil, errors.Errorf("unknown field %q", name)
	}
	if other.Name == f.Name {
		return nil, errors.New("a field cannot relate to itself")
	}
	if other.Type.Kind() != f.Type.Kind() {
		return nil, errors.Errorf("cannot relate %s field to %s field %s", f.Type, other.Type, other.Name)
	}
	_, dateKey := dateRelations[p.key]
	if dateKey && f.Type.Kind() != schema.KindDatetime {
		return nil, errors.Errorf("%s requires datetime fields", p.key)
	}
	rel := constraint.Relation{Main: f, Other: other, Kind: kind, Offset: d.Offset}
	switch f.Type.Kind() {
	case schema.KindString:
		if kind != constraint.RelEqual && kind != constraint.RelNotEqual {
			return nil, errors.New("string fields only support equal and not-equal relations")
		}
		if d.Offset != 0 {
			return nil, errors.New("string relations take no offset")
		}
	case schema.KindDatetime:
		rel.Unit = restriction.Days
		if d.Unit != "" {
			u, ok := restriction.ParseTimeUnit(d.Unit)
			if !ok {
				return nil, errors.Errorf("unknown offset unit %q", d.Unit)
			}
			rel.Unit = u
		}
	default:
		if d.Unit != "" {
			return nil, errors.New("numeric relations take no offset unit")
		}
	}
	return rel, nil
}

var dateRelations = map[string]struct{}{
	"afterField": {}, "afterOrAtField": {}, "beforeField": {}, "beforeOrAtField": {},
}

func requireKind(f schema.Field, kind schema.Kind) error {
	if f.Type.Kind() != kind {
		return errors.Errorf("requires a %s field, %s is %s", kind, f.Name, f.Type)
	}
	return nil
}
