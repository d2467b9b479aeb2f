package constraint

import (
	"testing"

	"rowsynth/internal/schema"

	"github.com/shopspring/decimal"
)

var price = schema.Field{Name: "price", Type: schema.TypeDecimal}

func TestNegateCancels(t *testing.T) {
	a := NumericBound{F: price, Op: GreaterThan, Value: decimal.NewFromInt(10)}
	n := Negate(a)
	if n.Key() == a.Key() {
		t.Fatalf("negation kept key %s", n.Key())
	}
	if Negate(n).Key() != a.Key() {
		t.Fatalf("double negation=%s want %s", Negate(n).Key(), a.Key())
	}
}

func TestKeysAreCanonical(t *testing.T) {
	a := NumericBound{F: price, Op: LessThan, Value: decimal.RequireFromString("10.0")}
	b := NumericBound{F: price, Op: LessThan, Value: decimal.NewFromInt(10)}
	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %s vs %s", a.Key(), b.Key())
	}
	if EqualTo(price, 3).Key() != InSetOf(price, 3).Key() {
		t.Fatalf("EqualTo should be a single member InSet")
	}
}

func TestRelationNegate(t *testing.T) {
	other := schema.Field{Name: "cost", Type: schema.TypeDecimal}
	r := Relation{Main: price, Other: other, Kind: RelGreaterThan}
	if got := Negate(r).(Relation).Kind; got != RelLessThanOrEqual {
		t.Fatalf("negated kind=%s", got)
	}
}

func TestFields(t *testing.T) {
	other := schema.Field{Name: "cost", Type: schema.TypeDecimal}
	c := Conditional{
		If:   IsNull{F: price},
		Then: Relation{Main: other, Other: price, Kind: RelEqual},
	}
	got := Fields(c)
	if len(got) != 2 || got[0] != "price" || got[1] != "cost" {
		t.Fatalf("Fields=%v", got)
	}
}
