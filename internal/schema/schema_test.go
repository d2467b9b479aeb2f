package schema

import "testing"

func TestParseFieldType(t *testing.T) {
	cases := []struct {
		in   string
		want FieldType
		kind Kind
	}{
		{"decimal", TypeDecimal, KindNumeric},
		{"Integer", TypeInteger, KindNumeric},
		{" string ", TypeString, KindString},
		{"datetime", TypeDatetime, KindDatetime},
		{"date", TypeDate, KindDatetime},
	}
	for _, c := range cases {
		got, ok := ParseFieldType(c.in)
		if !ok || got != c.want {
			t.Fatalf("ParseFieldType(%q)=%v,%v want %v", c.in, got, ok, c.want)
		}
		if got.Kind() != c.kind {
			t.Fatalf("%v kind=%v want %v", got, got.Kind(), c.kind)
		}
	}
	if _, ok := ParseFieldType("blob"); ok {
		t.Fatalf("expected unknown type to be rejected")
	}
}

func TestProfileFieldsRejectsDuplicates(t *testing.T) {
	_, err := NewProfileFields([]Field{{Name: "a"}, {Name: "a"}})
	if err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestProfileFieldsLookup(t *testing.T) {
	pf := MustProfileFields(Field{Name: "a", Type: TypeInteger}, Field{Name: "b", Type: TypeString})
	if pf.Len() != 2 || pf.IndexOf("b") != 1 || pf.IndexOf("c") != -1 {
		t.Fatalf("unexpected index state: %v", pf.Names())
	}
	f, ok := pf.ByName("a")
	if !ok || f.Type != TypeInteger {
		t.Fatalf("ByName(a)=%v,%v", f, ok)
	}
	other := MustProfileFields(Field{Name: "a", Type: TypeInteger}, Field{Name: "b", Type: TypeString})
	if !pf.Equal(other) {
		t.Fatalf("expected equal field sets")
	}
	if pf.Equal(MustProfileFields(Field{Name: "a", Type: TypeInteger})) {
		t.Fatalf("expected different field sets")
	}
}
