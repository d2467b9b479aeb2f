package constraint

import "strings"

// AllOf holds when every member holds.
type AllOf struct {
	Constraints []Constraint
}

// AnyOf holds when at least one member holds.
type AnyOf struct {
	Constraints []Constraint
}

// Not holds when Inner does not.
type Not struct {
	Inner Constraint
}

// Conditional is if/then/else. A nil Else holds trivially.
type Conditional struct {
	If   Constraint
	Then Constraint
	Else Constraint
}

func (AllOf) constraint()       {}
func (AnyOf) constraint()       {}
func (Not) constraint()         {}
func (Conditional) constraint() {}

func (c AllOf) String() string { return "allOf(" + join(c.Constraints) + ")" }
func (c AnyOf) String() string { return "anyOf(" + join(c.Constraints) + ")" }
func (c Not) String() string   { return "not(" + c.Inner.String() + ")" }

func (c Conditional) String() string {
	if c.Else == nil {
		return "if(" + c.If.String() + ") then(" + c.Then.String() + ")"
	}
	return "if(" + c.If.String() + ") then(" + c.Then.String() + ") else(" + c.Else.String() + ")"
}

func join(cs []Constraint) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// Fields returns the names of every field the constraint mentions.
func Fields(c Constraint) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	var walk func(Constraint)
	walk = func(c Constraint) {
		switch x := c.(type) {
		case nil:
		case Relation:
			add(x.Main.Name)
			add(x.Other.Name)
		case Atomic:
			add(x.Field().Name)
		case AllOf:
			for _, m := range x.Constraints {
				walk(m)
			}
		case AnyOf:
			for _, m := range x.Constraints {
				walk(m)
			}
		case Not:
			walk(x.Inner)
		case Conditional:
			walk(x.If)
			walk(x.Then)
			walk(x.Else)
		}
	}
	walk(c)
	return out
}
