package decisiontree

import (
	"rowsynth/internal/constraint"
	"rowsynth/internal/schema"
	"rowsynth/internal/util"
)

// Build compiles logical constraints into a tree. The constraints are
// conjoined at the root.
func Build(fields schema.ProfileFields, constraints []constraint.Constraint) *DecisionTree {
	nodes := make([]*ConstraintNode, 0, len(constraints))
	for _, c := range constraints {
		nodes = append(nodes, convert(c, false))
	}
	return &DecisionTree{Root: Merge(nodes...), Fields: fields}
}

// convert turns c (or its negation) into a node, pushing negation down to
// the atomics.
func convert(c constraint.Constraint, negate bool) *ConstraintNode {
	switch x := c.(type) {
	case constraint.Atomic:
		if negate {
			return Leaf(constraint.Negate(x))
		}
		return Leaf(x)
	case constraint.Not:
		return convert(x.Inner, !negate)
	case constraint.AllOf:
		if negate {
			return anyOf(x.Constraints, true)
		}
		return allOf(x.Constraints, false)
	case constraint.AnyOf:
		if negate {
			return allOf(x.Constraints, true)
		}
		return anyOf(x.Constraints, false)
	case constraint.Conditional:
		return conditional(x, negate)
	default:
		util.Invariantf("unsupported constraint %T", c)
		return nil
	}
}

func allOf(cs []constraint.Constraint, negate bool) *ConstraintNode {
	nodes := make([]*ConstraintNode, len(cs))
	for i, c := range cs {
		nodes[i] = convert(c, negate)
	}
	return Merge(nodes...)
}

func anyOf(cs []constraint.Constraint, negate bool) *ConstraintNode {
	options := make([]*ConstraintNode, len(cs))
	for i, c := range cs {
		options[i] = convert(c, negate)
	}
	return NewConstraintNode(nil, []*DecisionNode{NewDecisionNode(options...)})
}

// conditional encodes if/then/else as a decision between (If and Then) and
// (not If and Else). The negation of a conditional keeps the condition and
// negates both branches; without an else branch it reduces to
// (If and not Then).
func conditional(c constraint.Conditional, negate bool) *ConstraintNode {
	if negate {
		if c.Else == nil {
			return Merge(convert(c.If, false), convert(c.Then, true))
		}
		return conditional(constraint.Conditional{
			If:   c.If,
			Then: constraint.Not{Inner: c.Then},
			Else: constraint.Not{Inner: c.Else},
		}, false)
	}
	whenTrue := Merge(convert(c.If, false), convert(c.Then, false))
	whenFalse := convert(c.If, true)
	if c.Else != nil {
		whenFalse = Merge(whenFalse, convert(c.Else, false))
	}
	return NewConstraintNode(nil, []*DecisionNode{NewDecisionNode(whenTrue, whenFalse)})
}
