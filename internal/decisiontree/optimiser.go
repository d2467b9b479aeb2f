package decisiontree

import (
	"rowsynth/internal/constraint"
)

// DefaultOptimiserIterations caps factorisation passes per node.
const DefaultOptimiserIterations = 50

// Optimiser factors the atomic shared by the most options of a decision
// out into its own decision, so walkers prune whole groups of options with
// a single merge.
type Optimiser struct {
	MaxIterations int
	MaxDepth      int
}

// Optimise returns an equivalent tree with shared atomics factored out.
func (o Optimiser) Optimise(tree *DecisionTree) *DecisionTree {
	return tree.WithRoot(o.optimiseNode(tree.Root, 0))
}

func (o Optimiser) optimiseNode(n *ConstraintNode, depth int) *ConstraintNode {
	maxIterations := o.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultOptimiserIterations
	}
	if o.MaxDepth > 0 && depth > o.MaxDepth {
		return n
	}
	cur := n
	for range maxIterations {
		next, changed := o.factoriseOnce(cur)
		if !changed {
			break
		}
		cur = next
	}
	decisions := make([]*DecisionNode, len(cur.decisions))
	changed := false
	for i, d := range cur.decisions {
		options := make([]*ConstraintNode, len(d.options))
		optionChanged := false
		for j, opt := range d.options {
			options[j] = o.optimiseNode(opt, depth+1)
			optionChanged = optionChanged || options[j] != opt
		}
		decisions[i] = d
		if optionChanged {
			decisions[i] = NewDecisionNode(options...)
			changed = true
		}
	}
	if !changed {
		return cur
	}
	return cur.WithDecisions(decisions)
}

// factoriseOnce rewrites the first decision that has an atomic shared (as
// itself or its negation) by at least two options.
func (o Optimiser) factoriseOnce(n *ConstraintNode) (*ConstraintNode, bool) {
	for _, d := range n.decisions {
		a, count := mostProlificAtomic(d)
		if count < 2 {
			continue
		}
		return n.InsertDecisionAfter(factorise(d, a), d).WithoutDecision(d), true
	}
	return n, false
}

// mostProlificAtomic finds the atomic carried by the most options. The
// result is the positive form; ties go to the first seen.
func mostProlificAtomic(d *DecisionNode) (constraint.Atomic, int) {
	counts := map[string]int{}
	var order []constraint.Atomic
	for _, opt := range d.options {
		for _, a := range opt.atomics {
			k := a.Key()
			if _, ok := counts[k]; !ok {
				order = append(order, a)
			}
			counts[k]++
		}
	}
	var best constraint.Atomic
	bestCount := 0
	for _, a := range order {
		if c := counts[a.Key()]; c > bestCount {
			best, bestCount = a, c
		}
	}
	if best == nil {
		return nil, 0
	}
	return positive(best), bestCount
}

func positive(a constraint.Atomic) constraint.Atomic {
	if n, ok := a.(constraint.Negated); ok {
		return n.Inner
	}
	return a
}

// factorise rewrites OR(a&X.., !a&Y.., Z..) as OR(a&OR(X..), !a&OR(Y..), Z..).
func factorise(d *DecisionNode, a constraint.Atomic) *DecisionNode {
	neg := constraint.Negate(a)
	var with, without, others []*ConstraintNode
	for _, opt := range d.options {
		switch {
		case opt.ContainsAtomic(a):
			with = append(with, opt.CloneWithoutAtomic(a))
		case opt.ContainsAtomic(neg):
			without = append(without, opt.CloneWithoutAtomic(neg))
		default:
			others = append(others, opt)
		}
	}
	var options []*ConstraintNode
	if len(with) > 0 {
		options = append(options, factorNode(a, with))
	}
	if len(without) > 0 {
		options = append(options, factorNode(neg, without))
	}
	return NewDecisionNode(append(options, others...)...)
}

func factorNode(a constraint.Atomic, options []*ConstraintNode) *ConstraintNode {
	n := Leaf(a)
	n.optimised = true
	if len(options) == 1 {
		merged := Merge(n, options[0])
		merged.optimised = true
		return merged
	}
	for _, opt := range options {
		if len(opt.atomics) == 0 && len(opt.decisions) == 0 {
			return n
		}
	}
	n.decisions = []*DecisionNode{NewDecisionNode(options...)}
	return n
}
