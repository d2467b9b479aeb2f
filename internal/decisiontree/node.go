// Package decisiontree models constraints as a tree of AND nodes
// (ConstraintNode) and OR nodes (DecisionNode). Nodes are immutable; every
// edit returns a new node and shares untouched children.
package decisiontree

import (
	"slices"
	"strings"
	"sync/atomic"

	"rowsynth/internal/constraint"
	"rowsynth/internal/fieldspec"
	"rowsynth/internal/schema"
)

// ConstraintNode holds when all of its atomics hold and, for every
// decision, at least one option holds.
type ConstraintNode struct {
	atomics   []constraint.Atomic
	decisions []*DecisionNode
	optimised bool

	reduced atomic.Pointer[reduction]
}

type reduction struct {
	spec *fieldspec.RowSpec
	ok   bool
}

// DecisionNode holds when at least one option holds.
type DecisionNode struct {
	options []*ConstraintNode
}

// NewConstraintNode builds a node. Atomics are de-duplicated by key.
func NewConstraintNode(atomics []constraint.Atomic, decisions []*DecisionNode) *ConstraintNode {
	return &ConstraintNode{atomics: uniqueAtomics(atomics), decisions: slices.Clone(decisions)}
}

// Leaf builds a node with atomics only.
func Leaf(atomics ...constraint.Atomic) *ConstraintNode {
	return NewConstraintNode(atomics, nil)
}

// NewDecisionNode builds an OR node.
func NewDecisionNode(options ...*ConstraintNode) *DecisionNode {
	return &DecisionNode{options: slices.Clone(options)}
}

func uniqueAtomics(in []constraint.Atomic) []constraint.Atomic {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]constraint.Atomic, 0, len(in))
	for _, a := range in {
		k := a.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}

// Atomics returns the node's atomics.
func (n *ConstraintNode) Atomics() []constraint.Atomic { return n.atomics }

// Decisions returns the node's decisions in order.
func (n *ConstraintNode) Decisions() []*DecisionNode { return n.decisions }

// IsOptimised reports whether the node was produced by the optimiser.
func (n *ConstraintNode) IsOptimised() bool { return n.optimised }

// IsLeaf reports whether the node has no decisions.
func (n *ConstraintNode) IsLeaf() bool { return len(n.decisions) == 0 }

// Options returns the decision's options in order.
func (d *DecisionNode) Options() []*ConstraintNode { return d.options }

// ContainsAtomic reports whether the node carries an atomic with a's key.
func (n *ConstraintNode) ContainsAtomic(a constraint.Atomic) bool {
	k := a.Key()
	return slices.ContainsFunc(n.atomics, func(x constraint.Atomic) bool { return x.Key() == k })
}

// RowSpec reduces the node's own atomics, memoizing the result. Concurrent
// first calls may both compute; either result is kept.
func (n *ConstraintNode) RowSpec(reducer fieldspec.Reducer, fields schema.ProfileFields) (*fieldspec.RowSpec, bool) {
	if r := n.reduced.Load(); r != nil {
		return r.spec, r.ok
	}
	spec, ok := reducer.Reduce(fields, n.atomics)
	n.reduced.Store(&reduction{spec: spec, ok: ok})
	return spec, ok
}

// Merge is the structural union of atomics and decisions.
func Merge(nodes ...*ConstraintNode) *ConstraintNode {
	var atomics []constraint.Atomic
	var decisions []*DecisionNode
	optimised := false
	for _, n := range nodes {
		atomics = append(atomics, n.atomics...)
		decisions = append(decisions, n.decisions...)
		optimised = optimised || n.optimised
	}
	out := NewConstraintNode(atomics, decisions)
	out.optimised = optimised
	return out
}

// CloneWithoutAtomic returns a copy without a, marked optimised.
func (n *ConstraintNode) CloneWithoutAtomic(a constraint.Atomic) *ConstraintNode {
	k := a.Key()
	atomics := slices.DeleteFunc(slices.Clone(n.atomics), func(x constraint.Atomic) bool { return x.Key() == k })
	return &ConstraintNode{atomics: atomics, decisions: n.decisions, optimised: true}
}

// WithAtomics returns a copy with extra atomics.
func (n *ConstraintNode) WithAtomics(atomics ...constraint.Atomic) *ConstraintNode {
	return &ConstraintNode{
		atomics:   uniqueAtomics(append(slices.Clone(n.atomics), atomics...)),
		decisions: n.decisions,
		optimised: n.optimised,
	}
}

// WithDecisions returns a copy with the decisions replaced.
func (n *ConstraintNode) WithDecisions(decisions []*DecisionNode) *ConstraintNode {
	return &ConstraintNode{atomics: n.atomics, decisions: slices.Clone(decisions), optimised: n.optimised}
}

// InsertDecisionAfter returns a copy with d placed right after anchor, or
// appended when anchor is not one of the node's decisions.
func (n *ConstraintNode) InsertDecisionAfter(d, anchor *DecisionNode) *ConstraintNode {
	decisions := make([]*DecisionNode, 0, len(n.decisions)+1)
	inserted := false
	for _, existing := range n.decisions {
		decisions = append(decisions, existing)
		if existing == anchor && !inserted {
			decisions = append(decisions, d)
			inserted = true
		}
	}
	if !inserted {
		decisions = append(decisions, d)
	}
	return &ConstraintNode{atomics: n.atomics, decisions: decisions, optimised: n.optimised}
}

// WithoutDecision returns a copy without d.
func (n *ConstraintNode) WithoutDecision(d *DecisionNode) *ConstraintNode {
	decisions := slices.DeleteFunc(slices.Clone(n.decisions), func(x *DecisionNode) bool { return x == d })
	return &ConstraintNode{atomics: n.atomics, decisions: decisions, optimised: n.optimised}
}

// Simplify hoists every single-option decision into this node: the
// option's atomics join the node's and its decisions become siblings
// appended after the remaining ones. It returns n itself when there is
// nothing to hoist.
func (n *ConstraintNode) Simplify() *ConstraintNode {
	if !slices.ContainsFunc(n.decisions, func(d *DecisionNode) bool { return len(d.options) == 1 }) {
		return n
	}
	atomics := slices.Clone(n.atomics)
	var kept, hoisted []*DecisionNode
	for _, d := range n.decisions {
		if len(d.options) != 1 {
			kept = append(kept, d)
			continue
		}
		only := d.options[0]
		atomics = append(atomics, only.atomics...)
		hoisted = append(hoisted, only.decisions...)
	}
	return &ConstraintNode{
		atomics:   uniqueAtomics(atomics),
		decisions: append(kept, hoisted...),
		optimised: n.optimised,
	}
}

// SimplifyFully repeats Simplify until nothing changes, then simplifies
// every option below.
func (n *ConstraintNode) SimplifyFully() *ConstraintNode {
	cur := n
	for {
		next := cur.Simplify()
		if next == cur {
			break
		}
		cur = next
	}
	changed := false
	decisions := make([]*DecisionNode, len(cur.decisions))
	for i, d := range cur.decisions {
		options := make([]*ConstraintNode, len(d.options))
		optionChanged := false
		for j, o := range d.options {
			options[j] = o.SimplifyFully()
			optionChanged = optionChanged || options[j] != o
		}
		if optionChanged {
			decisions[i] = &DecisionNode{options: options}
			changed = true
			continue
		}
		decisions[i] = d
	}
	if !changed {
		return cur
	}
	return &ConstraintNode{atomics: cur.atomics, decisions: decisions, optimised: cur.optimised}
}

func (n *ConstraintNode) String() string {
	parts := make([]string, 0, len(n.atomics)+len(n.decisions))
	for _, a := range n.atomics {
		parts = append(parts, a.String())
	}
	for _, d := range n.decisions {
		parts = append(parts, d.String())
	}
	return "AND(" + strings.Join(parts, ", ") + ")"
}

func (d *DecisionNode) String() string {
	parts := make([]string, len(d.options))
	for i, o := range d.options {
		parts[i] = o.String()
	}
	return "OR(" + strings.Join(parts, ", ") + ")"
}

// DecisionTree is a root node over a declared field set.
type DecisionTree struct {
	Root   *ConstraintNode
	Fields schema.ProfileFields
}

// WithRoot returns a tree over the same fields with a new root.
func (t *DecisionTree) WithRoot(root *ConstraintNode) *DecisionTree {
	return &DecisionTree{Root: root, Fields: t.Fields}
}

// Stats summarizes the size of a tree.
type Stats struct {
	ConstraintNodes int `json:"constraint_nodes"`
	DecisionNodes   int `json:"decision_nodes"`
	Atomics         int `json:"atomics"`
	MaxDepth        int `json:"max_depth"`
}

// Stats walks the tree once.
func (t *DecisionTree) Stats() Stats {
	var s Stats
	var walk func(n *ConstraintNode, depth int)
	walk = func(n *ConstraintNode, depth int) {
		s.ConstraintNodes++
		s.Atomics += len(n.atomics)
		s.MaxDepth = max(s.MaxDepth, depth)
		for _, d := range n.decisions {
			s.DecisionNodes++
			for _, o := range d.options {
				walk(o, depth+1)
			}
		}
	}
	walk(t.Root, 0)
	return s
}
