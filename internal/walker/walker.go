package walker

import (
	"iter"
	"slices"

	"rowsynth/internal/decisiontree"
	"rowsynth/internal/fieldspec"
)

// Walker yields the row specs a tree admits.
type Walker interface {
	Walk(tree *decisiontree.DecisionTree) iter.Seq[*fieldspec.RowSpec]
}

// CartesianProductWalker visits every combination of options depth first,
// pruning a path as soon as a merge contradicts.
type CartesianProductWalker struct {
	Reducer fieldspec.Reducer
}

// Walk implements Walker.
func (w CartesianProductWalker) Walk(tree *decisiontree.DecisionTree) iter.Seq[*fieldspec.RowSpec] {
	return func(yield func(*fieldspec.RowSpec) bool) {
		root, ok := tree.Root.RowSpec(w.Reducer, tree.Fields)
		if !ok {
			return
		}
		w.walk(tree, root, tree.Root.Decisions(), yield)
	}
}

// walk resolves pending decisions in order. Choosing an option puts that
// option's own decisions ahead of the remaining siblings.
func (w CartesianProductWalker) walk(tree *decisiontree.DecisionTree, acc *fieldspec.RowSpec, pending []*decisiontree.DecisionNode, yield func(*fieldspec.RowSpec) bool) bool {
	if len(pending) == 0 {
		return yield(acc)
	}
	rest := pending[1:]
	for _, opt := range pending[0].Options() {
		spec, ok := opt.RowSpec(w.Reducer, tree.Fields)
		if !ok {
			continue
		}
		merged, ok := fieldspec.MergeRowSpecs(acc, spec)
		if !ok {
			continue
		}
		next := append(slices.Clone(opt.Decisions()), rest...)
		if !w.walk(tree, merged, next, yield) {
			return false
		}
	}
	return true
}
