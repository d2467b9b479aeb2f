package decisiontree

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteDOT renders the tree as a Graphviz digraph. Constraint nodes are
// boxes listing their atomics; decision nodes are small circles.
func WriteDOT(w io.Writer, tree *DecisionTree, title string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph tree {")
	fmt.Fprintln(bw, "  graph [fontname=\"helvetica\"];")
	fmt.Fprintln(bw, "  node [fontname=\"helvetica\", fontsize=10];")
	if title != "" {
		fmt.Fprintf(bw, "  labelloc=\"t\";\n  label=%q;\n", title)
	}
	next := 0
	id := func() string {
		next++
		return fmt.Sprintf("n%d", next)
	}
	var writeConstraint func(n *ConstraintNode) string
	writeConstraint = func(n *ConstraintNode) string {
		me := id()
		lines := make([]string, len(n.atomics))
		for i, a := range n.atomics {
			lines[i] = a.String()
		}
		style := ""
		if n.optimised {
			style = ", color=red"
		}
		fmt.Fprintf(bw, "  %s [shape=box, label=%q%s];\n", me, strings.Join(lines, "\n"), style)
		for _, d := range n.decisions {
			dn := id()
			fmt.Fprintf(bw, "  %s [shape=circle, label=\"\", width=0.2];\n", dn)
			fmt.Fprintf(bw, "  %s -> %s;\n", me, dn)
			for _, opt := range d.options {
				child := writeConstraint(opt)
				fmt.Fprintf(bw, "  %s -> %s;\n", dn, child)
			}
		}
		return me
	}
	writeConstraint(tree.Root)
	stats := tree.Stats()
	fmt.Fprintf(bw, "  // constraint nodes: %d, decisions: %d, atomics: %d, depth: %d\n",
		stats.ConstraintNodes, stats.DecisionNodes, stats.Atomics, stats.MaxDepth)
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
