package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"rowsynth/internal/config"
	"rowsynth/internal/decisiontree"
	"rowsynth/internal/profile"
	"rowsynth/internal/runner"
	"rowsynth/internal/util"
)

func main() {
	profilePath := flag.String("profile", "", "path to profile")
	ddlPath := flag.String("ddl", "", "optional CREATE TABLE file")
	table := flag.String("table", "", "table to import from the ddl file (default: first)")
	out := flag.String("output", "", "output .dot file (default: stdout)")
	optimise := flag.Bool("optimise", true, "factor shared atomics before rendering")
	title := flag.String("title", "", "graph title (default: profile path)")
	flag.Parse()

	if *profilePath == "" && *ddlPath == "" {
		fmt.Fprintln(os.Stderr, "profile or ddl is required")
		flag.Usage()
		os.Exit(1)
	}
	p, err := load(*profilePath, *ddlPath, *table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load profile: %v\n", err)
		os.Exit(1)
	}
	tree, _ := runner.BuildTree(p, config.Generation{Optimise: *optimise})

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create output: %v\n", err)
			os.Exit(1)
		}
		defer util.CloseWithErr(f, "dot output")
		w = f
	}
	name := *title
	if name == "" {
		name = *profilePath
	}
	if err := decisiontree.WriteDOT(w, tree, name); err != nil {
		fmt.Fprintf(os.Stderr, "write dot: %v\n", err)
		os.Exit(1)
	}
	stats := tree.Stats()
	fmt.Fprintf(os.Stderr, "constraint_nodes=%d decision_nodes=%d atomics=%d depth=%d\n",
		stats.ConstraintNodes, stats.DecisionNodes, stats.Atomics, stats.MaxDepth)
}

func load(profilePath, ddlPath, table string) (*profile.Profile, error) {
	var t *profile.Table
	if ddlPath != "" {
		var err error
		t, err = profile.LoadDDL(ddlPath, table)
		if err != nil {
			return nil, err
		}
	}
	if profilePath == "" {
		return profile.Parse(nil, t)
	}
	return profile.Load(profilePath, t)
}
