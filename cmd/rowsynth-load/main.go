package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"rowsynth/internal/replay"
)

func main() {
	datasetDir := flag.String("dataset_dir", "", "path to a dataset directory written with output.format=sql")
	dsn := flag.String("dsn", "", "database DSN")
	database := flag.String("database", "rowsynth_replay", "database to load the dataset into")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if *datasetDir == "" || *dsn == "" {
		fmt.Fprintln(os.Stderr, "dataset_dir and dsn are required")
		flag.Usage()
		os.Exit(1)
	}

	res, err := replay.Run(context.Background(), replay.Options{
		DatasetDir: *datasetDir,
		DSN:        *dsn,
		Database:   *database,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "load failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("database=%s statements=%d rows=%d\n", *database, res.Statements, res.Rows)
}
