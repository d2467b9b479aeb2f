package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rowsynth/internal/config"
	"rowsynth/internal/runinfo"
	"rowsynth/internal/runner"
	"rowsynth/internal/uploader"
	"rowsynth/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	profilePath := flag.String("profile", "", "profile path (overrides config)")
	seed := flag.Int64("seed", 0, "random seed (overrides config when non-zero)")
	maxRows := flag.Int("max-rows", -1, "maximum rows (overrides config when >= 0)")
	stdout := flag.Bool("stdout", false, "write rows to stdout instead of a dataset directory")
	flag.Parse()

	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *profilePath != "" {
		cfg.Profile = *profilePath
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *maxRows >= 0 {
		cfg.MaxRows = *maxRows
	}
	if *stdout {
		cfg.Output.Stdout = true
	}
	util.SetVerbose(cfg.Logging.Verbose)
	if !cfg.Output.Stdout {
		// Rows go to files, so logs can share stdout with the log file.
		closer, err := util.TeeLogFile(cfg.Logging.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		if closer != nil {
			defer util.CloseWithErr(closer, "log file")
		}
	}
	if data, err := cfg.YAML(); err == nil {
		util.Highlightf("config:\n%s", data)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	up, err := uploader.New(ctx, cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init uploader: %v\n", err)
		os.Exit(1)
	}
	if closer, ok := up.(interface{ Close() error }); ok {
		defer util.CloseWithErr(closer, "uploader")
	}

	if _, err := runner.New(cfg, up).Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig falls back to defaults when the default config file is absent.
func loadConfig(path string) (config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && path == "config.yaml" {
		cfg, err := config.Parse(nil)
		cfg.RunInfo = runinfo.FromEnv()
		return cfg, err
	}
	return config.Load(path)
}
