package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/wikibfs/pkg/config"
	"github.com/dd0wney/wikibfs/pkg/engine"
	"github.com/dd0wney/wikibfs/pkg/extract"
	"github.com/dd0wney/wikibfs/pkg/mapred"
	"github.com/dd0wney/wikibfs/pkg/metrics"
	"github.com/dd0wney/wikibfs/pkg/storage"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: wikibfs [flags] <collection-path> <output-base>\n")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	source := flag.String("source", "", "Source article title (overrides config)")
	maxRounds := flag.Int("max-rounds", 0, "Maximum BFS rounds (overrides config)")
	maps := flag.Int("maps", 0, "Map task width (overrides config)")
	reduces := flag.Int("reduces", 0, "Reduce task width (overrides config)")
	dataDir := flag.String("data", "", "Generation data directory (overrides config)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(2)
	}
	input := flag.Arg(0)
	outputBase := flag.Arg(1)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "wikibfs: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *source != "" {
		cfg.Source = extract.Normalize(*source)
	}
	if *maxRounds > 0 {
		cfg.MaxRounds = *maxRounds
	}
	if *maps > 0 {
		cfg.MapWidth = *maps
	}
	if *reduces > 0 {
		cfg.ReduceWidth = *reduces
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "wikibfs: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	logger.Info("wikibfs starting",
		"input", input,
		"output", outputBase,
		"source", cfg.Source,
	)

	store, err := storage.NewGenerationStore(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open generation store", "error", err)
		os.Exit(1)
	}

	pages, err := extract.LoadCollection(input)
	if err != nil {
		logger.Error("failed to load page collection", "error", err)
		os.Exit(1)
	}
	logger.Info("page collection loaded", "pages", len(pages))

	runner := mapred.NewLocalRunner(cfg.MapWidth, cfg.ReduceWidth)
	eng := engine.New(cfg, runner, store, metrics.DefaultRegistry(), logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result, err := eng.Run(ctx, pages)
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	if result.Outcome == engine.OutcomeNoSource {
		// Clean empty result: nothing reachable, nothing to report.
		logger.Info("didn't find source node", "source", cfg.Source)
		os.Exit(0)
	}

	if err := engine.WriteReport(outputBase, result); err != nil {
		logger.Error("failed to write report", "error", err)
		os.Exit(1)
	}

	logger.Info("report written",
		"output", outputBase,
		"outcome", string(result.Outcome),
		"rounds", result.Rounds,
		"within_5", result.Buckets.LE5,
		"records", result.Buckets.Records,
	)
}
