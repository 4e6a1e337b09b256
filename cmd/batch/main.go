// Package main runs a parameter sweep over environment ratios and writes the
// results as CSV and, optionally, into a SQLite database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/pthm-cable/urbanmood/batch"
	"github.com/pthm-cable/urbanmood/config"
	"github.com/pthm-cable/urbanmood/storage"
)

func main() {
	configPath := flag.String("config", "", "Config YAML file with a batch section (empty = use defaults)")
	outputDir := flag.String("output", "", "Output directory for results.csv and config snapshot")
	dbPath := flag.String("db", "", "Optional SQLite database to store the sweep in")
	workers := flag.Int("workers", 0, "Worker goroutines (0 = use batch.workers)")
	iterations := flag.Int("iterations", 0, "Runs per ratio pair (0 = use batch.iterations)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if *outputDir == "" && *dbPath == "" {
		log.Fatal("--output or --db is required")
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Cfg()
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}
	if *iterations > 0 {
		cfg.Batch.Iterations = *iterations
	}

	runner, err := batch.NewRunner(cfg)
	if err != nil {
		log.Fatalf("invalid sweep: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := runner.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("sweep failed: %v", err)
	}
	// A cancelled sweep still saves the runs that finished.

	if *outputDir != "" {
		if err := batch.WriteResults(*outputDir, cfg, results); err != nil {
			log.Fatalf("failed to write results: %v", err)
		}
		slog.Info("results written", "path", filepath.Join(*outputDir, "results.csv"), "rows", len(results))
	}

	if *dbPath != "" {
		if err := saveToDB(*dbPath, runner, cfg, results); err != nil {
			log.Fatalf("failed to store sweep: %v", err)
		}
	}
}

// saveToDB stores the sweep and prints the per-ratio summary.
func saveToDB(path string, runner *batch.Runner, cfg *config.Config, results []batch.RunResult) error {
	db, err := storage.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveSweep(runner.SweepID(), len(runner.Jobs()), cfg); err != nil {
		return fmt.Errorf("save sweep: %w", err)
	}
	if err := db.SaveResults(results); err != nil {
		return fmt.Errorf("save results: %w", err)
	}

	summary, err := db.Summary(runner.SweepID())
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	fmt.Printf("sweep %s\n", runner.SweepID())
	fmt.Printf("%8s %8s %5s %10s %10s\n", "green", "stress", "runs", "mood", "isolated")
	for _, s := range summary {
		fmt.Printf("%8.2f %8.2f %5d %+10.3f %10.1f\n", s.GreenRatio, s.StressRatio, s.Runs, s.AverageMood, s.NumIsolated)
	}
	return nil
}
