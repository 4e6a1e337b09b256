package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/urbanmood/config"
)

// WriteResults writes results.csv and the sweep config into dir.
func WriteResults(dir string, cfg *config.Config, results []RunResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "results.csv"))
	if err != nil {
		return fmt.Errorf("creating results.csv: %w", err)
	}
	if err := gocsv.MarshalFile(&results, f); err != nil {
		f.Close()
		return fmt.Errorf("writing results: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing results.csv: %w", err)
	}

	return cfg.WriteYAML(filepath.Join(dir, "config.yaml"))
}

// ReadResults loads a results.csv written by WriteResults.
func ReadResults(path string) ([]RunResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening results: %w", err)
	}
	defer f.Close()

	var results []RunResult
	if err := gocsv.UnmarshalFile(f, &results); err != nil {
		return nil, fmt.Errorf("parsing results: %w", err)
	}
	return results, nil
}
