package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/urbanmood/config"
)

// OutputManager writes a run's configuration and per-tick metrics to a directory.
type OutputManager struct {
	dir         string
	metricsFile *os.File
	perfFile    *os.File

	// Track if headers have been written
	metricsHeaderWritten bool
	perfHeaderWritten    bool
}

// NewOutputManager creates the output directory, metrics.csv and perf.csv.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "metrics.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating metrics.csv: %w", err)
	}

	om := &OutputManager{dir: dir, metricsFile: f}

	f, err = os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		om.metricsFile.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTick appends one row to metrics.csv.
func (om *OutputManager) WriteTick(stats TickStats) error {
	if om == nil {
		return nil
	}
	if err := writeRows(om.metricsFile, []TickStats{stats}, !om.metricsHeaderWritten); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	om.metricsHeaderWritten = true
	return nil
}

// WriteSeries appends every recorded row.
func (om *OutputManager) WriteSeries(series []TickStats) error {
	if om == nil || len(series) == 0 {
		return nil
	}
	if err := writeRows(om.metricsFile, series, !om.metricsHeaderWritten); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	om.metricsHeaderWritten = true
	return nil
}

// WritePerf appends a performance window to perf.csv, one row per phase.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}
	rows := stats.ToCSV(windowEnd)
	if err := writeRows(om.perfFile, &rows, !om.perfHeaderWritten); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	om.perfHeaderWritten = true
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.metricsFile, om.perfFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// writeRows marshals records, including the header row only when header is set.
func writeRows(w io.Writer, records interface{}, header bool) error {
	if header {
		return gocsv.Marshal(records, w)
	}
	return gocsv.MarshalWithoutHeaders(records, w)
}
