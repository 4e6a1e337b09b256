package batch

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/urbanmood/config"
)

func sweepConfig() *config.Config {
	cfg := config.Default()
	cfg.Batch.Width, cfg.Batch.Height = 10, 10
	cfg.Batch.Density = 0.5
	cfg.Batch.GreenRatios = []float64{0.1, 0.3}
	cfg.Batch.StressRatios = []float64{0.1, 0.2}
	cfg.Batch.Iterations = 2
	cfg.Batch.MaxSteps = 10
	cfg.Batch.RecordEvery = -1
	cfg.Batch.Seed = 42
	return cfg
}

func TestPlanExpandsSweep(t *testing.T) {
	jobs := Plan(sweepConfig().Batch)
	if len(jobs) != 8 {
		t.Fatalf("jobs = %d, want 8", len(jobs))
	}
	for i, j := range jobs {
		if j.RunID != i {
			t.Errorf("job %d has RunID %d", i, j.RunID)
		}
		if j.Seed != 42+int64(j.Iteration) {
			t.Errorf("job %d seed = %d, want %d", i, j.Seed, 42+j.Iteration)
		}
	}
}

func TestPlanSkipsInvalidCells(t *testing.T) {
	b := sweepConfig().Batch
	b.GreenRatios = []float64{0.5, 0.9}
	b.StressRatios = []float64{0.3, 0.5}
	b.Iterations = 1

	jobs := Plan(b)
	// 0.5+0.3, 0.5+0.5 valid; 0.9+0.3, 0.9+0.5 skipped
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d, want 2: %+v", len(jobs), jobs)
	}
	for _, j := range jobs {
		if j.GreenRatio+j.StressRatio > 1+ratioEpsilon {
			t.Errorf("planned invalid cell %v+%v", j.GreenRatio, j.StressRatio)
		}
	}
}

func TestNewRunnerRejectsBadSweep(t *testing.T) {
	cfg := sweepConfig()
	cfg.Batch.RecordEvery = 0
	if _, err := NewRunner(cfg); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("NewRunner error = %v, want ErrInvalidConfig", err)
	}
}

func TestRunConfigAppliesDensity(t *testing.T) {
	r, err := NewRunner(sweepConfig())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	cfg := r.RunConfig(r.Jobs()[3])
	if cfg.Grid.Width != 10 || cfg.Grid.Height != 10 || cfg.Population.Size != 50 {
		t.Errorf("run config grid %dx%d size %d, want 10x10 size 50", cfg.Grid.Width, cfg.Grid.Height, cfg.Population.Size)
	}
	if cfg.Environment.GreenRatio != r.Jobs()[3].GreenRatio {
		t.Errorf("green ratio not applied")
	}
}

func TestRunFinalRowsOnly(t *testing.T) {
	r, err := NewRunner(sweepConfig())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	results, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 8 {
		t.Fatalf("rows = %d, want 8", len(results))
	}
	for i, row := range results {
		if row.RunID != i {
			t.Errorf("row %d has RunID %d", i, row.RunID)
		}
		if row.Step != 10 {
			t.Errorf("row %d step = %d, want 10", i, row.Step)
		}
		if row.SweepID != r.SweepID() {
			t.Errorf("row %d sweep id = %q", i, row.SweepID)
		}
		if row.NumAgents != 50 {
			t.Errorf("row %d agents = %d, want 50", i, row.NumAgents)
		}
		if row.AverageMood < -1 || row.AverageMood > 1 {
			t.Errorf("row %d average mood %v out of bounds", i, row.AverageMood)
		}
	}
}

func TestRunRecordEvery(t *testing.T) {
	cfg := sweepConfig()
	cfg.Batch.GreenRatios = []float64{0.2}
	cfg.Batch.StressRatios = []float64{0.2}
	cfg.Batch.Iterations = 1
	cfg.Batch.RecordEvery = 3
	r, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	results, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []int32{3, 6, 9, 10}
	if len(results) != len(want) {
		t.Fatalf("rows = %d, want %d", len(results), len(want))
	}
	for i, step := range want {
		if results[i].Step != step {
			t.Errorf("row %d step = %d, want %d", i, results[i].Step, step)
		}
	}
}

func TestRunIndependentOfWorkerCount(t *testing.T) {
	run := func(workers int) []RunResult {
		cfg := sweepConfig()
		cfg.Batch.Workers = workers
		r, err := NewRunner(cfg)
		if err != nil {
			t.Fatalf("NewRunner: %v", err)
		}
		results, err := r.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return results
	}

	serial, parallel := run(1), run(4)
	if len(serial) != len(parallel) {
		t.Fatalf("row counts differ: %d vs %d", len(serial), len(parallel))
	}
	for i := range serial {
		a, b := serial[i], parallel[i]
		a.SweepID, b.SweepID = "", ""
		if a != b {
			t.Errorf("row %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	r, err := NewRunner(sweepConfig())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
	if len(results) == len(r.Jobs()) {
		t.Error("cancelled sweep completed every run")
	}
}

func TestWriteAndReadResults(t *testing.T) {
	cfg := sweepConfig()
	cfg.Batch.Iterations = 1
	r, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	results, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "sweep")
	if err := WriteResults(dir, cfg, results); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}
	got, err := ReadResults(filepath.Join(dir, "results.csv"))
	if err != nil {
		t.Fatalf("ReadResults: %v", err)
	}
	if len(got) != len(results) {
		t.Fatalf("read %d rows, want %d", len(got), len(results))
	}
	if got[0].SweepID != r.SweepID() || got[0].RunID != results[0].RunID || got[0].NumIsolated != results[0].NumIsolated {
		t.Errorf("row 0 = %+v, want %+v", got[0], results[0])
	}
	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config snapshot does not load: %v", err)
	}
}
