// Package batch runs parameter sweeps over environment ratios.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/urbanmood/config"
	"github.com/pthm-cable/urbanmood/sim"
	"github.com/pthm-cable/urbanmood/telemetry"
)

// ratioEpsilon matches the tolerance config validation applies to ratio sums.
const ratioEpsilon = 1e-9

// Job is one simulation run in a sweep.
type Job struct {
	RunID       int
	Iteration   int
	Seed        int64
	GreenRatio  float64
	StressRatio float64
}

// RunResult is one recorded metrics row of one run.
type RunResult struct {
	SweepID     string  `csv:"sweep_id" db:"sweep_id"`
	RunID       int     `csv:"run_id" db:"run_id"`
	Iteration   int     `csv:"iteration" db:"iteration"`
	Seed        int64   `csv:"seed" db:"seed"`
	Step        int32   `csv:"step" db:"step"`
	GreenRatio  float64 `csv:"green_ratio" db:"green_ratio"`
	StressRatio float64 `csv:"stress_ratio" db:"stress_ratio"`
	Width       int     `csv:"width" db:"width"`
	Height      int     `csv:"height" db:"height"`
	NumAgents   int     `csv:"num_agents" db:"num_agents"`
	AverageMood float64 `csv:"average_mood" db:"average_mood"`
	MoodStd     float64 `csv:"mood_std" db:"mood_std"`
	NumIsolated int     `csv:"num_isolated" db:"num_isolated"`
}

// Runner executes a sweep on a pool of workers. Each Simulation is private to one worker.
type Runner struct {
	cfg     *config.Config
	sweepID string
	jobs    []Job
	workers int
}

// NewRunner validates the sweep settings in cfg and plans its jobs.
func NewRunner(cfg *config.Config) (*Runner, error) {
	if err := cfg.ValidateBatch(); err != nil {
		return nil, err
	}
	workers := cfg.Batch.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Runner{
		cfg:     cfg.Clone(),
		sweepID: uuid.NewString(),
		jobs:    Plan(cfg.Batch),
		workers: workers,
	}, nil
}

// SweepID identifies this sweep in outputs and storage.
func (r *Runner) SweepID() string {
	return r.sweepID
}

// Jobs returns the planned runs.
func (r *Runner) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

// Workers returns the pool size.
func (r *Runner) Workers() int {
	return r.workers
}

// Plan expands the ratio grid and iterations into jobs. Ratio pairs summing
// above 1 are skipped. Run seeds are seed+iteration.
func Plan(b config.BatchConfig) []Job {
	var jobs []Job
	for _, green := range b.GreenRatios {
		for _, stress := range b.StressRatios {
			if green < 0 || stress < 0 || green+stress > 1+ratioEpsilon {
				slog.Warn("skipping invalid sweep cell", "green_ratio", green, "stress_ratio", stress)
				continue
			}
			for it := 0; it < b.Iterations; it++ {
				jobs = append(jobs, Job{
					RunID:       len(jobs),
					Iteration:   it,
					Seed:        b.Seed + int64(it),
					GreenRatio:  green,
					StressRatio: stress,
				})
			}
		}
	}
	return jobs
}

// RunConfig returns the simulation config for job.
func (r *Runner) RunConfig(job Job) *config.Config {
	cfg := r.cfg.Clone()
	b := r.cfg.Batch
	cfg.Grid.Width = b.Width
	cfg.Grid.Height = b.Height
	cfg.Population.Size = int(math.Floor(b.Density * float64(b.Width*b.Height)))
	cfg.Environment.GreenRatio = job.GreenRatio
	cfg.Environment.StressRatio = job.StressRatio
	return cfg
}

// Run executes every job and returns results sorted by run and step.
// On cancellation it stops between ticks and returns what finished with ctx.Err().
func (r *Runner) Run(ctx context.Context) ([]RunResult, error) {
	start := time.Now()
	slog.Info("starting sweep",
		"sweep_id", r.sweepID,
		"runs", len(r.jobs),
		"workers", r.workers,
		"max_steps", r.cfg.Batch.MaxSteps,
	)

	jobChan := make(chan Job)
	var (
		mu       sync.Mutex
		results  []RunResult
		firstErr error
		done     int
		wg       sync.WaitGroup
	)

	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				rows, err := r.runJob(ctx, job)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
				} else {
					results = append(results, rows...)
					done++
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, job := range r.jobs {
		select {
		case <-ctx.Done():
			break dispatch
		case jobChan <- job:
		}
	}
	close(jobChan)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		if results[i].RunID != results[j].RunID {
			return results[i].RunID < results[j].RunID
		}
		return results[i].Step < results[j].Step
	})

	if err := ctx.Err(); err != nil {
		slog.Warn("sweep cancelled", "sweep_id", r.sweepID, "completed", done, "runs", len(r.jobs))
		return results, err
	}
	if firstErr != nil {
		return results, firstErr
	}

	slog.Info("sweep complete",
		"sweep_id", r.sweepID,
		"runs", done,
		"rows", len(results),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return results, nil
}

// runJob drives one simulation for max_steps ticks and keeps the recorded rows.
func (r *Runner) runJob(ctx context.Context, job Job) ([]RunResult, error) {
	cfg := r.RunConfig(job)
	s, err := sim.New(cfg, sim.Options{Seed: job.Seed})
	if err != nil {
		return nil, fmt.Errorf("run %d: %w", job.RunID, err)
	}

	maxSteps := r.cfg.Batch.MaxSteps
	every := r.cfg.Batch.RecordEvery
	var rows []RunResult

	for step := 1; step <= maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.Step()
		if every > 0 && step%every == 0 && step != maxSteps {
			latest, _ := s.LatestMetrics()
			rows = append(rows, r.row(job, cfg, latest))
		}
	}

	final, _ := s.LatestMetrics()
	rows = append(rows, r.row(job, cfg, final))

	slog.Debug("run complete",
		"run_id", job.RunID,
		"green_ratio", job.GreenRatio,
		"stress_ratio", job.StressRatio,
		"seed", job.Seed,
		"average_mood", final.MeanMood,
		"num_isolated", final.Isolated,
	)
	return rows, nil
}

func (r *Runner) row(job Job, cfg *config.Config, s telemetry.TickStats) RunResult {
	return RunResult{
		SweepID:     r.sweepID,
		RunID:       job.RunID,
		Iteration:   job.Iteration,
		Seed:        job.Seed,
		Step:        s.Tick,
		GreenRatio:  job.GreenRatio,
		StressRatio: job.StressRatio,
		Width:       cfg.Grid.Width,
		Height:      cfg.Grid.Height,
		NumAgents:   cfg.Population.Size,
		AverageMood: s.MeanMood,
		MoodStd:     s.MoodStd,
		NumIsolated: s.Isolated,
	}
}
