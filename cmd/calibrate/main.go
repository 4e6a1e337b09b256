// Package main searches green and stress ratios with CMA-ES so that the mean
// final mood of a run matches a target.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/urbanmood/config"
)

// EvalRow is one line of the evaluation log.
type EvalRow struct {
	Eval        int     `csv:"eval"`
	Fitness     float64 `csv:"fitness"`
	GreenRatio  float64 `csv:"green_ratio"`
	StressRatio float64 `csv:"stress_ratio"`
	MeanMood    float64 `csv:"mean_mood"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	target := flag.Float64("target", 0, "Target mean mood (0 = use calibrate.target_mean_mood)")
	maxSteps := flag.Int("max-steps", 0, "Ticks per run (0 = use calibrate.max_steps)")
	seeds := flag.Int("seeds", 0, "Number of seeds per evaluation (0 = use calibrate.seeds)")
	maxEvals := flag.Int("max-evals", 0, "Maximum number of evaluations (0 = use calibrate.max_evals)")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	cal := baseCfg.Calibrate
	if *target != 0 {
		cal.TargetMeanMood = *target
	}
	if *maxSteps > 0 {
		cal.MaxSteps = *maxSteps
	}
	if *seeds > 0 {
		cal.Seeds = *seeds
	}
	if *maxEvals > 0 {
		cal.MaxEvals = *maxEvals
	}
	if cal.MaxSteps <= 0 || cal.Seeds <= 0 || cal.MaxEvals <= 0 {
		log.Fatalf("calibrate: max_steps, seeds and max_evals must be positive")
	}

	params := NewParamVector(baseCfg)

	evalSeeds := make([]int64, cal.Seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, cal.MaxSteps, evalSeeds, cal.TargetMeanMood, baseCfg)

	// Open log file
	logPath := filepath.Join(*outputDir, "calibrate_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	evalCount := 0
	bestFitness := 1e9
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			fitness := evaluator.Evaluate(x)
			evalCount++

			clamped := params.Clamp(x)
			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = clamped
			}

			row := []EvalRow{{
				Eval:        evalCount,
				Fitness:     fitness,
				GreenRatio:  clamped[0],
				StressRatio: clamped[1],
				MeanMood:    evaluator.LastMood(),
			}}
			var werr error
			if evalCount == 1 {
				werr = gocsv.Marshal(&row, logFile)
			} else {
				werr = gocsv.MarshalWithoutHeaders(&row, logFile)
			}
			if werr != nil {
				log.Printf("failed to write log row: %v", werr)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(cal.MaxEvals-evalCount) * avgPerEval

			fmt.Printf("Eval %d/%d: green=%.3f stress=%.3f mood=%+.3f fitness=%.5f (best=%.5f) | elapsed: %s, ETA: %s\n",
				evalCount, cal.MaxEvals, clamped[0], clamped[1], evaluator.LastMood(), fitness, bestFitness,
				formatDuration(elapsed), formatDuration(remaining))

			return fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: cal.MaxEvals,
		Concurrent:      0, // Sequential evaluation; seeds already run in parallel
	}

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(params.Dim())/2.0)
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.15,
		Population:   popSize,
	}

	fmt.Printf("Starting CMA-ES calibration: target mood=%+.3f, population=%d, max_evals=%d\n",
		cal.TargetMeanMood, popSize, cal.MaxEvals)
	fmt.Printf("Seeds per evaluation: %d, ticks per run: %d\n", cal.Seeds, cal.MaxSteps)

	result, err := optimize.Minimize(problem, params.DefaultVector(), settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	if bestParams == nil && result != nil {
		bestParams = params.Clamp(result.X)
	}
	if bestParams == nil {
		log.Fatal("no evaluation completed")
	}

	fmt.Printf("\nCalibration complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.6f\n", bestFitness)
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.4f\n", spec.Path, bestParams[i])
	}

	bestCfg := baseCfg.Clone()
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}
