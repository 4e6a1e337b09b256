package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/urbanmood/config"
	"github.com/pthm-cable/urbanmood/sim"
)

// infeasiblePenalty is added per unit of ratio sum above 1. It exceeds the
// largest possible squared mood error (4) so any feasible point wins.
const infeasiblePenalty = 10.0

// FitnessEvaluator runs headless simulations and scores how close the mean
// final mood lands to the target.
type FitnessEvaluator struct {
	params     *ParamVector
	maxSteps   int
	seeds      []int64
	target     float64
	baseConfig *config.Config

	mu       sync.Mutex
	lastMood float64 // seed-averaged mood from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxSteps int, seeds []int64, target float64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxSteps:   maxSteps,
		seeds:      seeds,
		target:     target,
		baseConfig: baseCfg.Clone(),
	}
}

// LastMood returns the mean final mood from the most recent evaluation, or NaN
// when that point was not simulated.
func (fe *FitnessEvaluator) LastMood() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastMood
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Points whose ratios sum above 1 are not simulated.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	if excess := fe.params.Excess(x); excess > 0 {
		fe.setLastMood(math.NaN())
		return infeasiblePenalty * (1 + excess)
	}

	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)

	moods := make([]float64, len(fe.seeds))
	errs := make([]error, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			moods[idx], errs[idx] = fe.runSimulation(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			fe.setLastMood(math.NaN())
			return math.Inf(1)
		}
	}

	var total float64
	for _, m := range moods {
		total += m
	}
	mean := total / float64(len(moods))

	fe.setLastMood(mean)

	d := mean - fe.target
	return d * d
}

func (fe *FitnessEvaluator) setLastMood(m float64) {
	fe.mu.Lock()
	fe.lastMood = m
	fe.mu.Unlock()
}

// runSimulation returns the mean mood after maxSteps ticks.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) (float64, error) {
	s, err := sim.New(cfg, sim.Options{Seed: seed})
	if err != nil {
		return 0, err
	}
	for i := 0; i < fe.maxSteps; i++ {
		s.Step()
	}
	final, _ := s.LatestMetrics()
	return final.MeanMood, nil
}
