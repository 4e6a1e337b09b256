// Package sim owns a complete mood contagion run: the environment field, the
// occupancy grid, the agent population and the metrics series.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/urbanmood/components"
	"github.com/pthm-cable/urbanmood/config"
	"github.com/pthm-cable/urbanmood/systems"
	"github.com/pthm-cable/urbanmood/telemetry"
)

// perfWindow is the number of ticks averaged by the perf collector.
const perfWindow = 60

// Options holds per-run settings that are not part of the configuration file.
type Options struct {
	Seed int64
}

// AgentView is a read-only copy of one agent's observable state.
type AgentView struct {
	ID       uint32
	Position components.Position
	Mood     float64
	Isolated bool
	Episodes int32
	Traits   components.Traits
}

// Simulation is a single-threaded, deterministic run. All state is owned here
// and mutated only by Step.
type Simulation struct {
	cfg  *config.Config
	seed int64
	rng  *rand.Rand

	world  *ecs.World
	mapper *ecs.Map5[
		components.Agent,
		components.Position,
		components.Mood,
		components.Traits,
		components.Status,
	]
	filter *ecs.Filter2[components.Mood, components.Status]

	agentMap  *ecs.Map[components.Agent]
	posMap    *ecs.Map[components.Position]
	moodMap   *ecs.Map[components.Mood]
	traitMap  *ecs.Map[components.Traits]
	statusMap *ecs.Map[components.Status]

	// agents in creation order; index equals Agent.ID
	agents []ecs.Entity

	env       *systems.EnvironmentField
	grid      *systems.SpatialGrid
	behavior  *systems.BehaviorSystem
	scheduler *systems.Scheduler
	recorder  *telemetry.MetricsRecorder
	perf      *telemetry.PerfCollector

	tick  int32
	moods []float64 // scratch for stats
}

// New validates cfg and builds a simulation. No state is built for an invalid config.
// cfg is copied; later changes to it do not affect the run.
func New(cfg *config.Config, opts Options) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	boundary, err := systems.ParseBoundary(cfg.Grid.Boundary)
	if err != nil {
		return nil, err
	}
	neighborhood, err := systems.ParseNeighborhood(cfg.Grid.Neighborhood)
	if err != nil {
		return nil, err
	}
	layout, err := systems.ParseLayout(cfg.Environment.Layout)
	if err != nil {
		return nil, err
	}
	mode, err := systems.ParseUpdateMode(cfg.Dynamics.Update)
	if err != nil {
		return nil, err
	}
	params, err := systems.BehaviorParamsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	env, err := systems.NewEnvironmentField(systems.FieldSpec{
		Width:       cfg.Grid.Width,
		Height:      cfg.Grid.Height,
		GreenRatio:  cfg.Environment.GreenRatio,
		StressRatio: cfg.Environment.StressRatio,
		Layout:      layout,
		NoiseScale:  cfg.Environment.NoiseScale,
	}, rng)
	if err != nil {
		return nil, fmt.Errorf("building environment: %w", err)
	}

	world := ecs.NewWorld()
	s := &Simulation{
		cfg:   cfg,
		seed:  opts.Seed,
		rng:   rng,
		world: world,
		mapper: ecs.NewMap5[
			components.Agent,
			components.Position,
			components.Mood,
			components.Traits,
			components.Status,
		](world),
		filter:    ecs.NewFilter2[components.Mood, components.Status](world),
		agentMap:  ecs.NewMap[components.Agent](world),
		posMap:    ecs.NewMap[components.Position](world),
		moodMap:   ecs.NewMap[components.Mood](world),
		traitMap:  ecs.NewMap[components.Traits](world),
		statusMap: ecs.NewMap[components.Status](world),
		env:       env,
		grid:      systems.NewSpatialGrid(cfg.Grid.Width, cfg.Grid.Height, boundary, neighborhood),
		scheduler: systems.NewScheduler(mode),
		recorder:  telemetry.NewMetricsRecorder(0),
		perf:      telemetry.NewPerfCollector(perfWindow, systems.NewSystemRegistry().IDs()),
	}

	if err := s.spawnPopulation(); err != nil {
		return nil, err
	}
	s.behavior = systems.NewBehaviorSystem(world, s.grid, env, params)

	slog.Debug("simulation created",
		"seed", opts.Seed,
		"width", cfg.Grid.Width,
		"height", cfg.Grid.Height,
		"agents", len(s.agents),
		"green_cells", env.Count(systems.Green),
		"stress_cells", env.Count(systems.Stress),
		"update", mode.String(),
	)

	return s, nil
}

// spawnPopulation places every agent on a distinct random cell and draws its traits.
func (s *Simulation) spawnPopulation() error {
	p := s.cfg.Population
	cells := s.rng.Perm(s.cfg.Grid.Cells())[:p.Size]
	s.agents = make([]ecs.Entity, 0, p.Size)
	s.moods = make([]float64, 0, p.Size)

	for i, cell := range cells {
		agent := components.Agent{ID: uint32(i)}
		pos := components.Position{X: cell % s.cfg.Grid.Width, Y: cell / s.cfg.Grid.Width}
		mood := components.Mood{Value: draw(s.rng, p.InitialMood)}
		traits := components.Traits{
			Sensitivity:        draw(s.rng, p.Sensitivity),
			MobilityThreshold:  draw(s.rng, p.MobilityThreshold),
			IsolationThreshold: draw(s.rng, p.IsolationThreshold),
		}
		status := components.Status{}

		e := s.mapper.NewEntity(&agent, &pos, &mood, &traits, &status)
		if err := s.grid.Place(e, pos); err != nil {
			return fmt.Errorf("placing agent %d: %w", i, err)
		}
		s.agents = append(s.agents, e)
	}
	return nil
}

// draw returns a uniform sample from r.
func draw(rng *rand.Rand, r config.Range) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Step advances one tick: a scheduler pass over every agent, then one metrics entry.
// Panics on an occupancy invariant breach.
func (s *Simulation) Step() {
	s.perf.StartTick()

	s.perf.StartPhase(telemetry.PhaseSchedule)
	s.behavior.ResetCounters()
	s.scheduler.Step(s.agents, s.behavior, s.rng)
	s.tick++

	s.perf.StartPhase(telemetry.PhaseMetrics)
	stats := s.collectStats()
	s.recorder.Record(stats)

	s.perf.EndTick(len(s.agents), stats.Moves)
}

// collectStats summarizes the post-tick population.
func (s *Simulation) collectStats() telemetry.TickStats {
	s.moods = s.moods[:0]
	isolated := 0

	query := s.filter.Query()
	for query.Next() {
		mood, status := query.Get()
		s.moods = append(s.moods, mood.Value)
		if status.Isolated {
			isolated++
		}
	}

	sum := telemetry.SummarizeMoods(s.moods)
	return telemetry.TickStats{
		Tick:     s.tick,
		MeanMood: sum.Mean,
		MoodStd:  sum.Std,
		Isolated: isolated,
		Active:   len(s.moods) - isolated,
		Moves:    s.behavior.Moves(),
		MoodP10:  sum.P10,
		MoodP50:  sum.P50,
		MoodP90:  sum.P90,
	}
}

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() int32 {
	return s.tick
}

// Seed returns the seed the run was built with.
func (s *Simulation) Seed() int64 {
	return s.seed
}

// Config returns a copy of the configuration the run was built from.
func (s *Simulation) Config() *config.Config {
	return s.cfg.Clone()
}

// Width returns the grid width.
func (s *Simulation) Width() int { return s.grid.Width() }

// Height returns the grid height.
func (s *Simulation) Height() int { return s.grid.Height() }

// NumAgents returns the population size.
func (s *Simulation) NumAgents() int { return len(s.agents) }

// Agents returns a snapshot of every agent in ID order.
func (s *Simulation) Agents() []AgentView {
	out := make([]AgentView, len(s.agents))
	for i, e := range s.agents {
		out[i] = s.view(e)
	}
	return out
}

// Agent returns the agent with the given ID.
func (s *Simulation) Agent(id uint32) (AgentView, bool) {
	if int(id) >= len(s.agents) {
		return AgentView{}, false
	}
	return s.view(s.agents[id]), true
}

// OccupantAt returns the agent at pos, if any.
func (s *Simulation) OccupantAt(pos components.Position) (AgentView, bool) {
	e, ok := s.grid.At(pos)
	if !ok {
		return AgentView{}, false
	}
	return s.view(e), true
}

// CategoryAt returns the environment category of pos. ok is false outside the grid.
func (s *Simulation) CategoryAt(pos components.Position) (c systems.Category, ok bool) {
	if !s.grid.Contains(pos) {
		return 0, false
	}
	return s.env.CategoryAt(pos), true
}

// CategoryCount returns the number of cells with category c.
func (s *Simulation) CategoryCount(c systems.Category) int {
	return s.env.Count(c)
}

// Metrics returns a copy of the full metrics series.
func (s *Simulation) Metrics() []telemetry.TickStats {
	return s.recorder.All()
}

// LatestMetrics returns the most recent metrics entry.
func (s *Simulation) LatestMetrics() (telemetry.TickStats, bool) {
	return s.recorder.Latest()
}

// Recorder exposes the metrics series for plotting.
func (s *Simulation) Recorder() *telemetry.MetricsRecorder {
	return s.recorder
}

// PerfStats returns step timing over the recent window.
func (s *Simulation) PerfStats() telemetry.PerfStats {
	return s.perf.Stats()
}

func (s *Simulation) view(e ecs.Entity) AgentView {
	status := s.statusMap.Get(e)
	return AgentView{
		ID:       s.agentMap.Get(e).ID,
		Position: *s.posMap.Get(e),
		Mood:     s.moodMap.Get(e).Value,
		Isolated: status.Isolated,
		Episodes: status.Episodes,
		Traits:   *s.traitMap.Get(e),
	}
}

// IsolationThreshold returns the threshold a applies on its current cell.
func (s *Simulation) IsolationThreshold(a AgentView) float64 {
	return s.behavior.IsolationThreshold(a.Position, &a.Traits)
}

// RecordFrame marks a rendered frame for the FPS figure in PerfStats.
func (s *Simulation) RecordFrame() {
	s.perf.RecordFrame()
}
