// Package game drives a Simulation in a raylib window or headless loop.
package game

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/urbanmood/components"
	"github.com/pthm-cable/urbanmood/config"
	"github.com/pthm-cable/urbanmood/renderer"
	"github.com/pthm-cable/urbanmood/sim"
	"github.com/pthm-cable/urbanmood/systems"
	"github.com/pthm-cable/urbanmood/telemetry"
	"github.com/pthm-cable/urbanmood/ui"
)

// Options holds per-process settings for a Game.
type Options struct {
	Seed           int64
	LogStats       bool   // log TickStats every telemetry.log_every ticks
	OutputDir      string // metrics.csv, perf.csv and config.yaml; empty disables output
	Headless       bool
	StepsPerUpdate int // ticks per UpdateHeadless call
	MaxTicks       int // stop stepping at this tick; 0 is unlimited
}

// Game holds the complete viewer state around one Simulation.
type Game struct {
	cfg  *config.Config // base config; control panel edits apply on top
	sim  *sim.Simulation
	seed int64

	// Telemetry
	outputManager *telemetry.OutputManager
	logStats      bool
	logEvery      int

	// Rendering (nil when headless)
	palette   renderer.Palette
	grid      *renderer.GridRenderer
	overlays  *ui.OverlayRegistry
	controls  *ui.ControlsPanel
	hud       *ui.HUD
	plot      *ui.TimeSeriesPlot
	perfPanel *ui.PerfPanel
	registry  *systems.SystemRegistry
	inspector *ui.Inspector
	layout    Layout

	// Hover state
	hovered    components.Position
	hasHovered bool

	// State
	paused         bool
	headless       bool
	stepsPerUpdate int
	maxTicks       int
	stepInterval   time.Duration
	lastStep       time.Time
}

// NewGameWithOptions builds a simulation from cfg and, unless headless, the viewer panels.
func NewGameWithOptions(cfg *config.Config, opts Options) (*Game, error) {
	s, err := sim.New(cfg, sim.Options{Seed: opts.Seed})
	if err != nil {
		return nil, err
	}

	g := &Game{
		cfg:            cfg.Clone(),
		sim:            s,
		seed:           opts.Seed,
		logStats:       opts.LogStats,
		logEvery:       cfg.Telemetry.LogEvery,
		headless:       opts.Headless,
		stepsPerUpdate: opts.StepsPerUpdate,
		maxTicks:       opts.MaxTicks,
	}
	if g.stepsPerUpdate < 1 {
		g.stepsPerUpdate = 1
	}
	if sps := cfg.Render.StepsPerSecond; sps > 0 {
		g.stepInterval = time.Duration(float64(time.Second) / sps)
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, err
	}
	g.outputManager = om

	if !g.headless {
		g.initViewer()
	}

	slog.Info("game created",
		"seed", opts.Seed,
		"width", cfg.Grid.Width,
		"height", cfg.Grid.Height,
		"agents", cfg.Population.Size,
		"headless", opts.Headless,
		"output_dir", opts.OutputDir,
	)
	return g, nil
}

func (g *Game) initViewer() {
	g.palette = renderer.NewPalette(g.cfg.Render)
	g.overlays = ui.NewOverlayRegistry()
	g.controls = ui.NewControlsPanel(margin, margin, controlsWidth, ui.ParamsFromConfig(g.cfg, g.seed))
	g.hud = ui.NewHUD(controlsWidth+margin*2, margin)
	g.perfPanel = ui.NewPerfPanel(0, 0)
	g.registry = systems.NewSystemRegistry()
	g.inspector = ui.NewInspector(0, 0, sideWidth)
	g.plot = ui.NewTimeSeriesPlot(0, 0, sideWidth, plotHeight, -1, 1)
	g.applyLayout()
}

// applyLayout sizes the grid renderer and places the side panels for the current simulation.
func (g *Game) applyLayout() {
	g.layout = ComputeLayout(ScreenWidth, ScreenHeight, g.sim.Width(), g.sim.Height(), g.cfg.Render.CellSize)
	g.grid = renderer.NewGridRenderer(g.palette, g.layout.CellSize, g.layout.GridX, g.layout.GridY)
	g.plot.SetPosition(g.layout.SideX, hudHeight)
	g.perfPanel.SetPosition(g.layout.SideX, hudHeight)
	g.inspector.SetPosition(g.layout.SideX, hudHeight+plotHeight+margin)
	g.syncOverlays()
}

// Update advances the simulation at the configured step rate and processes input.
func (g *Game) Update() {
	g.handleInput()

	if g.paused || g.stepInterval == 0 {
		return
	}
	now := time.Now()
	if now.Sub(g.lastStep) < g.stepInterval {
		return
	}
	g.lastStep = now
	for i := g.batchSize(); i > 0; i-- {
		g.step()
	}
}

// UpdateHeadless advances stepsPerUpdate ticks without touching raylib,
// stopping at MaxTicks.
func (g *Game) UpdateHeadless() {
	for i := g.batchSize(); i > 0; i-- {
		g.step()
	}
}

// batchSize is stepsPerUpdate cut to the ticks left before maxTicks.
func (g *Game) batchSize() int {
	n := g.stepsPerUpdate
	if g.maxTicks > 0 {
		n = min(n, g.maxTicks-int(g.sim.Tick()))
	}
	return max(n, 0)
}

// Done reports whether the run reached MaxTicks.
func (g *Game) Done() bool {
	return g.maxTicks > 0 && int(g.sim.Tick()) >= g.maxTicks
}

// step advances one tick and flushes telemetry for it.
func (g *Game) step() {
	g.sim.Step()
	g.flushTelemetry()
}

// reset rebuilds the simulation from the control panel parameters.
// A rejected configuration leaves the current run in place.
func (g *Game) reset() {
	params := g.controls.Params
	cfg, err := params.Apply(g.cfg)
	if err != nil {
		g.controls.Error = err.Error()
		slog.Warn("reset rejected", "error", err)
		return
	}
	s, err := sim.New(cfg, sim.Options{Seed: params.Seed})
	if err != nil {
		g.controls.Error = err.Error()
		slog.Warn("reset rejected", "error", err)
		return
	}

	// Tick numbering restarts, so the CSV series of the first run ends here.
	if g.outputManager != nil {
		if err := g.outputManager.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
		slog.Info("output closed on reset", "dir", g.outputManager.Dir())
		g.outputManager = nil
	}

	g.cfg = cfg
	g.sim = s
	g.seed = params.Seed
	g.controls.Error = ""
	g.hasHovered = false
	g.applyLayout()

	slog.Info("simulation reset",
		"seed", params.Seed,
		"width", cfg.Grid.Width,
		"height", cfg.Grid.Height,
		"agents", cfg.Population.Size,
		"green_ratio", cfg.Environment.GreenRatio,
		"stress_ratio", cfg.Environment.StressRatio,
	)
}

// Sim returns the running simulation.
func (g *Game) Sim() *sim.Simulation {
	return g.sim
}

// Tick returns the current simulation tick.
func (g *Game) Tick() int32 {
	return g.sim.Tick()
}

// Paused reports whether the viewer is paused.
func (g *Game) Paused() bool {
	return g.paused
}

// Unload flushes and closes outputs.
func (g *Game) Unload() {
	if g.outputManager == nil {
		return
	}
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
	g.outputManager = nil
}
