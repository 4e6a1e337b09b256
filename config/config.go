// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Grid boundary modes.
const (
	BoundaryTorus   = "torus"
	BoundaryBounded = "bounded"
)

// Neighbor modes.
const (
	NeighborhoodMoore      = "moore"
	NeighborhoodVonNeumann = "von_neumann"
)

// Environment layouts.
const (
	LayoutShuffle   = "shuffle"
	LayoutClustered = "clustered"
)

// Update disciplines.
const (
	UpdateSequential  = "sequential"
	UpdateSynchronous = "synchronous"
)

// Recovery rules for leaving isolation.
const (
	RecoveryBound    = "bound"    // mood > recovery_bound
	RecoveryMobility = "mobility" // mood >= agent mobility threshold
)

// ratioEpsilon absorbs float noise in green_ratio + stress_ratio sums such as 0.7 + 0.3.
const ratioEpsilon = 1e-9

// Config holds all simulation configuration parameters.
type Config struct {
	Grid        GridConfig        `yaml:"grid"`
	Population  PopulationConfig  `yaml:"population"`
	Environment EnvironmentConfig `yaml:"environment"`
	Dynamics    DynamicsConfig    `yaml:"dynamics"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Render      RenderConfig      `yaml:"render"`
	Batch       BatchConfig       `yaml:"batch"`
	Calibrate   CalibrateConfig   `yaml:"calibrate"`
}

// Range is an inclusive interval a per-agent parameter is drawn from.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Fixed returns a degenerate range that always yields v.
func Fixed(v float64) Range {
	return Range{Min: v, Max: v}
}

// GridConfig holds grid dimensions and adjacency rules.
type GridConfig struct {
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	Boundary     string `yaml:"boundary"`
	Neighborhood string `yaml:"neighborhood"`
}

// Cells returns the number of grid cells.
func (g GridConfig) Cells() int {
	return g.Width * g.Height
}

// PopulationConfig holds population size and per-agent parameter ranges.
type PopulationConfig struct {
	Size               int   `yaml:"size"`
	InitialMood        Range `yaml:"initial_mood"`
	Sensitivity        Range `yaml:"sensitivity"`
	MobilityThreshold  Range `yaml:"mobility_threshold"`
	IsolationThreshold Range `yaml:"isolation_threshold"`
}

// EnvironmentConfig holds environment field composition.
type EnvironmentConfig struct {
	GreenRatio             float64 `yaml:"green_ratio"`
	StressRatio            float64 `yaml:"stress_ratio"`
	Layout                 string  `yaml:"layout"`
	NoiseScale             float64 `yaml:"noise_scale"`
	StressIsolationPenalty float64 `yaml:"stress_isolation_penalty"` // subtracted from the isolation threshold on stress cells
}

// DynamicsConfig holds the agent update rule parameters.
type DynamicsConfig struct {
	Update            string  `yaml:"update"`
	MobilitySteepness float64 `yaml:"mobility_steepness"` // sigmoid k
	RecoveryRate      float64 `yaml:"recovery_rate"`      // mood gained per isolated tick
	RecoveryCap       float64 `yaml:"recovery_cap"`       // ceiling for recovery gains
	RecoveryRule      string  `yaml:"recovery_rule"`
	RecoveryBound     float64 `yaml:"recovery_bound"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	LogEvery int `yaml:"log_every"`
}

// RenderConfig holds viewer settings.
type RenderConfig struct {
	CellSize          int     `yaml:"cell_size"`
	TargetFPS         int     `yaml:"target_fps"`
	StepsPerSecond    float64 `yaml:"steps_per_second"` // simulation rate while running
	PositiveThreshold float64 `yaml:"positive_threshold"`
	NegativeThreshold float64 `yaml:"negative_threshold"`
}

// BatchConfig holds parameter sweep settings.
type BatchConfig struct {
	Width        int       `yaml:"width"`
	Height       int       `yaml:"height"`
	Density      float64   `yaml:"density"` // population = floor(density * cells)
	Seed         int64     `yaml:"seed"`
	GreenRatios  []float64 `yaml:"green_ratios"`
	StressRatios []float64 `yaml:"stress_ratios"`
	Iterations   int       `yaml:"iterations"`
	MaxSteps     int       `yaml:"max_steps"`
	RecordEvery  int       `yaml:"record_every"` // -1 = final tick only
	Workers      int       `yaml:"workers"`
}

// CalibrateConfig holds settings for the ratio calibration tool.
type CalibrateConfig struct {
	TargetMeanMood float64 `yaml:"target_mean_mood"`
	MaxSteps       int     `yaml:"max_steps"`
	Seeds          int     `yaml:"seeds"`
	MaxEvals       int     `yaml:"max_evals"`
}

// ErrInvalidConfig is matched by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError reports a configuration value the simulation cannot be built from.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Is reports ErrInvalidConfig so callers can use errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Batch.GreenRatios = append([]float64(nil), c.Batch.GreenRatios...)
	out.Batch.StressRatios = append([]float64(nil), c.Batch.StressRatios...)
	return &out
}

// Validate checks everything a Simulation needs before any state is built.
func (c *Config) Validate() error {
	g := c.Grid
	if g.Width <= 0 || g.Height <= 0 {
		return invalid("grid", "dimensions must be positive, got %dx%d", g.Width, g.Height)
	}
	switch g.Boundary {
	case BoundaryTorus, BoundaryBounded:
	default:
		return invalid("grid.boundary", "unknown mode %q", g.Boundary)
	}
	switch g.Neighborhood {
	case NeighborhoodMoore, NeighborhoodVonNeumann:
	default:
		return invalid("grid.neighborhood", "unknown mode %q", g.Neighborhood)
	}

	p := c.Population
	if p.Size < 0 {
		return invalid("population.size", "must not be negative, got %d", p.Size)
	}
	if p.Size > g.Cells() {
		return invalid("population.size", "%d agents do not fit on %d cells", p.Size, g.Cells())
	}
	if err := checkRange("population.initial_mood", p.InitialMood, -1, 1); err != nil {
		return err
	}
	if err := checkRange("population.sensitivity", p.Sensitivity, 0, 1); err != nil {
		return err
	}
	if p.Sensitivity.Min <= 0 || p.Sensitivity.Max >= 1 {
		return invalid("population.sensitivity", "must lie strictly inside (0, 1)")
	}
	if err := checkRange("population.mobility_threshold", p.MobilityThreshold, -1, 1); err != nil {
		return err
	}
	if err := checkRange("population.isolation_threshold", p.IsolationThreshold, -1, 1); err != nil {
		return err
	}

	e := c.Environment
	if e.GreenRatio < 0 || e.GreenRatio > 1 {
		return invalid("environment.green_ratio", "must be in [0, 1], got %v", e.GreenRatio)
	}
	if e.StressRatio < 0 || e.StressRatio > 1 {
		return invalid("environment.stress_ratio", "must be in [0, 1], got %v", e.StressRatio)
	}
	if e.GreenRatio+e.StressRatio > 1+ratioEpsilon {
		return invalid("environment", "green_ratio + stress_ratio = %v exceeds 1", e.GreenRatio+e.StressRatio)
	}
	switch e.Layout {
	case LayoutShuffle:
	case LayoutClustered:
		if e.NoiseScale <= 0 {
			return invalid("environment.noise_scale", "must be positive for clustered layout")
		}
	default:
		return invalid("environment.layout", "unknown layout %q", e.Layout)
	}
	if e.StressIsolationPenalty < 0 {
		return invalid("environment.stress_isolation_penalty", "must not be negative")
	}

	d := c.Dynamics
	switch d.Update {
	case UpdateSequential, UpdateSynchronous:
	default:
		return invalid("dynamics.update", "unknown discipline %q", d.Update)
	}
	if d.MobilitySteepness <= 0 {
		return invalid("dynamics.mobility_steepness", "must be positive")
	}
	if d.RecoveryRate < 0 {
		return invalid("dynamics.recovery_rate", "must not be negative")
	}
	if d.RecoveryCap < -1 || d.RecoveryCap > 1 {
		return invalid("dynamics.recovery_cap", "must be in [-1, 1], got %v", d.RecoveryCap)
	}
	switch d.RecoveryRule {
	case RecoveryBound, RecoveryMobility:
	default:
		return invalid("dynamics.recovery_rule", "unknown rule %q", d.RecoveryRule)
	}

	return nil
}

func checkRange(field string, r Range, lo, hi float64) error {
	if r.Min > r.Max {
		return invalid(field, "min %v > max %v", r.Min, r.Max)
	}
	if r.Min < lo || r.Max > hi {
		return invalid(field, "must lie within [%v, %v]", lo, hi)
	}
	return nil
}

// ValidateBatch checks the sweep settings used by the batch runner.
func (c *Config) ValidateBatch() error {
	b := c.Batch
	if b.Width <= 0 || b.Height <= 0 {
		return invalid("batch", "dimensions must be positive, got %dx%d", b.Width, b.Height)
	}
	if b.Density < 0 || b.Density > 1 {
		return invalid("batch.density", "must be in [0, 1], got %v", b.Density)
	}
	if len(b.GreenRatios) == 0 || len(b.StressRatios) == 0 {
		return invalid("batch", "green_ratios and stress_ratios must not be empty")
	}
	if b.Iterations <= 0 {
		return invalid("batch.iterations", "must be positive")
	}
	if b.MaxSteps <= 0 {
		return invalid("batch.max_steps", "must be positive")
	}
	if b.RecordEvery == 0 || b.RecordEvery < -1 {
		return invalid("batch.record_every", "must be -1 or positive, got %d", b.RecordEvery)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
