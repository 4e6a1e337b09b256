package main

import (
	"github.com/pthm-cable/urbanmood/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the environment ratio parameters, starting from cfg.
func NewParamVector(cfg *config.Config) *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "green_ratio", Path: "environment.green_ratio", Min: 0, Max: 1, Default: cfg.Environment.GreenRatio},
			{Name: "stress_ratio", Path: "environment.stress_ratio", Min: 0, Max: 1, Default: cfg.Environment.StressRatio},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// Excess returns how far the clamped ratios sum above 1.
func (pv *ParamVector) Excess(values []float64) float64 {
	c := pv.Clamp(values)
	if over := c[0] + c[1] - 1; over > 0 {
		return over
	}
	return 0
}

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)
	cfg.Environment.GreenRatio = c[0]
	cfg.Environment.StressRatio = c[1]
}
