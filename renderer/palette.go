// Package renderer draws the grid, the environment field and the agents.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/urbanmood/config"
	"github.com/pthm-cable/urbanmood/systems"
)

// Agent colors by mood band.
var (
	ColorIsolated = rl.Gray
	ColorPositive = rl.Green
	ColorNegative = rl.Red
	ColorMixed    = rl.Orange
)

// Cell background colors by environment category.
var (
	ColorGreenCell   = rl.Color{R: 0xd0, G: 0xf0, B: 0xc0, A: 255}
	ColorStressCell  = rl.Color{R: 0xf9, G: 0xc0, B: 0xc0, A: 255}
	ColorNeutralCell = rl.White
)

// Palette maps agent state to colors.
type Palette struct {
	PositiveThreshold float64 // mood above this is positive
	NegativeThreshold float64 // mood below this is negative
}

// NewPalette builds a palette from the render settings.
func NewPalette(cfg config.RenderConfig) Palette {
	return Palette{
		PositiveThreshold: cfg.PositiveThreshold,
		NegativeThreshold: cfg.NegativeThreshold,
	}
}

// AgentColor returns the fill color for an agent. Isolation wins over mood.
func (p Palette) AgentColor(mood float64, isolated bool) rl.Color {
	switch {
	case isolated:
		return ColorIsolated
	case mood > p.PositiveThreshold:
		return ColorPositive
	case mood < p.NegativeThreshold:
		return ColorNegative
	default:
		return ColorMixed
	}
}

// CellColor returns the background color for an environment category.
func CellColor(c systems.Category) rl.Color {
	switch c {
	case systems.Green:
		return ColorGreenCell
	case systems.Stress:
		return ColorStressCell
	default:
		return ColorNeutralCell
	}
}

// MoodColor blends from red at -1 through orange to green at +1. Used for plots.
func MoodColor(mood float64) rl.Color {
	t := float32((mood + 1) / 2)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return rl.Color{
		R: uint8(230 * (1 - t)),
		G: uint8(60 + 140*t),
		B: 60,
		A: 255,
	}
}
