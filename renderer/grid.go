package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/urbanmood/components"
	"github.com/pthm-cable/urbanmood/sim"
	"github.com/pthm-cable/urbanmood/systems"
)

// Scene is the read-only view a GridRenderer draws.
type Scene interface {
	Width() int
	Height() int
	CategoryAt(pos components.Position) (systems.Category, bool)
	Agents() []sim.AgentView
}

// GridRenderer draws a Scene as a grid of square cells.
type GridRenderer struct {
	Palette  Palette
	CellSize int32
	OriginX  int32
	OriginY  int32

	ShowEnvironment bool
	ShowGridLines   bool
	ShowIsolation   bool
}

// NewGridRenderer creates a renderer with the environment layer enabled.
func NewGridRenderer(palette Palette, cellSize, originX, originY int32) *GridRenderer {
	return &GridRenderer{
		Palette:         palette,
		CellSize:        cellSize,
		OriginX:         originX,
		OriginY:         originY,
		ShowEnvironment: true,
	}
}

// Size returns the pixel size of a w x h grid.
func (g *GridRenderer) Size(w, h int) (int32, int32) {
	return int32(w) * g.CellSize, int32(h) * g.CellSize
}

// CellAt converts screen coordinates to a grid position.
func (g *GridRenderer) CellAt(screenX, screenY float32, w, h int) (components.Position, bool) {
	if g.CellSize <= 0 {
		return components.Position{}, false
	}
	dx := screenX - float32(g.OriginX)
	dy := screenY - float32(g.OriginY)
	if dx < 0 || dy < 0 {
		return components.Position{}, false
	}
	x := int(dx) / int(g.CellSize)
	y := int(dy) / int(g.CellSize)
	if x >= w || y >= h {
		return components.Position{}, false
	}
	return components.Position{X: x, Y: y}, true
}

// cellRect returns the screen rectangle of pos.
func (g *GridRenderer) cellRect(pos components.Position) (int32, int32) {
	return g.OriginX + int32(pos.X)*g.CellSize, g.OriginY + int32(pos.Y)*g.CellSize
}

// Draw renders the environment, optional grid lines and every agent.
func (g *GridRenderer) Draw(scene Scene) {
	w, h := scene.Width(), scene.Height()
	pw, ph := g.Size(w, h)

	if g.ShowEnvironment {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pos := components.Position{X: x, Y: y}
				px, py := g.cellRect(pos)
				c, _ := scene.CategoryAt(pos)
				rl.DrawRectangle(px, py, g.CellSize, g.CellSize, CellColor(c))
			}
		}
	} else {
		rl.DrawRectangle(g.OriginX, g.OriginY, pw, ph, ColorNeutralCell)
	}

	if g.ShowGridLines {
		lineColor := rl.Color{R: 200, G: 200, B: 200, A: 255}
		for x := 0; x <= w; x++ {
			px := g.OriginX + int32(x)*g.CellSize
			rl.DrawLine(px, g.OriginY, px, g.OriginY+ph, lineColor)
		}
		for y := 0; y <= h; y++ {
			py := g.OriginY + int32(y)*g.CellSize
			rl.DrawLine(g.OriginX, py, g.OriginX+pw, py, lineColor)
		}
	}

	radius := float32(g.CellSize) * 0.4
	for _, a := range scene.Agents() {
		px, py := g.cellRect(a.Position)
		cx := px + g.CellSize/2
		cy := py + g.CellSize/2
		rl.DrawCircle(cx, cy, radius, g.Palette.AgentColor(a.Mood, a.Isolated))
		if g.ShowIsolation && a.Isolated {
			rl.DrawCircleLines(cx, cy, radius+1, rl.DarkGray)
		}
	}

	rl.DrawRectangleLines(g.OriginX, g.OriginY, pw, ph, rl.DarkGray)
}

// Highlight outlines a single cell.
func (g *GridRenderer) Highlight(pos components.Position, color rl.Color) {
	px, py := g.cellRect(pos)
	rl.DrawRectangleLinesEx(rl.Rectangle{
		X: float32(px), Y: float32(py),
		Width: float32(g.CellSize), Height: float32(g.CellSize),
	}, 2, color)
}
