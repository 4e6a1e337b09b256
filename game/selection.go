package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/urbanmood/sim"
)

// updateHover tracks the grid cell under the mouse.
func (g *Game) updateHover() {
	mouse := rl.GetMousePosition()
	g.hovered, g.hasHovered = g.grid.CellAt(mouse.X, mouse.Y, g.sim.Width(), g.sim.Height())
}

// hoveredAgent returns the agent in the hovered cell, if any.
func (g *Game) hoveredAgent() (sim.AgentView, bool) {
	if !g.hasHovered {
		return sim.AgentView{}, false
	}
	return g.sim.OccupantAt(g.hovered)
}
