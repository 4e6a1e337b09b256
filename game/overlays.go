package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/urbanmood/renderer"
	"github.com/pthm-cable/urbanmood/ui"
)

// handleOverlayKeys toggles overlays from the keys bound in the registry.
func (g *Game) handleOverlayKeys() {
	for _, desc := range g.overlays.All() {
		if desc.Key == 0 || !rl.IsKeyPressed(desc.Key) {
			continue
		}
		if id, on, ok := g.overlays.HandleKeyPress(desc.Key); ok {
			toggled, _ := g.overlays.Get(id)
			slog.Debug("overlay toggled", "overlay", toggled.Name, "enabled", on)
		}
	}
	g.syncOverlays()
}

// syncOverlays copies grid overlay state onto the renderer.
func (g *Game) syncOverlays() {
	if g.grid == nil {
		return
	}
	applyGridOverlays(g.grid, g.overlays.EnabledOverlays())
}

// applyGridOverlays switches the grid layers to exactly the enabled set.
func applyGridOverlays(grid *renderer.GridRenderer, enabled []ui.OverlayID) {
	grid.ShowEnvironment, grid.ShowGridLines, grid.ShowIsolation = false, false, false
	for _, id := range enabled {
		switch id {
		case ui.OverlayEnvironment:
			grid.ShowEnvironment = true
		case ui.OverlayGridLines:
			grid.ShowGridLines = true
		case ui.OverlayIsolation:
			grid.ShowIsolation = true
		}
	}
}

// drawActiveOverlays renders the side panels that are switched on.
func (g *Game) drawActiveOverlays() {
	if g.overlays.IsEnabled(ui.OverlayMoodPlot) {
		g.drawMoodPlot()
	}
	if g.overlays.IsEnabled(ui.OverlayPerf) {
		g.drawPerf()
	}
	if g.overlays.IsEnabled(ui.OverlayInspector) && g.hasHovered {
		g.drawInspector()
	}
}
