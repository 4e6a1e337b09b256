package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/urbanmood/ui"
)

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		g.paused = !g.paused
	}
	if rl.IsKeyPressed(rl.KeyN) && g.paused {
		g.step()
	}
	if rl.IsKeyPressed(rl.KeyR) {
		g.reset()
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) && g.stepsPerUpdate > 1 {
		g.stepsPerUpdate--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && g.stepsPerUpdate < 10 {
		g.stepsPerUpdate++
	}

	g.handleOverlayKeys()
	g.updateHover()
}

// handleAction applies a control panel button press.
func (g *Game) handleAction(a ui.Action) {
	switch a {
	case ui.ActionTogglePause:
		g.paused = !g.paused
	case ui.ActionStep:
		g.paused = true
		g.step()
	case ui.ActionReset:
		g.reset()
	}
}
