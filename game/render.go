package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/urbanmood/telemetry"
	"github.com/pthm-cable/urbanmood/ui"
)

// Background color behind the panels.
var backgroundColor = rl.Color{R: 15, G: 18, B: 22, A: 255}

// Draw renders the full frame.
func (g *Game) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(backgroundColor)

	g.grid.Draw(g.sim)
	if agent, ok := g.hoveredAgent(); ok {
		g.grid.Highlight(agent.Position, rl.SkyBlue)
	}

	g.drawUI()
	g.drawActiveOverlays()

	rl.EndDrawing()
	g.sim.RecordFrame()
}

// drawUI renders the HUD and the controls panel. Panel buttons act on the next step.
func (g *Game) drawUI() {
	latest, _ := g.sim.LatestMetrics()
	g.hud.Draw(ui.HUDData{
		Title:    "Urban Mood",
		Tick:     g.sim.Tick(),
		Agents:   g.sim.NumAgents(),
		MeanMood: latest.MeanMood,
		MoodStd:  latest.MoodStd,
		Isolated: latest.Isolated,
		Moves:    latest.Moves,
		Seed:     g.seed,
		FPS:      rl.GetFPS(),
		Paused:   g.paused,
	})
	g.hud.DrawControls(ScreenHeight, "[Space] Pause  [N] Step  [R] Reset  [,/.] Steps per update  [E/G/I/P/F/H] Overlays")

	action := g.controls.Draw(g.paused, g.overlays)
	g.handleAction(action)
}

// drawMoodPlot renders mean mood and isolated share over time.
func (g *Game) drawMoodPlot() {
	rec := g.sim.Recorder()
	agents := float64(g.sim.NumAgents())
	isolatedShare := func(s telemetry.TickStats) float64 {
		if agents == 0 {
			return 0
		}
		return float64(s.Isolated) / agents
	}

	g.plot.Draw("Mood / isolated",
		ui.Series{Label: "mean mood", Values: rec.Series(func(s telemetry.TickStats) float64 { return s.MeanMood }), Color: rl.SkyBlue},
		ui.Series{Label: "isolated", Values: rec.Series(isolatedShare), Color: rl.Gray},
	)
}

// drawPerf renders tick timing by phase.
func (g *Game) drawPerf() {
	g.perfPanel.Draw(ui.PerfPanelData{
		Stats:    g.sim.PerfStats(),
		Registry: g.registry,
	})
}

// drawInspector shows the agent under the cursor.
func (g *Game) drawInspector() {
	agent, ok := g.hoveredAgent()
	if !ok {
		return
	}
	category, _ := g.sim.CategoryAt(agent.Position)
	g.inspector.Draw(ui.InspectorData{
		Agent:              agent,
		Category:           category.String(),
		IsolationThreshold: g.sim.IsolationThreshold(agent),
		Color:              g.palette.AgentColor(agent.Mood, agent.Isolated),
	})
}
