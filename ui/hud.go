package ui

import (
	"fmt"
	"sort"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/urbanmood/systems"
	"github.com/pthm-cable/urbanmood/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title    string
	Tick     int32
	Agents   int
	MeanMood float64
	MoodStd  float64
	Isolated int
	Moves    int
	Seed     int64
	FPS      int32
	Paused   bool
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
	x, y     int32
}

// NewHUD creates a new HUD renderer anchored at x, y.
func NewHUD(x, y int32) *HUD {
	return &HUD{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, h.x, h.y, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Tick: %d | Agents: %d | Seed: %d | FPS: %d", data.Tick, data.Agents, data.Seed, data.FPS),
		h.x, h.y+25, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Mood: %+.3f (sd %.3f) | Isolated: %d (%.0f%%) | Moves: %d",
			data.MeanMood, data.MoodStd, data.Isolated, isolatedPct(data.Isolated, data.Agents), data.Moves),
		h.x, h.y+45, 16, rl.LightGray,
	)

	statusText := "Running"
	if data.Paused {
		statusText = "PAUSED"
	}
	rl.DrawText(statusText, h.x, h.y+65, 16, rl.Yellow)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, h.x, screenHeight-25, 14, rl.Gray)
}

func isolatedPct(isolated, agents int) float64 {
	if agents == 0 {
		return 0
	}
	return float64(isolated) / float64(agents) * 100
}

// PerfPanelData holds performance metrics for display.
type PerfPanelData struct {
	Stats    telemetry.PerfStats
	Registry *systems.SystemRegistry // display names; nil shows phase IDs
}

// PerfPanel renders tick timing by phase.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel, slowest phase first.
func (p *PerfPanel) Draw(data PerfPanelData) {
	x := p.x
	y := p.y
	st := data.Stats

	rl.DrawText("Tick Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Avg: %s | %.0f ticks/s", st.AvgTick.Round(time.Microsecond), st.TicksPerSecond), x, y, 14, rl.Yellow)
	y += 16
	rl.DrawText(fmt.Sprintf("%.0fk agent updates/s | %.1f moves/tick", st.AgentUpdatesPerSecond/1000, st.MovesPerTick), x, y, 12, rl.LightGray)
	y += 16

	phases := append([]telemetry.PhaseTiming(nil), st.Phases...)
	sort.SliceStable(phases, func(i, j int) bool {
		return phases[i].Avg > phases[j].Avg
	})

	for _, ph := range phases {
		color := rl.LightGray
		if ph.Pct > 80 {
			color = rl.Orange
		}

		displayName := ph.ID
		if data.Registry != nil {
			displayName = data.Registry.GetName(ph.ID)
		}

		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", displayName, ph.Avg.Round(time.Microsecond), ph.Pct),
			x, y, 12, color,
		)
		y += 14
	}
}
