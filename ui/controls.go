package ui

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/urbanmood/config"
)

// Action is a request raised by the controls panel for the current frame.
type Action int

const (
	ActionNone Action = iota
	ActionTogglePause
	ActionStep
	ActionReset
)

// Slider bounds.
const (
	minGridSize   = 10
	maxGridSize   = 50
	minAgents     = 10
	maxAgents     = 300
	maxRatio      = 0.5
	maxSliderSeed = 99999
)

// Params are the run settings editable from the controls panel.
type Params struct {
	Width       int
	Height      int
	Agents      int
	GreenRatio  float64
	StressRatio float64
	Seed        int64
}

// ParamsFromConfig reads the editable settings out of cfg.
func ParamsFromConfig(cfg *config.Config, seed int64) Params {
	return Params{
		Width:       cfg.Grid.Width,
		Height:      cfg.Grid.Height,
		Agents:      cfg.Population.Size,
		GreenRatio:  cfg.Environment.GreenRatio,
		StressRatio: cfg.Environment.StressRatio,
		Seed:        seed,
	}
}

// Apply returns a copy of cfg with p written into it. The copy is validated.
func (p Params) Apply(cfg *config.Config) (*config.Config, error) {
	out := cfg.Clone()
	out.Grid.Width = p.Width
	out.Grid.Height = p.Height
	out.Population.Size = p.Agents
	out.Environment.GreenRatio = p.GreenRatio
	out.Environment.StressRatio = p.StressRatio
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// ControlsPanel renders run parameters, transport buttons and overlay toggles.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32

	Params Params
	Error  string // last rejected Apply, shown under the buttons
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32, params Params) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		Params:   params,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Draw renders the panel and returns the action clicked this frame.
func (c *ControlsPanel) Draw(paused bool, overlays *OverlayRegistry) Action {
	r := c.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight

	r.DrawPanel(c.x, c.y, c.width, c.height(overlays))

	x := float32(c.x + padding)
	y := c.y + padding
	sliderWidth := float32(c.width - padding*2 - 50)

	rl.DrawText("Parameters", int32(x), y, 16, rl.White)
	y += lineHeight + 6

	slider := func(label, value string, v, lo, hi float32) float32 {
		rl.DrawText(label, int32(x), y, r.Theme.FontSize, r.Theme.LabelColor)
		y += lineHeight
		nv := gui.SliderBar(rl.Rectangle{X: x, Y: float32(y), Width: sliderWidth, Height: 14}, "", "", v, lo, hi)
		rl.DrawText(value, int32(x+sliderWidth)+6, y+1, r.Theme.FontSize, r.Theme.ValueColor)
		y += lineHeight + 4
		return nv
	}

	p := &c.Params
	p.Width = int(slider("Width", fmt.Sprintf("%d", p.Width), float32(p.Width), minGridSize, maxGridSize))
	p.Height = int(slider("Height", fmt.Sprintf("%d", p.Height), float32(p.Height), minGridSize, maxGridSize))
	p.Agents = int(slider("Agents", fmt.Sprintf("%d", p.Agents), float32(p.Agents), minAgents, maxAgents))
	p.GreenRatio = roundRatio(slider("Green", fmt.Sprintf("%.2f", p.GreenRatio), float32(p.GreenRatio), 0, maxRatio))
	p.StressRatio = roundRatio(slider("Stress", fmt.Sprintf("%.2f", p.StressRatio), float32(p.StressRatio), 0, maxRatio))
	p.Seed = int64(slider("Seed", fmt.Sprintf("%d", p.Seed), float32(p.Seed), 0, maxSliderSeed))

	action := ActionNone
	bw := float32(c.width-padding*2-8) / 3
	label := "Pause"
	if paused {
		label = "Run"
	}
	if gui.Button(rl.Rectangle{X: x, Y: float32(y), Width: bw, Height: 24}, label) {
		action = ActionTogglePause
	}
	if gui.Button(rl.Rectangle{X: x + bw + 4, Y: float32(y), Width: bw, Height: 24}, "Step") {
		action = ActionStep
	}
	if gui.Button(rl.Rectangle{X: x + 2*(bw+4), Y: float32(y), Width: bw, Height: 24}, "Reset") {
		action = ActionReset
	}
	y += 30

	if c.Error != "" {
		rl.DrawText(c.Error, int32(x), y, 10, r.Theme.ErrorColor)
	}
	y += lineHeight

	if overlays != nil {
		c.drawOverlays(int32(x), y, overlays)
	}
	return action
}

func (c *ControlsPanel) height(overlays *OverlayRegistry) int32 {
	t := c.renderer.Theme
	h := t.Padding*2 + t.LineHeight + 6 + 6*(t.LineHeight*2+4) + 30 + t.LineHeight
	if overlays != nil {
		for _, cat := range overlays.Categories() {
			h += t.LineHeight*int32(len(overlays.ByCategory(cat))+1) + 4
		}
	}
	return h
}

func (c *ControlsPanel) drawOverlays(x, y int32, overlays *OverlayRegistry) {
	r := c.renderer
	for _, category := range overlays.Categories() {
		rl.DrawText(categoryLabel(category), x, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
		y += r.Theme.LineHeight
		for _, desc := range overlays.ByCategory(category) {
			c.drawToggle(x, y, desc, overlays.IsEnabled(desc.ID), c.width-r.Theme.Padding*2)
			y += r.Theme.LineHeight
		}
		y += 4
	}
}

// drawToggle draws a single overlay toggle line.
func (c *ControlsPanel) drawToggle(x, y int32, desc OverlayDescriptor, enabled bool, width int32) {
	r := c.renderer

	statusColor := rl.Color{R: 80, G: 80, B: 80, A: 255}
	if enabled {
		statusColor = rl.Color{R: 100, G: 200, B: 100, A: 255}
	}
	rl.DrawRectangle(x, y+2, 8, 8, statusColor)

	nameColor := r.Theme.LabelColor
	if enabled {
		nameColor = rl.White
	}
	rl.DrawText(desc.Name, x+14, y, r.Theme.FontSize, nameColor)

	if desc.KeyLabel != "" {
		keyText := fmt.Sprintf("[%s]", desc.KeyLabel)
		keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
		rl.DrawText(keyText, x+width-keyWidth, y, r.Theme.FontSize, rl.Color{R: 150, G: 150, B: 150, A: 255})
	}
}

// categoryLabel returns a display label for a category.
func categoryLabel(cat string) string {
	switch cat {
	case "grid":
		return "Grid"
	case "agents":
		return "Agents"
	case "panels":
		return "Panels"
	default:
		return cat
	}
}

// roundRatio snaps a slider value to two decimals so ratio sums stay exact enough to validate.
func roundRatio(v float32) float64 {
	return math.Round(float64(v)*100) / 100
}
