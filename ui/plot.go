package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Series is one line in a TimeSeriesPlot.
type Series struct {
	Label  string
	Values []float64
	Color  rl.Color
}

// TimeSeriesPlot draws the most recent samples of one or more series in a fixed box.
type TimeSeriesPlot struct {
	renderer *Renderer
	x, y     int32
	width    int32
	height   int32

	Min, Max  float64 // value range mapped to the box
	MaxPoints int     // samples shown; older samples scroll off
}

// NewTimeSeriesPlot creates a plot box.
func NewTimeSeriesPlot(x, y, width, height int32, lo, hi float64) *TimeSeriesPlot {
	return &TimeSeriesPlot{
		renderer:  NewRenderer(),
		x:         x,
		y:         y,
		width:     width,
		height:    height,
		Min:       lo,
		Max:       hi,
		MaxPoints: 200,
	}
}

// SetPosition updates the plot position.
func (p *TimeSeriesPlot) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the box, a zero line when in range, and every series.
func (p *TimeSeriesPlot) Draw(title string, series ...Series) {
	t := p.renderer.Theme
	rl.DrawRectangle(p.x, p.y, p.width, p.height, t.PlotBg)
	rl.DrawRectangleLines(p.x, p.y, p.width, p.height, t.PanelBorder)

	if p.Min < 0 && p.Max > 0 {
		zy := p.y + p.height - int32(float64(p.height)*(0-p.Min)/(p.Max-p.Min))
		rl.DrawLine(p.x, zy, p.x+p.width, zy, t.PlotGrid)
	}

	p.renderer.DrawLabel(p.x+4, p.y+4, title)
	p.renderer.DrawValue(p.x+p.width-32, p.y+4, fmt.Sprintf("%+.1f", p.Max))
	p.renderer.DrawValue(p.x+p.width-32, p.y+p.height-16, fmt.Sprintf("%+.1f", p.Min))

	legendX := p.x + 4
	for _, s := range series {
		pts := PlotPoints(s.Values, p.Min, p.Max, p.x, p.y, p.width, p.height, p.MaxPoints)
		for i := 1; i < len(pts); i++ {
			rl.DrawLineV(pts[i-1], pts[i], s.Color)
		}
		rl.DrawText(s.Label, legendX, p.y+p.height-14, 10, s.Color)
		legendX += rl.MeasureText(s.Label, 10) + 10
	}
}

// PlotPoints maps the last maxPoints values into the box (x, y, w, h). Values
// outside [lo, hi] are clamped to the box edge.
func PlotPoints(values []float64, lo, hi float64, x, y, w, h int32, maxPoints int) []rl.Vector2 {
	if maxPoints > 0 && len(values) > maxPoints {
		values = values[len(values)-maxPoints:]
	}
	if len(values) == 0 || hi <= lo {
		return nil
	}

	span := maxPoints - 1
	if span < 1 || maxPoints <= 0 {
		span = len(values) - 1
	}
	if span < 1 {
		span = 1
	}

	pts := make([]rl.Vector2, len(values))
	for i, v := range values {
		t := (v - lo) / (hi - lo)
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		pts[i] = rl.Vector2{
			X: float32(x) + float32(w)*float32(i)/float32(span),
			Y: float32(y+h) - float32(h)*float32(t),
		}
	}
	return pts
}
