package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/urbanmood/components"
	"github.com/pthm-cable/urbanmood/sim"
)

// InspectorData holds all the data needed to render the inspector panel.
type InspectorData struct {
	Agent              sim.AgentView
	Category           string   // environment category under the agent
	IsolationThreshold float64  // threshold in effect on the agent's cell
	Color              rl.Color // color the grid draws the agent with
}

// Inspector renders the agent inspection panel.
type Inspector struct {
	renderer *Renderer
	x, y     int32
	width    int32
	panel    PanelDescriptor
}

// NewInspector creates a new inspector panel.
func NewInspector(x, y, width int32) *Inspector {
	return &Inspector{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		panel:    InspectorPanel(),
	}
}

// SetPosition updates the inspector position.
func (ins *Inspector) SetPosition(x, y int32) {
	ins.x = x
	ins.y = y
}

// Draw renders the inspector panel and returns the bottom Y.
func (ins *Inspector) Draw(data InspectorData) int32 {
	return ins.renderer.DrawPanelDescriptor(ins.x, ins.y, ins.width, ins.panel, data)
}

// InspectorPanel builds the inspector layout from the component field metadata.
func InspectorPanel() PanelDescriptor {
	header := SectionDescriptor{
		ID: "agent",
		Fields: []FieldDescriptor{
			{ID: "id", Label: "Agent", Widget: WidgetText, TextGetter: func(d any) string {
				a := d.(InspectorData).Agent
				return fmt.Sprintf("#%d (%d, %d)", a.ID, a.Position.X, a.Position.Y)
			}},
			{ID: "cell", Label: "Cell", Widget: WidgetText, TextGetter: func(d any) string {
				return d.(InspectorData).Category
			}},
			{ID: "status", Label: "Status", Widget: WidgetText, TextGetter: func(d any) string {
				if d.(InspectorData).Agent.Isolated {
					return "isolated"
				}
				return "active"
			}},
			{ID: "color", Label: "Color", Widget: WidgetColorSwatch, ColorGetter: func(d any) rl.Color {
				return d.(InspectorData).Color
			}},
		},
	}

	sections := []SectionDescriptor{header}
	byGroup := map[string][]components.FieldDescriptor{}
	for _, fd := range append(components.AgentFieldDescriptors(), components.TraitFieldDescriptors()...) {
		byGroup[fd.Group] = append(byGroup[fd.Group], fd)
	}
	for _, group := range components.AgentGroups() {
		sd := SectionDescriptor{ID: group, Title: sectionTitle(group)}
		for _, cfd := range byGroup[group] {
			sd.Fields = append(sd.Fields, fieldFromComponent(cfd))
		}
		if group == "traits" {
			sd.Fields = append(sd.Fields, FieldDescriptor{
				ID:     "effective_isolation",
				Label:  "Here",
				Widget: WidgetCenteredBar,
				Range:  CenteredRange(),
				Getter: func(d any) float32 { return float32(d.(InspectorData).IsolationThreshold) },
			})
		}
		sections = append(sections, sd)
	}

	return PanelDescriptor{ID: "inspector", Title: "Inspector", Sections: sections}
}

// fieldFromComponent converts component metadata into a ui field bound to InspectorData.
func fieldFromComponent(cfd components.FieldDescriptor) FieldDescriptor {
	id := cfd.ID
	getter := func(d any) float32 {
		a := d.(InspectorData).Agent
		mood := components.Mood{Value: a.Mood}
		status := components.Status{Isolated: a.Isolated, Episodes: a.Episodes}
		return components.GetAgentValue(&mood, &status, &a.Traits, id)
	}

	fd := FieldDescriptor{
		ID:     cfd.ID,
		Label:  cfd.Label,
		Format: cfd.Format,
		Range:  FieldRange{Min: cfd.Min, Max: cfd.Max},
		Getter: getter,
	}
	switch {
	case cfd.IsBar && cfd.IsCentered:
		fd.Widget = WidgetCenteredBar
	case cfd.IsBar:
		fd.Widget = WidgetBar
	default:
		fd.Widget = WidgetText
	}
	if !cfd.ShowWhenZero {
		fd.Visible = func(d any) bool { return getter(d) != 0 }
	}
	return fd
}

func sectionTitle(group string) string {
	switch group {
	case "state":
		return "State"
	case "traits":
		return "Traits"
	default:
		return group
	}
}
