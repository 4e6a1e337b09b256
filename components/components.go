// Package components defines ECS components for the simulation.
package components

// Position is an agent's grid cell. 0 <= X < width, 0 <= Y < height.
type Position struct {
	X, Y int
}

// Offset returns the position shifted by (dx, dy) without wrapping.
func (p Position) Offset(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Agent holds identity. IDs are dense, assigned in creation order from 0.
type Agent struct {
	ID uint32
}

// Mood is the agent's emotional state in [-1, 1].
type Mood struct {
	Value float64
}

// Traits are drawn once at creation and never change.
type Traits struct {
	Sensitivity        float64 // contagion responsiveness, (0, 1)
	MobilityThreshold  float64 // sigmoid inflection for movement
	IsolationThreshold float64 // mood below this isolates (before environment adjustment)
}

// Status tracks the isolation state machine.
type Status struct {
	Isolated bool
	Episodes int32 // times the agent has entered isolation
}
