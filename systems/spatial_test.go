package systems

import (
	"errors"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/urbanmood/components"
)

func pos(x, y int) components.Position {
	return components.Position{X: x, Y: y}
}

func samePositions(a, b []components.Position) bool {
	if len(a) != len(b) {
		return false
	}
	for _, p := range a {
		if !containsPos(b, p) {
			return false
		}
	}
	return true
}

func TestNeighborhood(t *testing.T) {
	tests := []struct {
		name     string
		boundary Boundary
		nb       Neighborhood
		w, h     int
		at       components.Position
		want     []components.Position
	}{
		{"moore torus corner", Torus, Moore, 5, 5, pos(0, 0), []components.Position{
			pos(4, 4), pos(0, 4), pos(1, 4), pos(4, 0), pos(1, 0), pos(4, 1), pos(0, 1), pos(1, 1),
		}},
		{"von neumann torus corner", Torus, VonNeumann, 5, 5, pos(0, 0), []components.Position{
			pos(0, 4), pos(4, 0), pos(1, 0), pos(0, 1),
		}},
		{"moore bounded corner", Bounded, Moore, 5, 5, pos(0, 0), []components.Position{
			pos(1, 0), pos(0, 1), pos(1, 1),
		}},
		{"von neumann bounded corner", Bounded, VonNeumann, 5, 5, pos(4, 4), []components.Position{
			pos(4, 3), pos(3, 4),
		}},
		{"moore bounded edge", Bounded, Moore, 5, 5, pos(2, 0), []components.Position{
			pos(1, 0), pos(3, 0), pos(1, 1), pos(2, 1), pos(3, 1),
		}},
		{"moore bounded interior", Bounded, Moore, 5, 5, pos(2, 2), []components.Position{
			pos(1, 1), pos(2, 1), pos(3, 1), pos(1, 2), pos(3, 2), pos(1, 3), pos(2, 3), pos(3, 3),
		}},
		{"moore torus 2x2 collapses duplicates", Torus, Moore, 2, 2, pos(0, 0), []components.Position{
			pos(1, 0), pos(0, 1), pos(1, 1),
		}},
		{"torus 1x1 has no neighbors", Torus, Moore, 1, 1, pos(0, 0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewSpatialGrid(tt.w, tt.h, tt.boundary, tt.nb)
			got := g.Neighborhood(tt.at)
			if !samePositions(got, tt.want) {
				t.Errorf("Neighborhood(%v) = %v, want %v", tt.at, got, tt.want)
			}
			if containsPos(got, tt.at) {
				t.Errorf("Neighborhood(%v) includes the center", tt.at)
			}
		})
	}
}

func TestGridPlace(t *testing.T) {
	tw := newTestWorld(4, 4, Torus, Moore, uniformField(4, 4, Neutral), stillParams())
	a := tw.spawn(t, pos(1, 1), 0, stationaryTraits(), false)

	if tw.grid.IsEmpty(pos(1, 1)) {
		t.Error("occupied cell reported empty")
	}
	if got, ok := tw.grid.At(pos(1, 1)); !ok || got != a {
		t.Errorf("At(1,1) = %v,%v, want %v,true", got, ok, a)
	}
	if tw.grid.Count() != 1 {
		t.Errorf("Count = %d, want 1", tw.grid.Count())
	}

	b := tw.mapper.NewEntity(&components.Agent{ID: 1}, &components.Position{}, &components.Mood{}, &components.Traits{}, &components.Status{})
	err := tw.grid.Place(b, pos(1, 1))
	if !errors.Is(err, ErrOccupancyViolation) {
		t.Errorf("Place on occupied cell: err = %v, want ErrOccupancyViolation", err)
	}
	var occ *OccupancyError
	if !errors.As(err, &occ) || occ.Op != "place" {
		t.Errorf("expected *OccupancyError for place, got %T", err)
	}
	if err := tw.grid.Place(b, pos(4, 0)); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Place out of bounds: err = %v, want ErrOutOfBounds", err)
	}
	if tw.grid.Count() != 1 {
		t.Errorf("failed places changed Count to %d", tw.grid.Count())
	}
}

func TestGridMove(t *testing.T) {
	tw := newTestWorld(4, 4, Bounded, Moore, uniformField(4, 4, Neutral), stillParams())
	a := tw.spawn(t, pos(0, 0), 0, stationaryTraits(), false)
	b := tw.spawn(t, pos(1, 0), 0, stationaryTraits(), false)

	if err := tw.grid.Move(a, pos(0, 0), pos(0, 1)); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !tw.grid.IsEmpty(pos(0, 0)) {
		t.Error("source still occupied after move")
	}
	if got, _ := tw.grid.At(pos(0, 1)); got != a {
		t.Error("destination does not hold moved entity")
	}

	// Destination occupied
	err := tw.grid.Move(a, pos(0, 1), pos(1, 0))
	if !errors.Is(err, ErrOccupancyViolation) {
		t.Errorf("move onto occupied cell: err = %v", err)
	}
	if got, _ := tw.grid.At(pos(0, 1)); got != a {
		t.Error("failed move vacated the source")
	}
	if got, _ := tw.grid.At(pos(1, 0)); got != b {
		t.Error("failed move displaced the occupant")
	}

	// Source does not hold the entity
	if err := tw.grid.Move(b, pos(0, 1), pos(2, 2)); !errors.Is(err, ErrOccupancyViolation) {
		t.Errorf("move from wrong source: err = %v", err)
	}
	if tw.grid.Count() != 2 {
		t.Errorf("Count = %d, want 2", tw.grid.Count())
	}
}

func TestGridRemove(t *testing.T) {
	tw := newTestWorld(3, 3, Torus, Moore, uniformField(3, 3, Neutral), stillParams())
	a := tw.spawn(t, pos(2, 2), 0, stationaryTraits(), false)

	if err := tw.grid.Remove(a, pos(0, 0)); !errors.Is(err, ErrOccupancyViolation) {
		t.Errorf("remove from empty cell: err = %v", err)
	}
	if err := tw.grid.Remove(a, pos(2, 2)); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !tw.grid.IsEmpty(pos(2, 2)) || tw.grid.Count() != 0 {
		t.Error("cell not cleared by Remove")
	}
}

func TestGridNeighborsAndEmpty(t *testing.T) {
	tw := newTestWorld(5, 5, Torus, VonNeumann, uniformField(5, 5, Neutral), stillParams())
	center := tw.spawn(t, pos(2, 2), 0, stationaryTraits(), false)
	up := tw.spawn(t, pos(2, 1), 0, stationaryTraits(), false)
	diag := tw.spawn(t, pos(3, 3), 0, stationaryTraits(), false)

	neighbors := tw.grid.Neighbors(pos(2, 2))
	if len(neighbors) != 1 || neighbors[0] != up {
		t.Errorf("Neighbors = %v, want only %v (diagonal %v excluded)", neighbors, up, diag)
	}
	for _, n := range neighbors {
		if n == center {
			t.Error("Neighbors includes the center agent")
		}
	}

	empty := tw.grid.EmptyNeighborhoodInto(nil, pos(2, 2))
	want := []components.Position{pos(1, 2), pos(3, 2), pos(2, 3)}
	if !samePositions(empty, want) {
		t.Errorf("empty neighborhood = %v, want %v", empty, want)
	}
}

func TestGridAtOutOfBounds(t *testing.T) {
	g := NewSpatialGrid(3, 3, Torus, Moore)
	if _, ok := g.At(pos(-1, 0)); ok {
		t.Error("At(-1,0) reported an occupant")
	}
	if g.IsEmpty(pos(3, 0)) {
		t.Error("off-grid cell reported empty")
	}
	var zero ecs.Entity
	if got, _ := g.At(pos(0, 0)); got != zero {
		t.Error("empty cell returned non-zero entity")
	}
}

func TestParseModes(t *testing.T) {
	if b, err := ParseBoundary("bounded"); err != nil || b != Bounded {
		t.Errorf("ParseBoundary(bounded) = %v, %v", b, err)
	}
	if _, err := ParseBoundary("sphere"); err == nil {
		t.Error("ParseBoundary accepted unknown mode")
	}
	if n, err := ParseNeighborhood("von_neumann"); err != nil || n != VonNeumann {
		t.Errorf("ParseNeighborhood(von_neumann) = %v, %v", n, err)
	}
	if _, err := ParseNeighborhood("hex"); err == nil {
		t.Error("ParseNeighborhood accepted unknown mode")
	}
}
