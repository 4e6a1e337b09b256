// Package systems provides ECS systems for the simulation.
package systems

import (
	"errors"
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/urbanmood/components"
	"github.com/pthm-cable/urbanmood/config"
)

// Boundary selects how the grid edges behave.
type Boundary uint8

const (
	Torus   Boundary = iota // coordinates wrap modulo width/height
	Bounded                 // out-of-range neighbors are dropped
)

func (b Boundary) String() string {
	if b == Bounded {
		return config.BoundaryBounded
	}
	return config.BoundaryTorus
}

// ParseBoundary converts a config string to a Boundary.
func ParseBoundary(s string) (Boundary, error) {
	switch s {
	case config.BoundaryTorus:
		return Torus, nil
	case config.BoundaryBounded:
		return Bounded, nil
	}
	return 0, &config.ValidationError{Field: "grid.boundary", Reason: fmt.Sprintf("unknown mode %q", s)}
}

// Neighborhood selects the adjacency rule used for contagion and movement.
type Neighborhood uint8

const (
	Moore      Neighborhood = iota // 8-connected
	VonNeumann                     // 4-connected
)

func (n Neighborhood) String() string {
	if n == VonNeumann {
		return config.NeighborhoodVonNeumann
	}
	return config.NeighborhoodMoore
}

// ParseNeighborhood converts a config string to a Neighborhood.
func ParseNeighborhood(s string) (Neighborhood, error) {
	switch s {
	case config.NeighborhoodMoore:
		return Moore, nil
	case config.NeighborhoodVonNeumann:
		return VonNeumann, nil
	}
	return 0, &config.ValidationError{Field: "grid.neighborhood", Reason: fmt.Sprintf("unknown mode %q", s)}
}

var (
	vonNeumannOffsets = [][2]int{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}
	mooreOffsets      = [][2]int{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}
)

// ErrOccupancyViolation is matched by every OccupancyError.
var ErrOccupancyViolation = errors.New("occupancy violation")

// ErrOutOfBounds is returned for positions outside the grid.
var ErrOutOfBounds = errors.New("position out of bounds")

// OccupancyError reports an attempt to break single occupancy.
type OccupancyError struct {
	Op     string
	Pos    components.Position
	Entity ecs.Entity
	Reason string
}

func (e *OccupancyError) Error() string {
	return fmt.Sprintf("grid %s at (%d,%d): %s", e.Op, e.Pos.X, e.Pos.Y, e.Reason)
}

// Is reports ErrOccupancyViolation so callers can use errors.Is.
func (e *OccupancyError) Is(target error) bool {
	return target == ErrOccupancyViolation
}

// SpatialGrid is a single-occupancy cell grid holding entity back-references.
// Agents are owned by the ECS world; the grid only records where they are.
type SpatialGrid struct {
	width        int
	height       int
	boundary     Boundary
	neighborhood Neighborhood
	offsets      [][2]int

	cells    []ecs.Entity
	occupied []bool
	count    int

	scratch []components.Position
}

// NewSpatialGrid creates an empty grid.
func NewSpatialGrid(width, height int, boundary Boundary, neighborhood Neighborhood) *SpatialGrid {
	offsets := mooreOffsets
	if neighborhood == VonNeumann {
		offsets = vonNeumannOffsets
	}
	return &SpatialGrid{
		width:        width,
		height:       height,
		boundary:     boundary,
		neighborhood: neighborhood,
		offsets:      offsets,
		cells:        make([]ecs.Entity, width*height),
		occupied:     make([]bool, width*height),
		scratch:      make([]components.Position, 0, len(offsets)),
	}
}

// Width returns the number of columns.
func (g *SpatialGrid) Width() int { return g.width }

// Height returns the number of rows.
func (g *SpatialGrid) Height() int { return g.height }

// Boundary returns the edge mode.
func (g *SpatialGrid) Boundary() Boundary { return g.boundary }

// NeighborMode returns the adjacency rule.
func (g *SpatialGrid) NeighborMode() Neighborhood { return g.neighborhood }

// Count returns the number of occupied cells.
func (g *SpatialGrid) Count() int { return g.count }

// Contains reports whether p lies on the grid.
func (g *SpatialGrid) Contains(p components.Position) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

func (g *SpatialGrid) index(p components.Position) int {
	return p.Y*g.width + p.X
}

// NeighborhoodInto appends the positions adjacent to p to dst.
// The center is never included and wrapped duplicates on small grids appear once.
func (g *SpatialGrid) NeighborhoodInto(dst []components.Position, p components.Position) []components.Position {
	start := len(dst)
	for _, off := range g.offsets {
		q := p.Offset(off[0], off[1])
		if g.boundary == Torus {
			q.X = wrap(q.X, g.width)
			q.Y = wrap(q.Y, g.height)
		} else if !g.Contains(q) {
			continue
		}
		if q == p || containsPos(dst[start:], q) {
			continue
		}
		dst = append(dst, q)
	}
	return dst
}

// Neighborhood returns the positions adjacent to p.
func (g *SpatialGrid) Neighborhood(p components.Position) []components.Position {
	return g.NeighborhoodInto(make([]components.Position, 0, len(g.offsets)), p)
}

// NeighborsInto appends the entities occupying cells adjacent to p to dst.
func (g *SpatialGrid) NeighborsInto(dst []ecs.Entity, p components.Position) []ecs.Entity {
	g.scratch = g.NeighborhoodInto(g.scratch[:0], p)
	for _, q := range g.scratch {
		idx := g.index(q)
		if g.occupied[idx] {
			dst = append(dst, g.cells[idx])
		}
	}
	return dst
}

// Neighbors returns the entities occupying cells adjacent to p.
func (g *SpatialGrid) Neighbors(p components.Position) []ecs.Entity {
	return g.NeighborsInto(nil, p)
}

// EmptyNeighborhoodInto appends the unoccupied cells adjacent to p to dst.
func (g *SpatialGrid) EmptyNeighborhoodInto(dst []components.Position, p components.Position) []components.Position {
	g.scratch = g.NeighborhoodInto(g.scratch[:0], p)
	for _, q := range g.scratch {
		if !g.occupied[g.index(q)] {
			dst = append(dst, q)
		}
	}
	return dst
}

// At returns the entity at p, if any.
func (g *SpatialGrid) At(p components.Position) (ecs.Entity, bool) {
	if !g.Contains(p) {
		return ecs.Entity{}, false
	}
	idx := g.index(p)
	return g.cells[idx], g.occupied[idx]
}

// IsEmpty reports whether p is on the grid and unoccupied.
func (g *SpatialGrid) IsEmpty(p components.Position) bool {
	return g.Contains(p) && !g.occupied[g.index(p)]
}

// Place puts e on an empty cell.
func (g *SpatialGrid) Place(e ecs.Entity, p components.Position) error {
	if !g.Contains(p) {
		return fmt.Errorf("place (%d,%d): %w", p.X, p.Y, ErrOutOfBounds)
	}
	idx := g.index(p)
	if g.occupied[idx] {
		return &OccupancyError{Op: "place", Pos: p, Entity: e, Reason: "cell already occupied"}
	}
	g.cells[idx] = e
	g.occupied[idx] = true
	g.count++
	return nil
}

// Remove clears p, which must hold e.
func (g *SpatialGrid) Remove(e ecs.Entity, p components.Position) error {
	if !g.Contains(p) {
		return fmt.Errorf("remove (%d,%d): %w", p.X, p.Y, ErrOutOfBounds)
	}
	idx := g.index(p)
	if !g.occupied[idx] || g.cells[idx] != e {
		return &OccupancyError{Op: "remove", Pos: p, Entity: e, Reason: "cell does not hold entity"}
	}
	g.cells[idx] = ecs.Entity{}
	g.occupied[idx] = false
	g.count--
	return nil
}

// Move relocates e from one cell to another. Both checks run before any
// mutation, so a failed move leaves the grid untouched.
func (g *SpatialGrid) Move(e ecs.Entity, from, to components.Position) error {
	if !g.Contains(from) || !g.Contains(to) {
		return fmt.Errorf("move (%d,%d)->(%d,%d): %w", from.X, from.Y, to.X, to.Y, ErrOutOfBounds)
	}
	src, dst := g.index(from), g.index(to)
	if !g.occupied[src] || g.cells[src] != e {
		return &OccupancyError{Op: "move", Pos: from, Entity: e, Reason: "source does not hold entity"}
	}
	if g.occupied[dst] {
		return &OccupancyError{Op: "move", Pos: to, Entity: e, Reason: "destination occupied"}
	}
	g.cells[src] = ecs.Entity{}
	g.occupied[src] = false
	g.cells[dst] = e
	g.occupied[dst] = true
	return nil
}

// wrap returns v modulo n in [0, n).
func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

func containsPos(ps []components.Position, p components.Position) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}
