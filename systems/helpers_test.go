package systems

import (
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/urbanmood/components"
)

// testWorld wires a grid, a field and a behavior system around a small ECS world.
type testWorld struct {
	world  *ecs.World
	mapper *ecs.Map5[components.Agent, components.Position, components.Mood, components.Traits, components.Status]
	posMap *ecs.Map[components.Position]
	moods  *ecs.Map[components.Mood]
	status *ecs.Map[components.Status]

	grid     *SpatialGrid
	env      *EnvironmentField
	behavior *BehaviorSystem
	agents   []ecs.Entity
	rng      *rand.Rand
}

// stillParams uses a steep sigmoid so movement is all-or-nothing around the mobility threshold.
func stillParams() BehaviorParams {
	return BehaviorParams{
		MobilitySteepness: 1000,
		RecoveryRate:      0.02,
		RecoveryCap:       1.0,
		RecoveryRule:      RecoverAboveBound,
		RecoveryBound:     -0.5,
	}
}

// defaultParams mirrors the embedded config defaults.
func defaultParams() BehaviorParams {
	p := stillParams()
	p.MobilitySteepness = 10
	return p
}

// uniformField returns a field where every cell has category c.
func uniformField(w, h int, c Category) *EnvironmentField {
	f := &EnvironmentField{width: w, height: h, cells: make([]Category, w*h)}
	for i := range f.cells {
		f.cells[i] = c
	}
	f.counts[c] = w * h
	return f
}

func newTestWorld(w, h int, boundary Boundary, nb Neighborhood, env *EnvironmentField, params BehaviorParams) *testWorld {
	world := ecs.NewWorld()
	grid := NewSpatialGrid(w, h, boundary, nb)
	return &testWorld{
		world:    world,
		mapper:   ecs.NewMap5[components.Agent, components.Position, components.Mood, components.Traits, components.Status](world),
		posMap:   ecs.NewMap[components.Position](world),
		moods:    ecs.NewMap[components.Mood](world),
		status:   ecs.NewMap[components.Status](world),
		grid:     grid,
		env:      env,
		behavior: NewBehaviorSystem(world, grid, env, params),
		rng:      rand.New(rand.NewSource(7)),
	}
}

// stationaryTraits never move under stillParams and never isolate above -0.75.
func stationaryTraits() components.Traits {
	return components.Traits{Sensitivity: 0.5, MobilityThreshold: 1.0, IsolationThreshold: -0.75}
}

// restlessTraits move whenever an empty neighbor exists.
func restlessTraits() components.Traits {
	return components.Traits{Sensitivity: 0.5, MobilityThreshold: -1.0, IsolationThreshold: -0.95}
}

func (tw *testWorld) spawn(t *testing.T, pos components.Position, mood float64, traits components.Traits, isolated bool) ecs.Entity {
	t.Helper()
	agent := components.Agent{ID: uint32(len(tw.agents))}
	m := components.Mood{Value: mood}
	st := components.Status{Isolated: isolated}
	e := tw.mapper.NewEntity(&agent, &pos, &m, &traits, &st)
	if err := tw.grid.Place(e, pos); err != nil {
		t.Fatalf("place %v: %v", pos, err)
	}
	tw.agents = append(tw.agents, e)
	return e
}

func (tw *testWorld) mood(e ecs.Entity) float64 {
	return tw.moods.Get(e).Value
}

func (tw *testWorld) pos(e ecs.Entity) components.Position {
	return *tw.posMap.Get(e)
}

func (tw *testWorld) isolated(e ecs.Entity) bool {
	return tw.status.Get(e).Isolated
}

func (tw *testWorld) update(e ecs.Entity) {
	tw.behavior.Update(e, tw.rng)
}
