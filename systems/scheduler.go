package systems

import (
	"fmt"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/urbanmood/config"
)

// UpdateMode selects the contagion update discipline.
type UpdateMode uint8

const (
	// Sequential updates agents one at a time in shuffled order; later agents
	// see moods already changed this tick.
	Sequential UpdateMode = iota
	// Synchronous serves every contagion read from moods captured before the pass.
	// Isolation, recovery and movement still run agent by agent.
	Synchronous
)

func (m UpdateMode) String() string {
	if m == Synchronous {
		return config.UpdateSynchronous
	}
	return config.UpdateSequential
}

// ParseUpdateMode converts a config string to an UpdateMode.
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch s {
	case config.UpdateSequential:
		return Sequential, nil
	case config.UpdateSynchronous:
		return Synchronous, nil
	}
	return 0, &config.ValidationError{Field: "dynamics.update", Reason: fmt.Sprintf("unknown discipline %q", s)}
}

// Updater advances a single agent by one tick.
type Updater interface {
	Update(e ecs.Entity, rng *rand.Rand)
}

// Snapshotter is implemented by updaters that support synchronous passes.
type Snapshotter interface {
	Snapshot(agents []ecs.Entity)
	ClearSnapshot()
}

// Scheduler activates every agent exactly once per tick in a fresh random order.
type Scheduler struct {
	mode  UpdateMode
	order []ecs.Entity
}

// NewScheduler creates a scheduler.
func NewScheduler(mode UpdateMode) *Scheduler {
	return &Scheduler{mode: mode}
}

// Mode returns the update discipline.
func (s *Scheduler) Mode() UpdateMode {
	return s.mode
}

// Step shuffles agents and updates each one in that order.
// The agents slice is not modified.
func (s *Scheduler) Step(agents []ecs.Entity, u Updater, rng *rand.Rand) {
	s.order = append(s.order[:0], agents...)
	rng.Shuffle(len(s.order), func(i, j int) {
		s.order[i], s.order[j] = s.order[j], s.order[i]
	})

	if s.mode == Synchronous {
		if snap, ok := u.(Snapshotter); ok {
			snap.Snapshot(s.order)
			defer snap.ClearSnapshot()
		}
	}

	for _, e := range s.order {
		u.Update(e, rng)
	}
}

// LastOrder returns the activation order of the most recent Step.
func (s *Scheduler) LastOrder() []ecs.Entity {
	return append([]ecs.Entity(nil), s.order...)
}
