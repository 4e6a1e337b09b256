package systems

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/urbanmood/components"
	"github.com/pthm-cable/urbanmood/config"
)

// RecoveryRule decides when an isolated agent becomes active again.
type RecoveryRule uint8

const (
	RecoverAboveBound RecoveryRule = iota // mood > RecoveryBound
	RecoverAtMobility                     // mood >= agent's mobility threshold
)

// BehaviorParams holds the update rule constants.
type BehaviorParams struct {
	MobilitySteepness      float64
	RecoveryRate           float64
	RecoveryCap            float64
	RecoveryRule           RecoveryRule
	RecoveryBound          float64
	StressIsolationPenalty float64
}

// BehaviorParamsFromConfig extracts the update rule from cfg.
func BehaviorParamsFromConfig(cfg *config.Config) (BehaviorParams, error) {
	d := cfg.Dynamics
	p := BehaviorParams{
		MobilitySteepness:      d.MobilitySteepness,
		RecoveryRate:           d.RecoveryRate,
		RecoveryCap:            d.RecoveryCap,
		RecoveryBound:          d.RecoveryBound,
		StressIsolationPenalty: cfg.Environment.StressIsolationPenalty,
	}
	switch d.RecoveryRule {
	case config.RecoveryBound:
		p.RecoveryRule = RecoverAboveBound
	case config.RecoveryMobility:
		p.RecoveryRule = RecoverAtMobility
	default:
		return p, &config.ValidationError{Field: "dynamics.recovery_rule", Reason: fmt.Sprintf("unknown rule %q", d.RecoveryRule)}
	}
	return p, nil
}

// BehaviorSystem runs the per-agent mood update: recovery, contagion,
// environment, isolation and movement.
type BehaviorSystem struct {
	grid   *SpatialGrid
	env    *EnvironmentField
	params BehaviorParams

	agentMap  *ecs.Map[components.Agent]
	posMap    *ecs.Map[components.Position]
	moodMap   *ecs.Map[components.Mood]
	traitsMap *ecs.Map[components.Traits]
	statusMap *ecs.Map[components.Status]

	// snapshot holds moods captured before a synchronous pass, indexed by agent ID.
	snapshot    []float64
	useSnapshot bool

	neighbors []ecs.Entity
	empty     []components.Position

	moves int
}

// NewBehaviorSystem creates the behavior system.
func NewBehaviorSystem(world *ecs.World, grid *SpatialGrid, env *EnvironmentField, params BehaviorParams) *BehaviorSystem {
	return &BehaviorSystem{
		grid:      grid,
		env:       env,
		params:    params,
		agentMap:  ecs.NewMap[components.Agent](world),
		posMap:    ecs.NewMap[components.Position](world),
		moodMap:   ecs.NewMap[components.Mood](world),
		traitsMap: ecs.NewMap[components.Traits](world),
		statusMap: ecs.NewMap[components.Status](world),
		neighbors: make([]ecs.Entity, 0, 8),
		empty:     make([]components.Position, 0, 8),
	}
}

// Update advances one agent by one tick.
func (s *BehaviorSystem) Update(e ecs.Entity, rng *rand.Rand) {
	pos := s.posMap.Get(e)
	mood := s.moodMap.Get(e)
	traits := s.traitsMap.Get(e)
	status := s.statusMap.Get(e)

	if status.Isolated {
		mood.Value = math.Min(mood.Value+s.params.RecoveryRate, s.params.RecoveryCap)
		if !s.recovered(mood.Value, traits) {
			return
		}
		status.Isolated = false
	} else {
		mood.Value += s.contagion(*pos, mood.Value, traits.Sensitivity)
		mood.Value = ClampMood(mood.Value + s.env.CategoryAt(*pos).Modifier())
	}

	if mood.Value < s.IsolationThreshold(*pos, traits) {
		status.Isolated = true
		status.Episodes++
		return
	}

	s.move(e, pos, mood.Value, traits, rng)
}

// contagion returns the mood change from pulling toward the neighbor mean.
func (s *BehaviorSystem) contagion(pos components.Position, mood, sensitivity float64) float64 {
	s.neighbors = s.grid.NeighborsInto(s.neighbors[:0], pos)
	if len(s.neighbors) == 0 {
		return 0
	}
	var sum float64
	for _, n := range s.neighbors {
		sum += s.moodOf(n)
	}
	avg := sum / float64(len(s.neighbors))
	return sensitivity * (avg - mood)
}

func (s *BehaviorSystem) moodOf(e ecs.Entity) float64 {
	if s.useSnapshot {
		return s.snapshot[s.agentMap.Get(e).ID]
	}
	return s.moodMap.Get(e).Value
}

func (s *BehaviorSystem) recovered(mood float64, traits *components.Traits) bool {
	if s.params.RecoveryRule == RecoverAtMobility {
		return mood >= traits.MobilityThreshold
	}
	return mood > s.params.RecoveryBound
}

// IsolationThreshold returns the effective threshold for an agent standing on pos.
func (s *BehaviorSystem) IsolationThreshold(pos components.Position, traits *components.Traits) float64 {
	threshold := traits.IsolationThreshold
	switch s.env.CategoryAt(pos) {
	case Green:
		threshold -= GreenIsolationRelief
	case Stress:
		threshold -= s.params.StressIsolationPenalty
	}
	return threshold
}

// move relocates an active agent to a random empty adjacent cell with
// probability sigmoid(k * (mood - mobility threshold)).
func (s *BehaviorSystem) move(e ecs.Entity, pos *components.Position, mood float64, traits *components.Traits, rng *rand.Rand) {
	p := MoveProbability(mood, traits.MobilityThreshold, s.params.MobilitySteepness)
	if rng.Float64() >= p {
		return
	}

	s.empty = s.grid.EmptyNeighborhoodInto(s.empty[:0], *pos)
	if len(s.empty) == 0 {
		return
	}
	to := s.empty[rng.Intn(len(s.empty))]
	if err := s.grid.Move(e, *pos, to); err != nil {
		// Only empty cells are candidates, so this is a broken grid.
		panic(fmt.Sprintf("behavior: %v", err))
	}
	*pos = to
	s.moves++
}

// Snapshot records the current moods of agents for a synchronous pass.
func (s *BehaviorSystem) Snapshot(agents []ecs.Entity) {
	if cap(s.snapshot) < len(agents) {
		s.snapshot = make([]float64, len(agents))
	}
	s.snapshot = s.snapshot[:len(agents)]
	for _, e := range agents {
		s.snapshot[s.agentMap.Get(e).ID] = s.moodMap.Get(e).Value
	}
	s.useSnapshot = true
}

// ClearSnapshot returns contagion to live reads.
func (s *BehaviorSystem) ClearSnapshot() {
	s.useSnapshot = false
}

// Moves returns the number of successful relocations since the last ResetCounters.
func (s *BehaviorSystem) Moves() int {
	return s.moves
}

// ResetCounters zeroes per-tick counters.
func (s *BehaviorSystem) ResetCounters() {
	s.moves = 0
}
