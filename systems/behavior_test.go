package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/urbanmood/components"
)

const eps = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) < eps
}

// ---------- Contagion and environment ----------

func TestUpdate_LoneAgentNeutralUnchanged(t *testing.T) {
	tw := newTestWorld(5, 5, Torus, Moore, uniformField(5, 5, Neutral), defaultParams())
	a := tw.spawn(t, pos(2, 2), 0.13, restlessTraits(), false)

	for i := 0; i < 5; i++ {
		tw.update(a)
		if got := tw.mood(a); got != 0.13 {
			t.Fatalf("tick %d: mood = %v, want 0.13", i, got)
		}
	}
}

func TestUpdate_ContagionPullsTowardNeighborMean(t *testing.T) {
	tw := newTestWorld(5, 5, Torus, Moore, uniformField(5, 5, Neutral), stillParams())
	a := tw.spawn(t, pos(2, 2), 0.0, stationaryTraits(), false)
	tw.spawn(t, pos(2, 1), 0.4, stationaryTraits(), false)
	tw.spawn(t, pos(3, 3), 0.2, stationaryTraits(), false)

	tw.update(a)

	// avg = 0.3, mood += 0.5 * (0.3 - 0)
	if got := tw.mood(a); !approx(got, 0.15) {
		t.Errorf("mood = %v, want 0.15", got)
	}
}

func TestUpdate_ContagionIncludesIsolatedNeighbors(t *testing.T) {
	tw := newTestWorld(5, 5, Torus, VonNeumann, uniformField(5, 5, Neutral), stillParams())
	a := tw.spawn(t, pos(2, 2), 0.0, stationaryTraits(), false)
	tw.spawn(t, pos(2, 3), -0.8, stationaryTraits(), true)

	tw.update(a)

	if got := tw.mood(a); !approx(got, -0.4) {
		t.Errorf("mood = %v, want -0.4", got)
	}
}

func TestUpdate_EnvironmentModifier(t *testing.T) {
	tests := []struct {
		name string
		cat  Category
		mood float64
		want float64
	}{
		{"green adds", Green, 0.3, 0.4},
		{"green clamps at one", Green, 0.95, 1.0},
		{"stress subtracts", Stress, 0.3, 0.2},
		{"stress clamps at minus one", Stress, -0.97, -1.0},
		{"neutral keeps", Neutral, -0.3, -0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := newTestWorld(4, 4, Torus, Moore, uniformField(4, 4, tt.cat), stillParams())
			traits := stationaryTraits()
			traits.IsolationThreshold = -1 // nothing isolates
			a := tw.spawn(t, pos(1, 1), tt.mood, traits, false)

			tw.update(a)

			if got := tw.mood(a); !approx(got, tt.want) {
				t.Errorf("mood = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdate_UniformGreenSpacedAgents(t *testing.T) {
	tw := newTestWorld(9, 9, Torus, Moore, uniformField(9, 9, Green), stillParams())
	start := []float64{-0.3, 0.0, 0.42, 0.95}
	var agents []components.Position
	for i := range start {
		agents = append(agents, pos(i*2, i*2)) // diagonal spacing of two keeps everyone isolated from contagion
	}
	for i, p := range agents {
		tw.spawn(t, p, start[i], stationaryTraits(), false)
	}

	for i, e := range tw.agents {
		tw.update(e)
		want := math.Min(start[i]+0.1, 1.0)
		if got := tw.mood(e); !approx(got, want) {
			t.Errorf("agent %d: mood = %v, want %v", i, got, want)
		}
	}
}

// ---------- Isolation state machine ----------

func TestUpdate_ForcedIsolation(t *testing.T) {
	tw := newTestWorld(5, 5, Torus, Moore, uniformField(5, 5, Neutral), defaultParams())
	traits := components.Traits{Sensitivity: 0.5, MobilityThreshold: -0.2, IsolationThreshold: 0.5}
	a := tw.spawn(t, pos(2, 2), 0.0, traits, false)

	tw.update(a)
	if got := tw.mood(a); got != 0.0 {
		t.Errorf("tick 1: mood = %v, want 0", got)
	}
	if !tw.isolated(a) {
		t.Fatal("tick 1: agent should be isolated (0 < 0.5)")
	}
	if tw.pos(a) != pos(2, 2) {
		t.Error("tick 1: isolating agent moved")
	}

	tw.update(a)
	if got := tw.mood(a); !approx(got, 0.02) {
		t.Errorf("tick 2: mood = %v, want 0.02", got)
	}
	if !tw.isolated(a) {
		t.Error("tick 2: agent left isolation despite mood below its threshold")
	}
	if tw.pos(a) != pos(2, 2) {
		t.Error("tick 2: isolated agent moved")
	}
	if got := tw.status.Get(a).Episodes; got != 2 {
		t.Errorf("episodes = %d, want 2 (recovered past bound then re-isolated)", got)
	}
}

func TestUpdate_RecoveryIsExactAndMonotonic(t *testing.T) {
	tw := newTestWorld(5, 5, Torus, Moore, uniformField(5, 5, Neutral), stillParams())
	a := tw.spawn(t, pos(0, 0), -0.9, stationaryTraits(), true)
	// A gloomy neighbor must not matter while isolated.
	tw.spawn(t, pos(1, 0), -1.0, stationaryTraits(), false)

	prev := tw.mood(a)
	for i := 0; i < 15; i++ {
		tw.update(a)
		got := tw.mood(a)
		if !approx(got-prev, 0.02) {
			t.Fatalf("tick %d: delta = %v, want 0.02", i, got-prev)
		}
		if !tw.isolated(a) {
			t.Fatalf("tick %d: left isolation at mood %v (bound -0.5)", i, got)
		}
		prev = got
	}
}

func TestUpdate_RecoveryCrossesBound(t *testing.T) {
	tw := newTestWorld(5, 5, Torus, Moore, uniformField(5, 5, Neutral), stillParams())
	a := tw.spawn(t, pos(2, 2), -0.51, stationaryTraits(), true)

	tw.update(a)

	if tw.isolated(a) {
		t.Errorf("agent still isolated at mood %v", tw.mood(a))
	}
	if !approx(tw.mood(a), -0.49) {
		t.Errorf("mood = %v, want -0.49", tw.mood(a))
	}
}

func TestUpdate_RecoveredAgentMayMoveSameTick(t *testing.T) {
	tw := newTestWorld(5, 5, Torus, Moore, uniformField(5, 5, Neutral), stillParams())
	traits := restlessTraits()
	a := tw.spawn(t, pos(2, 2), -0.51, traits, true)

	tw.update(a)

	if tw.isolated(a) {
		t.Fatal("agent should have recovered")
	}
	if tw.pos(a) == pos(2, 2) {
		t.Error("recovered agent with p(move)=1 stayed in place")
	}
}

func TestUpdate_RecoveryCap(t *testing.T) {
	params := stillParams()
	params.RecoveryCap = 0.0
	tw := newTestWorld(5, 5, Torus, Moore, uniformField(5, 5, Neutral), params)
	traits := stationaryTraits()
	traits.IsolationThreshold = 0.5
	a := tw.spawn(t, pos(2, 2), -0.01, traits, true)

	tw.update(a)
	tw.update(a)

	if got := tw.mood(a); got != 0.0 {
		t.Errorf("mood = %v, want capped at 0", got)
	}
}

func TestUpdate_RecoveryAtMobilityRule(t *testing.T) {
	params := stillParams()
	params.RecoveryRule = RecoverAtMobility
	tw := newTestWorld(5, 5, Torus, Moore, uniformField(5, 5, Neutral), params)
	traits := components.Traits{Sensitivity: 0.5, MobilityThreshold: -0.4, IsolationThreshold: -0.75}
	a := tw.spawn(t, pos(2, 2), -0.45, traits, true)

	tw.update(a) // -0.43: above the -0.5 bound but below the mobility threshold
	if !tw.isolated(a) {
		t.Fatalf("mobility rule released agent at %v", tw.mood(a))
	}
	tw.update(a) // -0.41
	tw.update(a) // -0.39
	if tw.isolated(a) {
		t.Errorf("agent still isolated at %v >= -0.4", tw.mood(a))
	}
}

func TestIsolationThreshold_GreenRelief(t *testing.T) {
	tests := []struct {
		name    string
		cat     Category
		penalty float64
		mood    float64
		want    bool
	}{
		// threshold -0.6: green lowers it to -0.7, mood -0.75 + 0.1 = -0.65 stays active
		{"green relief keeps active", Green, 0, -0.75, false},
		{"neutral isolates", Neutral, 0, -0.65, true},
		// stress: -0.55 - 0.1 = -0.65 < -0.6 isolates
		{"stress without penalty isolates", Stress, 0, -0.55, true},
		// stress with penalty 0.1: threshold -0.7, -0.65 stays active
		{"stress penalty variant", Stress, 0.1, -0.55, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := stillParams()
			params.StressIsolationPenalty = tt.penalty
			tw := newTestWorld(3, 3, Torus, Moore, uniformField(3, 3, tt.cat), params)
			traits := stationaryTraits()
			traits.IsolationThreshold = -0.6
			a := tw.spawn(t, pos(1, 1), tt.mood, traits, false)

			tw.update(a)

			if got := tw.isolated(a); got != tt.want {
				t.Errorf("isolated = %v, want %v (mood %v)", got, tt.want, tw.mood(a))
			}
		})
	}
}

// ---------- Movement ----------

func TestUpdate_MovementStaysInNeighborhood(t *testing.T) {
	tw := newTestWorld(6, 6, Bounded, VonNeumann, uniformField(6, 6, Neutral), defaultParams())
	a := tw.spawn(t, pos(0, 0), 0.5, restlessTraits(), false)

	for i := 0; i < 30; i++ {
		before := tw.pos(a)
		tw.update(a)
		after := tw.pos(a)
		if after == before {
			continue
		}
		if !containsPos(tw.grid.Neighborhood(before), after) {
			t.Fatalf("tick %d: moved %v -> %v outside neighborhood", i, before, after)
		}
		if !tw.grid.IsEmpty(before) {
			t.Fatalf("tick %d: source %v still occupied", i, before)
		}
		if got, _ := tw.grid.At(after); got != a {
			t.Fatalf("tick %d: grid does not hold agent at %v", i, after)
		}
	}
	if tw.behavior.Moves() == 0 {
		t.Error("restless agent never moved")
	}
}

func TestUpdate_FullOccupancyBlocksMovement(t *testing.T) {
	tw := newTestWorld(3, 3, Torus, Moore, uniformField(3, 3, Neutral), defaultParams())
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			tw.spawn(t, pos(x, y), 0.5, restlessTraits(), false)
		}
	}
	start := make([]components.Position, len(tw.agents))
	for i, e := range tw.agents {
		start[i] = tw.pos(e)
	}

	for tick := 0; tick < 20; tick++ {
		for _, e := range tw.agents {
			tw.update(e)
		}
	}

	for i, e := range tw.agents {
		if tw.pos(e) != start[i] {
			t.Errorf("agent %d moved from %v to %v on a full grid", i, start[i], tw.pos(e))
		}
	}
	if tw.behavior.Moves() != 0 {
		t.Errorf("Moves = %d, want 0", tw.behavior.Moves())
	}
}

func TestMoveProbability(t *testing.T) {
	if got := MoveProbability(-0.2, -0.2, 10); !approx(got, 0.5) {
		t.Errorf("at threshold: %v, want 0.5", got)
	}
	if got := MoveProbability(-1, 1, 1000); got != 0 {
		t.Errorf("far below threshold: %v, want 0", got)
	}
	lo := MoveProbability(-0.3, -0.2, 10)
	hi := MoveProbability(-0.1, -0.2, 10)
	if !(lo < 0.5 && hi > 0.5 && approx(lo+hi, 1)) {
		t.Errorf("sigmoid not symmetric around threshold: %v, %v", lo, hi)
	}
}

func TestClampMood(t *testing.T) {
	for _, tt := range []struct{ in, want float64 }{{1.3, 1}, {-1.2, -1}, {0.4, 0.4}} {
		if got := ClampMood(tt.in); got != tt.want {
			t.Errorf("ClampMood(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// ---------- Synchronous snapshot ----------

func TestSnapshotServesContagionReads(t *testing.T) {
	run := func(sync bool) (float64, float64) {
		tw := newTestWorld(5, 5, Torus, Moore, uniformField(5, 5, Neutral), stillParams())
		a := tw.spawn(t, pos(2, 2), 0.0, stationaryTraits(), false)
		b := tw.spawn(t, pos(2, 3), 0.4, stationaryTraits(), false)
		if sync {
			tw.behavior.Snapshot(tw.agents)
			defer tw.behavior.ClearSnapshot()
		}
		tw.update(a)
		tw.update(b)
		return tw.mood(a), tw.mood(b)
	}

	a, b := run(false)
	if !approx(a, 0.2) || !approx(b, 0.3) {
		t.Errorf("sequential: moods = %v, %v, want 0.2, 0.3", a, b)
	}
	a, b = run(true)
	if !approx(a, 0.2) || !approx(b, 0.2) {
		t.Errorf("synchronous: moods = %v, %v, want 0.2, 0.2", a, b)
	}
}
