package telemetry

import (
	"math"
	"testing"
	"time"
)

// runStep records one step that spends sched in the schedule phase.
func runStep(p *PerfCollector, sched time.Duration, agents, moves int) {
	p.StartTick()
	p.StartPhase(PhaseSchedule)
	time.Sleep(sched)
	p.StartPhase(PhaseMetrics)
	p.EndTick(agents, moves)
}

func TestPerfCollectorPhaseOrder(t *testing.T) {
	p := NewPerfCollector(4, []string{PhaseSchedule, PhaseMetrics})

	s := p.Stats()
	if s.Steps != 0 || len(s.Phases) != 2 {
		t.Fatalf("empty stats = %+v, want 0 steps and 2 phases", s)
	}
	if s.Phases[0].ID != PhaseSchedule || s.Phases[1].ID != PhaseMetrics {
		t.Errorf("phase order = %s, %s", s.Phases[0].ID, s.Phases[1].ID)
	}

	runStep(p, 0, 10, 0)
	// A phase first seen mid-run is appended; older samples simply lack it.
	p.StartTick()
	p.StartPhase(PhaseSchedule)
	time.Sleep(time.Millisecond)
	p.StartPhase("export")
	p.EndTick(10, 0)
	if sched, _ := p.Stats().Phase(PhaseSchedule); sched.Max < time.Millisecond {
		t.Errorf("schedule max = %v, opening a new phase lost earlier time", sched.Max)
	}

	got := p.Phases()
	want := []string{PhaseSchedule, PhaseMetrics, "export"}
	if len(got) != len(want) {
		t.Fatalf("Phases() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Phases()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if _, ok := p.Stats().Phase("export"); !ok {
		t.Error("appended phase missing from stats")
	}
}

func TestPerfCollectorAgentThroughput(t *testing.T) {
	p := NewPerfCollector(10, []string{PhaseSchedule, PhaseMetrics})
	for i := 0; i < 4; i++ {
		runStep(p, 200*time.Microsecond, 50, 3)
	}

	s := p.Stats()
	if s.Steps != 4 {
		t.Fatalf("Steps = %d, want 4", s.Steps)
	}
	if math.Abs(s.MovesPerTick-3) > 1e-9 {
		t.Errorf("MovesPerTick = %v, want 3", s.MovesPerTick)
	}
	// Every step updates 50 agents, so agent throughput is 50x step throughput.
	if s.TicksPerSecond <= 0 {
		t.Fatal("TicksPerSecond not positive")
	}
	if ratio := s.AgentUpdatesPerSecond / s.TicksPerSecond; math.Abs(ratio-50) > 1e-6 {
		t.Errorf("agent/tick throughput ratio = %v, want 50", ratio)
	}

	sched, _ := s.Phase(PhaseSchedule)
	if sched.Avg < 200*time.Microsecond {
		t.Errorf("schedule avg = %v, want >= 200us", sched.Avg)
	}
	if sched.AgentsPerSecond < s.AgentUpdatesPerSecond {
		t.Errorf("schedule phase throughput %v below whole-step %v", sched.AgentsPerSecond, s.AgentUpdatesPerSecond)
	}
}

func TestPerfCollectorWindowDropsOldSteps(t *testing.T) {
	p := NewPerfCollector(3, []string{PhaseSchedule})
	for _, moves := range []int{0, 0, 10, 10, 10} {
		runStep(p, 0, 20, moves)
	}

	s := p.Stats()
	if s.Steps != 3 {
		t.Errorf("Steps = %d, want window size 3", s.Steps)
	}
	if math.Abs(s.MovesPerTick-10) > 1e-9 {
		t.Errorf("MovesPerTick = %v, want 10 from the last three steps", s.MovesPerTick)
	}
}

func TestPerfCollectorPhaseShares(t *testing.T) {
	p := NewPerfCollector(5, []string{PhaseSchedule, PhaseMetrics})
	for i := 0; i < 3; i++ {
		runStep(p, time.Millisecond, 10, 0)
	}

	s := p.Stats()
	sched, _ := s.Phase(PhaseSchedule)
	metrics, _ := s.Phase(PhaseMetrics)
	if sched.Pct <= metrics.Pct {
		t.Errorf("schedule %.1f%% should exceed metrics %.1f%%", sched.Pct, metrics.Pct)
	}
	if total := sched.Pct + metrics.Pct; total > 100+1e-6 {
		t.Errorf("phase shares sum to %v%%", total)
	}
	if sched.Max < sched.Avg {
		t.Errorf("schedule max %v below avg %v", sched.Max, sched.Avg)
	}
	if s.MinTick > s.AvgTick || s.AvgTick > s.MaxTick {
		t.Errorf("tick min/avg/max out of order: %v %v %v", s.MinTick, s.AvgTick, s.MaxTick)
	}
}

func TestPerfCollectorStepWithoutPhases(t *testing.T) {
	p := NewPerfCollector(5, []string{PhaseSchedule})
	p.StartTick()
	p.EndTick(7, 1)

	s := p.Stats()
	if s.Steps != 1 {
		t.Fatalf("Steps = %d, want 1", s.Steps)
	}
	if ph, _ := s.Phase(PhaseSchedule); ph.Avg != 0 {
		t.Errorf("untouched phase avg = %v, want 0", ph.Avg)
	}
}

func TestPerfCollectorFrameRate(t *testing.T) {
	p := NewPerfCollector(5, nil)
	p.RecordFrame()
	if p.Stats().FPS != 0 {
		t.Error("FPS reported after a single frame")
	}
	time.Sleep(20 * time.Millisecond)
	p.RecordFrame()

	s := p.Stats()
	if s.FrameDuration < 20*time.Millisecond {
		t.Errorf("FrameDuration = %v, want >= 20ms", s.FrameDuration)
	}
	if s.FPS <= 0 || s.FPS > 50 {
		t.Errorf("FPS = %v, want in (0, 50]", s.FPS)
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	s := PerfStats{
		AvgTick:               250 * time.Microsecond,
		MaxTick:               400 * time.Microsecond,
		AgentUpdatesPerSecond: 8e5,
		Phases: []PhaseTiming{
			{ID: PhaseSchedule, Avg: 200 * time.Microsecond, Pct: 80},
			{ID: PhaseMetrics, Avg: 50 * time.Microsecond, Pct: 20},
		},
	}

	rows := s.ToCSV(100)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	tests := []struct {
		phase string
		avgUS int64
		pct   float64
	}{
		{StepRow, 250, 100},
		{PhaseSchedule, 200, 80},
		{PhaseMetrics, 50, 20},
	}
	for i, tt := range tests {
		r := rows[i]
		if r.WindowEnd != 100 || r.Phase != tt.phase || r.AvgUS != tt.avgUS || r.Pct != tt.pct {
			t.Errorf("row %d = %+v, want phase %s avg %dus pct %v", i, r, tt.phase, tt.avgUS, tt.pct)
		}
	}
	if rows[0].MaxUS != 400 || rows[0].AgentsPerSec != 8e5 {
		t.Errorf("step row = %+v", rows[0])
	}
}
