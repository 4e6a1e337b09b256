package telemetry

import (
	"log/slog"
	"time"
)

// Phase IDs of one simulation step.
const (
	PhaseSchedule = "schedule"
	PhaseMetrics  = "metrics"
)

// StepRow is the pseudo-phase ToCSV uses for whole-step timing.
const StepRow = "step"

// stepSample is one recorded step. phases is indexed by collector slot.
type stepSample struct {
	total  time.Duration
	phases []time.Duration
	agents int
	moves  int
}

// PerfCollector times simulation steps phase by phase over a ring of recent
// steps, together with the agent work each step did.
type PerfCollector struct {
	phases []string
	slots  map[string]int

	ring   []stepSample
	next   int
	filled int

	cur       stepSample
	stepStart time.Time
	mark      time.Time
	running   int // slot of the open phase, -1 when none

	lastFrame time.Time
	frame     time.Duration
}

// NewPerfCollector returns a collector averaging over window steps. phases
// fixes the reporting order; phases first seen in StartPhase are appended.
func NewPerfCollector(window int, phases []string) *PerfCollector {
	if window < 1 {
		window = 60
	}
	p := &PerfCollector{
		slots:   make(map[string]int, len(phases)),
		ring:    make([]stepSample, window),
		running: -1,
	}
	for _, id := range phases {
		p.slot(id)
	}
	return p
}

// Phases returns the phase IDs in reporting order.
func (p *PerfCollector) Phases() []string {
	return append([]string(nil), p.phases...)
}

func (p *PerfCollector) slot(id string) int {
	if i, ok := p.slots[id]; ok {
		return i
	}
	p.slots[id] = len(p.phases)
	p.phases = append(p.phases, id)
	return len(p.phases) - 1
}

// StartTick opens a step.
func (p *PerfCollector) StartTick() {
	p.stepStart = time.Now()
	p.cur.phases = resize(p.cur.phases, len(p.phases))
	p.running = -1
}

// StartPhase closes the open phase, if any, and opens id.
func (p *PerfCollector) StartPhase(id string) {
	now := time.Now()
	p.closePhase(now)
	p.running = p.slot(id)
	for len(p.cur.phases) < len(p.phases) {
		p.cur.phases = append(p.cur.phases, 0)
	}
	p.mark = now
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.running >= 0 {
		p.cur.phases[p.running] += now.Sub(p.mark)
	}
	p.running = -1
}

// EndTick closes the step. agents is the number of agents updated and moves
// the relocations that happened.
func (p *PerfCollector) EndTick(agents, moves int) {
	now := time.Now()
	p.closePhase(now)

	dst := &p.ring[p.next]
	dst.total = now.Sub(p.stepStart)
	dst.phases = append(dst.phases[:0], p.cur.phases...)
	dst.agents = agents
	dst.moves = moves

	p.next = (p.next + 1) % len(p.ring)
	if p.filled < len(p.ring) {
		p.filled++
	}
}

// RecordFrame marks a rendered frame.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// resize returns d with length n and every element zero.
func resize(d []time.Duration, n int) []time.Duration {
	if cap(d) < n {
		d = make([]time.Duration, n)
	}
	d = d[:n]
	for i := range d {
		d[i] = 0
	}
	return d
}

// PhaseTiming is the windowed cost of one step phase.
type PhaseTiming struct {
	ID  string
	Avg time.Duration
	Max time.Duration
	Pct float64 // share of the average step

	// AgentsPerSecond is agent updates divided by time spent in this phase.
	AgentsPerSecond float64
}

// PerfStats aggregates the collector window.
type PerfStats struct {
	Steps   int
	AvgTick time.Duration
	MinTick time.Duration
	MaxTick time.Duration

	Phases []PhaseTiming // collector order

	TicksPerSecond        float64
	AgentUpdatesPerSecond float64
	MovesPerTick          float64

	FrameDuration time.Duration
	FPS           float64
}

// Phase returns the timing of id.
func (s PerfStats) Phase(id string) (PhaseTiming, bool) {
	for _, ph := range s.Phases {
		if ph.ID == id {
			return ph, true
		}
	}
	return PhaseTiming{}, false
}

// Stats summarizes the window. Phases are listed even before any step ran.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		Steps:         p.filled,
		Phases:        make([]PhaseTiming, len(p.phases)),
		FrameDuration: p.frame,
	}
	if p.frame > 0 {
		s.FPS = float64(time.Second) / float64(p.frame)
	}
	for i, id := range p.phases {
		s.Phases[i].ID = id
	}
	if p.filled == 0 {
		return s
	}

	var total time.Duration
	var agents, moves int
	phaseSum := make([]time.Duration, len(p.phases))

	for i, smp := range p.ring[:p.filled] {
		total += smp.total
		agents += smp.agents
		moves += smp.moves
		if i == 0 || smp.total < s.MinTick {
			s.MinTick = smp.total
		}
		if smp.total > s.MaxTick {
			s.MaxTick = smp.total
		}
		for j, d := range smp.phases {
			phaseSum[j] += d
			if d > s.Phases[j].Max {
				s.Phases[j].Max = d
			}
		}
	}

	n := time.Duration(p.filled)
	s.AvgTick = total / n
	s.MovesPerTick = float64(moves) / float64(p.filled)
	if total > 0 {
		s.TicksPerSecond = float64(p.filled) / total.Seconds()
		s.AgentUpdatesPerSecond = float64(agents) / total.Seconds()
	}
	for j, sum := range phaseSum {
		ph := &s.Phases[j]
		ph.Avg = sum / n
		if s.AvgTick > 0 {
			ph.Pct = float64(ph.Avg) / float64(s.AvgTick) * 100
		}
		if sum > 0 {
			ph.AgentsPerSecond = float64(agents) / sum.Seconds()
		}
	}
	return s
}

// LogStats logs the window at Info.
func (s PerfStats) LogStats() {
	slog.Info("perf", "window", s)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("steps", s.Steps),
		slog.Int64("avg_tick_us", s.AvgTick.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTick.Microseconds()),
		slog.Int("ticks_per_sec", int(s.TicksPerSecond)),
		slog.Int("agent_updates_per_sec", int(s.AgentUpdatesPerSecond)),
		slog.Float64("moves_per_tick", s.MovesPerTick),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Int("fps", int(s.FPS)))
	}
	for _, ph := range s.Phases {
		attrs = append(attrs, slog.Float64(ph.ID+"_pct", float64(int(ph.Pct*10))/10))
	}
	return slog.GroupValue(attrs...)
}

// PerfRow is one line of perf.csv: the whole step or one phase of it.
type PerfRow struct {
	WindowEnd    int32   `csv:"window_end"`
	Phase        string  `csv:"phase"`
	AvgUS        int64   `csv:"avg_us"`
	MaxUS        int64   `csv:"max_us"`
	Pct          float64 `csv:"pct"`
	AgentsPerSec float64 `csv:"agents_per_sec"`
}

// ToCSV flattens the window into a step row followed by one row per phase.
func (s PerfStats) ToCSV(windowEnd int32) []PerfRow {
	rows := make([]PerfRow, 0, len(s.Phases)+1)
	rows = append(rows, PerfRow{
		WindowEnd:    windowEnd,
		Phase:        StepRow,
		AvgUS:        s.AvgTick.Microseconds(),
		MaxUS:        s.MaxTick.Microseconds(),
		Pct:          100,
		AgentsPerSec: s.AgentUpdatesPerSecond,
	})
	for _, ph := range s.Phases {
		rows = append(rows, PerfRow{
			WindowEnd:    windowEnd,
			Phase:        ph.ID,
			AvgUS:        ph.Avg.Microseconds(),
			MaxUS:        ph.Max.Microseconds(),
			Pct:          ph.Pct,
			AgentsPerSec: ph.AgentsPerSecond,
		})
	}
	return rows
}
