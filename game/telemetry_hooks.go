package game

import (
	"log/slog"
)

// flushTelemetry exports the latest tick and, every log_every ticks, logs stats and perf.
func (g *Game) flushTelemetry() {
	stats, ok := g.sim.LatestMetrics()
	if !ok {
		return
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteTick(stats); err != nil {
			slog.Error("failed to write metrics", "error", err)
		}
	}

	if g.logEvery <= 0 || int(stats.Tick)%g.logEvery != 0 {
		return
	}

	perfStats := g.sim.PerfStats()
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}
	if g.outputManager != nil {
		if err := g.outputManager.WritePerf(perfStats, stats.Tick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}
