package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TickStats holds aggregate statistics for one completed tick.
type TickStats struct {
	Tick     int32   `csv:"tick"`
	MeanMood float64 `csv:"average_mood"`
	MoodStd  float64 `csv:"mood_std"`
	Isolated int     `csv:"num_isolated"`

	// Extended export fields
	Active  int     `csv:"num_active"`
	Moves   int     `csv:"moves"`
	MoodP10 float64 `csv:"mood_p10"`
	MoodP50 float64 `csv:"mood_p50"`
	MoodP90 float64 `csv:"mood_p90"`
}

// MoodSummary holds the distribution of mood values.
type MoodSummary struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// SummarizeMoods computes mean, population standard deviation and percentiles.
// Returns zeros if values is empty.
func SummarizeMoods(values []float64) MoodSummary {
	if len(values) == 0 {
		return MoodSummary{}
	}

	mean, variance := stat.PopMeanVariance(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return MoodSummary{
		Mean: mean,
		Std:  math.Sqrt(variance),
		P10:  stat.Quantile(0.10, stat.LinInterp, sorted, nil),
		P50:  stat.Quantile(0.50, stat.LinInterp, sorted, nil),
		P90:  stat.Quantile(0.90, stat.LinInterp, sorted, nil),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s TickStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("tick", int(s.Tick)),
		slog.Float64("average_mood", s.MeanMood),
		slog.Float64("mood_std", s.MoodStd),
		slog.Int("num_isolated", s.Isolated),
		slog.Int("num_active", s.Active),
		slog.Int("moves", s.Moves),
		slog.Float64("mood_p50", s.MoodP50),
	)
}

// LogStats logs the tick stats using slog.
func (s TickStats) LogStats() {
	slog.Info("stats", "tick_stats", s)
}
