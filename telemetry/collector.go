// Package telemetry records per-tick aggregate statistics and exports them.
package telemetry

// MetricsRecorder is an append-only time series of TickStats, one entry per completed tick.
type MetricsRecorder struct {
	entries []TickStats
}

// NewMetricsRecorder creates a recorder with room for capacity entries.
func NewMetricsRecorder(capacity int) *MetricsRecorder {
	return &MetricsRecorder{entries: make([]TickStats, 0, capacity)}
}

// Record appends an entry.
func (r *MetricsRecorder) Record(s TickStats) {
	r.entries = append(r.entries, s)
}

// Len returns the number of recorded ticks.
func (r *MetricsRecorder) Len() int {
	return len(r.entries)
}

// Latest returns the most recent entry.
func (r *MetricsRecorder) Latest() (TickStats, bool) {
	if len(r.entries) == 0 {
		return TickStats{}, false
	}
	return r.entries[len(r.entries)-1], true
}

// At returns entry i.
func (r *MetricsRecorder) At(i int) TickStats {
	return r.entries[i]
}

// All returns a copy of the series. Callers cannot mutate recorded entries.
func (r *MetricsRecorder) All() []TickStats {
	out := make([]TickStats, len(r.entries))
	copy(out, r.entries)
	return out
}

// Series extracts one column for plotting.
func (r *MetricsRecorder) Series(field func(TickStats) float64) []float64 {
	out := make([]float64, len(r.entries))
	for i, s := range r.entries {
		out[i] = field(s)
	}
	return out
}
