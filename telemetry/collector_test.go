package telemetry

import "testing"

func TestMetricsRecorderAppendOnly(t *testing.T) {
	r := NewMetricsRecorder(4)

	if _, ok := r.Latest(); ok {
		t.Error("Latest on empty recorder reported ok")
	}

	for i := int32(1); i <= 3; i++ {
		r.Record(TickStats{Tick: i, MeanMood: float64(i) / 10})
	}

	if r.Len() != 3 {
		t.Fatalf("Len = %d, want 3", r.Len())
	}
	latest, ok := r.Latest()
	if !ok || latest.Tick != 3 {
		t.Errorf("Latest = %+v, %v", latest, ok)
	}
	if r.At(0).Tick != 1 {
		t.Errorf("At(0).Tick = %d, want 1", r.At(0).Tick)
	}

	all := r.All()
	all[0].MeanMood = 99
	if r.At(0).MeanMood == 99 {
		t.Error("All exposed internal storage")
	}
}

func TestMetricsRecorderSeries(t *testing.T) {
	r := NewMetricsRecorder(0)
	r.Record(TickStats{Tick: 1, Isolated: 2})
	r.Record(TickStats{Tick: 2, Isolated: 5})

	got := r.Series(func(s TickStats) float64 { return float64(s.Isolated) })
	if len(got) != 2 || got[0] != 2 || got[1] != 5 {
		t.Errorf("Series = %v, want [2 5]", got)
	}
}
