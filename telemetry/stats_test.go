package telemetry

import (
	"math"
	"testing"
)

func TestSummarizeMoods(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		wantMean float64
		wantStd  float64
	}{
		{"empty slice", []float64{}, 0, 0},
		{"single element", []float64{0.4}, 0.4, 0},
		{"constant", []float64{-0.3, -0.3, -0.3}, -0.3, 0},
		{"symmetric pair", []float64{-0.5, 0.5}, 0, 0.5},
		{"population std", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SummarizeMoods(tt.values)
			if math.Abs(got.Mean-tt.wantMean) > 1e-9 {
				t.Errorf("Mean = %v, want %v", got.Mean, tt.wantMean)
			}
			if math.Abs(got.Std-tt.wantStd) > 1e-9 {
				t.Errorf("Std = %v, want %v", got.Std, tt.wantStd)
			}
		})
	}
}

func TestSummarizeMoodsPercentiles(t *testing.T) {
	values := []float64{0.9, -0.8, 0.1, 0.3, -0.2, 0.5, 0.0, -0.6, 0.7, 0.2}
	got := SummarizeMoods(values)

	if !(got.P10 <= got.P50 && got.P50 <= got.P90) {
		t.Errorf("percentiles not ordered: p10=%v p50=%v p90=%v", got.P10, got.P50, got.P90)
	}
	if got.P10 < -0.8 || got.P90 > 0.9 {
		t.Errorf("percentiles outside data range: p10=%v p90=%v", got.P10, got.P90)
	}

	// Input must not be reordered.
	if values[0] != 0.9 || values[1] != -0.8 {
		t.Error("SummarizeMoods sorted the caller's slice")
	}
}

func TestSummarizeMoodsConstantPercentiles(t *testing.T) {
	got := SummarizeMoods([]float64{0.25, 0.25, 0.25, 0.25})
	for name, v := range map[string]float64{"p10": got.P10, "p50": got.P50, "p90": got.P90} {
		if math.Abs(v-0.25) > 1e-9 {
			t.Errorf("%s = %v, want 0.25", name, v)
		}
	}
}
