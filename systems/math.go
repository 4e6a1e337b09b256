package systems

import "math"

// MoveProbability is the logistic movement probability with its inflection at threshold.
func MoveProbability(mood, threshold, steepness float64) float64 {
	return 1 / (1 + math.Exp(-steepness*(mood-threshold)))
}

// ClampMood limits v to [-1, 1].
func ClampMood(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
