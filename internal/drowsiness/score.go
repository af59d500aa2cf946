package drowsiness

import "math"

// ReferenceEAR is the eye aspect ratio treated as fully awake.
const ReferenceEAR = 0.3

type Score struct {
	Alertness  float64
	EyeClosure float64
}

// ComputeScore derives the 0-100 alertness and eye closure percentages. It has
// no state and returns the same result for the same inputs.
func ComputeScore(avgEAR, mar, marThreshold float64, drowsyCounter int) Score {
	earScore := math.Min(100, avgEAR/ReferenceEAR*100)
	marScore := math.Max(0, 100-mar/marThreshold*100)
	alertness := earScore*0.7 + marScore*0.3

	if drowsyCounter > 0 {
		alertness = math.Max(0, alertness-float64(drowsyCounter)*2)
	}

	return Score{
		Alertness:  alertness,
		EyeClosure: math.Max(0, math.Min(100, (1-avgEAR/ReferenceEAR)*100)),
	}
}
