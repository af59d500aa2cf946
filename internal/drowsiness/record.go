package drowsiness

import (
	"math"
	"time"
)

// DecisionRecord is the status surfaced for an emitted frame.
type DecisionRecord struct {
	Alertness     float64 `json:"alertness"`
	EAR           float64 `json:"ear"`
	MAR           float64 `json:"mar"`
	EyeClosure    float64 `json:"eyeClosure"`
	IsDrowsy      bool    `json:"isDrowsy"`
	Reason        Reason  `json:"reason"`
	DrowsyCounter int     `json:"drowsyCounter"`
	Timestamp     int64   `json:"timestamp,omitempty"`
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func newRecord(fv FeatureVector, sc Score, s *SessionState, drowsy bool, now time.Time) DecisionRecord {
	rec := DecisionRecord{
		Alertness:     round(sc.Alertness, 2),
		EAR:           round(fv.AvgEAR, 3),
		MAR:           round(fv.MAR, 3),
		EyeClosure:    round(sc.EyeClosure, 2),
		IsDrowsy:      drowsy,
		Reason:        s.Reason,
		DrowsyCounter: s.DrowsyCounter,
	}
	if !now.IsZero() {
		rec.Timestamp = now.UnixMilli()
	}
	return rec
}
