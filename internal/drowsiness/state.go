package drowsiness

import "time"

type Reason string

const (
	ReasonAlert      Reason = "alert"
	ReasonEyesClosed Reason = "eyes_closed"
	ReasonYawning    Reason = "yawning"
)

// Thresholds gate the hold timers and the drowsy decision.
type Thresholds struct {
	EAR          float64       `json:"earThreshold" validate:"gt=0"`
	EARHold      time.Duration `json:"earTimeThreshold" validate:"gte=0s"`
	MAR          float64       `json:"marThreshold" validate:"gt=0"`
	MARHold      time.Duration `json:"marTimeThreshold" validate:"gte=0s"`
	DrowsyFrames int           `json:"drowsyFrameThreshold" validate:"gte=0"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		EAR:          0.2,
		EARHold:      500 * time.Millisecond,
		MAR:          0.6,
		MARHold:      2500 * time.Millisecond,
		DrowsyFrames: 15,
	}
}

// HoldTimer remembers when a raw condition started holding. It is idle while
// Active is false.
type HoldTimer struct {
	Since  time.Time
	Active bool
}

// observe advances the timer and reports whether the condition has now held
// for at least hold. It keeps firing on every frame past the hold duration.
func (t *HoldTimer) observe(cond bool, now time.Time, hold time.Duration) bool {
	if !cond {
		*t = HoldTimer{}
		return false
	}
	if !t.Active {
		t.Since = now
		t.Active = true
	}
	return now.Sub(t.Since) >= hold
}

// SessionState is the mutable per-session detector state. It must only be
// touched by the goroutine evaluating that session's frames.
type SessionState struct {
	Eye           HoldTimer
	Yawn          HoldTimer
	DrowsyCounter int
	AlertCounter  int
	Reason        Reason
	LastEmit      time.Time
}

// Evaluate runs the eye, yawn and alert checks in that order and returns the
// frame's reason. Both timers may fire in one frame, counting twice.
func Evaluate(s *SessionState, fv FeatureVector, now time.Time, th Thresholds) Reason {
	reason := ReasonAlert

	if s.Eye.observe(fv.AvgEAR < th.EAR, now, th.EARHold) {
		s.DrowsyCounter++
		s.AlertCounter = 0
		reason = ReasonEyesClosed
	}

	if s.Yawn.observe(fv.MAR > th.MAR, now, th.MARHold) {
		s.DrowsyCounter++
		s.AlertCounter = 0
		reason = ReasonYawning
	}

	if fv.AvgEAR >= th.EAR && fv.MAR <= th.MAR {
		s.AlertCounter++
		s.DrowsyCounter = 0
		reason = ReasonAlert
	}

	s.Reason = reason
	return reason
}

func (s *SessionState) IsDrowsy(th Thresholds) bool {
	return s.DrowsyCounter > th.DrowsyFrames
}
