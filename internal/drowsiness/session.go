package drowsiness

import "time"

// Config is fixed for the lifetime of a session.
type Config struct {
	Thresholds   Thresholds    `json:"thresholds"`
	EmitInterval time.Duration `json:"emitInterval" validate:"gte=0s"`
	Landmarks    int           `json:"landmarks" validate:"gte=68"`
}

func DefaultConfig() Config {
	return Config{
		Thresholds:   DefaultThresholds(),
		EmitInterval: EmitIntervalCLI,
		Landmarks:    NumLandmarks,
	}
}

// Session runs the per-frame pipeline for one video stream. It is not safe for
// concurrent use; give every stream its own Session.
type Session struct {
	cfg   Config
	state SessionState
}

func NewSession(cfg Config) *Session {
	return &Session{cfg: cfg}
}

func (s *Session) Config() Config { return s.cfg }

// State returns a copy of the current detector state.
func (s *Session) State() SessionState { return s.state }

// ProcessHeatmaps decodes one frame of heatmaps for a frameW x frameH image
// and runs it through the session. The state is untouched when it fails.
func (s *Session) ProcessHeatmaps(h Heatmaps, frameW, frameH int, now time.Time) (DecisionRecord, bool, error) {
	lm, err := DecodeHeatmaps(h, s.cfg.Landmarks, float64(frameW), float64(frameH))
	if err != nil {
		return DecisionRecord{}, false, err
	}
	return s.ProcessLandmarks(lm, now)
}

func (s *Session) ProcessLandmarks(lm LandmarkSet, now time.Time) (DecisionRecord, bool, error) {
	fv, err := ExtractFeatures(lm)
	if err != nil {
		return DecisionRecord{}, false, err
	}
	rec, emit := s.ProcessFeatures(fv, now)
	return rec, emit, nil
}

// ProcessFeatures updates the state machine, scores the frame and applies
// the output throttle. The record is returned even when it is not emitted.
func (s *Session) ProcessFeatures(fv FeatureVector, now time.Time) (DecisionRecord, bool) {
	th := s.cfg.Thresholds

	Evaluate(&s.state, fv, now, th)
	drowsy := s.state.IsDrowsy(th)
	sc := ComputeScore(fv.AvgEAR, fv.MAR, th.MAR, s.state.DrowsyCounter)

	emit := s.state.ShouldEmit(now, s.cfg.EmitInterval, drowsy)
	return newRecord(fv, sc, &s.state, drowsy, now), emit
}
