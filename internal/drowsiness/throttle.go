package drowsiness

import "time"

// Emission interval presets for the different front ends.
const (
	EmitIntervalFast   = 100 * time.Millisecond
	EmitIntervalCLI    = 500 * time.Millisecond
	EmitIntervalSocket = time.Second
)

// ShouldEmit reports whether the frame at now is surfaced. Drowsy frames are
// always surfaced; otherwise at most one frame per interval. LastEmit moves
// forward on every emission.
func (s *SessionState) ShouldEmit(now time.Time, interval time.Duration, isDrowsy bool) bool {
	if now.Sub(s.LastEmit) >= interval || isDrowsy {
		s.LastEmit = now
		return true
	}
	return false
}

// EmitIntervalPreset maps a deployment mode name to its interval.
func EmitIntervalPreset(mode string) (time.Duration, bool) {
	switch mode {
	case "fast":
		return EmitIntervalFast, true
	case "cli":
		return EmitIntervalCLI, true
	case "socket":
		return EmitIntervalSocket, true
	}
	return 0, false
}
