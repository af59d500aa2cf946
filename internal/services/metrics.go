package services

import (
	"sync/atomic"
	"time"
)

// Metrics holds process-wide counters. All methods are safe for concurrent use.
type Metrics struct {
	startedAt time.Time

	totalFrames    atomic.Int64
	totalErrors    atomic.Int64
	totalLatency   atomic.Int64
	emitted        atomic.Int64
	drowsy         atomic.Int64
	activeSessions atomic.Int32
	lastFrameTime  atomic.Int64

	wsConnections atomic.Int64
	wsMessages    atomic.Int64
	wsErrors      atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

func (m *Metrics) IncrementFrames() {
	m.totalFrames.Add(1)
	m.lastFrameTime.Store(time.Now().Unix())
}

func (m *Metrics) IncrementErrors() {
	m.totalErrors.Add(1)
}

func (m *Metrics) RecordLatency(duration time.Duration) {
	m.totalLatency.Add(duration.Milliseconds())
}

// RecordDecision counts an emitted record, and a drowsy one separately.
func (m *Metrics) RecordDecision(isDrowsy bool) {
	m.emitted.Add(1)
	if isDrowsy {
		m.drowsy.Add(1)
	}
}

func (m *Metrics) SessionStarted() { m.activeSessions.Add(1) }
func (m *Metrics) SessionEnded()   { m.activeSessions.Add(-1) }

func (m *Metrics) GetTotalFrames() int64 {
	return m.totalFrames.Load()
}

func (m *Metrics) GetTotalErrors() int64 {
	return m.totalErrors.Load()
}

func (m *Metrics) GetAvgLatency() float64 {
	frames := m.totalFrames.Load()
	if frames == 0 {
		return 0
	}
	return float64(m.totalLatency.Load()) / float64(frames)
}

func (m *Metrics) GetActiveSessions() int {
	return int(m.activeSessions.Load())
}

func (m *Metrics) GetLastFrameTime() int64 {
	return m.lastFrameTime.Load()
}

func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startedAt)
}

func (m *Metrics) IncrementWebSocketConnections() {
	m.wsConnections.Add(1)
}

func (m *Metrics) DecrementWebSocketConnections() {
	m.wsConnections.Add(-1)
}

func (m *Metrics) GetWebSocketConnections() int64 {
	return m.wsConnections.Load()
}

func (m *Metrics) IncrementWebSocketMessages() {
	m.wsMessages.Add(1)
}

func (m *Metrics) IncrementWebSocketErrors() {
	m.wsErrors.Add(1)
}

// Snapshot is the JSON body served at /api/metrics.
func (m *Metrics) Snapshot() map[string]interface{} {
	emitted := m.emitted.Load()
	rate := 0.0
	if emitted > 0 {
		rate = float64(m.drowsy.Load()) / float64(emitted)
	}

	return map[string]interface{}{
		"total_frames":      m.totalFrames.Load(),
		"total_errors":      m.totalErrors.Load(),
		"emitted_records":   emitted,
		"drowsy_detections": m.drowsy.Load(),
		"detection_rate":    rate,
		"active_sessions":   m.GetActiveSessions(),
		"avg_latency_ms":    m.GetAvgLatency(),
		"last_frame_unix":   m.lastFrameTime.Load(),
		"system_uptime_sec": int(m.Uptime().Seconds()),
		"websocket": map[string]interface{}{
			"connections": m.wsConnections.Load(),
			"messages":    m.wsMessages.Load(),
			"errors":      m.wsErrors.Load(),
		},
	}
}
