package models

// WebSocket message types on /ws/monitor.
const (
	MsgWelcome  = "WELCOME"
	MsgPing     = "PING"
	MsgPong     = "PONG"
	MsgDecision = "DECISION"
	MsgError    = "ERROR"
)

type WebSocketMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Frame     string      `json:"frame,omitempty"`
	ClientID  string      `json:"client_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp int64  `json:"timestamp"`
	Code      string `json:"code,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

type HealthStatus struct {
	Status         string `json:"status"`
	GoBackend      string `json:"go_backend"`
	LandmarkModel  bool   `json:"landmark_model"`
	Database       bool   `json:"database"`
	ActiveSessions int    `json:"active_sessions"`
	UptimeSec      int    `json:"uptime_sec"`
	Version        string `json:"version,omitempty"`
}
