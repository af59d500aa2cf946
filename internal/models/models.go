package models

import (
	"time"

	"AlertMate/go-backend/internal/drowsiness"
)

type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// Session is a stored monitoring session. Detection is the configuration
// the session was started with.
type Session struct {
	ID        int               `json:"id"`
	UserID    int               `json:"user_id"`
	StartTime time.Time         `json:"start_time"`
	EndTime   *time.Time        `json:"end_time,omitempty"`
	Status    string            `json:"status"`
	Notes     string            `json:"notes,omitempty"`
	Detection drowsiness.Config `json:"detection"`
}

// Event is a persisted decision record.
type Event struct {
	ID            int       `json:"id"`
	SessionID     int       `json:"session_id"`
	Alertness     float64   `json:"alertness"`
	EAR           float64   `json:"ear"`
	MAR           float64   `json:"mar"`
	EyeClosure    float64   `json:"eye_closure"`
	IsDrowsy      bool      `json:"is_drowsy"`
	Reason        string    `json:"reason"`
	DrowsyCounter int       `json:"drowsy_counter"`
	Timestamp     time.Time `json:"timestamp"`
}

// EventFromRecord converts a decision record; records without a timestamp
// are stamped with now.
func EventFromRecord(sessionID int, rec drowsiness.DecisionRecord, now time.Time) Event {
	ts := now
	if rec.Timestamp != 0 {
		ts = time.UnixMilli(rec.Timestamp)
	}
	return Event{
		SessionID:     sessionID,
		Alertness:     rec.Alertness,
		EAR:           rec.EAR,
		MAR:           rec.MAR,
		EyeClosure:    rec.EyeClosure,
		IsDrowsy:      rec.IsDrowsy,
		Reason:        string(rec.Reason),
		DrowsyCounter: rec.DrowsyCounter,
		Timestamp:     ts,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateSessionRequest carries optional detection overrides keyed like the
// /ws/monitor query parameters.
type CreateSessionRequest struct {
	Notes     string            `json:"notes,omitempty" validate:"max=1000"`
	Overrides map[string]string `json:"overrides,omitempty"`
}

type CreateEventRequest struct {
	SessionID     int     `json:"session_id" validate:"required,gt=0"`
	Alertness     float64 `json:"alertness" validate:"gte=0,lte=100"`
	EAR           float64 `json:"ear" validate:"gte=0"`
	MAR           float64 `json:"mar" validate:"gte=0"`
	EyeClosure    float64 `json:"eye_closure" validate:"gte=0,lte=100"`
	IsDrowsy      bool    `json:"is_drowsy"`
	Reason        string  `json:"reason" validate:"omitempty,oneof=alert eyes_closed yawning"`
	DrowsyCounter int     `json:"drowsy_counter" validate:"gte=0"`
}
