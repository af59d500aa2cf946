package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"time"

	"AlertMate/go-backend/internal/drowsiness"
	"AlertMate/go-backend/internal/models"
	"AlertMate/go-backend/pkg/log"
)

// ErrFrame is returned for payloads that are not decodable JPEG frames.
var ErrFrame = errors.New("invalid frame")

// EventSink persists decision records of stored sessions.
type EventSink interface {
	InsertEvent(ctx context.Context, e *models.Event) error
}

// Stream is one monitored video stream: a WebSocket connection, a gRPC
// stream or a CLI run. It is not safe for concurrent use.
type Stream struct {
	ClientID string
	// SessionID links the stream to a stored session; 0 means unlinked.
	SessionID int
	Session   *drowsiness.Session

	wasDrowsy bool
}

func NewStream(clientID string, cfg drowsiness.Config) *Stream {
	return &Stream{ClientID: clientID, Session: drowsiness.NewSession(cfg)}
}

// Runner processes frames for any number of streams. Model, Metrics and
// Alerts are required; Events may be nil.
type Runner struct {
	Model   LandmarkModel
	Metrics *Metrics
	Alerts  AlertPublisher
	Events  EventSink
}

func NewRunner(model LandmarkModel, metrics *Metrics, alerts AlertPublisher, events EventSink) *Runner {
	if alerts == nil {
		alerts = NopPublisher{}
	}
	return &Runner{Model: model, Metrics: metrics, Alerts: alerts, Events: events}
}

// ProcessFrame runs one JPEG frame through the model and the stream's
// session. A failed frame leaves the session untouched.
func (r *Runner) ProcessFrame(ctx context.Context, st *Stream, frame []byte, now time.Time) (drowsiness.DecisionRecord, bool, error) {
	start := time.Now()

	rec, emitted, err := r.process(ctx, st, frame, now)
	if err != nil {
		r.Metrics.IncrementErrors()
		return rec, false, err
	}

	r.Metrics.IncrementFrames()
	r.Metrics.RecordLatency(time.Since(start))
	if emitted {
		r.Metrics.RecordDecision(rec.IsDrowsy)
	}

	r.afterDecision(ctx, st, rec, emitted, now)
	return rec, emitted, nil
}

func (r *Runner) process(ctx context.Context, st *Stream, frame []byte, now time.Time) (drowsiness.DecisionRecord, bool, error) {
	if len(frame) == 0 {
		return drowsiness.DecisionRecord{}, false, fmt.Errorf("%w: empty payload", ErrFrame)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(frame))
	if err != nil {
		return drowsiness.DecisionRecord{}, false, fmt.Errorf("%w: %v", ErrFrame, err)
	}

	hm, err := r.Model.Infer(ctx, frame)
	if err != nil {
		return drowsiness.DecisionRecord{}, false, fmt.Errorf("infer: %w", err)
	}

	rec, emitted, err := st.Session.ProcessHeatmaps(hm, cfg.Width, cfg.Height, now)
	if err != nil {
		return drowsiness.DecisionRecord{}, false, fmt.Errorf("process heatmaps: %w", err)
	}
	return rec, emitted, nil
}

// afterDecision fans out emitted drowsy records and stores drowsy/alert
// transitions. Failures here are logged and never fail the frame.
func (r *Runner) afterDecision(ctx context.Context, st *Stream, rec drowsiness.DecisionRecord, emitted bool, now time.Time) {
	if emitted && rec.IsDrowsy {
		alert := Alert{ClientID: st.ClientID, SessionID: st.SessionID, Record: rec}
		if err := r.Alerts.Publish(ctx, alert); err != nil {
			log.Warn(log.Fields{"client": st.ClientID, "error": err.Error()}, "alert publish failed")
		}
	}

	changed := rec.IsDrowsy != st.wasDrowsy
	st.wasDrowsy = rec.IsDrowsy
	if !changed || st.SessionID == 0 || r.Events == nil {
		return
	}

	ev := models.EventFromRecord(st.SessionID, rec, now)
	if err := r.Events.InsertEvent(ctx, &ev); err != nil {
		log.Warn(log.Fields{"session": st.SessionID, "error": err.Error()}, "event insert failed")
		return
	}
	log.Info(log.Fields{"session": st.SessionID, "drowsy": rec.IsDrowsy, "reason": rec.Reason}, "drowsiness state changed")
}

// IsClientError reports whether err was caused by the submitted frame rather
// than by the model or the server.
func IsClientError(err error) bool {
	return errors.Is(err, ErrFrame) || errors.Is(err, drowsiness.ErrShape) || errors.Is(err, drowsiness.ErrData)
}
