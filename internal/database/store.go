package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"AlertMate/go-backend/internal/models"
	"github.com/jackc/pgconn"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
	ErrDuplicate     = errors.New("already exists")
)

const (
	uniqueViolation      = "23505"
	usersEmailConstraint = "users_email_key"
	usersNameConstraint  = "users_username_key"
)

// Store persists users, monitoring sessions and their events.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (email, username, password_hash) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		u.Email, u.Username, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return classifyUserError(err)
	}
	return nil
}

func classifyUserError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return fmt.Errorf("insert user: %w", err)
	}
	switch pgErr.ConstraintName {
	case usersEmailConstraint:
		return ErrEmailTaken
	case usersNameConstraint:
		return ErrUsernameTaken
	default:
		return ErrDuplicate
	}
}

func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, username, password_hash, created_at FROM users WHERE email = $1", email))
}

func (s *Store) UserByID(ctx context.Context, id int) (models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, username, password_hash, created_at FROM users WHERE id = $1", id))
}

func (s *Store) scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// CreateSession stores a new active session together with its detection
// configuration.
func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	d := sess.Detection
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO sessions (user_id, notes, ear_threshold, ear_hold_ms, mar_threshold,
			mar_hold_ms, drowsy_frames, emit_interval_ms, landmarks)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, start_time, status`,
		sess.UserID, sess.Notes,
		d.Thresholds.EAR, d.Thresholds.EARHold.Milliseconds(),
		d.Thresholds.MAR, d.Thresholds.MARHold.Milliseconds(),
		d.Thresholds.DrowsyFrames, d.EmitInterval.Milliseconds(), d.Landmarks,
	).Scan(&sess.ID, &sess.StartTime, &sess.Status)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

const sessionColumns = `id, user_id, start_time, end_time, status, notes, ear_threshold,
	ear_hold_ms, mar_threshold, mar_hold_ms, drowsy_frames, emit_interval_ms, landmarks`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (models.Session, error) {
	var (
		sess                           models.Session
		endTime                        sql.NullTime
		earHold, marHold, emitInterval int64
	)
	th := &sess.Detection.Thresholds
	err := row.Scan(&sess.ID, &sess.UserID, &sess.StartTime, &endTime, &sess.Status, &sess.Notes,
		&th.EAR, &earHold, &th.MAR, &marHold, &th.DrowsyFrames, &emitInterval, &sess.Detection.Landmarks)
	if err != nil {
		return models.Session{}, err
	}
	if endTime.Valid {
		sess.EndTime = &endTime.Time
	}
	th.EARHold = time.Duration(earHold) * time.Millisecond
	th.MARHold = time.Duration(marHold) * time.Millisecond
	sess.Detection.EmitInterval = time.Duration(emitInterval) * time.Millisecond
	return sess, nil
}

func (s *Store) SessionByID(ctx context.Context, id int) (models.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("select session: %w", err)
	}
	return sess, nil
}

func (s *Store) ListSessions(ctx context.Context, userID int) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE user_id = $1 ORDER BY start_time DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// EndSession completes a session owned by userID.
func (s *Store) EndSession(ctx context.Context, id, userID int, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET end_time = $1, status = $2 WHERE id = $3 AND user_id = $4",
		at, models.SessionCompleted, id, userID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return expectRow(res)
}

// DeleteSession removes a session owned by userID; its events cascade.
func (s *Store) DeleteSession(ctx context.Context, id, userID int) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SessionOwner(ctx context.Context, id int) (int, error) {
	var userID int
	err := s.db.QueryRowContext(ctx, "SELECT user_id FROM sessions WHERE id = $1", id).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("select session owner: %w", err)
	}
	return userID, nil
}

func (s *Store) InsertEvent(ctx context.Context, e *models.Event) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO events (session_id, alertness, ear, mar, eye_closure, is_drowsy, reason,
			drowsy_counter, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		e.SessionID, e.Alertness, e.EAR, e.MAR, e.EyeClosure, e.IsDrowsy, e.Reason,
		e.DrowsyCounter, e.Timestamp,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, sessionID int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, alertness, ear, mar, eye_closure, is_drowsy, reason,
			drowsy_counter, timestamp
		 FROM events WHERE session_id = $1 ORDER BY timestamp DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Alertness, &e.EAR, &e.MAR, &e.EyeClosure,
			&e.IsDrowsy, &e.Reason, &e.DrowsyCounter, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
