package database

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"testing"
	"time"

	"AlertMate/go-backend/internal/drowsiness"
	"AlertMate/go-backend/internal/models"
	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	body, err := fs.ReadFile(migrations, names[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "-- +goose Down")
}

func TestClassifyUserError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"email", &pgconn.PgError{Code: uniqueViolation, ConstraintName: usersEmailConstraint}, ErrEmailTaken},
		{"username", &pgconn.PgError{Code: uniqueViolation, ConstraintName: usersNameConstraint}, ErrUsernameTaken},
		{"other unique", &pgconn.PgError{Code: uniqueViolation, ConstraintName: "x"}, ErrDuplicate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyUserError(tc.err), tc.want)
		})
	}

	plain := errors.New("connection reset")
	err := classifyUserError(plain)
	assert.ErrorIs(t, err, plain)
	assert.NotErrorIs(t, err, ErrDuplicate)
}

type fakeRow []interface{}

func (r fakeRow) Scan(dest ...interface{}) error {
	for i, v := range r {
		switch d := dest[i].(type) {
		case *int:
			*d = v.(int)
		case *int64:
			*d = v.(int64)
		case *float64:
			*d = v.(float64)
		case *string:
			*d = v.(string)
		case *time.Time:
			*d = v.(time.Time)
		default:
			if err := d.(interface{ Scan(interface{}) error }).Scan(v); err != nil {
				return err
			}
		}
	}
	return nil
}

func TestScanSession_RestoresDetection(t *testing.T) {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	row := fakeRow{3, 9, start, nil, models.SessionActive, "night drive",
		0.22, int64(750), 0.55, int64(3000), 20, int64(1000), 68}

	sess, err := scanSession(row)
	require.NoError(t, err)

	assert.Equal(t, 3, sess.ID)
	assert.Nil(t, sess.EndTime)
	assert.Equal(t, drowsiness.Config{
		Thresholds: drowsiness.Thresholds{
			EAR: 0.22, EARHold: 750 * time.Millisecond,
			MAR: 0.55, MARHold: 3 * time.Second,
			DrowsyFrames: 20,
		},
		EmitInterval: time.Second,
		Landmarks:    68,
	}, sess.Detection)
}

// TestStore_RoundTrip needs a disposable Postgres database.
func TestStore_RoundTrip(t *testing.T) {
	dsn := os.Getenv("ALERTMATE_TEST_DSN")
	if dsn == "" {
		t.Skip("ALERTMATE_TEST_DSN not set")
	}
	ctx := context.Background()

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	s := NewStore(db)
	defer s.Close()

	suffix := time.Now().Format("150405.000000")
	u := models.User{Email: "rt" + suffix + "@example.com", Username: "rt_" + suffix[7:], PasswordHash: "x"}
	require.NoError(t, s.CreateUser(ctx, &u))
	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{Email: u.Email, Username: "other_" + suffix[7:], PasswordHash: "x"}), ErrEmailTaken)

	got, err := s.UserByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	sess := models.Session{UserID: u.ID, Notes: "rt", Detection: drowsiness.DefaultConfig()}
	require.NoError(t, s.CreateSession(ctx, &sess))
	assert.Equal(t, models.SessionActive, sess.Status)

	owner, err := s.SessionOwner(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, owner)

	ev := models.Event{SessionID: sess.ID, Alertness: 40, IsDrowsy: true, Reason: "eyes_closed", DrowsyCounter: 16, Timestamp: time.Now()}
	require.NoError(t, s.InsertEvent(ctx, &ev))
	events, err := s.ListEvents(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsDrowsy)

	require.NoError(t, s.EndSession(ctx, sess.ID, u.ID, time.Now()))
	assert.ErrorIs(t, s.EndSession(ctx, sess.ID, u.ID+1000, time.Now()), ErrNotFound)

	list, err := s.ListSessions(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.SessionCompleted, list[0].Status)
	assert.NotNil(t, list[0].EndTime)

	require.NoError(t, s.DeleteSession(ctx, sess.ID, u.ID))
	_, err = s.SessionOwner(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
