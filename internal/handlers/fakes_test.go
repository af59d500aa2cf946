package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"AlertMate/go-backend/internal/database"
	"AlertMate/go-backend/internal/drowsiness"
	"AlertMate/go-backend/internal/drowsiness/drowsinesstest"
	"AlertMate/go-backend/internal/models"
	"AlertMate/go-backend/internal/services"
)

type memStore struct {
	mu       sync.Mutex
	nextID   int
	users    map[int]models.User
	sessions map[int]models.Session
	events   []models.Event
}

func newMemStore() *memStore {
	return &memStore{users: map[int]models.User{}, sessions: map[int]models.Session{}}
}

func (m *memStore) id() int {
	m.nextID++
	return m.nextID
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.users {
		if other.Email == u.Email {
			return database.ErrEmailTaken
		}
		if other.Username == u.Username {
			return database.ErrUsernameTaken
		}
	}
	u.ID = m.id()
	u.CreatedAt = time.Now()
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, database.ErrNotFound
}

func (m *memStore) UserByID(_ context.Context, id int) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, database.ErrNotFound
	}
	return u, nil
}

func (m *memStore) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	s.StartTime = time.Now()
	s.Status = models.SessionActive
	m.sessions[s.ID] = *s
	return nil
}

func (m *memStore) SessionByID(_ context.Context, id int) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return models.Session{}, database.ErrNotFound
	}
	return s, nil
}

func (m *memStore) ListSessions(_ context.Context, userID int) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Session{}
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) EndSession(_ context.Context, id, userID int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return database.ErrNotFound
	}
	s.EndTime = &at
	s.Status = models.SessionCompleted
	m.sessions[id] = s
	return nil
}

func (m *memStore) DeleteSession(_ context.Context, id, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return database.ErrNotFound
	}
	delete(m.sessions, id)
	kept := m.events[:0]
	for _, e := range m.events {
		if e.SessionID != id {
			kept = append(kept, e)
		}
	}
	m.events = kept
	return nil
}

func (m *memStore) SessionOwner(_ context.Context, id int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return 0, database.ErrNotFound
	}
	return s.UserID, nil
}

func (m *memStore) InsertEvent(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	m.events = append(m.events, *e)
	return nil
}

func (m *memStore) ListEvents(_ context.Context, sessionID int) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Event{}
	for _, e := range m.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// faceModel answers every frame with the same heatmaps.
type faceModel struct {
	mu sync.Mutex
	hm drowsiness.Heatmaps
}

func newFaceModel() *faceModel { return &faceModel{hm: drowsinesstest.Open()} }

func (f *faceModel) set(hm drowsiness.Heatmaps) {
	f.mu.Lock()
	f.hm = hm
	f.mu.Unlock()
}

func (f *faceModel) Infer(context.Context, []byte) (drowsiness.Heatmaps, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hm, nil
}

func (f *faceModel) HealthCheck(context.Context) bool { return true }

func newTestRouter(store Store, model *faceModel) *Router {
	runner := services.NewRunner(model, services.NewMetrics(), nil, store)
	var hc HealthChecker
	if model != nil {
		hc = model
	}
	return NewRouter(Deps{
		Store:      store,
		Runner:     runner,
		Model:      hc,
		Detection:  drowsiness.DefaultConfig(),
		CORSOrigin: "*",
	})
}
