package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"AlertMate/go-backend/internal/config"
	"AlertMate/go-backend/internal/database"
	"AlertMate/go-backend/internal/drowsiness"
	"AlertMate/go-backend/internal/models"
	"AlertMate/go-backend/pkg/log"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const dbTimeout = 5 * time.Second

// Store is the persistence used by the REST API; *database.Store satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, u *models.User) error
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int) (models.User, error)
	CreateSession(ctx context.Context, s *models.Session) error
	SessionByID(ctx context.Context, id int) (models.Session, error)
	ListSessions(ctx context.Context, userID int) ([]models.Session, error)
	EndSession(ctx context.Context, id, userID int, at time.Time) error
	DeleteSession(ctx context.Context, id, userID int) error
	SessionOwner(ctx context.Context, id int) (int, error)
	InsertEvent(ctx context.Context, e *models.Event) error
	ListEvents(ctx context.Context, sessionID int) ([]models.Event, error)
}

// API serves the REST endpoints. A nil store disables everything that
// needs persistence with 503.
type API struct {
	store      Store
	auth       *AuthSessions
	validate   *validator.Validate
	detection  drowsiness.Config
	corsOrigin string
}

func NewAPI(store Store, detection drowsiness.Config, corsOrigin string) *API {
	return &API{
		store:      store,
		auth:       NewAuthSessions(),
		validate:   newValidator(),
		detection:  detection,
		corsOrigin: corsOrigin,
	}
}

func (a *API) enableCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", a.corsOrigin)
	w.Header().Set("Access-Control-Allow-Credentials", "true")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Cookie")
}

// endpoint wraps a handler with CORS, preflight, method and store checks.
func (a *API) endpoint(needStore bool, methods []string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.enableCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		allowed := false
		for _, m := range methods {
			if r.Method == m {
				allowed = true
			}
		}
		if !allowed {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if needStore && a.store == nil {
			http.Error(w, "Persistence is disabled", http.StatusServiceUnavailable)
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	traceID := log.ErrorWithTraceID(log.Fields{"path": r.URL.Path, "error": err.Error()}, msg)
	writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{
		Error:     "Internal server error",
		Timestamp: time.Now().Unix(),
		TraceID:   traceID,
	})
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	switch fe := verrs[0]; fe.Tag() {
	case "required":
		return "All fields are required"
	case "email":
		return "Invalid email format"
	case "password":
		return "Password must be 8-72 characters with at least one letter and one number"
	case "username":
		return "Username must be 3-30 characters, alphanumeric and underscore only"
	default:
		return "Invalid field " + fe.Field()
	}
}

func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !a.decode(w, r, &req) {
		return
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		internalError(w, r, "password hashing failed", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	user := models.User{Email: req.Email, Username: req.Username, PasswordHash: passwordHash}
	switch err := a.store.CreateUser(ctx, &user); {
	case errors.Is(err, database.ErrUsernameTaken):
		http.Error(w, "Username already taken", http.StatusConflict)
		return
	case errors.Is(err, database.ErrEmailTaken):
		http.Error(w, "Email already registered", http.StatusConflict)
		return
	case errors.Is(err, database.ErrDuplicate):
		http.Error(w, "User already exists", http.StatusConflict)
		return
	case err != nil:
		internalError(w, r, "registration failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
	log.Info(log.Fields{"user": user.ID}, "user registered")
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !a.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	user, err := a.store.UserByEmail(ctx, req.Email)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	} else if err != nil {
		internalError(w, r, "login failed", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if old, err := r.Cookie(sessionCookie); err == nil {
		a.auth.Logout(old.Value)
	}
	setSessionCookie(w, a.auth.Login(user.ID), 86400)

	writeJSON(w, http.StatusOK, user)
	log.Info(log.Fields{"user": user.ID}, "user logged in")
}

func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		a.auth.Logout(cookie.Value)
	}
	setSessionCookie(w, "", -1)

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Logged out"))
}

// authorized resolves the logged-in user or answers 401.
func (a *API) authorized(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, ok := a.auth.fromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return userID, ok
}

func (a *API) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.authorized(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	user, err := a.store.UserByID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	} else if err != nil {
		internalError(w, r, "current user lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// overrideMap adapts a JSON object of override keys to config.Getter.
type overrideMap map[string]string

func (m overrideMap) Get(key string) string { return m[key] }

func (a *API) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.authorized(w, r)
	if !ok {
		return
	}

	var req models.CreateSessionRequest
	if !a.decode(w, r, &req) {
		return
	}

	detection, err := config.ApplyOverrides(a.detection, overrideMap(req.Overrides))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	sess := models.Session{UserID: userID, Notes: req.Notes, Detection: detection}
	if err := a.store.CreateSession(ctx, &sess); err != nil {
		internalError(w, r, "create session failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, sess)
	log.Info(log.Fields{"session": sess.ID, "user": userID}, "session created")
}

func (a *API) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.authorized(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	sessions, err := a.store.ListSessions(ctx, userID)
	if err != nil {
		internalError(w, r, "list sessions failed", err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func queryID(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	id, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || id <= 0 {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (a *API) EndSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.authorized(w, r)
	if !ok {
		return
	}
	sessionID, ok := queryID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	err := a.store.EndSession(ctx, sessionID, userID, time.Now())
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "Session not found or does not belong to user", http.StatusNotFound)
		return
	} else if err != nil {
		internalError(w, r, "end session failed", err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Session ended"))
	log.Info(log.Fields{"session": sessionID}, "session ended")
}

// checkOwner answers 404/403 unless userID owns sessionID.
func (a *API) checkOwner(ctx context.Context, w http.ResponseWriter, r *http.Request, sessionID, userID int) bool {
	owner, err := a.store.SessionOwner(ctx, sessionID)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return false
	} else if err != nil {
		internalError(w, r, "session owner lookup failed", err)
		return false
	}
	if owner != userID {
		http.Error(w, "Unauthorized: session does not belong to user", http.StatusForbidden)
		return false
	}
	return true
}

func (a *API) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.authorized(w, r)
	if !ok {
		return
	}
	sessionID, ok := queryID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	if !a.checkOwner(ctx, w, r, sessionID, userID) {
		return
	}

	err := a.store.DeleteSession(ctx, sessionID, userID)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	} else if err != nil {
		internalError(w, r, "delete session failed", err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Session deleted"))
	log.Info(log.Fields{"session": sessionID}, "session deleted")
}

func (a *API) SaveEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.authorized(w, r)
	if !ok {
		return
	}

	var req models.CreateEventRequest
	if !a.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	if !a.checkOwner(ctx, w, r, req.SessionID, userID) {
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = string(drowsiness.ReasonAlert)
	}
	event := models.Event{
		SessionID:     req.SessionID,
		Alertness:     req.Alertness,
		EAR:           req.EAR,
		MAR:           req.MAR,
		EyeClosure:    req.EyeClosure,
		IsDrowsy:      req.IsDrowsy,
		Reason:        reason,
		DrowsyCounter: req.DrowsyCounter,
		Timestamp:     time.Now(),
	}
	if err := a.store.InsertEvent(ctx, &event); err != nil {
		internalError(w, r, "save event failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (a *API) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.authorized(w, r)
	if !ok {
		return
	}
	sessionID, ok := queryID(w, r, "session_id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
	defer cancel()

	if !a.checkOwner(ctx, w, r, sessionID, userID) {
		return
	}

	events, err := a.store.ListEvents(ctx, sessionID)
	if err != nil {
		internalError(w, r, "list events failed", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
