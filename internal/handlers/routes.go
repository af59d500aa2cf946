package handlers

import (
	"net/http"

	"AlertMate/go-backend/internal/drowsiness"
	"AlertMate/go-backend/internal/services"
)

type Deps struct {
	Store           Store
	Runner          *services.Runner
	Model           HealthChecker
	Detection       drowsiness.Config
	CORSOrigin      string
	RateLimitPerMin int
	FrameRatePerSec int
	MaxMessageBytes int64
	MaxConnections  int
}

// Router wires the REST API, status endpoints and /ws/monitor.
type Router struct {
	API     *API
	Monitor *MonitorHandler
	status  *StatusHandler
	limiter *rateLimiter
}

func NewRouter(d Deps) *Router {
	api := NewAPI(d.Store, d.Detection, d.CORSOrigin)
	return &Router{
		API:     api,
		Monitor: NewMonitorHandler(d.Runner, api.auth, d.Store, d.Detection, d.FrameRatePerSec, d.MaxConnections, d.MaxMessageBytes),
		status:  &StatusHandler{metrics: d.Runner.Metrics, model: d.Model, store: d.Store},
		limiter: perMinute(d.RateLimitPerMin),
	}
}

func (rt *Router) Handler() http.Handler {
	a := rt.API
	get := []string{http.MethodGet}
	post := []string{http.MethodPost}

	mux := http.NewServeMux()

	mux.HandleFunc("/", rt.status.Root)
	mux.HandleFunc("/api/health", rt.status.Health)
	mux.HandleFunc("/api/metrics", rt.status.Metrics)
	mux.Handle("/ws/monitor", rt.Monitor)

	mux.HandleFunc("/api/register", a.endpoint(true, post, a.Register))
	mux.HandleFunc("/api/login", a.endpoint(true, post, a.Login))
	mux.HandleFunc("/api/logout", a.endpoint(false, post, a.Logout))
	mux.HandleFunc("/api/me", a.endpoint(true, get, a.CurrentUser))

	mux.HandleFunc("/api/sessions", a.endpoint(true, get, a.ListSessions))
	mux.HandleFunc("/api/sessions/create", a.endpoint(true, post, a.CreateSession))
	mux.HandleFunc("/api/sessions/end", a.endpoint(true, post, a.EndSession))
	mux.HandleFunc("/api/sessions/delete", a.endpoint(true, []string{http.MethodDelete, http.MethodPost}, a.DeleteSession))

	mux.HandleFunc("/api/events", a.endpoint(true, get, a.ListEvents))
	mux.HandleFunc("/api/events/save", a.endpoint(true, post, a.SaveEvent))

	return rt.limiter.middleware(mux)
}
