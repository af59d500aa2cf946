package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"AlertMate/go-backend/internal/config"
	"AlertMate/go-backend/internal/database"
	"AlertMate/go-backend/internal/drowsiness"
	"AlertMate/go-backend/internal/models"
	"AlertMate/go-backend/internal/services"
	"AlertMate/go-backend/pkg/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	pongWait     = 60 * time.Second
	pingPeriod   = 50 * time.Second
	writeWait    = 10 * time.Second
	sendCapacity = 256
)

type WebSocketClient struct {
	conn         *websocket.Conn
	clientID     string
	send         chan models.WebSocketMessage
	done         chan struct{}
	stream       *services.Stream
	frames       *rate.Limiter
	includeFrame bool
}

// MonitorHandler serves /ws/monitor. Each connection is one detection
// session: binary messages are JPEG frames, text messages are JSON control
// messages.
type MonitorHandler struct {
	runner    *services.Runner
	metrics   *services.Metrics
	auth      *AuthSessions
	store     Store
	detection drowsiness.Config
	frameRate int
	maxBytes  int64
	// maxClients caps concurrent connections; 0 means unlimited.
	maxClients int
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*WebSocketClient
}

func NewMonitorHandler(runner *services.Runner, auth *AuthSessions, store Store, detection drowsiness.Config, frameRate, maxClients int, maxBytes int64) *MonitorHandler {
	return &MonitorHandler{
		maxClients: maxClients,
		runner:     runner,
		metrics:    runner.Metrics,
		auth:       auth,
		store:      store,
		detection:  detection,
		frameRate:  frameRate,
		maxBytes:   maxBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*WebSocketClient),
	}
}

// streamConfig resolves the detection config for a new connection: the
// stored session's config when sessionId is given, then query overrides.
func (h *MonitorHandler) streamConfig(r *http.Request) (drowsiness.Config, int, int, string) {
	base := h.detection
	sessionID := 0

	if v := r.URL.Query().Get("sessionId"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			return base, 0, http.StatusBadRequest, "Invalid session ID"
		}
		if h.store == nil {
			return base, 0, http.StatusServiceUnavailable, "Persistence is disabled"
		}
		userID, ok := h.auth.fromRequest(r)
		if !ok {
			return base, 0, http.StatusUnauthorized, "Unauthorized"
		}

		ctx, cancel := context.WithTimeout(r.Context(), dbTimeout)
		defer cancel()
		sess, err := h.store.SessionByID(ctx, id)
		switch {
		case errors.Is(err, database.ErrNotFound):
			return base, 0, http.StatusNotFound, "Session not found"
		case err != nil:
			log.Error(log.Fields{"session": id, "error": err.Error()}, "session lookup failed")
			return base, 0, http.StatusInternalServerError, "Internal server error"
		case sess.UserID != userID:
			return base, 0, http.StatusForbidden, "Unauthorized: session does not belong to user"
		case sess.Status != models.SessionActive:
			return base, 0, http.StatusConflict, "Session already ended"
		}
		base = sess.Detection
		sessionID = id
	}

	cfg, err := config.ApplyOverrides(base, r.URL.Query())
	if err != nil {
		return base, 0, http.StatusBadRequest, err.Error()
	}
	return cfg, sessionID, 0, ""
}

func (h *MonitorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cfg, sessionID, code, msg := h.streamConfig(r)
	if code != 0 {
		http.Error(w, msg, code)
		return
	}
	if h.maxClients > 0 && h.ActiveClients() >= h.maxClients {
		log.Warn(log.Fields{"limit": h.maxClients}, "websocket connection limit reached")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn(log.Fields{"error": err.Error()}, "websocket upgrade failed")
		return
	}

	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = "client-" + uuid.NewString()
	}

	stream := services.NewStream(clientID, cfg)
	stream.SessionID = sessionID

	client := &WebSocketClient{
		conn:         conn,
		clientID:     clientID,
		send:         make(chan models.WebSocketMessage, sendCapacity),
		done:         make(chan struct{}),
		stream:       stream,
		includeFrame: r.URL.Query().Get("includeFrame") == "true",
	}
	if h.frameRate > 0 {
		client.frames = rate.NewLimiter(rate.Limit(h.frameRate), h.frameRate)
	}

	h.register(client)
	defer h.unregister(client)

	log.Info(log.Fields{"client": clientID, "session": sessionID}, "websocket client connected")

	go h.writePump(client)

	client.enqueue(models.WebSocketMessage{
		Type:      models.MsgWelcome,
		ClientID:  clientID,
		Timestamp: time.Now().Unix(),
		Payload: map[string]interface{}{
			"message": "Connected to drowsiness monitor",
			"version": Version,
			"config":  cfg,
		},
	})

	h.readPump(r.Context(), client)
}

func (h *MonitorHandler) register(c *WebSocketClient) {
	h.mu.Lock()
	h.clients[c.clientID] = c
	h.mu.Unlock()

	h.metrics.IncrementWebSocketConnections()
	h.metrics.SessionStarted()
}

func (h *MonitorHandler) unregister(c *WebSocketClient) {
	h.mu.Lock()
	if h.clients[c.clientID] == c {
		delete(h.clients, c.clientID)
	}
	h.mu.Unlock()

	close(c.send)
	c.conn.Close()

	h.metrics.DecrementWebSocketConnections()
	h.metrics.SessionEnded()
	log.Info(log.Fields{"client": c.clientID}, "websocket client disconnected")
}

func (h *MonitorHandler) ActiveClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every connection; their read loops then clean up.
func (h *MonitorHandler) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for clientID, client := range h.clients {
		client.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		client.conn.Close()
		log.Info(log.Fields{"client": clientID}, "closed connection")
	}
}

// enqueue hands msg to the write pump unless it has already stopped.
func (c *WebSocketClient) enqueue(msg models.WebSocketMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

func (c *WebSocketClient) sendError(code, message string) {
	c.enqueue(models.WebSocketMessage{
		Type:      models.MsgError,
		ClientID:  c.clientID,
		Timestamp: time.Now().Unix(),
		Payload:   map[string]string{"code": code, "error": message},
	})
}

// readPump owns the client's stream; frames are processed in arrival order.
func (h *MonitorHandler) readPump(ctx context.Context, c *WebSocketClient) {
	if h.maxBytes > 0 {
		c.conn.SetReadLimit(h.maxBytes)
	}
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn(log.Fields{"client": c.clientID, "error": err.Error()}, "websocket read failed")
				h.metrics.IncrementWebSocketErrors()
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		h.metrics.IncrementWebSocketMessages()

		switch kind {
		case websocket.BinaryMessage:
			h.handleFrame(ctx, c, data)
		case websocket.TextMessage:
			h.handleControl(c, data)
		}
	}
}

func (h *MonitorHandler) handleFrame(ctx context.Context, c *WebSocketClient, frame []byte) {
	if c.frames != nil && !c.frames.Allow() {
		c.sendError("rate_limited", "frame rate exceeded")
		return
	}

	rec, emitted, err := h.runner.ProcessFrame(ctx, c.stream, frame, time.Now())
	if err != nil {
		h.metrics.IncrementWebSocketErrors()
		code := "internal"
		switch {
		case services.IsClientError(err):
			code = "invalid_frame"
		case errors.Is(err, services.ErrModelUnavailable):
			code = "model_unavailable"
		}
		log.Debug(log.Fields{"client": c.clientID, "error": err.Error()}, "frame failed")
		c.sendError(code, err.Error())
		return
	}
	if !emitted {
		return
	}

	msg := models.WebSocketMessage{
		Type:      models.MsgDecision,
		ClientID:  c.clientID,
		Timestamp: time.Now().Unix(),
		Payload:   rec,
	}
	if c.includeFrame {
		msg.Frame = base64.StdEncoding.EncodeToString(frame)
	}
	c.enqueue(msg)
}

func (h *MonitorHandler) handleControl(c *WebSocketClient, data []byte) {
	var msg models.WebSocketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("bad_message", "invalid JSON message")
		return
	}

	switch msg.Type {
	case models.MsgPing:
		c.enqueue(models.WebSocketMessage{
			Type:      models.MsgPong,
			ClientID:  c.clientID,
			Timestamp: time.Now().Unix(),
		})
	default:
		c.sendError("bad_message", "unknown message type: "+msg.Type)
	}
}

func (h *MonitorHandler) writePump(c *WebSocketClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				h.metrics.IncrementWebSocketErrors()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
