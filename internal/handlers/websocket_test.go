package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"AlertMate/go-backend/internal/drowsiness"
	"AlertMate/go-backend/internal/drowsiness/drowsinesstest"
	"AlertMate/go-backend/internal/models"
	"AlertMate/go-backend/internal/services"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsMessage struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Frame    string          `json:"frame"`
	ClientID string          `json:"client_id"`
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/monitor" + query
}

func dialMonitor(t *testing.T, srv *httptest.Server, query string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, query), header)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		resp.Body.Close()
	})

	welcome := readWS(t, conn)
	require.Equal(t, models.MsgWelcome, welcome.Type)
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestMonitor_PingPong(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(nil, newFaceModel()).Handler())
	defer srv.Close()

	conn := dialMonitor(t, srv, "?clientId=dash-1", nil)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": models.MsgPing}))

	msg := readWS(t, conn)
	assert.Equal(t, models.MsgPong, msg.Type)
	assert.Equal(t, "dash-1", msg.ClientID)
}

func TestMonitor_FrameProducesDecision(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(nil, newFaceModel()).Handler())
	defer srv.Close()

	conn := dialMonitor(t, srv, "?includeFrame=true", nil)
	frame := drowsinesstest.JPEG(64, 64)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, frame))

	msg := readWS(t, conn)
	require.Equal(t, models.MsgDecision, msg.Type)
	assert.Equal(t, base64.StdEncoding.EncodeToString(frame), msg.Frame)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Payload, &rec))
	assert.Equal(t, 0.4, rec["ear"])
	assert.Equal(t, "alert", rec["reason"])
	assert.Equal(t, false, rec["isDrowsy"])
}

func TestMonitor_BadFrameKeepsConnection(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(nil, newFaceModel()).Handler())
	defer srv.Close()

	conn := dialMonitor(t, srv, "", nil)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("not a jpeg")))

	msg := readWS(t, conn)
	require.Equal(t, models.MsgError, msg.Type)
	assert.Contains(t, string(msg.Payload), "invalid_frame")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, drowsinesstest.JPEG(64, 64)))
	assert.Equal(t, models.MsgDecision, readWS(t, conn).Type)
}

func TestMonitor_UnknownControlMessage(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(nil, newFaceModel()).Handler())
	defer srv.Close()

	conn := dialMonitor(t, srv, "", nil)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"FRAME"}`)))
	msg := readWS(t, conn)
	assert.Equal(t, models.MsgError, msg.Type)
	assert.Contains(t, string(msg.Payload), "unknown message type")
}

func TestMonitor_ThrottlesAlertRecords(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(nil, newFaceModel()).Handler())
	defer srv.Close()

	// one-hour interval: only the first alert frame is emitted
	conn := dialMonitor(t, srv, "?emitInterval=1h", nil)
	frame := drowsinesstest.JPEG(64, 64)
	for i := 0; i < 3; i++ {
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, frame))
	}
	require.NoError(t, conn.WriteJSON(map[string]string{"type": models.MsgPing}))

	assert.Equal(t, models.MsgDecision, readWS(t, conn).Type)
	assert.Equal(t, models.MsgPong, readWS(t, conn).Type)
}

func TestMonitor_InvalidOverrideRejected(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(nil, newFaceModel()).Handler())
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "?earThreshold=abc"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMonitor_LinkedSessionPersistsTransitions(t *testing.T) {
	store := newMemStore()
	model := newFaceModel()
	srv := httptest.NewServer(newTestRouter(store, model).Handler())
	defer srv.Close()

	c := newAPIClient(t, srv)
	c.registerAndLogin("a@b.co", "driver")
	resp := c.do(http.MethodPost, "/api/sessions/create", models.CreateSessionRequest{
		Overrides: map[string]string{"earTime": "0s", "drowsyFrames": "1"},
	})
	var sess models.Session
	decodeBody(t, resp, &sess)

	// anonymous clients may not attach to a stored session
	_, anon, err := websocket.DefaultDialer.Dial(wsURL(srv, fmt.Sprintf("?sessionId=%d", sess.ID)), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, anon.StatusCode)

	header := http.Header{}
	for _, ck := range c.http.Jar.Cookies(mustParse(t, srv.URL)) {
		header.Add("Cookie", ck.String())
	}
	conn := dialMonitor(t, srv, fmt.Sprintf("?sessionId=%d", sess.ID), header)

	model.set(drowsinesstest.Closed())
	frame := drowsinesstest.JPEG(64, 64)
	var last wsMessage
	for i := 0; i < 3; i++ {
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, frame))
		last = readWS(t, conn)
		require.Equal(t, models.MsgDecision, last.Type)
	}
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(last.Payload, &rec))
	assert.Equal(t, true, rec["isDrowsy"])
	assert.Equal(t, 1, store.eventCount())
}

func TestMonitor_ConnectionLimit(t *testing.T) {
	rt := NewRouter(Deps{
		Runner:         services.NewRunner(newFaceModel(), services.NewMetrics(), nil, nil),
		Detection:      drowsiness.DefaultConfig(),
		MaxConnections: 1,
	})
	srv := httptest.NewServer(rt.Handler())
	defer srv.Close()

	first := dialMonitor(t, srv, "?clientId=a", nil)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "?clientId=b"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	require.NoError(t, first.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return rt.Monitor.ActiveClients() == 0 }, 5*time.Second, 10*time.Millisecond)

	dialMonitor(t, srv, "?clientId=c", nil)
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
