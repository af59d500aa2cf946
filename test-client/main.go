package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	TestEmail = "test@example.com"
	TestUser  = "testuser"
	TestPass  = "Test123456"
)

var (
	backendURL = flag.String("backend", "http://localhost:8080", "backend base URL")
	framesDir  = flag.String("frames", "", "directory of .jpg frames to stream over /ws/monitor")
	frameDelay = flag.Duration("delay", 33*time.Millisecond, "pause between frames")
)

func testHealth(client *http.Client) error {
	fmt.Println("\n[TEST] Testing /api/health...")
	resp, err := client.Get(*backendURL + "/api/health")
	if err != nil {
		return fmt.Errorf("health check failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("✓ Health check (%d): %s\n", resp.StatusCode, string(body))
	return nil
}

func postJSON(client *http.Client, path string, data interface{}) (*http.Response, []byte, error) {
	jsonData, _ := json.Marshal(data)
	resp, err := client.Post(*backendURL+path, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, body, nil
}

func testRegister(client *http.Client) error {
	fmt.Println("\n[TEST] Testing /api/register...")

	resp, body, err := postJSON(client, "/api/register", map[string]string{
		"email":    TestEmail,
		"username": TestUser,
		"password": TestPass,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %v", err)
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		fmt.Printf("✓ Registration successful: %s\n", string(body))
		return nil
	case http.StatusConflict:
		fmt.Printf("⚠ User already exists (this is OK)\n")
		return nil
	}
	return fmt.Errorf("registration failed: status %d, body: %s", resp.StatusCode, string(body))
}

func testLogin(client *http.Client) error {
	fmt.Println("\n[TEST] Testing /api/login...")

	resp, body, err := postJSON(client, "/api/login", map[string]string{
		"email":    TestEmail,
		"password": TestPass,
	})
	if err != nil {
		return fmt.Errorf("login failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: status %d, body: %s", resp.StatusCode, string(body))
	}
	if len(resp.Cookies()) == 0 {
		return fmt.Errorf("no session cookie received")
	}

	fmt.Printf("✓ Login successful, session cookie received\n")
	return nil
}

func testCreateSession(client *http.Client) (int, error) {
	fmt.Println("\n[TEST] Testing /api/sessions/create...")

	resp, body, err := postJSON(client, "/api/sessions/create", map[string]interface{}{
		"notes":     "Test session from automated test",
		"overrides": map[string]string{"emitInterval": "socket"},
	})
	if err != nil {
		return 0, fmt.Errorf("create session failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("create session failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var session struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return 0, fmt.Errorf("failed to parse session: %v", err)
	}

	fmt.Printf("✓ Session created: ID=%d\n", session.ID)
	return session.ID, nil
}

// testMonitor streams every .jpg in dir and prints the decisions that come
// back. Replies arrive only when a record is emitted, so reads run apart from
// writes.
func testMonitor(jar http.CookieJar, sessionID int, dir string) error {
	fmt.Println("\n[TEST] Testing /ws/monitor...")

	frames, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no .jpg frames in %s", dir)
	}
	sort.Strings(frames)

	base, err := url.Parse(*backendURL)
	if err != nil {
		return err
	}
	wsURL := *base
	wsURL.Scheme = strings.Replace(base.Scheme, "http", "ws", 1)
	wsURL.Path = "/ws/monitor"
	q := url.Values{"clientId": {"test-client"}}
	if sessionID > 0 {
		q.Set("sessionId", fmt.Sprint(sessionID))
	}
	wsURL.RawQuery = q.Encode()

	dialer := websocket.Dialer{Jar: jar, HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.Dial(wsURL.String(), nil)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("dial failed: status %d, body: %s", resp.StatusCode, string(body))
		}
		return fmt.Errorf("dial failed: %v", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	decisions, drowsy := 0, 0
	go func() {
		defer close(done)
		for {
			var msg struct {
				Type    string          `json:"type"`
				Payload json.RawMessage `json:"payload"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Type {
			case "DECISION":
				var rec struct {
					Alertness float64 `json:"alertness"`
					IsDrowsy  bool    `json:"isDrowsy"`
					Reason    string  `json:"reason"`
				}
				_ = json.Unmarshal(msg.Payload, &rec)
				decisions++
				if rec.IsDrowsy {
					drowsy++
				}
				fmt.Printf("  - alertness=%.1f drowsy=%v reason=%s\n", rec.Alertness, rec.IsDrowsy, rec.Reason)
			case "ERROR":
				fmt.Printf("  ⚠ %s\n", string(msg.Payload))
			default:
				fmt.Printf("  [%s] %s\n", msg.Type, string(msg.Payload))
			}
		}
	}()

	for _, path := range frames {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			return fmt.Errorf("send %s: %v", filepath.Base(path), err)
		}
		time.Sleep(*frameDelay)
	}

	// Let the last replies drain before closing.
	time.Sleep(500 * time.Millisecond)
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}

	fmt.Printf("✓ Streamed %d frames, %d decisions (%d drowsy)\n", len(frames), decisions, drowsy)
	return nil
}

func testListEvents(client *http.Client, sessionID int) error {
	fmt.Println("\n[TEST] Testing /api/events...")

	resp, err := client.Get(fmt.Sprintf("%s/api/events?session_id=%d", *backendURL, sessionID))
	if err != nil {
		return fmt.Errorf("list events failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("list events failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var events []interface{}
	if err := json.Unmarshal(body, &events); err != nil {
		return fmt.Errorf("failed to parse events: %v", err)
	}

	fmt.Printf("✓ Retrieved %d events\n", len(events))
	return nil
}

func main() {
	flag.Parse()

	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println("ALERTMATE - Backend Smoke Client")
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println("\n[INFO] Backend:", *backendURL)

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar, Timeout: 10 * time.Second}

	tests := []struct {
		name string
		fn   func(*http.Client) error
	}{
		{"Health Check", testHealth},
		{"Registration", testRegister},
		{"Login", testLogin},
	}

	for _, test := range tests {
		if err := test.fn(client); err != nil {
			log.Printf("❌ %s failed: %v", test.name, err)
			os.Exit(1)
		}
	}

	sessionID, err := testCreateSession(client)
	if err != nil {
		log.Printf("⚠ Session creation failed: %v", err)
	}

	if *framesDir != "" {
		if err := testMonitor(jar, sessionID, *framesDir); err != nil {
			log.Printf("❌ Monitor test failed: %v", err)
			log.Printf("   Make sure the landmark model service is running!")
			os.Exit(1)
		}
	} else {
		fmt.Println("\n[INFO] -frames not set, skipping /ws/monitor")
	}

	if sessionID > 0 {
		if err := testListEvents(client, sessionID); err != nil {
			log.Printf("⚠ %v", err)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("✅ All tests completed successfully!")
	fmt.Println("=" + strings.Repeat("=", 60))
}
