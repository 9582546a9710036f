// Package testhelpers provides common utilities for integration-testing the
// WinChat server: spinning up an in-process hub and HTTP server, dialing
// WebSocket clients, and reading typed events off the wire.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/willieinfo/winchat/internal/server"
)

// StartTestServer boots a complete hub plus HTTP stack on an ephemeral
// port. Cleanup shuts both down.
func StartTestServer(t *testing.T) (*server.Hub, *httptest.Server) {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{"*"}

	hub := server.NewHub(cfg, nil)
	go hub.Run()

	handler := server.NewHandler(hub)
	ts := httptest.NewServer(server.SetupRoutes(handler, ""))

	t.Cleanup(func() {
		ts.Close()
		_ = hub.Shutdown(2 * time.Second)
	})
	return hub, ts
}

// StartHTTP serves an arbitrary handler on an ephemeral port, closed on
// test cleanup. Used when the test wants to drive hub shutdown itself.
func StartHTTP(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

// DialWS connects a WebSocket client to the test server's /ws endpoint.
func DialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent writes one event envelope to the connection.
func SendEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", event, err)
	}
	frame, err := json.Marshal(server.Envelope{Event: event, Data: data})
	if err != nil {
		t.Fatalf("marshal %s envelope: %v", event, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// framePump owns all reads on one connection. A gorilla connection whose
// read deadline has expired caches that error and fails every later read,
// so AssertEventAbsent cannot simply let a deadline lapse and hand the
// connection back. Instead its first use moves the connection's reads into
// a background goroutine, and subsequent waits consume frames from the
// pump's channel.
type framePump struct {
	frames chan []byte
	mu     sync.Mutex
	err    error
}

var (
	pumpsMu sync.Mutex
	pumps   = map[*websocket.Conn]*framePump{}
)

func existingPump(conn *websocket.Conn) (*framePump, bool) {
	pumpsMu.Lock()
	defer pumpsMu.Unlock()
	p, ok := pumps[conn]
	return p, ok
}

func pumpFor(conn *websocket.Conn) *framePump {
	pumpsMu.Lock()
	defer pumpsMu.Unlock()
	if p, ok := pumps[conn]; ok {
		return p
	}
	p := &framePump{frames: make(chan []byte, 256)}
	pumps[conn] = p
	_ = conn.SetReadDeadline(time.Time{})
	go func() {
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				p.mu.Lock()
				p.err = err
				p.mu.Unlock()
				close(p.frames)
				return
			}
			p.frames <- frame
		}
	}()
	return p
}

func (p *framePump) readErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func waitForEventFromPump(t *testing.T, p *framePump, event string, timeout time.Duration) json.RawMessage {
	t.Helper()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case frame, ok := <-p.frames:
			if !ok {
				t.Fatalf("waiting for %s: %v", event, p.readErr())
			}
			var env server.Envelope
			if err := json.Unmarshal(frame, &env); err != nil {
				t.Fatalf("unmarshal frame while waiting for %s: %v", event, err)
			}
			if env.Event == event {
				return env.Data
			}
		case <-timer.C:
			t.Fatalf("timed out waiting for %s", event)
		}
	}
}

// WaitForEvent reads frames until one carrying the named event arrives,
// returning its payload. Unrelated events (presence republishes, system
// messages) are skipped. Fails after the timeout.
func WaitForEvent(t *testing.T, conn *websocket.Conn, event string, timeout time.Duration) json.RawMessage {
	t.Helper()

	if p, ok := existingPump(conn); ok {
		return waitForEventFromPump(t, p, event, timeout)
	}

	deadline := time.Now().Add(timeout)
	_ = conn.SetReadDeadline(deadline)
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		var env server.Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("unmarshal frame while waiting for %s: %v", event, err)
		}
		if env.Event == event {
			return env.Data
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", event)
		}
	}
}

// WaitForMessageText waits for a message event whose text matches exactly,
// skipping system chatter, and returns the full message.
func WaitForMessageText(t *testing.T, conn *websocket.Conn, text string, timeout time.Duration) server.Message {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		data := WaitForEvent(t, conn, server.EventMessage, time.Until(deadline))
		var msg server.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		if msg.Text == text {
			return msg
		}
	}
	t.Fatalf("timed out waiting for message %q", text)
	return server.Message{}
}

// AssertEventAbsent reads for the whole window and fails if the named event
// arrives. Other events are ignored.
func AssertEventAbsent(t *testing.T, conn *websocket.Conn, event string, window time.Duration) {
	t.Helper()

	p := pumpFor(conn)
	timer := time.NewTimer(window)
	defer timer.Stop()

	for {
		select {
		case frame, ok := <-p.frames:
			if !ok {
				// Connection closed; nothing more can arrive.
				return
			}
			var env server.Envelope
			if err := json.Unmarshal(frame, &env); err != nil {
				continue
			}
			if env.Event == event {
				t.Fatalf("received %s event that should have been absent: %s", event, env.Data)
			}
		case <-timer.C:
			return
		}
	}
}
