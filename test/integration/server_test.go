package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/willieinfo/winchat/internal/server"
	"github.com/willieinfo/winchat/test/testhelpers"
)

func TestHealthEndpoint(t *testing.T) {
	_, ts := testhelpers.StartTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "WinChat server is running") {
		t.Errorf("body = %q", body)
	}
}

func TestWebSocketEndpointRejectsNonGet(t *testing.T) {
	_, ts := testhelpers.StartTestServer(t)

	resp, err := http.Post(ts.URL+"/ws", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST /ws: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{"*"}
	hub := server.NewHub(cfg, nil)
	go hub.Run()

	handler := server.NewHandler(hub)
	ts := testhelpers.StartHTTP(t, server.SetupRoutes(handler, ""))

	conn := testhelpers.DialWS(t, ts)
	testhelpers.WaitForMessageText(t, conn, "Welcome to WinChat!", 3*time.Second)

	if err := hub.Shutdown(5 * time.Second); err != nil {
		t.Errorf("Shutdown returned %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
