package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimit = 100
	cfg.RateWindow = time.Minute
	cfg.TTL = time.Minute
	cfg.MaxFrameBytes = 1024
	cfg.MaxChannels = 4
	return cfg
}

func newTestServer(t *testing.T, cfg Config) (*httptest.Server, string) {
	t.Helper()
	srv := NewServer("", cfg, nil)
	ts := httptest.NewServer(srv.httpSrv.Handler)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/channel/"
	t.Cleanup(ts.Close)
	return ts, wsURL
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" {
		t.Fatalf("status field = %q, want ok", body.Status)
	}
}

func TestChannelRelaysBothDirections(t *testing.T) {
	_, wsURL := newTestServer(t, testConfig())
	code := "test-code-1"

	first, _, err := websocket.DefaultDialer.Dial(wsURL+code, nil)
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	defer first.Close()

	second, _, err := websocket.DefaultDialer.Dial(wsURL+code, nil)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()

	if err := first.WriteMessage(websocket.BinaryMessage, []byte("hello from first")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, data, err := second.ReadMessage()
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if typ != websocket.BinaryMessage || string(data) != "hello from first" {
		t.Fatalf("second got (%d, %q)", typ, data)
	}

	if err := second.WriteMessage(websocket.BinaryMessage, []byte("hello from second")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, data, err = first.ReadMessage()
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if typ != websocket.BinaryMessage || string(data) != "hello from second" {
		t.Fatalf("first got (%d, %q)", typ, data)
	}
}

func TestOversizedFrameTerminatesPairing(t *testing.T) {
	_, wsURL := newTestServer(t, testConfig())
	code := "test-code-2"

	first, _, err := websocket.DefaultDialer.Dial(wsURL+code, nil)
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	defer first.Close()
	second, _, err := websocket.DefaultDialer.Dial(wsURL+code, nil)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()

	oversized := make([]byte, 2048)
	if err := first.WriteMessage(websocket.BinaryMessage, oversized); err != nil {
		t.Fatalf("write oversized: %v", err)
	}

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := second.ReadMessage(); err == nil {
		t.Fatal("expected pairing to be severed after oversized frame, read succeeded")
	}
}

func TestRateLimitReturns429(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 1
	cfg.RateWindow = time.Minute
	_, wsURL := newTestServer(t, cfg)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"rl-1", nil)
	if err != nil {
		t.Fatalf("first connection should succeed: %v", err)
	}
	defer conn.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"rl-2", nil)
	if err == nil {
		t.Fatal("expected second connection from same IP to be rate limited")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		status := -1
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("status = %d, want 429", status)
	}
}

func TestMailboxCapRefusesNewFirstPeers(t *testing.T) {
	cfg := testConfig()
	cfg.MaxChannels = 1
	_, wsURL := newTestServer(t, cfg)

	first, _, err := websocket.DefaultDialer.Dial(wsURL+"cap-1", nil)
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	defer first.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"cap-2", nil)
	if err != nil {
		t.Fatalf("dial should still upgrade before refusal: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if err == nil {
		t.Fatal("expected close after mailbox cap refusal")
	}
	closeErr, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("expected CloseError, got %T: %v", err, err)
	}
	if closeErr.Code != websocket.ClosePolicyViolation {
		t.Fatalf("close code = %d, want %d", closeErr.Code, websocket.ClosePolicyViolation)
	}
}
