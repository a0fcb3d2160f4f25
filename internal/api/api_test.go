// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/roomcast/internal/auth"
	"github.com/tomtom215/roomcast/internal/authz"
	"github.com/tomtom215/roomcast/internal/config"
	"github.com/tomtom215/roomcast/internal/logging"
	ws "github.com/tomtom215/roomcast/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

const testSecret = "test-secret-with-enough-entropy-0123456789"

// testEnv bundles a router over a real hub with JWT authentication.
type testEnv struct {
	cfg     *config.Config
	hub     *ws.Hub
	handler *Handler
	server  *httptest.Server
	jwt     *auth.JWTManager
}

func testConfig() *config.Config {
	return &config.Config{
		Realtime: config.RealtimeConfig{
			PathPrefix:       "/ws/call",
			GroupPrefix:      "chat_",
			MaxMessageLength: 16,
		},
		Security: config.SecurityConfig{
			AuthMode:          "jwt",
			JWTSecret:         testSecret,
			SessionTimeout:    time.Hour,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: true,
			CORSOrigins:       []string{"http://localhost:3000"},
		},
	}
}

func newTestEnv(t *testing.T, cfg *config.Config, opts ...HandlerOption) *testEnv {
	t.Helper()

	authenticator, err := auth.NewAuthenticator(&cfg.Security)
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	enforcer, err := authz.NewEnforcer(&authz.EnforcerConfig{DefaultRole: "user"})
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	hub := ws.NewHub(ws.NewSessionConfig(cfg.Realtime), ws.WithRoomAuthorizer(enforcer))
	opts = append([]HandlerOption{WithRoomPolicy(enforcer)}, opts...)
	handler := NewHandler(cfg, hub, authenticator, opts...)
	server := httptest.NewServer(NewRouter(handler, authenticator).SetupChi())
	t.Cleanup(func() {
		hub.CloseAll(ws.CloseServerShutdown)
		server.Close()
	})

	return &testEnv{cfg: cfg, hub: hub, handler: handler, server: server, jwt: jwtManager}
}

func (e *testEnv) token(t *testing.T, username, role string) string {
	t.Helper()
	token, err := e.jwt.GenerateToken(username, role)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) (*http.Response, APIResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var decoded APIResponse
	if data, _ := io.ReadAll(resp.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &decoded)
	}
	return resp, decoded
}

// recordingHandle is a registry member that keeps what it receives.
type recordingHandle struct {
	id string

	mu       sync.Mutex
	received []ws.Envelope
}

func (h *recordingHandle) ID() string { return h.id }

func (h *recordingHandle) Deliver(_ context.Context, env ws.Envelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, env)
	return nil
}

func (h *recordingHandle) Received() []ws.Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ws.Envelope(nil), h.received...)
}

type staticRelay bool

func (r staticRelay) IsConnected() bool { return bool(r) }

// dataMap re-decodes the envelope data into a map.
func dataMap(t *testing.T, resp APIResponse) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data is %T, want object", resp.Data)
	}
	return m
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
