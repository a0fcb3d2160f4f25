// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/roomcast/internal/config"
	"github.com/tomtom215/roomcast/internal/logging"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		AuthMode:       "jwt",
		JWTSecret:      "test-secret-key-that-is-at-least-32-characters-long",
		SessionTimeout: time.Hour,
		AdminUsername:  "operator",
		AdminPassword:  "operator-password",
	}
}

func TestJWTAuthenticator_TokenSources(t *testing.T) {
	manager, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	a := NewJWTAuthenticator(manager)

	token, err := manager.GenerateToken("alice", "user")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	tests := []struct {
		name  string
		setup func(*http.Request)
	}{
		{"authorization header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: token}) }},
		{"query parameter", func(r *http.Request) {
			q := r.URL.Query()
			q.Set("token", token)
			r.URL.RawQuery = q.Encode()
		}},
		{"header wins over bad cookie", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
			r.AddCookie(&http.Cookie{Name: "token", Value: "garbage"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws/call/lobby/", nil)
			tt.setup(req)

			subject, err := a.Authenticate(context.Background(), req)
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if subject.Username != "alice" || !subject.HasRole("user") {
				t.Errorf("subject = %+v", subject)
			}
			if !subject.IsValid() {
				t.Error("subject should be valid")
			}
		})
	}
}

func TestJWTAuthenticator_Failures(t *testing.T) {
	cfg := testSecurityConfig()
	manager, _ := NewJWTManager(cfg)
	a := NewJWTAuthenticator(manager)

	otherCfg := testSecurityConfig()
	otherCfg.JWTSecret = "a-completely-different-secret-of-32-chars!"
	other, _ := NewJWTManager(otherCfg)
	forged, _ := other.GenerateToken("mallory", "admin")

	expiredCfg := testSecurityConfig()
	expiredCfg.SessionTimeout = -time.Minute
	expiredManager, _ := NewJWTManager(expiredCfg)
	expired, _ := expiredManager.GenerateToken("bob", "user")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Username: "eve"})
	noneToken, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"missing", "", ErrNoCredentials},
		{"wrong scheme", "Token abc", ErrNoCredentials},
		{"wrong secret", "Bearer " + forged, ErrInvalidCredentials},
		{"expired", "Bearer " + expired, ErrExpiredCredentials},
		{"alg none", "Bearer " + noneToken, ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			_, err := a.Authenticate(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewJWTManager_EmptySecret(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestBasicAuthenticator(t *testing.T) {
	manager, err := NewBasicAuthManager("operator", "operator-password")
	if err != nil {
		t.Fatalf("NewBasicAuthManager() error = %v", err)
	}
	a := NewBasicAuthenticator(manager)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("operator", "operator-password")
	subject, err := a.Authenticate(context.Background(), req)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if subject.Username != "operator" || subject.AuthMethod != AuthModeBasic {
		t.Errorf("subject = %+v", subject)
	}

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.SetBasicAuth("operator", "wrong-password")
	if _, err := a.Authenticate(context.Background(), bad); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}

	if _, err := NewBasicAuthManager("operator", "short"); err == nil {
		t.Error("expected error for short password")
	}
}

func TestMultiAuthenticator_FallsThroughOnlyOnMissingCredentials(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.AuthMode = "multi"
	a, err := NewAuthenticator(cfg)
	if err != nil {
		t.Fatalf("NewAuthenticator() error = %v", err)
	}

	basic := httptest.NewRequest(http.MethodGet, "/", nil)
	basic.SetBasicAuth("operator", "operator-password")
	subject, err := a.Authenticate(context.Background(), basic)
	if err != nil || subject.Username != "operator" {
		t.Fatalf("basic via multi: subject=%+v err=%v", subject, err)
	}

	badBearer := httptest.NewRequest(http.MethodGet, "/", nil)
	badBearer.Header.Set("Authorization", "Bearer not-a-token")
	if _, err := a.Authenticate(context.Background(), badBearer); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad bearer via multi error = %v, want ErrInvalidCredentials", err)
	}

	empty := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := a.Authenticate(context.Background(), empty); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("no credentials via multi error = %v", err)
	}
}

func TestNewAuthenticator_RejectsUnknownMode(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.AuthMode = "none"
	if _, err := NewAuthenticator(cfg); err == nil {
		t.Fatal("expected error for auth mode none")
	}
}

func TestAuthSubject_IsValid(t *testing.T) {
	var nilSubject *AuthSubject
	tests := []struct {
		name    string
		subject *AuthSubject
		want    bool
	}{
		{"nil", nilSubject, false},
		{"empty username", &AuthSubject{ID: "x"}, false},
		{"expired", &AuthSubject{Username: "a", ExpiresAt: time.Now().Add(-time.Minute).Unix()}, false},
		{"no expiry", &AuthSubject{Username: "a"}, true},
		{"future expiry", &AuthSubject{Username: "a", ExpiresAt: time.Now().Add(time.Hour).Unix()}, true},
	}
	for _, tt := range tests {
		if got := tt.subject.IsValid(); got != tt.want {
			t.Errorf("%s: IsValid() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	manager, _ := NewJWTManager(testSecurityConfig())
	token, _ := manager.GenerateToken("alice", "user")

	var seen *AuthSubject
	handler := RequireAuth(NewJWTAuthenticator(manager), func(w http.ResponseWriter, _ *http.Request, status int, _, _ string) {
		w.WriteHeader(status)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("authenticated status = %d, want 204", rec.Code)
	}
	if seen == nil || seen.Username != "alice" {
		t.Errorf("subject in context = %+v", seen)
	}
}
