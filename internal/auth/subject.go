// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package auth

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// AuthMode represents the authentication strategy.
type AuthMode string

const (
	// AuthModeBasic uses HTTP Basic Authentication
	AuthModeBasic AuthMode = "basic"
	// AuthModeJWT uses HS256 bearer tokens
	AuthModeJWT AuthMode = "jwt"
	// AuthModeMulti tries JWT then Basic
	AuthModeMulti AuthMode = "multi"
)

// ParseAuthMode converts a string to AuthMode. There is no anonymous mode:
// every connection must carry an identity.
func ParseAuthMode(s string) (AuthMode, error) {
	switch AuthMode(s) {
	case AuthModeBasic, AuthModeJWT, AuthModeMulti:
		return AuthMode(s), nil
	default:
		return "", errors.New("invalid auth mode: " + s)
	}
}

// Standard authentication errors
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")
	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrExpiredCredentials indicates credentials have expired.
	ErrExpiredCredentials = errors.New("credentials expired")
)

// Authenticator resolves the identity behind an HTTP request. The connection
// endpoint runs it before the protocol upgrade.
type Authenticator interface {
	// Authenticate returns the subject or one of the errors above.
	Authenticate(ctx context.Context, r *http.Request) (*AuthSubject, error)
	// Name is used in logs.
	Name() string
	// Priority orders authenticators in multi mode; lower runs first.
	Priority() int
}

// AuthSubject is an authenticated identity. It is immutable once resolved
// and lives as long as the connection that carries it.
type AuthSubject struct {
	// ID is the stable identifier (JWT sub or username).
	ID string `json:"id"`

	// Username is the display label attached to every broadcast the
	// subject sends.
	Username string `json:"username"`

	Roles      []string `json:"roles,omitempty"`
	Issuer     string   `json:"issuer,omitempty"`
	AuthMethod AuthMode `json:"auth_method"`
	IssuedAt   int64    `json:"issued_at,omitempty"`
	ExpiresAt  int64    `json:"expires_at,omitempty"`
}

// HasRole checks if the subject has a specific role.
func (s *AuthSubject) HasRole(role string) bool {
	if role == "" {
		return false
	}
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsExpired reports whether the credentials behind the subject have expired.
func (s *AuthSubject) IsExpired() bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return time.Now().Unix() > s.ExpiresAt
}

// IsValid reports whether s may be admitted to a group: present, named and
// unexpired. Nil-safe.
func (s *AuthSubject) IsValid() bool {
	return s != nil && s.Username != "" && !s.IsExpired()
}

// AuthSubjectFromClaims converts validated JWT claims.
func AuthSubjectFromClaims(claims *Claims) *AuthSubject {
	if claims == nil {
		return nil
	}

	id := claims.Subject
	if id == "" {
		id = claims.Username
	}
	subject := &AuthSubject{
		ID:         id,
		Username:   claims.Username,
		AuthMethod: AuthModeJWT,
		Issuer:     claims.Issuer,
	}
	if subject.Issuer == "" {
		subject.Issuer = "local"
	}
	if claims.Role != "" {
		subject.Roles = []string{claims.Role}
	}
	if claims.ExpiresAt != nil {
		subject.ExpiresAt = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		subject.IssuedAt = claims.IssuedAt.Unix()
	}
	return subject
}
