// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost        = 12
	minPasswordLength = 8
)

// BasicAuthManager verifies a single configured username/password pair.
// The password is bcrypt-hashed once at startup.
type BasicAuthManager struct {
	username     string
	passwordHash []byte
}

// NewBasicAuthManager hashes password. Passwords shorter than 8 characters
// are rejected.
func NewBasicAuthManager(username, password string) (*BasicAuthManager, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &BasicAuthManager{username: username, passwordHash: hash}, nil
}

// Verify reports whether the pair matches. Both comparisons always run.
func (m *BasicAuthManager) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
	return userOK && passOK
}

// WWWAuthenticate is the challenge sent with 401 responses.
func (m *BasicAuthManager) WWWAuthenticate() string {
	return `Basic realm="Roomcast", charset="UTF-8"`
}

// BasicAuthenticator implements Authenticator for HTTP Basic credentials.
// The configured admin receives the "admin" role.
type BasicAuthenticator struct {
	manager *BasicAuthManager
}

// NewBasicAuthenticator creates a new Basic authenticator.
func NewBasicAuthenticator(manager *BasicAuthManager) *BasicAuthenticator {
	return &BasicAuthenticator{manager: manager}
}

// Authenticate validates the Authorization: Basic header.
func (a *BasicAuthenticator) Authenticate(_ context.Context, r *http.Request) (*AuthSubject, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, ErrNoCredentials
	}
	if !a.manager.Verify(username, password) {
		return nil, ErrInvalidCredentials
	}

	return &AuthSubject{
		ID:         username,
		Username:   username,
		Roles:      []string{"admin"},
		Issuer:     "local",
		AuthMethod: AuthModeBasic,
	}, nil
}

// Name returns the authenticator name.
func (a *BasicAuthenticator) Name() string {
	return string(AuthModeBasic)
}

// Priority returns 25; Basic runs after JWT.
func (a *BasicAuthenticator) Priority() int {
	return 25
}

// Challenge returns the WWW-Authenticate header value.
func (a *BasicAuthenticator) Challenge() string {
	return a.manager.WWWAuthenticate()
}
