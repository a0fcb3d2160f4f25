// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/tomtom215/roomcast/internal/config"
)

// MultiAuthenticator tries authenticators in priority order.
//
// ErrNoCredentials moves on to the next authenticator. Any other error
// (invalid or expired credentials) stops the chain: credentials were
// presented and they were bad.
type MultiAuthenticator struct {
	authenticators []Authenticator
}

// NewMultiAuthenticator sorts authenticators by Priority.
func NewMultiAuthenticator(authenticators ...Authenticator) *MultiAuthenticator {
	sorted := append([]Authenticator(nil), authenticators...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &MultiAuthenticator{authenticators: sorted}
}

// Authenticate tries each authenticator in priority order.
func (m *MultiAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*AuthSubject, error) {
	for _, a := range m.authenticators {
		subject, err := a.Authenticate(ctx, r)
		if err == nil {
			return subject, nil
		}
		if !errors.Is(err, ErrNoCredentials) {
			return nil, err
		}
	}
	return nil, ErrNoCredentials
}

// Name returns the authenticator name.
func (m *MultiAuthenticator) Name() string {
	return string(AuthModeMulti)
}

// Priority returns 0.
func (m *MultiAuthenticator) Priority() int {
	return 0
}

// NewAuthenticator builds the authenticator selected by cfg.AuthMode.
func NewAuthenticator(cfg *config.SecurityConfig) (Authenticator, error) {
	mode, err := ParseAuthMode(cfg.AuthMode)
	if err != nil {
		return nil, err
	}

	var jwtAuth, basicAuth Authenticator
	if mode == AuthModeJWT || mode == AuthModeMulti {
		manager, err := NewJWTManager(cfg)
		if err != nil {
			return nil, err
		}
		jwtAuth = NewJWTAuthenticator(manager)
	}
	if mode == AuthModeBasic || mode == AuthModeMulti {
		manager, err := NewBasicAuthManager(cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("basic auth: %w", err)
		}
		basicAuth = NewBasicAuthenticator(manager)
	}

	switch mode {
	case AuthModeJWT:
		return jwtAuth, nil
	case AuthModeBasic:
		return basicAuth, nil
	default:
		return NewMultiAuthenticator(jwtAuth, basicAuth), nil
	}
}
