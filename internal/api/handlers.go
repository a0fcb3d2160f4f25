// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/roomcast/internal/auth"
	"github.com/tomtom215/roomcast/internal/config"
	ws "github.com/tomtom215/roomcast/internal/websocket"
)

// RoomPolicy decides which rooms an identity may use over HTTP. The
// authz.Enforcer implements it.
type RoomPolicy interface {
	CanPublish(subject *auth.AuthSubject, room string) (bool, error)
	CanList(subject *auth.AuthSubject) (bool, error)
}

// RelayHealth reports message bus connectivity for readiness.
type RelayHealth interface {
	IsConnected() bool
}

// Handler serves the HTTP endpoints.
type Handler struct {
	config        *config.Config
	hub           *ws.Hub
	authenticator auth.Authenticator
	policy        RoomPolicy
	relay         RelayHealth
	startTime     time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRoomPolicy enables per-room authorization on the HTTP API.
func WithRoomPolicy(p RoomPolicy) HandlerOption {
	return func(h *Handler) { h.policy = p }
}

// WithRelayHealth makes readiness depend on relay connectivity.
func WithRelayHealth(r RelayHealth) HandlerOption {
	return func(h *Handler) { h.relay = r }
}

// NewHandler creates a Handler.
func NewHandler(cfg *config.Config, hub *ws.Hub, authenticator auth.Authenticator, opts ...HandlerOption) *Handler {
	h := &Handler{
		config:        cfg,
		hub:           hub,
		authenticator: authenticator,
		startTime:     time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// sanitizeLogValue escapes control characters in client-supplied values
// before they reach the logs.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
