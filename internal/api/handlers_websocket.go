// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/roomcast/internal/auth"
	"github.com/tomtom215/roomcast/internal/logging"
	ws "github.com/tomtom215/roomcast/internal/websocket"
)

// WebSocket handles /ws/call/{room_name}. The request is authenticated
// before the upgrade; the session then decides whether to accept or reject
// the handshake.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room_name")

	var subject *auth.AuthSubject
	if h.authenticator != nil {
		s, err := h.authenticator.Authenticate(r.Context(), r)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("websocket handshake without valid credentials")
		} else {
			subject = s
		}
	}

	sess := h.hub.NewSession()
	acceptor := &upgradeAcceptor{
		w:         w,
		r:         r,
		upgrader:  h.getUpgrader(),
		challenge: h.challenge(),
	}
	if err := sess.Admit(subject, room, acceptor); err != nil {
		logging.Ctx(r.Context()).Debug().
			Err(err).
			Str("room", sanitizeLogValue(room)).
			Msg("websocket session not admitted")
		return
	}

	// The session outlives the handshake request.
	_ = sess.Serve(context.WithoutCancel(r.Context()))
}

// getUpgrader returns the configured WebSocket upgrader.
func (h *Handler) getUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Browsers always send Origin; a missing one would bypass CORS.
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

func (h *Handler) challenge() string {
	if c, ok := h.authenticator.(interface{ Challenge() string }); ok {
		return c.Challenge()
	}
	return ""
}

// upgradeAcceptor completes or refuses a handshake on behalf of a session.
type upgradeAcceptor struct {
	w         http.ResponseWriter
	r         *http.Request
	upgrader  *websocket.Upgrader
	challenge string
}

// Accept upgrades the connection. On failure gorilla has already written
// the HTTP error response.
func (a *upgradeAcceptor) Accept() (ws.Conn, error) {
	conn, err := a.upgrader.Upgrade(a.w, a.r, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Reject answers the handshake with a JSON error instead of upgrading.
func (a *upgradeAcceptor) Reject(err error) {
	switch {
	case errors.Is(err, ws.ErrUnauthorized):
		if a.challenge != "" {
			a.w.Header().Set("WWW-Authenticate", a.challenge)
		}
		WriteError(a.w, a.r, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
	case errors.Is(err, ws.ErrForbidden):
		WriteError(a.w, a.r, http.StatusForbidden, ErrCodeForbidden, "Access to this room is denied")
	case errors.Is(err, ws.ErrInvalidRoom):
		WriteError(a.w, a.r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid room name")
	default:
		WriteError(a.w, a.r, http.StatusInternalServerError, ErrCodeInternalError, "Handshake failed")
	}
}
