// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/roomcast/internal/auth"
	"github.com/tomtom215/roomcast/internal/middleware"
)

// DefaultWebSocketPath is the transport route prefix.
const DefaultWebSocketPath = "/ws/call"

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	authenticator auth.Authenticator
	chiMiddleware *ChiMiddleware
	wsPath        string
}

// NewRouter creates a router. The middleware is built from the handler's
// security configuration.
func NewRouter(handler *Handler, authenticator auth.Authenticator) *Router {
	chiMw := NewChiMiddleware(nil)
	wsPath := DefaultWebSocketPath
	if handler.config != nil {
		chiMw = NewChiMiddlewareFromConfig(&handler.config.Security)
		if p := strings.TrimRight(handler.config.Realtime.PathPrefix, "/"); p != "" {
			wsPath = p
		}
	}
	return &Router{
		handler:       handler,
		authenticator: authenticator,
		chiMiddleware: chiMw,
		wsPath:        wsPath,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered
	r.Use(middleware.PrometheusMetrics)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.Compression)
		r.Use(auth.RequireAuth(router.authenticator, WriteError))

		r.Get("/rooms", router.handler.ListRooms)
		r.Post("/rooms/{room_name}/messages", router.handler.PublishMessage)
	})

	// WebSocket handshakes authenticate inside the handler so refusals can
	// be mapped per cause.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitWebSocket())
		r.Get(router.wsPath+"/{room_name}", router.handler.WebSocket)
		r.Get(router.wsPath+"/{room_name}/", router.handler.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
