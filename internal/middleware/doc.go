// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

/*
Package middleware provides HTTP middleware shared by the API and the
WebSocket endpoint.

Key Components:

  - RequestID: request ID header plus request/correlation IDs in the
    logging context
  - PrometheusMetrics: request count, latency and in-flight gauge labelled
    by chi route pattern; passes Hijack through for WebSocket upgrades
  - Compression: gzip for JSON API responses

All middleware has the chi signature func(http.Handler) http.Handler:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.Compression)
	    ...
	})
*/
package middleware
