// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

/*
Package api provides the HTTP surface of Roomcast.

Routes:

  - GET  /ws/call/{room_name}             WebSocket transport (also with a trailing slash)
  - GET  /api/v1/health/live              liveness probe
  - GET  /api/v1/health/ready             readiness probe (hub wired, relay connected if enabled)
  - GET  /api/v1/rooms                    active rooms and member counts (authenticated)
  - POST /api/v1/rooms/{room_name}/messages  server-side publish into a room (authenticated)
  - GET  /metrics                         Prometheus exposition

Middleware Stack:

Every request passes through request ID assignment, real IP extraction,
panic recovery, CORS and Prometheus request metrics. Route groups add their
own rate limits (go-chi/httprate); /api/v1 additionally sets security
headers, gzip-compresses responses and requires authentication.

WebSocket handshakes authenticate inside the handler rather than through
middleware, so a missing identity, a denied room and an invalid room name
are refused with 401, 403 and 400 respectively before the upgrade.

Responses:

JSON endpoints answer with the APIResponse envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "FORBIDDEN", "message": "..."}}
*/
package api
