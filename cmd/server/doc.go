// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

/*
Package main is the entry point for the Roomcast server.

Roomcast is a group-broadcast channel: authenticated clients connect to
/ws/call/{room_name}, join the group chat_{room_name}, and every
{"message": ...} they send is delivered to all members of that group as
{"message": ..., "user": ...}.

# Startup

 1. Configuration: koanf v2 (defaults, optional config.yaml, environment)
 2. Logging: zerolog, level and format from LOG_LEVEL / LOG_FORMAT
 3. Authentication: JWT, Basic or both (AUTH_MODE)
 4. Room authorization: Casbin (CASBIN_ENABLED)
 5. Hub: registry, dispatcher and session factory
 6. Supervisor tree: NATS and relay (NATS_ENABLED), hub, HTTP server

# Configuration

	export JWT_SECRET=$(openssl rand -base64 32)
	export CORS_ORIGINS=https://app.example.com
	./roomcast

Multi-node deployments point every node at the same broker:

	export NATS_ENABLED=true
	export NATS_EMBEDDED=false
	export NATS_URL=nats://nats:4222
	./roomcast

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. Every open session is closed
with code 1001 (going away) and the HTTP server drains within
HTTP_SHUTDOWN_TIMEOUT.
*/
package main
