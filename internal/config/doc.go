// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

// Package config loads Roomcast configuration with Koanf v2.
//
// Sources are layered, later ones overriding earlier ones:
//
//  1. Built-in defaults (defaultConfig)
//  2. A YAML file: CONFIG_PATH, else config.yaml, config.yml or /etc/roomcast/
//  3. Environment variables, mapped explicitly (HTTP_PORT, JWT_SECRET, WS_*, NATS_*, LOG_*)
//
// Example config.yaml:
//
//	server:
//	  port: 8000
//	realtime:
//	  group_prefix: chat_
//	  delivery_timeout: 5s
//	security:
//	  auth_mode: jwt
//	  jwt_secret: change-me-to-a-32-character-secret!
//	nats:
//	  enabled: true
//	  embedded_server: true
//
// Validate rejects incomplete authentication settings, wildcard CORS in
// production and non-positive realtime timeouts.
package config
