// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

/*
Package metrics exposes Prometheus instrumentation for Roomcast.

All collectors are registered with the default registry through promauto and
served at /metrics.

# Available Metrics

HTTP:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests

Sessions:
  - websocket_connections
  - websocket_admissions_total{result}
  - websocket_messages_received_total, websocket_messages_sent_total
  - websocket_errors_total{error_type}
  - websocket_sessions_closed_total{reason}

Groups and fan-out:
  - broadcast_groups_active, broadcast_group_members
  - broadcasts_total{origin}
  - broadcast_fanout_members, broadcast_duration_seconds
  - broadcast_delivery_failures_total{reason}

Relay:
  - relay_messages_published_total, relay_messages_received_total
  - relay_errors_total{stage}
  - circuit_breaker_state{name}

Authorization:
  - authz_decisions_total{action,result}
*/
package metrics
