// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// WebSocket session metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of open WebSocket sessions",
		},
	)

	WSAdmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_admissions_total",
			Help: "Connection admission attempts by result",
		},
		[]string{"result"}, // "accepted", "unauthorized", "forbidden", "invalid_room", "upgrade_failed"
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of inbound frames accepted for broadcast",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of frames written to sockets",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"}, // "malformed_payload", "rate_limited", "read", "write"
	)

	WSSessionsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_sessions_closed_total",
			Help: "Sessions closed by reason",
		},
		[]string{"reason"},
	)

	// Group registry / broadcast metrics
	GroupsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_groups_active",
			Help: "Current number of groups with at least one member",
		},
	)

	GroupMembers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_group_members",
			Help: "Current number of registered handles across all groups",
		},
	)

	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcasts_total",
			Help: "Total number of broadcasts by origin",
		},
		[]string{"origin"}, // "session", "api", "relay"
	)

	BroadcastFanout = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broadcast_fanout_members",
			Help:    "Number of members a broadcast was attempted to",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		},
	)

	BroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broadcast_duration_seconds",
			Help:    "Time from snapshot to last delivery attempt",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	DeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_delivery_failures_total",
			Help: "Per-recipient delivery failures by reason",
		},
		[]string{"reason"}, // "timeout", "closed", "other"
	)

	// Relay metrics
	RelayPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_messages_published_total",
			Help: "Broadcasts published to the cross-process relay",
		},
	)

	RelayReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_messages_received_total",
			Help: "Broadcasts received from other processes",
		},
	)

	RelayErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_errors_total",
			Help: "Relay failures by stage",
		},
		[]string{"stage"}, // "publish", "decode", "breaker_open"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Authorization metrics
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Room authorization decisions",
		},
		[]string{"action", "result"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAdmission counts one admission attempt.
func RecordAdmission(result string) {
	WSAdmissions.WithLabelValues(result).Inc()
}

// RecordSessionClosed counts a closed session and decrements the open gauge.
func RecordSessionClosed(reason string) {
	WSSessionsClosed.WithLabelValues(reason).Inc()
	WSConnections.Dec()
}

// RecordBroadcast records one completed fan-out.
func RecordBroadcast(origin string, attempted int, duration time.Duration) {
	BroadcastsTotal.WithLabelValues(origin).Inc()
	BroadcastFanout.Observe(float64(attempted))
	BroadcastDuration.Observe(duration.Seconds())
}

// RecordDeliveryFailure counts a failed per-recipient delivery.
func RecordDeliveryFailure(reason string) {
	DeliveryFailures.WithLabelValues(reason).Inc()
}

// SetRegistrySize publishes the registry's group and member counts.
func SetRegistrySize(groups, members int) {
	GroupsActive.Set(float64(groups))
	GroupMembers.Set(float64(members))
}

// RecordRelayError counts a relay failure at stage.
func RecordRelayError(stage string) {
	RelayErrors.WithLabelValues(stage).Inc()
}

// RecordAuthzDecision counts an authorization decision.
func RecordAuthzDecision(action, result string) {
	AuthzDecisions.WithLabelValues(action, result).Inc()
}

// SetCircuitBreakerState records the breaker state for name.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
