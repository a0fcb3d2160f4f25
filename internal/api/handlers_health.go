// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package api

import (
	"net/http"
	"time"
)

// HealthLive handles liveness probes. It only reports that the process is
// serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probes. It returns 503 until the hub is
// wired and, when NATS relay is enabled, the relay is connected.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	relayEnabled := h.config != nil && h.config.NATS.Enabled
	relayConnected := h.relay != nil && h.relay.IsConnected()

	ready := h.hub != nil && (!relayEnabled || relayConnected)

	data := map[string]interface{}{
		"ready":    ready,
		"sessions": 0,
		"relay": map[string]bool{
			"enabled":   relayEnabled,
			"connected": relayConnected,
		},
	}
	if h.hub != nil {
		data["sessions"] = h.hub.SessionCount()
		data["node_id"] = h.hub.NodeID()
	}

	rw := NewResponseWriter(w, r)
	if !ready {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service not ready", data)
		return
	}
	rw.Success(data)
}
