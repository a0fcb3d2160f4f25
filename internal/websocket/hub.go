// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/roomcast/internal/logging"
	"github.com/tomtom215/roomcast/internal/metrics"
	"github.com/tomtom215/roomcast/internal/validation"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Broadcast origins, used as metric labels.
const (
	OriginSession = "session"
	OriginAPI     = "api"
	OriginRelay   = "relay"
)

// Hub owns the registry and dispatcher and tracks every live session.
type Hub struct {
	registry   *Registry
	dispatcher *Dispatcher
	cfg        SessionConfig
	authorizer RoomAuthorizer
	nodeID     string

	mu       sync.RWMutex
	sessions map[string]*Session
	relay    Relay
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithRoomAuthorizer sets the room policy applied at admission.
func WithRoomAuthorizer(a RoomAuthorizer) HubOption {
	return func(h *Hub) { h.authorizer = a }
}

// WithRelay forwards local broadcasts to other nodes.
func WithRelay(r Relay) HubOption {
	return func(h *Hub) { h.relay = r }
}

// NewHub creates a hub.
func NewHub(cfg SessionConfig, opts ...HubOption) *Hub {
	registry := NewRegistry()
	h := &Hub{
		registry:   registry,
		dispatcher: NewDispatcher(registry),
		cfg:        cfg,
		nodeID:     uuid.NewString(),
		sessions:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetRelay installs the relay after construction, once the message bus is
// connected.
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	h.relay = r
	h.mu.Unlock()
}

// NodeID identifies this hub on the relay.
func (h *Hub) NodeID() string { return h.nodeID }

// Registry exposes the membership registry.
func (h *Hub) Registry() *Registry { return h.registry }

// GroupKey derives the group key for room.
func (h *Hub) GroupKey(room string) string {
	return GroupKey(h.cfg.GroupPrefix, room)
}

// NewSession creates a session bound to this hub.
func (h *Hub) NewSession() *Session {
	s := NewSession(h.cfg, h.registry, h, h.authorizer)
	s.onClose = h.forget

	h.mu.Lock()
	h.sessions[s.ID()] = s
	h.mu.Unlock()
	return s
}

func (h *Hub) forget(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.ID())
	h.mu.Unlock()
}

// SessionCount returns the number of sessions not yet closed.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Groups lists the non-empty groups.
func (h *Hub) Groups() []GroupInfo {
	return h.registry.Groups()
}

// Broadcast delivers a session-originated envelope locally and relays it.
func (h *Hub) Broadcast(ctx context.Context, groupKey string, env Envelope) DeliveryReport {
	report := h.dispatch(ctx, OriginSession, groupKey, env)
	h.relayOut(ctx, groupKey, env)
	return report
}

// Publish broadcasts a message into room on behalf of user, the entry point
// for server-side producers.
func (h *Hub) Publish(ctx context.Context, room, user, message string) (DeliveryReport, error) {
	if verr := validation.ValidateRoomName(room); verr != nil {
		return DeliveryReport{}, ErrInvalidRoom
	}
	groupKey := h.GroupKey(room)
	env := NewChatEnvelope(message, user)
	report := h.dispatch(ctx, OriginAPI, groupKey, env)
	h.relayOut(ctx, groupKey, env)
	return report, nil
}

// HandleRelayed dispatches a broadcast received from another node. The
// hub's own messages are ignored.
func (h *Hub) HandleRelayed(ctx context.Context, data []byte) error {
	msg, err := DecodeRelayMessage(data)
	if err != nil {
		metrics.RecordRelayError("decode")
		return err
	}
	if msg.Origin == h.nodeID {
		return nil
	}
	metrics.RelayReceived.Inc()
	h.dispatch(ctx, OriginRelay, msg.Group, msg.Envelope())
	return nil
}

func (h *Hub) dispatch(ctx context.Context, origin, groupKey string, env Envelope) DeliveryReport {
	start := time.Now()
	report := h.dispatcher.Broadcast(ctx, groupKey, env)
	metrics.RecordBroadcast(origin, report.Attempted, time.Since(start))
	return report
}

// relayOut never fails the broadcast; local delivery has already happened.
func (h *Hub) relayOut(ctx context.Context, groupKey string, env Envelope) {
	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay == nil {
		return
	}

	data, err := encodeRelayMessage(groupKey, h.nodeID, env)
	if err != nil {
		metrics.RecordRelayError("encode")
		logging.Error().Err(err).Str("component", "websocket-hub").Msg("failed to encode relay message")
		return
	}
	if err := relay.Publish(ctx, groupKey, data); err != nil {
		metrics.RecordRelayError("publish")
		logging.Warn().Err(err).
			Str("component", "websocket-hub").
			Str("group", groupKey).
			Msg("relay publish failed")
		return
	}
	metrics.RelayPublished.Inc()
}

// RunWithContext blocks until ctx is done, then closes every session.
// Returns ctx.Err().
func (h *Hub) RunWithContext(ctx context.Context) error {
	logging.Info().Str("component", "websocket-hub").Str("node_id", h.nodeID).Msg("websocket hub started")
	<-ctx.Done()
	h.logGracefulShutdown(ctx)
	return ctx.Err()
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	closed := h.CloseAll(CloseServerShutdown)

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("sessions_closed", closed).
		Msg("websocket hub stopped")
}

// CloseAll closes every tracked session with reason and returns how many
// were closed.
func (h *Hub) CloseAll(reason CloseReason) int {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.Close(reason)
	}
	return len(sessions)
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
