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
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/roomcast/internal/auth"
	"github.com/tomtom215/roomcast/internal/config"
	"github.com/tomtom215/roomcast/internal/logging"
	"github.com/tomtom215/roomcast/internal/metrics"
	"github.com/tomtom215/roomcast/internal/validation"
)

// State is the lifecycle position of a session.
type State int

const (
	StateUnauthenticated State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseReason labels why a session ended. Values are metric label values.
type CloseReason string

const (
	CloseClientClosed   CloseReason = "client_closed"
	CloseReadError      CloseReason = "read_error"
	CloseWriteError     CloseReason = "write_error"
	CloseSlowConsumer   CloseReason = "slow_consumer"
	CloseUnauthorized   CloseReason = "unauthorized"
	CloseForbidden      CloseReason = "forbidden"
	CloseInvalidRoom    CloseReason = "invalid_room"
	CloseUpgradeFailed  CloseReason = "upgrade_failed"
	CloseServerShutdown CloseReason = "server_shutdown"
)

// Conn is the subset of *websocket.Conn a session drives.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Acceptor completes or refuses the transport handshake. Reject is called
// at most once and only when Accept is not.
type Acceptor interface {
	Accept() (Conn, error)
	Reject(err error)
}

// Membership is the part of the registry a session needs.
type Membership interface {
	Join(groupKey string, h Handle)
	Leave(groupKey string, h Handle)
}

// Broadcaster fans an envelope out to a group.
type Broadcaster interface {
	Broadcast(ctx context.Context, groupKey string, env Envelope) DeliveryReport
}

// RoomAuthorizer decides whether an identity may join a room.
type RoomAuthorizer interface {
	CanJoin(subject *auth.AuthSubject, room string) (bool, error)
}

// SessionConfig holds per-session limits.
type SessionConfig struct {
	GroupPrefix      string
	SendBuffer       int
	DeliveryTimeout  time.Duration
	WriteWait        time.Duration
	PongWait         time.Duration
	MaxFrameBytes    int64
	MaxMessageLength int
	RatePerSecond    float64
	RateBurst        int
}

// DefaultSessionConfig mirrors the configuration defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		GroupPrefix:      "chat_",
		SendBuffer:       256,
		DeliveryTimeout:  5 * time.Second,
		WriteWait:        10 * time.Second,
		PongWait:         60 * time.Second,
		MaxFrameBytes:    64 * 1024,
		MaxMessageLength: 4096,
		RatePerSecond:    20,
		RateBurst:        40,
	}
}

// NewSessionConfig builds a SessionConfig from the realtime section.
func NewSessionConfig(cfg config.RealtimeConfig) SessionConfig {
	return SessionConfig{
		GroupPrefix:      cfg.GroupPrefix,
		SendBuffer:       cfg.SendBuffer,
		DeliveryTimeout:  cfg.DeliveryTimeout,
		WriteWait:        cfg.WriteWait,
		PongWait:         cfg.PongWait,
		MaxFrameBytes:    cfg.MaxFrameBytes,
		MaxMessageLength: cfg.MaxMessageLength,
		RatePerSecond:    cfg.RatePerSecond,
		RateBurst:        cfg.RateBurst,
	}
}

// GroupKey derives the group key for a room.
func GroupKey(prefix, room string) string {
	return prefix + room
}

// Session is one client connection bound to at most one group.
//
// Lifecycle: Unauthenticated -> Joined -> Closed, or Unauthenticated ->
// Closed when admission fails. Close is idempotent and always leaves the
// group before the transport is released.
type Session struct {
	id          string
	cfg         SessionConfig
	members     Membership
	broadcaster Broadcaster
	authorizer  RoomAuthorizer
	limiter     *rate.Limiter
	onClose     func(*Session)

	mu       sync.Mutex
	state    State
	identity *auth.AuthSubject
	room     string
	groupKey string
	conn     Conn
	reason   CloseReason
	log      zerolog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession creates an unauthenticated session. authorizer may be nil, in
// which case every valid identity may join every valid room.
func NewSession(cfg SessionConfig, members Membership, broadcaster Broadcaster, authorizer RoomAuthorizer) *Session {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSessionConfig().SendBuffer
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = DefaultSessionConfig().PongWait
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = DefaultSessionConfig().WriteWait
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = DefaultSessionConfig().DeliveryTimeout
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	id := uuid.NewString()
	return &Session{
		id:          id,
		cfg:         cfg,
		members:     members,
		broadcaster: broadcaster,
		authorizer:  authorizer,
		limiter:     limiter,
		log:         logging.ForSession(id, "", ""),
		send:        make(chan []byte, cfg.SendBuffer),
		done:        make(chan struct{}),
	}
}

// ID implements Handle.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the admitted identity, or nil before admission.
func (s *Session) Identity() *auth.AuthSubject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// GroupKey returns the joined group key, or "" before admission.
func (s *Session) GroupKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupKey
}

// Room returns the requested room name.
func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// CloseReason returns why the session closed, or "" while open.
func (s *Session) CloseReason() CloseReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} { return s.done }

// Admit validates the identity, the room and the room policy, then accepts
// the transport and joins the group. The checks run in that order and the
// first failure rejects the handshake and closes the session.
func (s *Session) Admit(identity *auth.AuthSubject, room string, acceptor Acceptor) error {
	if s.State() != StateUnauthenticated {
		return ErrSessionClosed
	}

	if !identity.IsValid() {
		return s.refuse(acceptor, ErrUnauthorized, CloseUnauthorized)
	}
	if verr := validation.ValidateRoomName(room); verr != nil {
		return s.refuse(acceptor, ErrInvalidRoom, CloseInvalidRoom)
	}
	if s.authorizer != nil {
		allowed, err := s.authorizer.CanJoin(identity, room)
		if err != nil {
			s.log.Error().Err(err).Str("room", room).Msg("room authorization failed")
			return s.refuse(acceptor, ErrForbidden, CloseForbidden)
		}
		if !allowed {
			return s.refuse(acceptor, ErrForbidden, CloseForbidden)
		}
	}

	conn, err := acceptor.Accept()
	if err != nil {
		metrics.RecordAdmission(string(CloseUpgradeFailed))
		s.Close(CloseUpgradeFailed)
		return err
	}

	groupKey := GroupKey(s.cfg.GroupPrefix, room)

	s.mu.Lock()
	if s.state != StateUnauthenticated {
		s.mu.Unlock()
		_ = conn.Close()
		return ErrSessionClosed
	}
	s.state = StateJoined
	s.identity = identity
	s.room = room
	s.groupKey = groupKey
	s.conn = conn
	s.log = logging.ForSession(s.id, identity.Username, groupKey)
	// Joining under s.mu keeps a concurrent Close from observing Joined
	// before the registry holds the session.
	s.members.Join(groupKey, s)
	s.mu.Unlock()

	metrics.WSConnections.Inc()
	metrics.RecordAdmission("accepted")
	s.log.Info().Msg("session joined")
	return nil
}

func (s *Session) refuse(acceptor Acceptor, err error, reason CloseReason) error {
	metrics.RecordAdmission(string(reason))
	s.log.Debug().Str("reason", string(reason)).Msg("admission refused")
	acceptor.Reject(err)
	s.Close(reason)
	return err
}

// Receive handles one inbound frame: it rate-limits, decodes and broadcasts
// the message to the session's group with the session's username.
func (s *Session) Receive(ctx context.Context, raw []byte) error {
	s.mu.Lock()
	state, identity, groupKey := s.state, s.identity, s.groupKey
	s.mu.Unlock()
	if state != StateJoined {
		return ErrSessionClosed
	}

	if s.limiter != nil && !s.limiter.Allow() {
		metrics.WSErrors.WithLabelValues("rate_limited").Inc()
		return ErrRateLimited
	}

	text, err := DecodeInbound(raw, s.cfg.MaxMessageLength)
	if err != nil {
		metrics.WSErrors.WithLabelValues("malformed_payload").Inc()
		return err
	}
	metrics.WSMessagesReceived.Inc()

	report := s.broadcaster.Broadcast(ctx, groupKey, NewChatEnvelope(text, identity.Username))
	s.log.Debug().
		Int("attempted", report.Attempted).
		Int("delivered", report.Delivered).
		Int("failed", report.Failed).
		Msg("message broadcast")
	return nil
}

// Deliver implements Handle. It queues the encoded envelope for the write
// pump, waiting up to the delivery timeout when the queue is full. A
// recipient that stays full is closed as a slow consumer.
func (s *Session) Deliver(ctx context.Context, env Envelope) error {
	data, err := EncodeEnvelope(env)
	if err != nil {
		return err
	}
	return s.enqueue(ctx, data)
}

func (s *Session) enqueue(ctx context.Context, data []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.send <- data:
		return nil
	default:
	}

	timer := time.NewTimer(s.cfg.DeliveryTimeout)
	defer timer.Stop()

	select {
	case s.send <- data:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		go s.Close(CloseSlowConsumer)
		return ErrDeliveryTimeout
	}
}

// sendError queues an error frame for this session only. It never blocks.
func (s *Session) sendError(code, detail string) {
	select {
	case s.send <- encodeErrorFrame(code, detail):
	default:
		s.log.Debug().Str("error_code", code).Msg("error frame dropped, send queue full")
	}
}

// Close ends the session. Only the first call has any effect.
func (s *Session) Close(reason CloseReason) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		prev := s.state
		s.state = StateClosed
		s.reason = reason
		conn := s.conn
		groupKey := s.groupKey
		log := s.log
		s.mu.Unlock()

		if prev == StateJoined {
			s.members.Leave(groupKey, s)
		}
		close(s.done)

		if conn != nil {
			msg := websocket.FormatCloseMessage(closeCode(reason), string(reason))
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.WriteWait))
			_ = conn.Close()
		}

		if s.onClose != nil {
			s.onClose(s)
		}

		if prev == StateJoined {
			metrics.RecordSessionClosed(string(reason))
			log.Info().Str("reason", string(reason)).Msg("session closed")
		}
	})
}

func closeCode(reason CloseReason) int {
	switch reason {
	case CloseServerShutdown:
		return websocket.CloseGoingAway
	case CloseSlowConsumer:
		return websocket.CloseTryAgainLater
	case CloseReadError:
		return websocket.CloseProtocolError
	default:
		return websocket.CloseNormalClosure
	}
}

// Serve runs the read and write pumps until the session closes. It returns
// ErrSessionClosed if the session was never admitted.
func (s *Session) Serve(ctx context.Context) error {
	s.mu.Lock()
	state, conn := s.state, s.conn
	s.mu.Unlock()
	if state != StateJoined || conn == nil {
		return ErrSessionClosed
	}

	go s.writePump(conn)
	s.readPump(ctx, conn)
	return nil
}

func (s *Session) readPump(ctx context.Context, conn Conn) {
	if s.cfg.MaxFrameBytes > 0 {
		conn.SetReadLimit(s.cfg.MaxFrameBytes)
	}
	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait)); err != nil {
		s.log.Error().Err(err).Msg("failed to set read deadline")
		s.Close(CloseReadError)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.Close(s.readFailureReason(err))
			return
		}

		if err := s.Receive(ctx, raw); err != nil {
			switch {
			case errors.Is(err, ErrMalformedPayload):
				s.sendError("malformed_payload", err.Error())
			case errors.Is(err, ErrRateLimited):
				s.sendError("rate_limited", "")
			case errors.Is(err, ErrSessionClosed):
				return
			}
		}
	}
}

func (s *Session) readFailureReason(err error) CloseReason {
	select {
	case <-s.done:
		// Already closed locally; the read error is a consequence.
		return CloseClientClosed
	default:
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			s.log.Warn().Err(err).Msg("unexpected websocket close")
		}
		return CloseClientClosed
	}
	s.log.Debug().Err(err).Msg("websocket read failed")
	metrics.WSErrors.WithLabelValues("read").Inc()
	return CloseReadError
}

func (s *Session) writePump(conn Conn) {
	pingPeriod := (s.cfg.PongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return

		case data := <-s.send:
			if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait)); err != nil {
				s.writeFailed(err)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.writeFailed(err)
				return
			}
			metrics.WSMessagesSent.Inc()

		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait)); err != nil {
				s.writeFailed(err)
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.writeFailed(err)
				return
			}
		}
	}
}

func (s *Session) writeFailed(err error) {
	select {
	case <-s.done:
		return
	default:
	}
	metrics.WSErrors.WithLabelValues("write").Inc()
	s.log.Debug().Err(err).Msg("websocket write failed")
	s.Close(CloseWriteError)
}
