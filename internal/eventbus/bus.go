// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/roomcast/internal/logging"
	"github.com/tomtom215/roomcast/internal/metrics"
)

// ErrBusClosed is returned by operations on a closed Bus.
var ErrBusClosed = errors.New("event bus closed")

// Handler processes one relayed payload.
type Handler func(ctx context.Context, data []byte) error

// Bus publishes and receives room broadcasts over core NATS.
type Bus struct {
	nc      *nats.Conn
	breaker *gobreaker.CircuitBreaker[any]
	prefix  string

	mu     sync.RWMutex
	subs   []*nats.Subscription
	closed bool
}

// Connect dials NATS. The connection retries in the background when the
// server is not yet reachable, so Connect succeeds before the first
// successful dial.
func Connect(cfg Config) (*Bus, error) {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = DefaultConfig().Breaker
	}

	log := logging.WithComponent("eventbus")
	nc, err := nats.Connect(cfg.URL,
		nats.Name("roomcast"),
		nats.NoEcho(),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			event := log.Error().Err(err)
			if sub != nil {
				event = event.Str("subject", sub.Subject)
			}
			event.Msg("NATS error")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &Bus{
		nc:      nc,
		breaker: NewCircuitBreaker(cfg.Breaker),
		prefix:  cfg.SubjectPrefix,
	}, nil
}

// Subject returns the subject a group's broadcasts travel on.
func (b *Bus) Subject(groupKey string) string {
	return b.prefix + "." + groupKey
}

// Publish sends data on the group's subject through the circuit breaker.
// While the breaker is open it fails fast with gobreaker.ErrOpenState.
func (b *Bus) Publish(ctx context.Context, groupKey string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrBusClosed
	}

	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.nc.Publish(b.Subject(groupKey), data)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", groupKey, err)
	}
	return nil
}

// Subscribe delivers every relayed broadcast to handler. Handler errors
// are logged and counted; they do not stop the subscription.
func (b *Bus) Subscribe(handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}

	sub, err := b.nc.Subscribe(b.prefix+".>", func(msg *nats.Msg) {
		if err := handler(context.Background(), msg.Data); err != nil {
			metrics.RecordRelayError("handle")
			logging.Warn().
				Str("component", "eventbus").
				Str("subject", msg.Subject).
				Err(err).
				Msg("relayed message rejected")
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s.>: %w", b.prefix, err)
	}
	b.subs = append(b.subs, sub)

	// Make sure the server has the interest registered before returning.
	if err := b.nc.Flush(); err != nil && !errors.Is(err, nats.ErrConnectionReconnecting) {
		return fmt.Errorf("flush subscription: %w", err)
	}
	return nil
}

// IsConnected reports whether the NATS connection is currently up.
func (b *Bus) IsConnected() bool {
	return b.nc.IsConnected()
}

// BreakerState returns the publish breaker state.
func (b *Bus) BreakerState() gobreaker.State {
	return b.breaker.State()
}

// Close drains subscriptions and closes the connection. Safe to call more
// than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	b.nc.Close()
	return nil
}
