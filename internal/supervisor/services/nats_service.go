// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/roomcast/internal/eventbus"
	"github.com/tomtom215/roomcast/internal/logging"
	"github.com/tomtom215/roomcast/internal/websocket"
)

// NATSServerService runs the embedded NATS server for single-node
// deployments. The relay connects to it like any external broker.
type NATSServerService struct {
	cfg             eventbus.ServerConfig
	shutdownTimeout time.Duration
	name            string

	mu        sync.RWMutex
	clientURL string
}

// NewNATSServerService creates the wrapper.
func NewNATSServerService(cfg eventbus.ServerConfig, shutdownTimeout time.Duration) *NATSServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSServerService{
		cfg:             cfg,
		shutdownTimeout: shutdownTimeout,
		name:            "nats-server",
	}
}

// Serve implements suture.Service. A server that fails to start is
// returned as an error so suture retries with backoff.
func (s *NATSServerService) Serve(ctx context.Context) error {
	srv, err := eventbus.NewEmbeddedServer(s.cfg)
	if err != nil {
		return fmt.Errorf("embedded NATS server start failed: %w", err)
	}

	s.mu.Lock()
	s.clientURL = srv.ClientURL()
	s.mu.Unlock()
	logging.Info().Str("url", srv.ClientURL()).Msg("embedded NATS server started")

	<-ctx.Done()

	s.mu.Lock()
	s.clientURL = ""
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("embedded NATS server shutdown incomplete")
	}
	return ctx.Err()
}

// ClientURL returns the running server's URL, or "" when stopped.
func (s *NATSServerService) ClientURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientURL
}

// String names the service in supervisor logs.
func (s *NATSServerService) String() string {
	return s.name
}

// RelayTarget is the hub side of the relay: it receives broadcasts from
// other nodes and publishes its own through the installed relay.
type RelayTarget interface {
	HandleRelayed(ctx context.Context, data []byte) error
	SetRelay(r websocket.Relay)
}

// RelayService connects the hub to the NATS relay. While it runs, local
// broadcasts are published to NATS and broadcasts from other nodes are
// dispatched locally. On shutdown the hub reverts to local-only delivery.
type RelayService struct {
	cfg    eventbus.Config
	target RelayTarget
	name   string

	mu  sync.RWMutex
	bus *eventbus.Bus
}

// NewRelayService creates the wrapper.
func NewRelayService(cfg eventbus.Config, target RelayTarget) *RelayService {
	return &RelayService{
		cfg:    cfg,
		target: target,
		name:   "nats-relay",
	}
}

// Serve implements suture.Service.
func (s *RelayService) Serve(ctx context.Context) error {
	bus, err := eventbus.Connect(s.cfg)
	if err != nil {
		return fmt.Errorf("relay connect failed: %w", err)
	}
	if err := bus.Subscribe(s.target.HandleRelayed); err != nil {
		_ = bus.Close()
		return fmt.Errorf("relay subscribe failed: %w", err)
	}

	s.mu.Lock()
	s.bus = bus
	s.mu.Unlock()
	s.target.SetRelay(bus)
	logging.Info().Str("url", s.cfg.URL).Str("subject", bus.Subject(">")).Msg("relay started")

	<-ctx.Done()

	s.target.SetRelay(nil)
	s.mu.Lock()
	s.bus = nil
	s.mu.Unlock()
	_ = bus.Close()
	return ctx.Err()
}

// IsConnected reports relay connectivity for readiness probes.
func (s *RelayService) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bus != nil && s.bus.IsConnected()
}

// String names the service in supervisor logs.
func (s *RelayService) String() string {
	return s.name
}
