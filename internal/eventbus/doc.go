// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

/*
Package eventbus relays room broadcasts between Roomcast nodes over NATS.

Each node publishes every locally originated broadcast to
"<prefix>.<group key>" and subscribes to "<prefix>.>". Core NATS
(at-most-once, no JetStream) is used: a relayed chat message that is lost
while a node is disconnected is not replayed, matching the at-most-once
delivery of the sockets themselves.

Key Components:

  - Bus: NATS connection with reconnect handling and a circuit breaker
    around publishes
  - EmbeddedServer: in-process nats-server for single-binary deployments
    and tests
  - NewCircuitBreaker: gobreaker settings with state-change metrics

Usage:

	srv, _ := eventbus.NewEmbeddedServer(eventbus.ServerConfig{Host: "127.0.0.1", Port: 4222})
	bus, _ := eventbus.Connect(eventbus.Config{URL: srv.ClientURL(), SubjectPrefix: "roomcast.group"})
	_ = bus.Subscribe(hub.HandleRelayed)
	hub.SetRelay(bus)
*/
package eventbus
