// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

/*
Package services adapts Roomcast components to suture's Serve(ctx) error
pattern.

  - HTTPServerService: ListenAndServe with graceful Shutdown on cancel
  - WebSocketHubService: closes every session when the tree stops
  - NATSServerService: embedded nats-server for single-node deployments
  - RelayService: connects the hub to NATS; the hub falls back to
    local-only delivery while it is down

Each wrapper implements fmt.Stringer so supervisor events name it.
*/
package services
