// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

/*
Package websocket implements the room broadcast channel.

A client connects to /ws/call/{room_name}, is authenticated before the
upgrade, joins the group "chat_<room_name>" and from then on every text
frame it sends is delivered to every member of that group, itself included.
Leaving is implicit: closing the connection removes the session from its
group.

Key Components:

  - Registry: group key -> member handles, one lock, empty groups evicted
  - Dispatcher: concurrent fan-out over a member snapshot with per-recipient
    failure isolation
  - Session: one connection, its admission, its inbound/outbound pumps
  - Hub: owns the registry, tracks sessions, relays to other nodes

Architecture:

	  client ──► readPump ──► Session.Receive ──► Hub.Broadcast
	                                                   │
	                              ┌────────────────────┼───────────────┐
	                              ▼                    ▼               ▼
	                        Dispatcher            Relay.Publish   (other nodes)
	                              │                                    │
	               ┌──────────────┼──────────────┐                     │
	               ▼              ▼              ▼                     ▼
	          Session A      Session B      Session C   ◄──── Hub.HandleRelayed
	           send queue     send queue     send queue
	               │              │              │
	           writePump      writePump      writePump

Each session has two goroutines:
  - readPump: reads frames, answers pongs, hands payloads to Receive
  - writePump: drains the bounded send queue and pings every PongWait*9/10

Wire format:

Inbound frames are JSON objects with a string "message" field. Outbound
frames are {"message": <text>, "user": <sender username>}. A frame that
does not parse gets {"error": "malformed_payload", "detail": ...} back on
the same socket and the session stays open; other members see nothing.

Backpressure:

Delivery never blocks a sender for longer than the delivery timeout. A
recipient whose queue stays full for that long is closed with status 1013
(try again later) and removed from its group.

Usage Example:

	hub := websocket.NewHub(websocket.NewSessionConfig(cfg.Realtime),
	    websocket.WithRoomAuthorizer(enforcer))
	go hub.RunWithContext(ctx)

	sess := hub.NewSession()
	if err := sess.Admit(subject, room, acceptor); err != nil {
	    return
	}
	_ = sess.Serve(ctx)

Thread Safety:

Registry, Dispatcher, Session and Hub are safe for concurrent use. Session
writes to its connection only from its write pump; close frames use
WriteControl, which gorilla/websocket allows concurrently.
*/
package websocket
