// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package websocket

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// Relay forwards locally originated broadcasts to other nodes.
type Relay interface {
	Publish(ctx context.Context, groupKey string, data []byte) error
}

// RelayMessage is the cross-node wire form of a broadcast. Origin is the
// publishing node's ID so a node can drop its own echoes.
type RelayMessage struct {
	Group   string `json:"group"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	User    string `json:"user"`
	Origin  string `json:"origin"`
}

// Envelope converts the relayed message back to a local envelope.
func (m RelayMessage) Envelope() Envelope {
	return Envelope{Kind: m.Kind, Message: m.Message, User: m.User}
}

func encodeRelayMessage(groupKey, origin string, env Envelope) ([]byte, error) {
	return json.Marshal(RelayMessage{
		Group:   groupKey,
		Kind:    env.Kind,
		Message: env.Message,
		User:    env.User,
		Origin:  origin,
	})
}

// DecodeRelayMessage parses a relayed broadcast.
func DecodeRelayMessage(data []byte) (RelayMessage, error) {
	var m RelayMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode relay message: %w", err)
	}
	if m.Group == "" {
		return m, fmt.Errorf("decode relay message: missing group")
	}
	return m, nil
}
