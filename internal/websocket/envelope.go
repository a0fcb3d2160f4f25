// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package websocket

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/roomcast/internal/validation"
)

// KindChatMessage is the only envelope kind routed to sockets today.
const KindChatMessage = "chat_message"

// Envelope is one broadcast unit: the content and the display label of the
// sender. Kind selects the outbound handler.
type Envelope struct {
	Kind    string
	Message string
	User    string
}

// NewChatEnvelope builds a chat_message envelope.
func NewChatEnvelope(message, user string) Envelope {
	return Envelope{Kind: KindChatMessage, Message: message, User: user}
}

// outboundFrame is the JSON written to every recipient.
type outboundFrame struct {
	Message string `json:"message"`
	User    string `json:"user"`
}

// inboundFrame is the JSON a client sends. A pointer distinguishes an
// absent field from an empty string.
type inboundFrame struct {
	Message *string `json:"message" validate:"required"`
}

// errorFrame reports a rejected inbound frame to its sender only.
type errorFrame struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// EncodeEnvelope renders env as {"message": ..., "user": ...}.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	if env.Kind != "" && env.Kind != KindChatMessage {
		return nil, fmt.Errorf("unsupported envelope kind %q", env.Kind)
	}
	return json.Marshal(outboundFrame{Message: env.Message, User: env.User})
}

// DecodeInbound extracts the message text from a client frame. Anything
// other than a JSON object with a string "message" of at most maxLen
// characters fails with ErrMalformedPayload. maxLen <= 0 disables the limit.
func DecodeInbound(raw []byte, maxLen int) (string, error) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if verr := validation.ValidateStruct(&frame); verr != nil {
		return "", fmt.Errorf("%w: %s", ErrMalformedPayload, verr.Error())
	}
	if maxLen > 0 {
		if verr := validation.ValidateVar("message", *frame.Message, fmt.Sprintf("max=%d", maxLen)); verr != nil {
			return "", fmt.Errorf("%w: %s", ErrMalformedPayload, verr.Error())
		}
	}
	return *frame.Message, nil
}

func encodeErrorFrame(code, detail string) []byte {
	data, err := json.Marshal(errorFrame{Error: code, Detail: detail})
	if err != nil {
		return []byte(`{"error":"` + code + `"}`)
	}
	return data
}
