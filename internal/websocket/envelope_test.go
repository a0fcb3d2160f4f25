// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package websocket

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		maxLen  int
		want    string
		wantErr bool
	}{
		{"plain", `{"message":"hello"}`, 64, "hello", false},
		{"empty message", `{"message":""}`, 64, "", false},
		{"extra fields ignored", `{"message":"hi","user":"mallory"}`, 64, "hi", false},
		{"unicode at limit", `{"message":"héllo wörld"}`, 11, "héllo wörld", false},
		{"missing field", `{"text":"hi"}`, 64, "", true},
		{"null message", `{"message":null}`, 64, "", true},
		{"number message", `{"message":5}`, 64, "", true},
		{"not json", `hello`, 64, "", true},
		{"array", `["hello"]`, 64, "", true},
		{"too long", `{"message":"` + strings.Repeat("a", 11) + `"}`, 10, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tt.raw), tt.maxLen)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedPayload) {
					t.Fatalf("DecodeInbound() error = %v, want ErrMalformedPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeInbound() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeInbound() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeInbound_NoLimit(t *testing.T) {
	long := strings.Repeat("a", 10000)
	got, err := DecodeInbound([]byte(`{"message":"`+long+`"}`), 0)
	if err != nil || got != long {
		t.Errorf("DecodeInbound() without limit failed: %v", err)
	}
}

func TestEncodeEnvelope(t *testing.T) {
	data, err := EncodeEnvelope(NewChatEnvelope("hi", "alice"))
	if err != nil {
		t.Fatalf("EncodeEnvelope() error = %v", err)
	}
	if string(data) != `{"message":"hi","user":"alice"}` {
		t.Errorf("EncodeEnvelope() = %s", data)
	}

	if _, err := EncodeEnvelope(Envelope{Kind: "presence"}); err == nil {
		t.Error("EncodeEnvelope() accepted unknown kind")
	}
}

func TestEncodeErrorFrame(t *testing.T) {
	if got := string(encodeErrorFrame("rate_limited", "")); got != `{"error":"rate_limited"}` {
		t.Errorf("encodeErrorFrame() = %s", got)
	}
	if got := string(encodeErrorFrame("malformed_payload", "bad")); got != `{"error":"malformed_payload","detail":"bad"}` {
		t.Errorf("encodeErrorFrame() = %s", got)
	}
}

func TestGroupKey(t *testing.T) {
	if got := GroupKey("chat_", "lobby"); got != "chat_lobby" {
		t.Errorf("GroupKey() = %q", got)
	}
}

func TestRelayMessageRoundTrip(t *testing.T) {
	data, err := encodeRelayMessage("chat_lobby", "node-1", NewChatEnvelope("hi", "alice"))
	if err != nil {
		t.Fatal(err)
	}
	msg, err := DecodeRelayMessage(data)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Group != "chat_lobby" || msg.Origin != "node-1" || msg.Envelope() != NewChatEnvelope("hi", "alice") {
		t.Errorf("decoded = %+v", msg)
	}

	if _, err := DecodeRelayMessage([]byte(`{"message":"x"}`)); err == nil {
		t.Error("DecodeRelayMessage() accepted a message without group")
	}
}
