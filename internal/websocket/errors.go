// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package websocket

import "errors"

// Session and delivery errors. Each is terminal for at most one session or
// one (sender, recipient) pair; none of them affects other sessions.
var (
	// ErrUnauthorized: the identity is missing, unnamed or expired.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden: the identity is valid but the room policy denies it.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidRoom: the room name is not a valid room token.
	ErrInvalidRoom = errors.New("invalid room name")

	// ErrMalformedPayload: an inbound frame is not {"message": string}.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrRateLimited: the session exceeded its inbound message rate.
	ErrRateLimited = errors.New("rate limited")

	// ErrDeliveryTimeout: a recipient's outbound queue stayed full for the
	// whole delivery timeout.
	ErrDeliveryTimeout = errors.New("delivery timeout")

	// ErrSessionClosed: the session is closed or was never admitted.
	ErrSessionClosed = errors.New("session closed")
)
