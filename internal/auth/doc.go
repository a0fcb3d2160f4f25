// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

// Package auth resolves the identity behind a connection request.
//
// Identities are issued elsewhere (the CRUD backend signs HS256 tokens with
// the shared JWT_SECRET); this package only validates them. Three modes are
// supported:
//
//   - jwt: Authorization: Bearer, the "token" cookie or the "token" query parameter
//   - basic: a single operator account, bcrypt-verified
//   - multi: jwt first, then basic
//
// The resolved AuthSubject is immutable and its Username becomes the "user"
// label on every message the connection broadcasts.
package auth
