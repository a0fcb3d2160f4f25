// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

// Package logging provides the process-wide zerolog logger for Roomcast.
//
// Every package logs through this one logger so that a single LOG_LEVEL and
// LOG_FORMAT setting governs the whole server, including the supervision tree
// which speaks log/slog and is bridged through SlogHandler.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("group", key).Int("members", n).Msg("broadcast")
//	logging.Ctx(ctx).Warn().Err(err).Msg("delivery failed")
//
// # Session Fields
//
// Connection-scoped code attaches a child logger with the session ID, the
// authenticated username and the group key (see ForSession) so a single
// connection can be followed through the log from admission to close.
//
// # Field Names
//
// Output uses the field names time, level, message, error and caller. Request
// scoped entries also carry request_id and correlation_id when present in the
// context.
//
// Always terminate event chains with Msg or Send; an unterminated chain is
// never written.
package logging
