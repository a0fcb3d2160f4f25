// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/roomcast/internal/auth"
	"github.com/tomtom215/roomcast/internal/logging"
	"github.com/tomtom215/roomcast/internal/validation"
	ws "github.com/tomtom215/roomcast/internal/websocket"
)

// maxPublishBodyBytes caps POST /rooms/{room_name}/messages bodies.
const maxPublishBodyBytes = 64 * 1024

// RoomSummary is one active room in the rooms listing.
type RoomSummary struct {
	Room    string `json:"room"`
	Group   string `json:"group"`
	Members int    `json:"members"`
}

// PublishRequest is the body of a server-side publish.
type PublishRequest struct {
	Message *string `json:"message" validate:"required"`
}

// ListRooms returns the active rooms on this node with their member counts.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	subject := auth.SubjectFromContext(r.Context())

	if h.policy != nil {
		allowed, err := h.policy.CanList(subject)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("room list authorization failed")
			rw.InternalError("Authorization check failed")
			return
		}
		if !allowed {
			rw.Forbidden("Listing rooms is not permitted")
			return
		}
	}

	prefix := h.hub.GroupKey("")
	groups := h.hub.Groups()
	rooms := make([]RoomSummary, 0, len(groups))
	for _, g := range groups {
		rooms = append(rooms, RoomSummary{
			Room:    strings.TrimPrefix(g.Key, prefix),
			Group:   g.Key,
			Members: g.Members,
		})
	}

	rw.Success(map[string]interface{}{
		"rooms":    rooms,
		"sessions": h.hub.SessionCount(),
	})
}

// PublishMessage broadcasts a server-originated message into a room. The
// authenticated username is used as the sender.
func (h *Handler) PublishMessage(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	subject := auth.SubjectFromContext(r.Context())
	room := chi.URLParam(r, "room_name")

	if verr := validation.ValidateRoomName(room); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	if h.policy != nil {
		allowed, err := h.policy.CanPublish(subject, room)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Str("room", room).Msg("publish authorization failed")
			rw.InternalError("Authorization check failed")
			return
		}
		if !allowed {
			rw.Forbidden("Publishing to this room is not permitted")
			return
		}
	}

	var req PublishRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPublishBodyBytes)).Decode(&req); err != nil {
		rw.BadRequest("Invalid JSON request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}
	if verr := validation.ValidateVar("message", *req.Message, fmt.Sprintf("max=%d", h.maxMessageLength())); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	report, err := h.hub.Publish(r.Context(), room, subject.Username, *req.Message)
	if err != nil {
		if errors.Is(err, ws.ErrInvalidRoom) {
			rw.BadRequest("Invalid room name")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Str("room", room).Msg("publish failed")
		rw.InternalError("Publish failed")
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("room", room).
		Str("user", subject.Username).
		Int("delivered", report.Delivered).
		Msg("server-side publish")
	rw.Success(report)
}

func (h *Handler) maxMessageLength() int {
	if h.config != nil && h.config.Realtime.MaxMessageLength > 0 {
		return h.config.Realtime.MaxMessageLength
	}
	return ws.DefaultSessionConfig().MaxMessageLength
}
