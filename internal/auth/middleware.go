// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/roomcast/internal/logging"
)

type contextKey string

// AuthSubjectContextKey is the context key for AuthSubject.
const AuthSubjectContextKey contextKey = "auth_subject"

// ContextWithSubject returns a copy of ctx carrying subject.
func ContextWithSubject(ctx context.Context, subject *AuthSubject) context.Context {
	return context.WithValue(ctx, AuthSubjectContextKey, subject)
}

// SubjectFromContext returns the subject stored by RequireAuth, or nil.
func SubjectFromContext(ctx context.Context) *AuthSubject {
	subject, _ := ctx.Value(AuthSubjectContextKey).(*AuthSubject)
	return subject
}

// ErrorResponder writes an authentication failure. The api package supplies
// its JSON error writer.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, status int, code, message string)

// RequireAuth rejects requests without a valid identity with 401 and stores
// the subject in the request context otherwise.
func RequireAuth(authenticator Authenticator, respond ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := authenticator.Authenticate(r.Context(), r)
			if err != nil || !subject.IsValid() {
				logging.Ctx(r.Context()).Debug().
					Err(err).
					Str("authenticator", authenticator.Name()).
					Str("path", r.URL.Path).
					Msg("request rejected: not authenticated")
				if b, ok := authenticator.(interface{ Challenge() string }); ok {
					w.Header().Set("WWW-Authenticate", b.Challenge())
				}
				respond(w, r, http.StatusUnauthorized, "UNAUTHORIZED", FailureMessage(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
		})
	}
}

// FailureMessage maps authentication errors to client-facing text without
// revealing which check failed beyond expiry.
func FailureMessage(err error) string {
	if errors.Is(err, ErrExpiredCredentials) {
		return "Credentials expired"
	}
	return "Authentication required"
}
