// Package middleware contains HTTP middleware for the controller.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"hirelane/internal/apperr"
	"hirelane/internal/auth"
	"hirelane/internal/store"
)

// Authenticator resolves a bearer token to its principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// bearer extracts the token of an Authorization header. ok is false when the
// header is absent; a malformed header yields an error.
func bearer(r *http.Request) (token string, ok bool, err error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false, nil
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", true, apperr.Unauthorized("invalid authorization header")
	}
	return parts[1], true, nil
}

func resolve(a Authenticator, w http.ResponseWriter, r *http.Request, required bool) (*http.Request, bool) {
	token, present, err := bearer(r)
	if err != nil {
		WriteError(w, err)
		return nil, false
	}
	if !present {
		if required {
			WriteError(w, apperr.Unauthorized("missing authorization header"))
			return nil, false
		}
		return r, true
	}

	p, err := a.Authenticate(r.Context(), token)
	if err != nil {
		WriteError(w, err)
		return nil, false
	}
	return r.WithContext(auth.WithPrincipal(r.Context(), p)), true
}

// Auth rejects requests without a valid bearer token and attaches the
// principal of those with one.
func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r, ok := resolve(a, w, r, true); ok {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// OptionalAuth lets anonymous requests through. A token that is present must
// still be valid.
func OptionalAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r, ok := resolve(a, w, r, false); ok {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequireRole admits principals holding one of roles.
func RequireRole(roles ...store.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := auth.PrincipalFromContext(r.Context())
			if err := auth.Require(p, roles...); err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
