package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/respond"
	"github.com/user/blogplatform-go/users"
)

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*users.User, error)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. An absent header yields "", nil.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", nil
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", apperror.NewAuthError("authorization header format must be Bearer {token}", nil)
	}
	return parts[1], nil
}

// RequireAuth rejects requests without a valid access token and puts the
// authenticated user id on the context.
func RequireAuth(authn Authenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				respond.Error(w, r, err)
				return
			}
			if raw == "" {
				respond.Error(w, r, apperror.NewAuthError("authorization header is missing", nil))
				return
			}
			user, err := authn.Authenticate(r.Context(), raw)
			if err != nil {
				respond.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(audit.WithActor(r.Context(), user.ID)))
		})
	}
}

// OptionalAuth identifies the caller when a usable token is present and lets
// the request through as anonymous otherwise.
func OptionalAuth(authn Authenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil || raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, err := authn.Authenticate(r.Context(), raw)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(audit.WithActor(r.Context(), user.ID)))
		})
	}
}
