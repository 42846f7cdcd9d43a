package respond

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
)

// IDParam parses a positive integer URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequestError("invalid "+name+": "+raw, err)
	}
	return id, nil
}

// Actor returns the authenticated user id or an AuthError.
func Actor(r *http.Request) (int64, error) {
	id, ok := audit.ActorFromContext(r.Context())
	if !ok {
		return 0, apperror.NewAuthError("authentication required", nil)
	}
	return id, nil
}

// BoolQuery reads an optional boolean query parameter.
func BoolQuery(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperror.NewBadRequestError(name+" must be a boolean", err)
	}
	return v, nil
}

// OptionalIDQuery reads an optional positive integer query parameter.
func OptionalIDQuery(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperror.NewBadRequestError(name+" must be a positive integer", err)
	}
	return &id, nil
}
