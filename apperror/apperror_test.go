package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{NewInvalidCredentialsError("bad login"), http.StatusUnauthorized},
		{NewTokenExpiredError("expired", nil), http.StatusUnauthorized},
		{NewInvalidSignatureError("forged", nil), http.StatusUnauthorized},
		{NewPurposeMismatchError("wrong purpose"), http.StatusUnauthorized},
		{NewForbiddenError("not yours"), http.StatusForbidden},
		{NewNotFoundError("missing", nil), http.StatusNotFound},
		{NewAlreadyDeletedError("gone"), http.StatusConflict},
		{NewConflictError("dup", nil), http.StatusConflict},
		{NewWeakPasswordError("weak"), http.StatusUnprocessableEntity},
		{NewBadRequestError("bad", nil), http.StatusBadRequest},
		{NewDatabaseError("db", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.err.StatusCode(); got != tc.want {
			t.Fatalf("%s: expected status %d, got %d", tc.err.Type, tc.want, got)
		}
	}
}

func TestToResponseHidesUnderlyingError(t *testing.T) {
	cause := errors.New("pq: relation users does not exist")
	resp := NewDatabaseError("failed to load user", cause).ToResponse()

	if resp.Success {
		t.Fatal("expected success=false")
	}
	if resp.Message != "failed to load user" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if resp.Detail != "Database" {
		t.Fatalf("expected kind name as default detail, got %q", resp.Detail)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}

func TestFromErrorWrapsForeignErrors(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	if appErr.Type != InternalError {
		t.Fatalf("expected internal error, got %s", appErr.Type)
	}

	wrapped := fmt.Errorf("service: %w", NewForbiddenError("not the author"))
	if got := FromError(wrapped); got.Type != ForbiddenError {
		t.Fatalf("expected forbidden from wrapped chain, got %s", got.Type)
	}
	if !IsForbidden(wrapped) {
		t.Fatal("expected IsForbidden to see through wrapping")
	}
}

func TestWithDetailDoesNotMutateOriginal(t *testing.T) {
	base := NewWeakPasswordError("password does not meet policy")
	detailed := base.WithDetail("missing digit")
	if base.Detail != "" {
		t.Fatalf("original mutated: %q", base.Detail)
	}
	if detailed.ToResponse().Detail != "missing digit" {
		t.Fatalf("unexpected detail %q", detailed.Detail)
	}
}
