package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/users"
)

type stubAuthenticator map[string]int64

func (s stubAuthenticator) Authenticate(_ context.Context, tok string) (*users.User, error) {
	id, ok := s[tok]
	if !ok {
		return nil, apperror.NewInvalidSignatureError("token signature is invalid", nil)
	}
	return &users.User{ID: id}, nil
}

func viewerEcho(t *testing.T, got *audit.Viewer) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = audit.ViewerFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAuth(t *testing.T) {
	authn := stubAuthenticator{"good": 7}
	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var viewer audit.Viewer
			h := RequireAuth(authn)(viewerEcho(t, &viewer))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status == http.StatusNoContent && (!viewer.Authenticated || viewer.ID != 7) {
				t.Fatalf("expected viewer 7, got %+v", viewer)
			}
		})
	}
}

func TestOptionalAuthFallsBackToAnonymous(t *testing.T) {
	authn := stubAuthenticator{"good": 7}

	for header, wantID := range map[string]int64{"": 0, "Bearer nope": 0, "Bearer good": 7} {
		var viewer audit.Viewer
		h := OptionalAuth(authn)(viewerEcho(t, &viewer))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("%q: expected request to pass, got %d", header, rec.Code)
		}
		if viewer.ID != wantID || viewer.Authenticated != (wantID != 0) {
			t.Fatalf("%q: unexpected viewer %+v", header, viewer)
		}
	}
}
