package paging

import (
	"net/http/httptest"
	"testing"

	"github.com/user/blogplatform-go/apperror"
)

func TestNormalize(t *testing.T) {
	limits := Limits{Default: 10, Max: 100}

	cases := []struct {
		name        string
		skip, limit int
		want        Request
	}{
		{"defaults", 0, 0, Request{Skip: 0, Limit: 10}},
		{"negative skip", -5, 20, Request{Skip: 0, Limit: 20}},
		{"clamped", 3, 1000, Request{Skip: 3, Limit: 100}},
		{"exact max", 0, 100, Request{Skip: 0, Limit: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := limits.Normalize(tc.skip, tc.limit); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestFromQuery(t *testing.T) {
	limits := Limits{Default: 10, Max: 100}

	r := httptest.NewRequest("GET", "/posts?skip=20&limit=1000", nil)
	req, err := limits.FromQuery(r)
	if err != nil {
		t.Fatalf("from query: %v", err)
	}
	if req.Skip != 20 || req.Limit != 100 {
		t.Fatalf("unexpected request %+v", req)
	}

	r = httptest.NewRequest("GET", "/posts?limit=ten", nil)
	if _, err := limits.FromQuery(r); !apperror.Is(err, apperror.BadRequestError) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestNewPageNeverNil(t *testing.T) {
	page := NewPage[int](nil, 0, Request{Limit: 10})
	if page.Items == nil {
		t.Fatal("expected empty slice")
	}
}

func TestWindow(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}
	if got := Window(all, Request{Skip: 3, Limit: 10}); len(got) != 2 || got[0] != 4 {
		t.Fatalf("unexpected window %v", got)
	}
	if got := Window(all, Request{Skip: 9, Limit: 10}); len(got) != 0 {
		t.Fatalf("expected empty window, got %v", got)
	}
}
