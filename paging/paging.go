// Package paging normalizes offset/limit requests and wraps list results with the
// full match count. Oversized limits are clamped rather than rejected.
package paging

import (
	"net/http"
	"strconv"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/config"
)

// Request is a normalized page request.
type Request struct {
	Skip  int
	Limit int
}

// Limits holds the configured default and maximum page sizes.
type Limits struct {
	Default int
	Max     int
}

// LimitsFromConfig adapts the pagination configuration.
func LimitsFromConfig(cfg config.PaginationConfig) Limits {
	return Limits{Default: cfg.DefaultLimit, Max: cfg.MaxLimit}
}

// Normalize applies defaults and bounds. A negative skip becomes zero, a
// non-positive limit becomes the default and anything above Max is clamped.
func (l Limits) Normalize(skip, limit int) Request {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = l.Default
	}
	if l.Max > 0 && limit > l.Max {
		limit = l.Max
	}
	return Request{Skip: skip, Limit: limit}
}

// FromQuery reads `skip` and `limit` from the URL query string. Non-numeric
// values are a BadRequest; out-of-range numbers are normalized.
func (l Limits) FromQuery(r *http.Request) (Request, error) {
	q := r.URL.Query()
	skip, err := intParam(q.Get("skip"), "skip")
	if err != nil {
		return Request{}, err
	}
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		return Request{}, err
	}
	return l.Normalize(skip, limit), nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.NewBadRequestError(name+" must be an integer", err)
	}
	return v, nil
}

// Page is a slice of results together with the total number of matches.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Skip  int   `json:"skip"`
	Limit int   `json:"limit"`
}

// NewPage builds a Page. A nil slice is replaced so the JSON output is [] not null.
func NewPage[T any](items []T, total int64, req Request) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Skip: req.Skip, Limit: req.Limit}
}

// Window applies a request to an in-memory slice. Used where the full set is
// already loaded, such as comment threads.
func Window[T any](all []T, req Request) []T {
	if req.Skip >= len(all) {
		return []T{}
	}
	end := req.Skip + req.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[req.Skip:end]
}
