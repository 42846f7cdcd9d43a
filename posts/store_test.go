package posts

import (
	"strings"
	"testing"

	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/paging"
)

func TestFilterQueryAnonymous(t *testing.T) {
	sql, args := filterQuery(Filter{Search: "50%_off", IncludeDeleted: true}).Page(paging.Request{Skip: 20, Limit: 10}).SQL()

	for _, want := range []string{
		"p.deleted_at IS NULL",
		"p.is_published",
		"(p.title ILIKE $1 OR p.content ILIKE $2 OR p.excerpt ILIKE $3)",
		"ORDER BY p.created_at DESC, p.id ASC",
		"LIMIT $4 OFFSET $5",
	} {
		if !strings.Contains(sql, want) {
			t.Fatalf("expected %q in\n%s", want, sql)
		}
	}
	if strings.Contains(sql, "author_id = $") {
		t.Fatalf("anonymous query must not reference a viewer:\n%s", sql)
	}
	if len(args) != 5 || args[0] != `%50\%\_off%` || args[3] != 10 || args[4] != 20 {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestFilterQueryOwnDeleted(t *testing.T) {
	tag := int64(4)
	sql, args := filterQuery(Filter{
		IncludeDeleted: true,
		TagID:          &tag,
		Viewer:         audit.Viewer{ID: 7, Authenticated: true},
	}).CountSQL()

	if strings.Contains(sql, "WHERE p.deleted_at IS NULL AND") {
		t.Fatalf("include-deleted must drop the default predicate:\n%s", sql)
	}
	for _, want := range []string{
		"(p.deleted_at IS NULL OR p.author_id = $1)",
		"(p.is_published OR p.author_id = $2)",
		"pt.tag_id = $3",
	} {
		if !strings.Contains(sql, want) {
			t.Fatalf("expected %q in\n%s", want, sql)
		}
	}
	if len(args) != 3 || args[0] != int64(7) || args[2] != int64(4) {
		t.Fatalf("unexpected args %v", args)
	}
}
