package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/credential"
	"github.com/user/blogplatform-go/paging"
	"github.com/user/blogplatform-go/posts"
	"github.com/user/blogplatform-go/taxonomy"
	"github.com/user/blogplatform-go/users"
)

const fixture = `
users:
  - email: Ada@Example.com
    username: ada
    password: Correct-Horse-9
    full_name: Ada Lovelace
    verified: true
  - email: bob@example.com
    username: bob
    password: Battery-Staple-7
categories:
  - name: Engineering
    description: Build notes
tags:
  - name: Go
  - name: Databases
posts:
  - title: Hello, world
    content: First post.
    author: ada
    category: engineering
    tags: [go, databases]
    published: true
  - title: Draft thoughts
    content: Not ready.
    author: bob
`

type fixtureEnv struct {
	seeder *Seeder
	users  *users.MemoryStore
	posts  *posts.PostService
}

func newEnv() *fixtureEnv {
	now := func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	userStore := users.NewMemoryStore()
	categoryStore := taxonomy.NewMemoryStore(taxonomy.Categories)
	tagStore := taxonomy.NewMemoryStore(taxonomy.Tags)
	categories := taxonomy.NewService(categoryStore, taxonomy.Categories, now)
	tags := taxonomy.NewService(tagStore, taxonomy.Tags, now)
	postService := posts.NewPostService(posts.NewMemoryStore(), categoryStore, tagStore, now)
	hasher := credential.NewHasher(credential.Policy{MinLength: 8, MaxLength: 72}, bcrypt.MinCost)
	return &fixtureEnv{
		seeder: NewSeeder(userStore, hasher, categories, tags, postService, now),
		users:  userStore,
		posts:  postService,
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("users:\n  - email: a@b.co\n    username: abc\n    password: x\n    role: admin\n"))
	if !apperror.IsValidationError(err) {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestParseValidatesFixtures(t *testing.T) {
	_, err := Parse([]byte("users:\n  - email: not-an-email\n    username: abc\n    password: x\n"))
	if !apperror.IsValidationError(err) {
		t.Fatalf("expected Validation, got %v", err)
	}
	_, err = Parse([]byte("tags:\n  - name: Go\n"))
	if !apperror.IsValidationError(err) {
		t.Fatalf("expected Validation for ownerless terms, got %v", err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f, err := Parse([]byte(fixture))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	env := newEnv()

	report, err := env.seeder.Run(ctx, f)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	want := map[string]int{"users": 2, "categories": 1, "tags": 2, "posts": 2}
	for k, n := range want {
		if report.Created[k] != n {
			t.Fatalf("created %s = %d, want %d (%v)", k, report.Created[k], n, report.Created)
		}
	}

	ada, err := env.users.GetByEmail(ctx, "ada@example.com")
	if err != nil || !ada.IsVerified || ada.FullName != "Ada Lovelace" {
		t.Fatalf("unexpected seeded user %+v, %v", ada, err)
	}

	page, err := env.posts.List(ctx, posts.Filter{Page: paging.Request{Limit: 10}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.Items[0].Slug != "hello-world" || len(page.Items[0].TagIDs) != 2 || page.Items[0].CategoryID == nil {
		t.Fatalf("unexpected public posts %+v", page)
	}

	report, err = env.seeder.Run(ctx, f)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(report.Created) != 0 {
		t.Fatalf("second run must create nothing, got %v", report.Created)
	}
	for k, n := range want {
		if report.Skipped[k] != n {
			t.Fatalf("skipped %s = %d, want %d", k, report.Skipped[k], n)
		}
	}
}

func TestRunRejectsUnknownTerm(t *testing.T) {
	f, err := Parse([]byte(strings.Replace(fixture, "category: engineering", "category: recipes", 1)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = newEnv().seeder.Run(context.Background(), f)
	if !apperror.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
