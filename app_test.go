package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/user/blogplatform-go/background"
	"github.com/user/blogplatform-go/comments"
	"github.com/user/blogplatform-go/config"
	"github.com/user/blogplatform-go/notify"
	"github.com/user/blogplatform-go/posts"
	"github.com/user/blogplatform-go/taxonomy"
	"github.com/user/blogplatform-go/users"
)

type noMail struct{}

func (noMail) SendWelcome(string, string) error { return nil }
func (noMail) SendVerification(string, string, string, time.Duration) error { return nil }
func (noMail) SendPasswordReset(string, string, string, time.Duration) error { return nil }

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Auth: config.AuthConfig{
			JWTSecret:        strings.Repeat("s", 32),
			Issuer:           "blogplatform-test",
			AccessTokenTTL:   30 * time.Minute,
			PasswordResetTTL: time.Hour,
			EmailVerifyTTL:   time.Hour,
		},
		Password:   config.PasswordPolicy{MinLength: 8, MaxLength: 72, BcryptCost: 4},
		Pagination: config.PaginationConfig{DefaultLimit: 10, MaxLimit: 100},
		Server: config.ServerConfig{
			AppName:     "Blog Platform API",
			AppVersion:  "test",
			CORSOrigins: []string{"http://localhost:3000"},
		},
	}
}

type client struct {
	t *testing.T
	h http.Handler
}

func newClient(t *testing.T) *client {
	t.Helper()
	st := stores{
		users:      users.NewMemoryStore(),
		posts:      posts.NewMemoryStore(),
		comments:   comments.NewMemoryStore(),
		categories: taxonomy.NewMemoryStore(taxonomy.Categories),
		tags:       taxonomy.NewMemoryStore(taxonomy.Tags),
	}
	cfg := testConfig()
	return &client{t: t, h: newRouter(cfg, buildComponents(cfg, st, noMail{}), probes{})}
}

// do sends a request and decodes the envelope's data into out when out is
// non-nil.
func (c *client) do(method, path, token string, body interface{}, out interface{}) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		env := struct {
			Data interface{} `json:"data"`
		}{Data: out}
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			c.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rec.Code
}

func (c *client) signup(username string) string {
	c.t.Helper()
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	code := c.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email":    username + "@example.com",
		"username": username,
		"password": "correct horse 1",
	}, &tok)
	if code != http.StatusCreated || tok.AccessToken == "" {
		c.t.Fatalf("signup %s: status %d", username, code)
	}
	return tok.AccessToken
}

func TestRootAndHealth(t *testing.T) {
	c := newClient(t)
	var health map[string]interface{}
	if code := c.do(http.MethodGet, "/health", "", nil, &health); code != http.StatusOK || health["status"] != "healthy" {
		t.Fatalf("health: %d %v", code, health)
	}
	if code := c.do(http.MethodGet, "/", "", nil, nil); code != http.StatusOK {
		t.Fatalf("root: %d", code)
	}
	if code := c.do(http.MethodGet, "/api/v1/users/me", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("profile without token: %d", code)
	}
}

func TestHealthReportsBackgroundCounters(t *testing.T) {
	cfg := testConfig()
	st := stores{
		users:      users.NewMemoryStore(),
		posts:      posts.NewMemoryStore(),
		comments:   comments.NewMemoryStore(),
		categories: taxonomy.NewMemoryStore(taxonomy.Categories),
		tags:       taxonomy.NewMemoryStore(taxonomy.Tags),
	}

	dispatcher := notify.NewDispatcher(notify.NewSender(config.MailConfig{}), 1, 1)
	dispatcher.Enqueue(notify.Message{Kind: "welcome", To: "ada@example.com"})
	dispatcher.Enqueue(notify.Message{Kind: "welcome", To: "bob@example.com"})

	ctx, cancel := context.WithCancel(context.Background())
	sweeper := background.NewSweeper(time.Hour, nil, background.Task{
		Name: "fixed",
		Run: func(context.Context, time.Time) (int64, error) {
			cancel()
			return 3, nil
		},
	})
	if err := sweeper.Run(ctx); err != nil {
		t.Fatalf("sweeper: %v", err)
	}

	c := &client{t: t, h: newRouter(cfg, buildComponents(cfg, st, noMail{}), probes{mail: dispatcher, sweeper: sweeper})}
	var health struct {
		Status  string           `json:"status"`
		Mail    notify.Stats     `json:"mail"`
		Sweeper background.Stats `json:"sweeper"`
	}
	if code := c.do(http.MethodGet, "/health", "", nil, &health); code != http.StatusOK {
		t.Fatalf("health: %d", code)
	}
	if health.Mail.Queued != 1 || health.Mail.Dropped != 1 {
		t.Fatalf("unexpected mail counters %+v", health.Mail)
	}
	if health.Sweeper.Passes != 1 || health.Sweeper.Removed != 3 {
		t.Fatalf("unexpected sweeper counters %+v", health.Sweeper)
	}
}

func TestPostAndCommentLifecycle(t *testing.T) {
	c := newClient(t)
	ada := c.signup("ada")
	bob := c.signup("bob")

	var category taxonomy.Term
	if code := c.do(http.MethodPost, "/api/v1/categories", ada, map[string]string{"name": "Engineering"}, &category); code != http.StatusCreated {
		t.Fatalf("create category: %d", code)
	}

	var post posts.Post
	code := c.do(http.MethodPost, "/api/v1/posts", ada, map[string]interface{}{
		"title":       "Hello, world",
		"content":     "First post.",
		"category_id": category.ID,
	}, &post)
	if code != http.StatusCreated || post.Slug != "hello-world" || post.IsPublished {
		t.Fatalf("create post: %d %+v", code, post)
	}
	postPath := fmt.Sprintf("/api/v1/posts/%d", post.ID)

	if code := c.do(http.MethodGet, postPath, "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("anonymous read of a draft: %d", code)
	}
	if code := c.do(http.MethodGet, postPath, ada, nil, nil); code != http.StatusOK {
		t.Fatalf("author read of a draft: %d", code)
	}
	if code := c.do(http.MethodPut, postPath, bob, map[string]bool{"is_published": true}, nil); code != http.StatusForbidden {
		t.Fatalf("non-owner update: %d", code)
	}
	if code := c.do(http.MethodPut, postPath, ada, map[string]bool{"is_published": true}, &post); code != http.StatusOK || post.PublishedAt == nil {
		t.Fatalf("publish: %d %+v", code, post)
	}
	var uncategorized posts.Post
	if code := c.do(http.MethodPut, postPath, ada, map[string]bool{"clear_category": true}, &uncategorized); code != http.StatusOK || uncategorized.CategoryID != nil {
		t.Fatalf("clear category: %d %+v", code, uncategorized)
	}
	if code := c.do(http.MethodGet, postPath, "", nil, &post); code != http.StatusOK || post.ViewCount != 1 {
		t.Fatalf("anonymous read: %d views=%d", code, post.ViewCount)
	}

	commentsPath := fmt.Sprintf("/api/v1/comments/post/%d", post.ID)
	var comment comments.Comment
	if code := c.do(http.MethodPost, commentsPath, bob, map[string]string{"content": "Nice"}, &comment); code != http.StatusCreated || comment.IsApproved {
		t.Fatalf("comment: %d %+v", code, comment)
	}
	var page struct {
		Total int64 `json:"total"`
	}
	if code := c.do(http.MethodGet, commentsPath, "", nil, &page); code != http.StatusOK || page.Total != 0 {
		t.Fatalf("pending comment listed publicly: %d total=%d", code, page.Total)
	}
	approvePath := fmt.Sprintf("/api/v1/comments/%d/approve", comment.ID)
	if code := c.do(http.MethodPost, approvePath, bob, nil, nil); code != http.StatusForbidden {
		t.Fatalf("self approval: %d", code)
	}
	if code := c.do(http.MethodPost, approvePath, ada, nil, nil); code != http.StatusOK {
		t.Fatalf("approve: %d", code)
	}
	if code := c.do(http.MethodGet, commentsPath, "", nil, &page); code != http.StatusOK || page.Total != 1 {
		t.Fatalf("approved comment: %d total=%d", code, page.Total)
	}

	if code := c.do(http.MethodDelete, postPath, ada, nil, nil); code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
	if code := c.do(http.MethodDelete, postPath, ada, nil, nil); code != http.StatusConflict {
		t.Fatalf("second delete: %d", code)
	}
	if code := c.do(http.MethodGet, postPath+"?include_deleted=true", ada, nil, nil); code != http.StatusOK {
		t.Fatalf("author read of own deleted post: %d", code)
	}
}
