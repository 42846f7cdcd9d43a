// Package seed loads demo fixtures from a YAML file into the database through
// the regular services, so seeded rows obey the same rules as API writes.
// Running it twice is safe: rows that already exist are skipped.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/credential"
	"github.com/user/blogplatform-go/posts"
	"github.com/user/blogplatform-go/respond"
	"github.com/user/blogplatform-go/slug"
	"github.com/user/blogplatform-go/taxonomy"
	"github.com/user/blogplatform-go/users"
)

// File is the fixture document. Categories and tags are attributed to the
// first user listed.
type File struct {
	Users      []UserFixture `yaml:"users" validate:"dive"`
	Categories []TermFixture `yaml:"categories" validate:"dive"`
	Tags       []TermFixture `yaml:"tags" validate:"dive"`
	Posts      []PostFixture `yaml:"posts" validate:"dive"`
}

type UserFixture struct {
	Email    string `yaml:"email" validate:"required,email"`
	Username string `yaml:"username" validate:"required,min=3,max=50"`
	Password string `yaml:"password" validate:"required"`
	FullName string `yaml:"full_name"`
	Bio      string `yaml:"bio"`
	Verified bool   `yaml:"verified"`
}

type TermFixture struct {
	Name        string `yaml:"name" validate:"required,max=100"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

// PostFixture references its author by username and its terms by slug.
type PostFixture struct {
	Title     string   `yaml:"title" validate:"required"`
	Slug      string   `yaml:"slug"`
	Content   string   `yaml:"content" validate:"required"`
	Excerpt   string   `yaml:"excerpt"`
	Author    string   `yaml:"author" validate:"required"`
	Category  string   `yaml:"category"`
	Tags      []string `yaml:"tags"`
	Published bool     `yaml:"published"`
}

// Parse decodes and validates a fixture document. Unknown keys are errors.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, apperror.NewValidationError("invalid seed file", err)
	}
	if err := respond.Validate(&f); err != nil {
		return nil, err
	}
	if len(f.Users) == 0 && (len(f.Categories) > 0 || len(f.Tags) > 0) {
		return nil, apperror.NewValidationError("seed file lists terms but no user to own them", nil)
	}
	return &f, nil
}

// Load reads and parses the fixture file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.NewConfigError(fmt.Sprintf("failed to read seed file %s", path), err)
	}
	return Parse(data)
}

// Report counts what a run created and skipped.
type Report struct {
	Created map[string]int
	Skipped map[string]int
}

func newReport() Report {
	return Report{Created: map[string]int{}, Skipped: map[string]int{}}
}

// Seeder writes fixtures through the services.
type Seeder struct {
	users      users.Store
	hasher     *credential.Hasher
	categories *taxonomy.Service
	tags       *taxonomy.Service
	posts      *posts.PostService
	now        audit.Clock
}

// NewSeeder creates a Seeder.
func NewSeeder(userStore users.Store, hasher *credential.Hasher, categories, tags *taxonomy.Service, postService *posts.PostService, clock audit.Clock) *Seeder {
	if clock == nil {
		clock = audit.SystemClock
	}
	return &Seeder{users: userStore, hasher: hasher, categories: categories, tags: tags, posts: postService, now: clock}
}

// Run applies f in dependency order: users, terms, then posts.
func (s *Seeder) Run(ctx context.Context, f *File) (Report, error) {
	report := newReport()

	var owner int64
	for i, fx := range f.Users {
		id, created, err := s.user(ctx, fx)
		if err != nil {
			return report, fmt.Errorf("user %s: %w", fx.Username, err)
		}
		count(report, "users", created)
		if i == 0 {
			owner = id
		}
	}

	termIDs := map[string]map[string]int64{"categories": {}, "tags": {}}
	for _, group := range []struct {
		name     string
		service  *taxonomy.Service
		fixtures []TermFixture
	}{
		{"categories", s.categories, f.Categories},
		{"tags", s.tags, f.Tags},
	} {
		for _, fx := range group.fixtures {
			term, created, err := s.term(ctx, group.service, owner, fx)
			if err != nil {
				return report, fmt.Errorf("%s %s: %w", group.name, fx.Name, err)
			}
			termIDs[group.name][term.Slug] = term.ID
			count(report, group.name, created)
		}
	}

	for _, fx := range f.Posts {
		created, err := s.post(ctx, fx, termIDs)
		if err != nil {
			return report, fmt.Errorf("post %q: %w", fx.Title, err)
		}
		count(report, "posts", created)
	}

	log.Printf("seed: created %v, skipped %v", report.Created, report.Skipped)
	return report, nil
}

func count(r Report, what string, created bool) {
	if created {
		r.Created[what]++
	} else {
		r.Skipped[what]++
	}
}

func (s *Seeder) user(ctx context.Context, fx UserFixture) (int64, bool, error) {
	existing, err := s.users.GetByEmail(ctx, users.NormalizeEmail(fx.Email))
	if err == nil {
		return existing.ID, false, nil
	}
	if !apperror.IsNotFound(err) {
		return 0, false, err
	}
	hash, err := s.hasher.Set(fx.Password)
	if err != nil {
		return 0, false, err
	}
	u := &users.User{
		Email:        users.NormalizeEmail(fx.Email),
		Username:     fx.Username,
		FullName:     fx.FullName,
		Bio:          fx.Bio,
		PasswordHash: hash,
		IsActive:     true,
		IsVerified:   fx.Verified,
	}
	u.OnCreate(nil, s.now())
	if err := s.users.Create(ctx, u); err != nil {
		return 0, false, err
	}
	return u.ID, true, nil
}

func (s *Seeder) term(ctx context.Context, svc *taxonomy.Service, owner int64, fx TermFixture) (*taxonomy.Term, bool, error) {
	sl := fx.Slug
	if sl == "" {
		sl = fx.Name
	}
	existing, err := svc.GetBySlug(ctx, slug.Make(sl))
	if err == nil {
		return existing, false, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, false, err
	}
	term, err := svc.Create(ctx, owner, taxonomy.CreateTermRequest{Name: fx.Name, Slug: fx.Slug, Description: fx.Description})
	if err != nil {
		return nil, false, err
	}
	return term, true, nil
}

func (s *Seeder) post(ctx context.Context, fx PostFixture, termIDs map[string]map[string]int64) (bool, error) {
	author, err := s.users.GetByLogin(ctx, fx.Author)
	if err != nil {
		return false, err
	}
	sl := fx.Slug
	if sl == "" {
		sl = fx.Title
	}
	viewer := audit.Viewer{ID: author.ID, Authenticated: true}
	if _, err := s.posts.GetBySlug(ctx, slug.Make(sl), viewer); err == nil {
		return false, nil
	} else if !apperror.IsNotFound(err) {
		return false, err
	}

	req := posts.CreatePostRequest{
		Title:       fx.Title,
		Slug:        fx.Slug,
		Content:     fx.Content,
		Excerpt:     fx.Excerpt,
		IsPublished: fx.Published,
	}
	if fx.Category != "" {
		id, ok := termIDs["categories"][fx.Category]
		if !ok {
			return false, apperror.NewNotFoundError("category "+fx.Category+" is not in the seed file", nil)
		}
		req.CategoryID = &id
	}
	for _, tag := range fx.Tags {
		id, ok := termIDs["tags"][tag]
		if !ok {
			return false, apperror.NewNotFoundError("tag "+tag+" is not in the seed file", nil)
		}
		req.TagIDs = append(req.TagIDs, id)
	}
	if _, err := s.posts.Create(ctx, author.ID, req); err != nil {
		return false, err
	}
	return true, nil
}
