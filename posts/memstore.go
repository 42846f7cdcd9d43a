package posts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/paging"
)

// MemoryStore is an in-process Store with the same filtering rules as the
// PostgreSQL store. Service tests here and in package comments run against it.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	posts  map[int64]Post
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{posts: make(map[int64]Post)}
}

func clonePost(p Post) *Post {
	p.TagIDs = append([]int64{}, p.TagIDs...)
	return &p
}

func (m *MemoryStore) slugTaken(p *Post) bool {
	for id, other := range m.posts {
		if id != p.ID && !other.IsDeleted() && other.Slug == p.Slug {
			return true
		}
	}
	return false
}

func (m *MemoryStore) Create(_ context.Context, p *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slugTaken(p) {
		return apperror.NewConflictError("slug already exists", nil)
	}
	m.nextID++
	p.ID = m.nextID
	m.posts[p.ID] = *clonePost(*p)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id int64, scope audit.Scope) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || (p.IsDeleted() && !scope.IncludeDeleted) {
		return nil, apperror.NewNotFoundError("post not found", nil)
	}
	return clonePost(p), nil
}

func (m *MemoryStore) GetBySlug(_ context.Context, slug string, scope audit.Scope) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *Post
	for _, p := range m.posts {
		if p.Slug != slug || (p.IsDeleted() && !scope.IncludeDeleted) {
			continue
		}
		if best == nil || (best.IsDeleted() && !p.IsDeleted()) || (best.IsDeleted() == p.IsDeleted() && p.ID > best.ID) {
			best = clonePost(p)
		}
	}
	if best == nil {
		return nil, apperror.NewNotFoundError("post not found", nil)
	}
	return best, nil
}

func matches(p Post, f Filter) bool {
	v := f.Viewer
	own := v.Owns(p.AuthorID)
	if p.IsDeleted() && !(f.IncludeDeleted && own) {
		return false
	}
	if !p.IsPublished && !own {
		return false
	}
	if f.AuthorID != nil && p.AuthorID != *f.AuthorID {
		return false
	}
	if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
		return false
	}
	if f.TagID != nil {
		found := false
		for _, id := range p.TagIDs {
			found = found || id == *f.TagID
		}
		if !found {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		hay := strings.ToLower(p.Title + "\x00" + p.Content + "\x00" + p.Excerpt)
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	return true
}

func (m *MemoryStore) List(_ context.Context, f Filter) ([]Post, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []Post
	for _, p := range m.posts {
		if matches(p, f) {
			hits = append(hits, *clonePost(p))
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		}
		return hits[i].ID < hits[j].ID
	})
	return paging.Window(hits, f.Page), int64(len(hits)), nil
}

func (m *MemoryStore) Update(_ context.Context, p *Post, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.posts[p.ID]
	if !ok || current.IsDeleted() {
		return apperror.NewNotFoundError("post not found", nil)
	}
	if m.slugTaken(p) {
		return apperror.NewConflictError("slug already exists", nil)
	}
	updated := *clonePost(*p)
	updated.ViewCount = current.ViewCount
	m.posts[p.ID] = updated
	return nil
}

func (m *MemoryStore) SoftDelete(_ context.Context, id, actor int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return apperror.NewNotFoundError("post not found", nil)
	}
	if err := p.SoftDelete(actor, now, "post"); err != nil {
		return err
	}
	m.posts[id] = p
	return nil
}

func (m *MemoryStore) IncrementViews(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.IsDeleted() {
		return 0, apperror.NewNotFoundError("post not found", nil)
	}
	p.ViewCount++
	m.posts[id] = p
	return p.ViewCount, nil
}
