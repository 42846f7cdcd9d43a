package comments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/paging"
)

// MemoryStore is an in-process Store for tests. Parent and post checks are
// left to the service.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	comments map[int64]Comment
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{comments: make(map[int64]Comment)}
}

func (m *MemoryStore) Create(_ context.Context, c *Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	stored := *c
	stored.Replies = nil
	m.comments[c.ID] = stored
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id int64, scope audit.Scope) (*Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok || (c.IsDeleted() && !scope.IncludeDeleted) {
		return nil, apperror.NewNotFoundError("comment not found", nil)
	}
	return &c, nil
}

func (m *MemoryStore) List(_ context.Context, q Query) ([]Comment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []Comment
	for _, c := range m.comments {
		if c.PostID != q.PostID || c.IsDeleted() {
			continue
		}
		if !q.Moderator && !c.IsApproved && !q.Viewer.Owns(c.AuthorID) {
			continue
		}
		hits = append(hits, c)
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].CreatedAt.Before(hits[j].CreatedAt)
		}
		return hits[i].ID < hits[j].ID
	})
	total := int64(len(hits))
	if q.Page != nil {
		hits = paging.Window(hits, *q.Page)
	}
	return hits, total, nil
}

func (m *MemoryStore) Update(_ context.Context, c *Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.comments[c.ID]
	if !ok || current.IsDeleted() {
		return apperror.NewNotFoundError("comment not found", nil)
	}
	current.Content = c.Content
	current.IsApproved = c.IsApproved
	current.UpdatedAt = c.UpdatedAt
	current.UpdatedBy = c.UpdatedBy
	m.comments[c.ID] = current
	return nil
}

func (m *MemoryStore) SoftDelete(_ context.Context, id, actor int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return apperror.NewNotFoundError("comment not found", nil)
	}
	if err := c.SoftDelete(actor, now, "comment"); err != nil {
		return err
	}
	m.comments[id] = c
	return nil
}
