package taxonomy

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

// MemoryStore is an in-process Store used by tests in this and the posts
// package. References from posts are simulated with MarkReferenced.
type MemoryStore struct {
	kind   Kind
	mu     sync.Mutex
	nextID int64
	terms  map[int64]Term
	refs   map[int64]bool
}

// NewMemoryStore returns an empty MemoryStore for kind.
func NewMemoryStore(kind Kind) *MemoryStore {
	return &MemoryStore{kind: kind, terms: make(map[int64]Term), refs: make(map[int64]bool)}
}

// MarkReferenced records whether a live post references id.
func (m *MemoryStore) MarkReferenced(id int64, referenced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[id] = referenced
}

func (m *MemoryStore) conflict(t *Term) error {
	for id, other := range m.terms {
		if id == t.ID || other.IsDeleted() {
			continue
		}
		if strings.EqualFold(other.Name, t.Name) {
			return apperror.NewConflictError(m.kind.Noun+" name already exists", nil)
		}
		if other.Slug == t.Slug {
			return apperror.NewConflictError(m.kind.Noun+" slug already exists", nil)
		}
	}
	return nil
}

func (m *MemoryStore) Create(_ context.Context, t *Term) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.conflict(t); err != nil {
		return err
	}
	m.nextID++
	t.ID = m.nextID
	m.terms[t.ID] = *t
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id int64, scope audit.Scope) (*Term, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.terms[id]
	if !ok || (t.IsDeleted() && !scope.IncludeDeleted) {
		return nil, apperror.NewNotFoundError(m.kind.Noun+" not found", nil)
	}
	return &t, nil
}

func (m *MemoryStore) GetBySlug(_ context.Context, slug string) (*Term, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.terms {
		if !t.IsDeleted() && t.Slug == slug {
			found := t
			return &found, nil
		}
	}
	return nil, apperror.NewNotFoundError(m.kind.Noun+" not found", nil)
}

func (m *MemoryStore) List(_ context.Context, page paging.Request) ([]Term, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var live []Term
	for _, t := range m.terms {
		if !t.IsDeleted() {
			live = append(live, t)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].Name != live[j].Name {
			return live[i].Name < live[j].Name
		}
		return live[i].ID < live[j].ID
	})
	return paging.Window(live, page), int64(len(live)), nil
}

func (m *MemoryStore) Update(_ context.Context, t *Term) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.terms[t.ID]
	if !ok || current.IsDeleted() {
		return apperror.NewNotFoundError(m.kind.Noun+" not found", nil)
	}
	if err := m.conflict(t); err != nil {
		return err
	}
	m.terms[t.ID] = *t
	return nil
}

func (m *MemoryStore) SoftDelete(_ context.Context, id, actor int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.terms[id]
	if !ok {
		return apperror.NewNotFoundError(m.kind.Noun+" not found", nil)
	}
	if t.IsDeleted() {
		return apperror.NewAlreadyDeletedError(m.kind.Noun + " is already deleted")
	}
	if m.refs[id] {
		return apperror.NewConflictError(m.kind.Noun+" is still used by one or more posts", nil)
	}
	if err := t.SoftDelete(actor, now, m.kind.Noun); err != nil {
		return err
	}
	m.terms[id] = t
	return nil
}
