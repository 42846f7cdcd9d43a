package taxonomy

import (
	"context"
	"log"
	"strings"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/paging"
	"github.com/user/blogplatform-go/slug"
)

// Service implements CRUD for one Kind. Any authenticated user may write;
// terms have no owner.
type Service struct {
	store Store
	kind  Kind
	now   audit.Clock
}

// NewService creates a Service for kind.
func NewService(store Store, kind Kind, clock audit.Clock) *Service {
	if clock == nil {
		clock = audit.SystemClock
	}
	return &Service{store: store, kind: kind, now: clock}
}

// Kind returns the vocabulary this service manages.
func (s *Service) Kind() Kind { return s.kind }

func (s *Service) slugFor(explicit, name string) (string, error) {
	source := explicit
	if source == "" {
		source = name
	}
	out := slug.Make(source)
	if out == "" {
		return "", apperror.NewValidationError("slug must contain at least one letter or digit", nil)
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, actor int64, req CreateTermRequest) (*Term, error) {
	name := strings.TrimSpace(req.Name)
	sl, err := s.slugFor(req.Slug, name)
	if err != nil {
		return nil, err
	}
	t := &Term{Name: name, Slug: sl}
	if s.kind.Described {
		t.Description = req.Description
	}
	t.OnCreate(audit.Actor(actor), s.now())
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	log.Printf("%s created: id=%d slug=%s by user %d", s.kind.Noun, t.ID, t.Slug, actor)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Term, error) {
	return s.store.Get(ctx, id, audit.Active)
}

func (s *Service) GetBySlug(ctx context.Context, sl string) (*Term, error) {
	return s.store.GetBySlug(ctx, sl)
}

func (s *Service) List(ctx context.Context, page paging.Request) (paging.Page[Term], error) {
	terms, total, err := s.store.List(ctx, page)
	if err != nil {
		return paging.Page[Term]{}, err
	}
	return paging.NewPage(terms, total, page), nil
}

// Update applies a partial update. Renaming without an explicit slug keeps the
// existing slug so published links stay valid.
func (s *Service) Update(ctx context.Context, id, actor int64, req UpdateTermRequest) (*Term, error) {
	if req.Name == nil && req.Slug == nil && req.Description == nil {
		return nil, apperror.NewBadRequestError("no fields provided for update", nil)
	}
	t, err := s.store.Get(ctx, id, audit.Active)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		t.Name = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		if t.Slug, err = s.slugFor(*req.Slug, t.Name); err != nil {
			return nil, err
		}
	}
	if req.Description != nil && s.kind.Described {
		t.Description = *req.Description
	}
	t.OnUpdate(audit.Actor(actor), s.now())
	if err := s.store.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete soft deletes the term unless a live post still uses it.
func (s *Service) Delete(ctx context.Context, id, actor int64) error {
	if err := s.store.SoftDelete(ctx, id, actor, s.now()); err != nil {
		return err
	}
	log.Printf("%s %d deleted by user %d", s.kind.Noun, id, actor)
	return nil
}
