package posts

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/paging"
	"github.com/user/blogplatform-go/slug"
	"github.com/user/blogplatform-go/taxonomy"
)

// TermLookup finds a category or tag. taxonomy.Store implements it.
type TermLookup interface {
	Get(ctx context.Context, id int64, scope audit.Scope) (*taxonomy.Term, error)
}

// PostService implements post authoring and reading.
type PostService struct {
	store      Store
	categories TermLookup
	tags       TermLookup
	now        audit.Clock
}

// NewPostService creates a PostService.
func NewPostService(store Store, categories, tags TermLookup, clock audit.Clock) *PostService {
	if clock == nil {
		clock = audit.SystemClock
	}
	return &PostService{store: store, categories: categories, tags: tags, now: clock}
}

// visibleTo reports whether v may read p. Authors see their own drafts, and
// their own deleted posts when those were loaded at all.
func visibleTo(p *Post, v audit.Viewer) bool {
	if v.Owns(p.AuthorID) {
		return true
	}
	return p.IsPublished && !p.IsDeleted()
}

func normalizeTagIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return []int64{}
	}
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *PostService) checkTerms(ctx context.Context, categoryID *int64, tagIDs []int64) error {
	if categoryID != nil {
		if _, err := s.categories.Get(ctx, *categoryID, audit.Active); err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFoundError(fmt.Sprintf("category %d not found", *categoryID), err)
			}
			return err
		}
	}
	for _, id := range tagIDs {
		if _, err := s.tags.Get(ctx, id, audit.Active); err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFoundError(fmt.Sprintf("tag %d not found", id), err)
			}
			return err
		}
	}
	return nil
}

func makeSlug(explicit, title string) (string, error) {
	source := explicit
	if source == "" {
		source = title
	}
	out := slug.Make(source)
	if out == "" {
		return "", apperror.NewValidationError("slug must contain at least one letter or digit", nil)
	}
	return out, nil
}

// Create stores a new post authored by actor.
func (s *PostService) Create(ctx context.Context, actor int64, req CreatePostRequest) (*Post, error) {
	title := strings.TrimSpace(req.Title)
	sl, err := makeSlug(req.Slug, title)
	if err != nil {
		return nil, err
	}
	tagIDs := normalizeTagIDs(req.TagIDs)
	if err := s.checkTerms(ctx, req.CategoryID, tagIDs); err != nil {
		return nil, err
	}

	now := s.now()
	p := &Post{
		Title:            title,
		Slug:             sl,
		Content:          req.Content,
		Excerpt:          req.Excerpt,
		AuthorID:         actor,
		CategoryID:       req.CategoryID,
		TagIDs:           tagIDs,
		FeaturedImageURL: req.FeaturedImageURL,
	}
	if p.Excerpt == "" {
		p.Excerpt = slug.Excerpt(p.Content)
	}
	if req.IsPublished {
		p.publish(now)
	}
	p.OnCreate(audit.Actor(actor), now)

	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	log.Printf("post created: id=%d slug=%s author=%d published=%t", p.ID, p.Slug, actor, p.IsPublished)
	return p, nil
}

func (s *PostService) countView(ctx context.Context, p *Post, v audit.Viewer) {
	if v.Owns(p.AuthorID) || p.IsDeleted() {
		return
	}
	views, err := s.store.IncrementViews(ctx, p.ID)
	if err != nil {
		log.Printf("failed to count view of post %d: %v", p.ID, err)
		return
	}
	p.ViewCount = views
}

// Get returns a post visible to v. Invisible posts are NotFound. Reads by
// anyone other than the author count as views.
func (s *PostService) Get(ctx context.Context, id int64, v audit.Viewer, includeDeleted bool) (*Post, error) {
	p, err := s.store.Get(ctx, id, audit.Scope{IncludeDeleted: includeDeleted && v.Authenticated})
	if err != nil {
		return nil, err
	}
	if !visibleTo(p, v) {
		return nil, apperror.NewNotFoundError("post not found", nil)
	}
	s.countView(ctx, p, v)
	return p, nil
}

// GetBySlug is Get keyed by slug.
func (s *PostService) GetBySlug(ctx context.Context, sl string, v audit.Viewer) (*Post, error) {
	p, err := s.store.GetBySlug(ctx, sl, audit.Active)
	if err != nil {
		return nil, err
	}
	if !visibleTo(p, v) {
		return nil, apperror.NewNotFoundError("post not found", nil)
	}
	s.countView(ctx, p, v)
	return p, nil
}

// List returns the page of posts matching f together with the full match count.
func (s *PostService) List(ctx context.Context, f Filter) (paging.Page[Post], error) {
	f.Search = strings.TrimSpace(f.Search)
	if !f.Viewer.Authenticated {
		f.IncludeDeleted = false
	}
	items, total, err := s.store.List(ctx, f)
	if err != nil {
		return paging.Page[Post]{}, err
	}
	return paging.NewPage(items, total, f.Page), nil
}

// Update applies a partial update by the post's author.
func (s *PostService) Update(ctx context.Context, id, actor int64, req UpdatePostRequest) (*Post, error) {
	if req.Empty() {
		return nil, apperror.NewBadRequestError("no fields provided for update", nil)
	}
	if req.ClearCategory && req.CategoryID != nil {
		return nil, apperror.NewBadRequestError("category_id and clear_category are mutually exclusive", nil)
	}
	p, err := s.store.Get(ctx, id, audit.Active)
	if err != nil {
		return nil, err
	}
	if err := audit.RequireOwner(p.AuthorID, actor, "post"); err != nil {
		return nil, err
	}

	now := s.now()
	if req.Title != nil {
		p.Title = strings.TrimSpace(*req.Title)
	}
	if req.Slug != nil {
		if p.Slug, err = makeSlug(*req.Slug, p.Title); err != nil {
			return nil, err
		}
	}
	if req.Content != nil {
		p.Content = *req.Content
	}
	if req.Excerpt != nil {
		p.Excerpt = *req.Excerpt
		if p.Excerpt == "" {
			p.Excerpt = slug.Excerpt(p.Content)
		}
	}
	if req.FeaturedImageURL != nil {
		p.FeaturedImageURL = *req.FeaturedImageURL
	}

	var newCategory *int64
	if req.CategoryID != nil {
		p.CategoryID = req.CategoryID
		newCategory = req.CategoryID
	}
	if req.ClearCategory {
		p.CategoryID = nil
	}
	var newTags []int64
	if req.TagIDs != nil {
		p.TagIDs = normalizeTagIDs(*req.TagIDs)
		newTags = p.TagIDs
	}
	if err := s.checkTerms(ctx, newCategory, newTags); err != nil {
		return nil, err
	}

	if req.IsPublished != nil {
		if *req.IsPublished {
			p.publish(now)
		} else {
			p.IsPublished = false
		}
	}
	p.OnUpdate(audit.Actor(actor), now)

	if err := s.store.Update(ctx, p, req.TagIDs != nil); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete soft deletes a post. Only its author may delete it; deleting twice is
// AlreadyDeleted.
func (s *PostService) Delete(ctx context.Context, id, actor int64) error {
	p, err := s.store.Get(ctx, id, audit.Scope{IncludeDeleted: true})
	if err != nil {
		return err
	}
	if p.IsDeleted() && p.AuthorID != actor {
		return apperror.NewNotFoundError("post not found", nil)
	}
	if err := audit.RequireOwner(p.AuthorID, actor, "post"); err != nil {
		return err
	}
	if p.IsDeleted() {
		return apperror.NewAlreadyDeletedError("post is already deleted")
	}
	if err := s.store.SoftDelete(ctx, id, actor, s.now()); err != nil {
		return err
	}
	log.Printf("post %d deleted by user %d", id, actor)
	return nil
}
