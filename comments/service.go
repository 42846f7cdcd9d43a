package comments

import (
	"context"
	"log"
	"strings"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/paging"
	"github.com/user/blogplatform-go/posts"
)

// PostLookup loads the post a comment belongs to. posts.Store implements it.
type PostLookup interface {
	Get(ctx context.Context, id int64, scope audit.Scope) (*posts.Post, error)
}

// CommentService implements commenting and moderation.
type CommentService struct {
	store Store
	posts PostLookup
	now   audit.Clock
}

// NewCommentService creates a CommentService.
func NewCommentService(store Store, lookup PostLookup, clock audit.Clock) *CommentService {
	if clock == nil {
		clock = audit.SystemClock
	}
	return &CommentService{store: store, posts: lookup, now: clock}
}

// post returns the live post with the given id if v may read it.
func (s *CommentService) post(ctx context.Context, id int64, v audit.Viewer) (*posts.Post, error) {
	p, err := s.posts.Get(ctx, id, audit.Active)
	if err != nil {
		return nil, err
	}
	if !p.IsPublished && !v.Owns(p.AuthorID) {
		return nil, apperror.NewNotFoundError("post not found", nil)
	}
	return p, nil
}

func visibleTo(c *Comment, p *posts.Post, v audit.Viewer) bool {
	return c.IsApproved || v.Owns(c.AuthorID) || v.Owns(p.AuthorID)
}

// Create adds a comment by actor to a post the actor can read. Comments by the
// post author are approved immediately.
func (s *CommentService) Create(ctx context.Context, postID, actor int64, req CreateCommentRequest) (*Comment, error) {
	viewer := audit.Viewer{ID: actor, Authenticated: true}
	p, err := s.post(ctx, postID, viewer)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperror.NewValidationError("content must not be blank", nil)
	}

	if req.ParentCommentID != nil {
		parent, err := s.store.Get(ctx, *req.ParentCommentID, audit.Active)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.NewBadRequestError("parent comment not found", err)
			}
			return nil, err
		}
		if parent.PostID != postID {
			return nil, apperror.NewBadRequestError("parent comment belongs to another post", nil)
		}
		if !visibleTo(parent, p, viewer) {
			return nil, apperror.NewBadRequestError("parent comment not found", nil)
		}
	}

	c := &Comment{
		Content:         content,
		PostID:          postID,
		AuthorID:        actor,
		ParentCommentID: req.ParentCommentID,
		IsApproved:      actor == p.AuthorID,
	}
	c.OnCreate(audit.Actor(actor), s.now())
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	log.Printf("comment %d created on post %d by user %d (approved=%t)", c.ID, postID, actor, c.IsApproved)
	return c, nil
}

// Get returns a comment visible to v.
func (s *CommentService) Get(ctx context.Context, id int64, v audit.Viewer) (*Comment, error) {
	c, err := s.store.Get(ctx, id, audit.Active)
	if err != nil {
		return nil, err
	}
	p, err := s.post(ctx, c.PostID, v)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFoundError("comment not found", err)
		}
		return nil, err
	}
	if !visibleTo(c, p, v) {
		return nil, apperror.NewNotFoundError("comment not found", nil)
	}
	return c, nil
}

// ListForPost returns the comments of a post visible to v, oldest first. With
// tree set, replies are nested under their parents and the page applies to
// top-level threads. A reply whose parent is hidden from v is shown at the top
// level.
func (s *CommentService) ListForPost(ctx context.Context, postID int64, v audit.Viewer, page paging.Request, tree bool) (paging.Page[Comment], error) {
	p, err := s.post(ctx, postID, v)
	if err != nil {
		return paging.Page[Comment]{}, err
	}
	q := Query{PostID: postID, Viewer: v, Moderator: v.Owns(p.AuthorID)}
	if !tree {
		q.Page = &page
		items, total, err := s.store.List(ctx, q)
		if err != nil {
			return paging.Page[Comment]{}, err
		}
		return paging.NewPage(items, total, page), nil
	}

	all, _, err := s.store.List(ctx, q)
	if err != nil {
		return paging.Page[Comment]{}, err
	}
	roots := buildThreads(all)
	return paging.NewPage(paging.Window(roots, page), int64(len(roots)), page), nil
}

// buildThreads nests replies under their parents. flat must be oldest first.
func buildThreads(flat []Comment) []Comment {
	present := make(map[int64]bool, len(flat))
	for _, c := range flat {
		present[c.ID] = true
	}
	children := make(map[int64][]Comment)
	var roots []Comment
	for _, c := range flat {
		if c.ParentCommentID != nil && present[*c.ParentCommentID] {
			children[*c.ParentCommentID] = append(children[*c.ParentCommentID], c)
			continue
		}
		roots = append(roots, c)
	}
	var attach func(c Comment) Comment
	attach = func(c Comment) Comment {
		for _, child := range children[c.ID] {
			c.Replies = append(c.Replies, attach(child))
		}
		return c
	}
	for i := range roots {
		roots[i] = attach(roots[i])
	}
	return roots
}

// Update replaces the text of the actor's own comment. Approval is kept. A
// comment whose post is deleted or hidden from the actor is NotFound.
func (s *CommentService) Update(ctx context.Context, id, actor int64, req UpdateCommentRequest) (*Comment, error) {
	c, err := s.store.Get(ctx, id, audit.Active)
	if err != nil {
		return nil, err
	}
	if _, err := s.post(ctx, c.PostID, audit.Viewer{ID: actor, Authenticated: true}); err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFoundError("comment not found", err)
		}
		return nil, err
	}
	if err := audit.RequireOwner(c.AuthorID, actor, "comment"); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperror.NewValidationError("content must not be blank", nil)
	}
	c.Content = content
	c.OnUpdate(audit.Actor(actor), s.now())
	if err := s.store.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete soft deletes the actor's own comment. Replies stay in place.
func (s *CommentService) Delete(ctx context.Context, id, actor int64) error {
	c, err := s.store.Get(ctx, id, audit.Scope{IncludeDeleted: true})
	if err != nil {
		return err
	}
	if c.IsDeleted() && c.AuthorID != actor {
		return apperror.NewNotFoundError("comment not found", nil)
	}
	if err := audit.RequireOwner(c.AuthorID, actor, "comment"); err != nil {
		return err
	}
	if c.IsDeleted() {
		return apperror.NewAlreadyDeletedError("comment is already deleted")
	}
	if err := s.store.SoftDelete(ctx, id, actor, s.now()); err != nil {
		return err
	}
	log.Printf("comment %d deleted by user %d", id, actor)
	return nil
}

// Approve makes a comment visible to everyone. Only the author of the
// commented post may approve; approving twice is a no-op.
func (s *CommentService) Approve(ctx context.Context, id, actor int64) (*Comment, error) {
	c, err := s.store.Get(ctx, id, audit.Active)
	if err != nil {
		return nil, err
	}
	p, err := s.posts.Get(ctx, c.PostID, audit.Active)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != actor {
		return nil, apperror.NewForbiddenError("only the post author can approve comments")
	}
	if c.IsApproved {
		return c, nil
	}
	c.IsApproved = true
	c.OnUpdate(audit.Actor(actor), s.now())
	if err := s.store.Update(ctx, c); err != nil {
		return nil, err
	}
	log.Printf("comment %d approved by user %d", id, actor)
	return c, nil
}
