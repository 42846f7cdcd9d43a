// Package posts implements blog posts: authoring, visibility rules for drafts
// and deleted posts, listing with filters and search, and the view counter.
package posts

import (
	"time"

	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/paging"
)

// Post is a blog article. Drafts (IsPublished=false) are visible only to their
// author.
type Post struct {
	ID               int64      `json:"id" example:"1"`
	Title            string     `json:"title" example:"Hello, world"`
	Slug             string     `json:"slug" example:"hello-world"`
	Content          string     `json:"content"`
	Excerpt          string     `json:"excerpt"`
	AuthorID         int64      `json:"author_id" example:"1"`
	CategoryID       *int64     `json:"category_id,omitempty"`
	TagIDs           []int64    `json:"tag_ids"`
	IsPublished      bool       `json:"is_published"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	FeaturedImageURL string     `json:"featured_image_url,omitempty"`
	ViewCount        int64      `json:"view_count"`
	audit.Fields
}

// publish stamps PublishedAt on the first transition to published.
func (p *Post) publish(now time.Time) {
	p.IsPublished = true
	if p.PublishedAt == nil {
		p.PublishedAt = &now
	}
}

// CreatePostRequest creates a post. Slug defaults to the title and Excerpt to
// the start of Content.
type CreatePostRequest struct {
	Title            string  `json:"title" validate:"required,min=1,max=255" example:"Hello, world"`
	Slug             string  `json:"slug,omitempty" validate:"omitempty,max=255"`
	Content          string  `json:"content" validate:"required"`
	Excerpt          string  `json:"excerpt,omitempty" validate:"max=500"`
	CategoryID       *int64  `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	TagIDs           []int64 `json:"tag_ids,omitempty" validate:"omitempty,max=20,dive,gt=0"`
	IsPublished      bool    `json:"is_published"`
	FeaturedImageURL string  `json:"featured_image_url,omitempty" validate:"omitempty,url,max=500"`
}

// UpdatePostRequest is a partial update; nil fields are left unchanged. An
// explicit empty tag list removes all tags and ClearCategory files the post
// under no category.
type UpdatePostRequest struct {
	Title            *string  `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Slug             *string  `json:"slug,omitempty" validate:"omitempty,min=1,max=255"`
	Content          *string  `json:"content,omitempty" validate:"omitempty,min=1"`
	Excerpt          *string  `json:"excerpt,omitempty" validate:"omitempty,max=500"`
	CategoryID       *int64   `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	ClearCategory    bool     `json:"clear_category,omitempty"`
	TagIDs           *[]int64 `json:"tag_ids,omitempty" validate:"omitempty,max=20,dive,gt=0"`
	IsPublished      *bool    `json:"is_published,omitempty"`
	FeaturedImageURL *string  `json:"featured_image_url,omitempty" validate:"omitempty,url,max=500"`
}

// Empty reports whether the request changes nothing.
func (r UpdatePostRequest) Empty() bool {
	return r.Title == nil && r.Slug == nil && r.Content == nil && r.Excerpt == nil &&
		r.CategoryID == nil && !r.ClearCategory && r.TagIDs == nil && r.IsPublished == nil && r.FeaturedImageURL == nil
}

// Filter selects posts for a listing. Viewer decides which drafts and deleted
// posts are visible: only the viewer's own.
type Filter struct {
	AuthorID       *int64
	CategoryID     *int64
	TagID          *int64
	Search         string
	IncludeDeleted bool
	Viewer         audit.Viewer
	Page           paging.Request
}
