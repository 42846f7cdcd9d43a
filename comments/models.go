// Package comments implements threaded comments on posts with author
// moderation: comments by readers start unapproved and are hidden from
// everyone except their writer and the post author until approved.
package comments

import (
	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/paging"
)

// Comment represents a comment on a post, optionally replying to another
// comment of the same post.
type Comment struct {
	ID              int64  `json:"id" example:"1"`
	Content         string `json:"content" example:"Nice write-up"`
	PostID          int64  `json:"post_id" example:"1"`
	AuthorID        int64  `json:"author_id" example:"2"`
	ParentCommentID *int64 `json:"parent_comment_id,omitempty"`
	IsApproved      bool   `json:"is_approved"`
	audit.Fields

	// Replies is filled only in thread output.
	Replies []Comment `json:"replies,omitempty"`
}

// CreateCommentRequest is the body of POST /comments/post/{postID}.
type CreateCommentRequest struct {
	Content         string `json:"content" validate:"required,min=1,max=5000" example:"Nice write-up"`
	ParentCommentID *int64 `json:"parent_comment_id,omitempty" validate:"omitempty,gt=0"`
}

// UpdateCommentRequest replaces the text of a comment.
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=5000"`
}

// Query selects the comments of one post.
type Query struct {
	PostID int64
	Viewer audit.Viewer
	// Moderator is set when the viewer wrote the post; it lifts the approval filter.
	Moderator bool
	// Page is nil to load every matching comment, as thread output does.
	Page *paging.Request
}
