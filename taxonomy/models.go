// Package taxonomy manages the two flat vocabularies posts are filed under:
// categories (one per post, with a description) and tags (many per post).
// Both share one model and one store implementation parameterized by Kind.
package taxonomy

import "github.com/user/blogplatform-go/audit"

// Term is a category or a tag.
type Term struct {
	ID          int64  `json:"id" example:"1"`
	Name        string `json:"name" example:"Databases"`
	Slug        string `json:"slug" example:"databases"`
	Description string `json:"description,omitempty"`
	audit.Fields
}

// Kind describes one vocabulary: its table and how posts reference it.
type Kind struct {
	Table string
	Noun  string
	// Described kinds carry a description column.
	Described bool
	// inUse reports whether a live post references the term ($1).
	inUse string
}

var (
	Categories = Kind{
		Table:     "categories",
		Noun:      "category",
		Described: true,
		inUse:     `SELECT EXISTS (SELECT 1 FROM posts p WHERE p.category_id = $1 AND p.deleted_at IS NULL)`,
	}
	Tags = Kind{
		Table: "tags",
		Noun:  "tag",
		inUse: `SELECT EXISTS (SELECT 1 FROM post_tags pt JOIN posts p ON p.id = pt.post_id
		                       WHERE pt.tag_id = $1 AND p.deleted_at IS NULL)`,
	}
)

// CreateTermRequest creates a category or tag. Slug defaults to the name.
type CreateTermRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100" example:"Databases"`
	Slug        string `json:"slug,omitempty" validate:"omitempty,max=100" example:"databases"`
	Description string `json:"description,omitempty" validate:"max=2000"`
}

// UpdateTermRequest is a partial update; nil fields are left unchanged.
type UpdateTermRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Slug        *string `json:"slug,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}
