package comments

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/db"
)

// Store persists comments.
type Store interface {
	Create(ctx context.Context, c *Comment) error
	Get(ctx context.Context, id int64, scope audit.Scope) (*Comment, error)
	// List returns live comments matching q, oldest first, and the match count.
	List(ctx context.Context, q Query) ([]Comment, int64, error)
	// Update writes the content and approval state.
	Update(ctx context.Context, c *Comment) error
	SoftDelete(ctx context.Context, id, actor int64, now time.Time) error
}

var constraintMessages = db.ConstraintMessages{
	"comments_post_id_fkey":          "post not found",
	"comments_author_id_fkey":        "author not found",
	"comments_parent_same_post_fkey": "parent comment not found on this post",
}

var commentColumns = "c.id, c.content, c.post_id, c.author_id, c.parent_comment_id, c.is_approved, " +
	audit.Columns("c")

type pgStore struct {
	pool db.Pool
}

// NewStore returns a Store backed by PostgreSQL.
func NewStore(pool db.Pool) Store {
	return &pgStore{pool: pool}
}

func scanComment(row pgx.Row) (*Comment, error) {
	var c Comment
	dest := append([]interface{}{
		&c.ID, &c.Content, &c.PostID, &c.AuthorID, &c.ParentCommentID, &c.IsApproved,
	}, c.Fields.ScanDest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create share-locks the post and the parent so neither can be deleted while
// the reply is inserted.
func (s *pgStore) Create(ctx context.Context, c *Comment) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var postID int64
		err := tx.QueryRow(ctx,
			`SELECT id FROM posts WHERE id = $1 AND deleted_at IS NULL FOR SHARE`, c.PostID).Scan(&postID)
		if err != nil {
			return db.TranslateError(err, "post")
		}
		if c.ParentCommentID != nil {
			var parentPost int64
			err := tx.QueryRow(ctx,
				`SELECT post_id FROM comments WHERE id = $1 AND deleted_at IS NULL FOR SHARE`,
				*c.ParentCommentID).Scan(&parentPost)
			if err != nil {
				if apperror.IsNotFound(db.TranslateError(err, "comment")) {
					return apperror.NewBadRequestError("parent comment not found", err)
				}
				return db.TranslateError(err, "comment")
			}
			if parentPost != c.PostID {
				return apperror.NewBadRequestError("parent comment belongs to another post", nil)
			}
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO comments (content, post_id, author_id, parent_comment_id, is_approved,
			                       created_at, updated_at, created_by, updated_by)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id`,
			c.Content, c.PostID, c.AuthorID, c.ParentCommentID, c.IsApproved,
			c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy,
		).Scan(&c.ID)
		return db.TranslateError(err, "comment", constraintMessages)
	})
}

func (s *pgStore) Get(ctx context.Context, id int64, scope audit.Scope) (*Comment, error) {
	sql, args := db.Select("comments", "c").Columns(commentColumns).Scope(scope).Where("c.id = ?", id).SQL()
	c, err := scanComment(s.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, db.TranslateError(err, "comment")
	}
	return c, nil
}

func listQuery(q Query) *db.SelectBuilder {
	b := db.Select("comments", "c").Columns(commentColumns).Where("c.post_id = ?", q.PostID)
	switch {
	case q.Moderator:
	case q.Viewer.Authenticated:
		b.Where("(c.is_approved OR c.author_id = ?)", q.Viewer.ID)
	default:
		b.Where("c.is_approved")
	}
	return b.OrderBy("c.created_at ASC, c.id ASC")
}

func (s *pgStore) List(ctx context.Context, q Query) ([]Comment, int64, error) {
	b := listQuery(q)

	var total int64
	countSQL, countArgs := b.CountSQL()
	if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, db.TranslateError(err, "comment")
	}

	if q.Page != nil {
		b.Page(*q.Page)
	}
	sql, args := b.SQL()
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, db.TranslateError(err, "comment")
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, db.TranslateError(err, "comment")
		}
		out = append(out, *c)
	}
	return out, total, db.TranslateError(rows.Err(), "comment")
}

func (s *pgStore) Update(ctx context.Context, c *Comment) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE comments SET content = $1, is_approved = $2, updated_at = $3, updated_by = $4
		 WHERE id = $5 AND deleted_at IS NULL`,
		c.Content, c.IsApproved, c.UpdatedAt, c.UpdatedBy, c.ID)
	if err != nil {
		return db.TranslateError(err, "comment", constraintMessages)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError("comment not found", nil)
	}
	return nil
}

func (s *pgStore) SoftDelete(ctx context.Context, id, actor int64, now time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE comments SET deleted_at = $1, updated_at = $1, updated_by = $2 WHERE id = $3 AND deleted_at IS NULL`,
		now, actor, id)
	if err != nil {
		return db.TranslateError(err, "comment")
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, id, audit.Scope{IncludeDeleted: true}); err != nil {
			return err
		}
		return apperror.NewAlreadyDeletedError("comment is already deleted")
	}
	return nil
}
