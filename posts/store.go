package posts

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/db"
	"github.com/user/blogplatform-go/paging"
)

// Store persists posts and their tag links.
type Store interface {
	Create(ctx context.Context, p *Post) error
	Get(ctx context.Context, id int64, scope audit.Scope) (*Post, error)
	// GetBySlug prefers the live post when deleted posts share the slug.
	GetBySlug(ctx context.Context, slug string, scope audit.Scope) (*Post, error)
	List(ctx context.Context, f Filter) ([]Post, int64, error)
	// Update writes every column; tag links are replaced when tagsChanged.
	Update(ctx context.Context, p *Post, tagsChanged bool) error
	SoftDelete(ctx context.Context, id, actor int64, now time.Time) error
	// IncrementViews bumps the counter of a live post and returns the new value.
	IncrementViews(ctx context.Context, id int64) (int64, error)
}

var constraintMessages = db.ConstraintMessages{
	"posts_slug_active_idx":  "slug already exists",
	"posts_category_id_fkey": "category not found",
	"post_tags_tag_id_fkey":  "tag not found",
	"posts_author_id_fkey":   "author not found",
	"post_tags_post_id_fkey": "post not found",
	"posts_created_by_fkey":  "author not found",
	"posts_updated_by_fkey":  "author not found",
}

var postColumns = "p.id, p.title, p.slug, p.content, p.excerpt, p.author_id, p.category_id, p.is_published, " +
	"p.published_at, p.featured_image_url, p.view_count, " + audit.Columns("p")

type pgStore struct {
	pool db.Pool
}

// NewStore returns a Store backed by PostgreSQL.
func NewStore(pool db.Pool) Store {
	return &pgStore{pool: pool}
}

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	dest := append([]interface{}{
		&p.ID, &p.Title, &p.Slug, &p.Content, &p.Excerpt, &p.AuthorID, &p.CategoryID, &p.IsPublished,
		&p.PublishedAt, &p.FeaturedImageURL, &p.ViewCount,
	}, p.Fields.ScanDest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &p, nil
}

// lockTerms share-locks the referenced category and tags, failing with
// NotFound when any of them is missing or deleted. Term deletion takes an
// exclusive lock on the same rows.
func lockTerms(ctx context.Context, tx pgx.Tx, categoryID *int64, tagIDs []int64) error {
	if categoryID != nil {
		var id int64
		err := tx.QueryRow(ctx,
			`SELECT id FROM categories WHERE id = $1 AND deleted_at IS NULL FOR SHARE`, *categoryID).Scan(&id)
		if err != nil {
			return db.TranslateError(err, "category")
		}
	}
	if len(tagIDs) > 0 {
		var n int
		err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM (SELECT id FROM tags WHERE id = ANY($1) AND deleted_at IS NULL FOR SHARE) t`,
			tagIDs).Scan(&n)
		if err != nil {
			return db.TranslateError(err, "tag")
		}
		if n != len(tagIDs) {
			return apperror.NewNotFoundError("tag not found", nil)
		}
	}
	return nil
}

func insertTags(ctx context.Context, tx pgx.Tx, postID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO post_tags (post_id, tag_id) SELECT $1, unnest($2::bigint[])`, postID, tagIDs)
	return db.TranslateError(err, "post", constraintMessages)
}

func (s *pgStore) Create(ctx context.Context, p *Post) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockTerms(ctx, tx, p.CategoryID, p.TagIDs); err != nil {
			return err
		}
		err := tx.QueryRow(ctx,
			`INSERT INTO posts (title, slug, content, excerpt, author_id, category_id, is_published, published_at,
			                    featured_image_url, view_count, created_at, updated_at, created_by, updated_by)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11, $12, $13)
			 RETURNING id`,
			p.Title, p.Slug, p.Content, p.Excerpt, p.AuthorID, p.CategoryID, p.IsPublished, p.PublishedAt,
			p.FeaturedImageURL, p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy,
		).Scan(&p.ID)
		if err != nil {
			return db.TranslateError(err, "post", constraintMessages)
		}
		return insertTags(ctx, tx, p.ID, p.TagIDs)
	})
}

// attachTags loads the tag ids of the given posts in one query.
func (s *pgStore) attachTags(ctx context.Context, posts []Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]int64, len(posts))
	index := make(map[int64]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
		posts[i].TagIDs = []int64{}
	}
	rows, err := s.pool.Query(ctx,
		`SELECT pt.post_id, pt.tag_id FROM post_tags pt
		 JOIN tags t ON t.id = pt.tag_id AND `+db.JoinActive("t")+`
		 WHERE pt.post_id = ANY($1) ORDER BY pt.post_id, pt.tag_id`, ids)
	if err != nil {
		return db.TranslateError(err, "post")
	}
	defer rows.Close()
	for rows.Next() {
		var postID, tagID int64
		if err := rows.Scan(&postID, &tagID); err != nil {
			return db.TranslateError(err, "post")
		}
		i := index[postID]
		posts[i].TagIDs = append(posts[i].TagIDs, tagID)
	}
	return db.TranslateError(rows.Err(), "post")
}

func (s *pgStore) getOne(ctx context.Context, q *db.SelectBuilder) (*Post, error) {
	sql, args := q.SQL()
	p, err := scanPost(s.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, db.TranslateError(err, "post")
	}
	one := []Post{*p}
	if err := s.attachTags(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

func (s *pgStore) Get(ctx context.Context, id int64, scope audit.Scope) (*Post, error) {
	return s.getOne(ctx, db.Select("posts", "p").Columns(postColumns).Scope(scope).Where("p.id = ?", id))
}

func (s *pgStore) GetBySlug(ctx context.Context, slug string, scope audit.Scope) (*Post, error) {
	return s.getOne(ctx, db.Select("posts", "p").Columns(postColumns).Scope(scope).
		Where("p.slug = ?", slug).
		OrderBy("p.deleted_at DESC NULLS FIRST, p.id DESC").
		Page(paging.Request{Limit: 1}))
}

// escapeLike quotes LIKE metacharacters so search terms match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func filterQuery(f Filter) *db.SelectBuilder {
	v := f.Viewer
	q := db.Select("posts", "p").Columns(postColumns).
		Scope(audit.Scope{IncludeDeleted: f.IncludeDeleted && v.Authenticated})
	if f.IncludeDeleted && v.Authenticated {
		q.Where("(p.deleted_at IS NULL OR p.author_id = ?)", v.ID)
	}
	if v.Authenticated {
		q.Where("(p.is_published OR p.author_id = ?)", v.ID)
	} else {
		q.Where("p.is_published")
	}
	if f.AuthorID != nil {
		q.Where("p.author_id = ?", *f.AuthorID)
	}
	if f.CategoryID != nil {
		q.Where("p.category_id = ?", *f.CategoryID)
	}
	if f.TagID != nil {
		q.Where("EXISTS (SELECT 1 FROM post_tags pt WHERE pt.post_id = p.id AND pt.tag_id = ?)", *f.TagID)
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		q.Where("(p.title ILIKE ? OR p.content ILIKE ? OR p.excerpt ILIKE ?)", pattern, pattern, pattern)
	}
	return q.OrderBy("p.created_at DESC, p.id ASC")
}

func (s *pgStore) List(ctx context.Context, f Filter) ([]Post, int64, error) {
	q := filterQuery(f)

	var total int64
	countSQL, countArgs := q.CountSQL()
	if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, db.TranslateError(err, "post")
	}

	sql, args := q.Page(f.Page).SQL()
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, db.TranslateError(err, "post")
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, db.TranslateError(err, "post")
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.TranslateError(err, "post")
	}
	rows.Close()

	if err := s.attachTags(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *pgStore) Update(ctx context.Context, p *Post, tagsChanged bool) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var tags []int64
		if tagsChanged {
			tags = p.TagIDs
		}
		if err := lockTerms(ctx, tx, p.CategoryID, tags); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`UPDATE posts
			 SET title = $1, slug = $2, content = $3, excerpt = $4, category_id = $5, is_published = $6,
			     published_at = $7, featured_image_url = $8, updated_at = $9, updated_by = $10
			 WHERE id = $11 AND deleted_at IS NULL`,
			p.Title, p.Slug, p.Content, p.Excerpt, p.CategoryID, p.IsPublished,
			p.PublishedAt, p.FeaturedImageURL, p.UpdatedAt, p.UpdatedBy, p.ID)
		if err != nil {
			return db.TranslateError(err, "post", constraintMessages)
		}
		if tag.RowsAffected() == 0 {
			return apperror.NewNotFoundError("post not found", nil)
		}
		if !tagsChanged {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM post_tags WHERE post_id = $1`, p.ID); err != nil {
			return db.TranslateError(err, "post")
		}
		return insertTags(ctx, tx, p.ID, p.TagIDs)
	})
}

func (s *pgStore) SoftDelete(ctx context.Context, id, actor int64, now time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE posts SET deleted_at = $1, updated_at = $1, updated_by = $2 WHERE id = $3 AND deleted_at IS NULL`,
		now, actor, id)
	if err != nil {
		return db.TranslateError(err, "post")
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, id, audit.Scope{IncludeDeleted: true}); err != nil {
			return err
		}
		return apperror.NewAlreadyDeletedError("post is already deleted")
	}
	return nil
}

func (s *pgStore) IncrementViews(ctx context.Context, id int64) (int64, error) {
	var views int64
	err := s.pool.QueryRow(ctx,
		`UPDATE posts SET view_count = view_count + 1 WHERE id = $1 AND deleted_at IS NULL RETURNING view_count`,
		id).Scan(&views)
	if err != nil {
		return 0, db.TranslateError(err, "post")
	}
	return views, nil
}
