package taxonomy

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/db"
	"github.com/user/blogplatform-go/paging"
)

// Store persists the terms of one Kind.
type Store interface {
	Create(ctx context.Context, t *Term) error
	Get(ctx context.Context, id int64, scope audit.Scope) (*Term, error)
	GetBySlug(ctx context.Context, slug string) (*Term, error)
	List(ctx context.Context, page paging.Request) ([]Term, int64, error)
	Update(ctx context.Context, t *Term) error
	// SoftDelete fails with Conflict while a live post still references the
	// term, and with AlreadyDeleted on the second call.
	SoftDelete(ctx context.Context, id, actor int64, now time.Time) error
}

type pgStore struct {
	pool     db.Pool
	kind     Kind
	columns  string
	messages db.ConstraintMessages
}

// NewStore returns a PostgreSQL Store for kind.
func NewStore(pool db.Pool, kind Kind) Store {
	desc := "''"
	if kind.Described {
		desc = "t.description"
	}
	return &pgStore{
		pool:    pool,
		kind:    kind,
		columns: fmt.Sprintf("t.id, t.name, t.slug, %s, %s", desc, audit.Columns("t")),
		messages: db.ConstraintMessages{
			kind.Table + "_name_active_idx": kind.Noun + " name already exists",
			kind.Table + "_slug_active_idx": kind.Noun + " slug already exists",
		},
	}
}

func scanTerm(row pgx.Row) (*Term, error) {
	var t Term
	dest := append([]interface{}{&t.ID, &t.Name, &t.Slug, &t.Description}, t.Fields.ScanDest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *pgStore) Create(ctx context.Context, t *Term) error {
	var query string
	args := []interface{}{t.Name, t.Slug, t.CreatedAt, t.UpdatedAt, t.CreatedBy, t.UpdatedBy}
	if s.kind.Described {
		query = fmt.Sprintf(`INSERT INTO %s (name, slug, created_at, updated_at, created_by, updated_by, description)
		                     VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`, s.kind.Table)
		args = append(args, t.Description)
	} else {
		query = fmt.Sprintf(`INSERT INTO %s (name, slug, created_at, updated_at, created_by, updated_by)
		                     VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`, s.kind.Table)
	}
	err := s.pool.QueryRow(ctx, query, args...).Scan(&t.ID)
	return db.TranslateError(err, s.kind.Noun, s.messages)
}

func (s *pgStore) Get(ctx context.Context, id int64, scope audit.Scope) (*Term, error) {
	sql, args := db.Select(s.kind.Table, "t").Columns(s.columns).Scope(scope).Where("t.id = ?", id).SQL()
	t, err := scanTerm(s.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, db.TranslateError(err, s.kind.Noun)
	}
	return t, nil
}

func (s *pgStore) GetBySlug(ctx context.Context, slug string) (*Term, error) {
	sql, args := db.Select(s.kind.Table, "t").Columns(s.columns).Where("t.slug = ?", slug).SQL()
	t, err := scanTerm(s.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, db.TranslateError(err, s.kind.Noun)
	}
	return t, nil
}

func (s *pgStore) List(ctx context.Context, page paging.Request) ([]Term, int64, error) {
	q := db.Select(s.kind.Table, "t").Columns(s.columns).OrderBy("t.name ASC, t.id ASC")

	var total int64
	countSQL, countArgs := q.CountSQL()
	if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, db.TranslateError(err, s.kind.Noun)
	}

	sql, args := q.Page(page).SQL()
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, db.TranslateError(err, s.kind.Noun)
	}
	defer rows.Close()

	var terms []Term
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, 0, db.TranslateError(err, s.kind.Noun)
		}
		terms = append(terms, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.TranslateError(err, s.kind.Noun)
	}
	return terms, total, nil
}

func (s *pgStore) Update(ctx context.Context, t *Term) error {
	var (
		tag    pgconn.CommandTag
		err    error
		common = []interface{}{t.Name, t.Slug, t.UpdatedAt, t.UpdatedBy, t.ID}
	)
	if s.kind.Described {
		tag, err = s.pool.Exec(ctx, fmt.Sprintf(
			`UPDATE %s SET name = $1, slug = $2, updated_at = $3, updated_by = $4, description = $6
			 WHERE id = $5 AND deleted_at IS NULL`, s.kind.Table),
			append(common, t.Description)...)
	} else {
		tag, err = s.pool.Exec(ctx, fmt.Sprintf(
			`UPDATE %s SET name = $1, slug = $2, updated_at = $3, updated_by = $4
			 WHERE id = $5 AND deleted_at IS NULL`, s.kind.Table),
			common...)
	}
	if err != nil {
		return db.TranslateError(err, s.kind.Noun, s.messages)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError(s.kind.Noun+" not found", nil)
	}
	return nil
}

// SoftDelete locks the row first; post writes take a share lock on the terms
// they reference, so the reference check cannot race a new post.
func (s *pgStore) SoftDelete(ctx context.Context, id, actor int64, now time.Time) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var deletedAt *time.Time
		err := tx.QueryRow(ctx,
			fmt.Sprintf(`SELECT deleted_at FROM %s WHERE id = $1 FOR UPDATE`, s.kind.Table), id).Scan(&deletedAt)
		if err != nil {
			return db.TranslateError(err, s.kind.Noun)
		}
		if deletedAt != nil {
			return apperror.NewAlreadyDeletedError(s.kind.Noun + " is already deleted")
		}

		var inUse bool
		if err := tx.QueryRow(ctx, s.kind.inUse, id).Scan(&inUse); err != nil {
			return db.TranslateError(err, s.kind.Noun)
		}
		if inUse {
			return apperror.NewConflictError(s.kind.Noun+" is still used by one or more posts", nil)
		}

		_, err = tx.Exec(ctx,
			fmt.Sprintf(`UPDATE %s SET deleted_at = $1, updated_at = $1, updated_by = $2 WHERE id = $3`, s.kind.Table),
			now, actor, id)
		return db.TranslateError(err, s.kind.Noun)
	})
}
