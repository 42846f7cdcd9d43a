package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/user/blogplatform-go/apperror"
)

// PostgreSQL error codes the stores care about.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// ConstraintMessages maps constraint or index names to client-facing messages.
// Stores register their own so a unique violation reads "email already exists"
// rather than the raw constraint name.
type ConstraintMessages map[string]string

// TranslateError converts driver errors into application errors. what names the
// entity for NotFound messages ("post", "comment"). AppErrors pass through.
func TranslateError(err error, what string, messages ...ConstraintMessages) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFoundError(what+" not found", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg := lookup(pgErr.ConstraintName, messages)
		switch pgErr.Code {
		case pgUniqueViolation:
			if msg == "" {
				msg = fmt.Sprintf("%s already exists", what)
			}
			return apperror.NewConflictError(msg, err)
		case pgForeignKeyViolation:
			if msg == "" {
				msg = fmt.Sprintf("%s references a missing record", what)
			}
			return apperror.NewNotFoundError(msg, err)
		}
	}
	return apperror.NewDatabaseError(fmt.Sprintf("database operation on %s failed", what), err)
}

func lookup(constraint string, messages []ConstraintMessages) string {
	if constraint == "" {
		return ""
	}
	for _, m := range messages {
		if msg, ok := m[constraint]; ok {
			return msg
		}
	}
	return ""
}

// IsUniqueViolation reports whether err is a unique violation on constraint.
// An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
