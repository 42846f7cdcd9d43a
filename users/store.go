package users

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/db"
)

// Store persists accounts.
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64, scope audit.Scope) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetByLogin accepts either an email address or a username.
	GetByLogin(ctx context.Context, login string) (*User, error)
	UpdateProfile(ctx context.Context, u *User) error
	// UpdatePassword swaps the hash only while it still equals currentHash, so a
	// credential change racing another one fails with Conflict.
	UpdatePassword(ctx context.Context, id int64, currentHash, newHash string, actor *int64, now time.Time) error
	// SoftDelete deactivates the account. It fails with AlreadyDeleted when the
	// row was already deleted, including by a concurrent request.
	SoftDelete(ctx context.Context, id, actor int64, now time.Time) error
	// ConsumeVerification records jti as used and marks the user verified in
	// one transaction. A jti seen before is a Conflict. Nothing is recorded
	// when the account's address is no longer email.
	ConsumeVerification(ctx context.Context, userID int64, email, jti string, expiresAt, now time.Time) error
	// PruneUsedTokens forgets ledger entries that expired before the given
	// time. Such tokens already fail verification on their expiry.
	PruneUsedTokens(ctx context.Context, before time.Time) (int64, error)
}

// ErrCredentialChanged is returned when the stored hash no longer matches the
// one the caller read.
var ErrCredentialChanged = apperror.NewConflictError("password was changed concurrently", nil)

var constraintMessages = db.ConstraintMessages{
	"users_email_key":    "email already exists",
	"users_username_key": "username already exists",
	"used_tokens_pkey":   "token already used",
}

var userColumns = "u.id, u.email, u.username, u.full_name, u.bio, u.profile_image_url, u.password_hash, u.is_active, u.is_verified, " +
	audit.Columns("u")

type pgStore struct {
	pool db.Pool
}

// NewStore returns a Store backed by PostgreSQL.
func NewStore(pool db.Pool) Store {
	return &pgStore{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	dest := append([]interface{}{
		&u.ID, &u.Email, &u.Username, &u.FullName, &u.Bio, &u.ProfileImageURL,
		&u.PasswordHash, &u.IsActive, &u.IsVerified,
	}, u.Fields.ScanDest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *pgStore) Create(ctx context.Context, u *User) error {
	query := `INSERT INTO users (email, username, full_name, bio, profile_image_url, password_hash,
	                             is_active, is_verified, created_at, updated_at, created_by, updated_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          RETURNING id`
	err := s.pool.QueryRow(ctx, query,
		u.Email, u.Username, u.FullName, u.Bio, u.ProfileImageURL, u.PasswordHash,
		u.IsActive, u.IsVerified, u.CreatedAt, u.UpdatedAt, u.CreatedBy, u.UpdatedBy,
	).Scan(&u.ID)
	return db.TranslateError(err, "user", constraintMessages)
}

func (s *pgStore) GetByID(ctx context.Context, id int64, scope audit.Scope) (*User, error) {
	sql, args := db.Select("users", "u").Columns(userColumns).Scope(scope).Where("u.id = ?", id).SQL()
	u, err := scanUser(s.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, db.TranslateError(err, "user")
	}
	return u, nil
}

func (s *pgStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	sql, args := db.Select("users", "u").Columns(userColumns).Where("u.email = ?", NormalizeEmail(email)).SQL()
	u, err := scanUser(s.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, db.TranslateError(err, "user")
	}
	return u, nil
}

func (s *pgStore) GetByLogin(ctx context.Context, login string) (*User, error) {
	if strings.Contains(login, "@") {
		return s.GetByEmail(ctx, login)
	}
	sql, args := db.Select("users", "u").Columns(userColumns).Where("u.username = ?", login).SQL()
	u, err := scanUser(s.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, db.TranslateError(err, "user")
	}
	return u, nil
}

func (s *pgStore) UpdateProfile(ctx context.Context, u *User) error {
	query := `UPDATE users
	          SET email = $1, full_name = $2, bio = $3, profile_image_url = $4, is_verified = $5,
	              updated_at = $6, updated_by = $7
	          WHERE id = $8 AND deleted_at IS NULL`
	tag, err := s.pool.Exec(ctx, query,
		u.Email, u.FullName, u.Bio, u.ProfileImageURL, u.IsVerified, u.UpdatedAt, u.UpdatedBy, u.ID)
	if err != nil {
		return db.TranslateError(err, "user", constraintMessages)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError("user not found", nil)
	}
	return nil
}

func (s *pgStore) UpdatePassword(ctx context.Context, id int64, currentHash, newHash string, actor *int64, now time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2, updated_by = $3
		 WHERE id = $4 AND password_hash = $5 AND deleted_at IS NULL`,
		newHash, now, actor, id, currentHash)
	if err != nil {
		return db.TranslateError(err, "user")
	}
	if tag.RowsAffected() == 0 {
		return ErrCredentialChanged
	}
	return nil
}

func (s *pgStore) SoftDelete(ctx context.Context, id, actor int64, now time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET deleted_at = $1, is_active = FALSE, updated_at = $1, updated_by = $2
		 WHERE id = $3 AND deleted_at IS NULL`,
		now, actor, id)
	if err != nil {
		return db.TranslateError(err, "user")
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, id, audit.Scope{IncludeDeleted: true}); err != nil {
			return err
		}
		return apperror.NewAlreadyDeletedError("account is already deactivated")
	}
	return nil
}

func (s *pgStore) ConsumeVerification(ctx context.Context, userID int64, email, jti string, expiresAt, now time.Time) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO used_tokens (jti, purpose, subject_id, used_at, expires_at) VALUES ($1, 'email-verify', $2, $3, $4)`,
			jti, userID, now, expiresAt)
		if err != nil {
			return db.TranslateError(err, "token", constraintMessages)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE users SET is_verified = TRUE, updated_at = $1, updated_by = $2
			 WHERE id = $2 AND email = $3 AND deleted_at IS NULL`,
			now, userID, email)
		if err != nil {
			return db.TranslateError(err, "user")
		}
		if tag.RowsAffected() == 0 {
			return apperror.NewInvalidSignatureError("token is no longer valid", nil)
		}
		return nil
	})
}

func (s *pgStore) PruneUsedTokens(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM used_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, db.TranslateError(err, "token")
	}
	return tag.RowsAffected(), nil
}
