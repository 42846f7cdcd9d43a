package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/user/blogplatform-go/apperror"
)

func TestTranslateError(t *testing.T) {
	messages := ConstraintMessages{"users_email_key": "email already exists"}

	if TranslateError(nil, "user") != nil {
		t.Fatal("nil must stay nil")
	}

	err := TranslateError(fmt.Errorf("scan: %w", pgx.ErrNoRows), "post")
	if !apperror.IsNotFound(err) || apperror.FromError(err).Message != "post not found" {
		t.Fatalf("expected NotFound, got %v", err)
	}

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	err = TranslateError(unique, "user", messages)
	if !apperror.IsConflictError(err) || apperror.FromError(err).Message != "email already exists" {
		t.Fatalf("expected mapped Conflict, got %v", err)
	}
	if !IsUniqueViolation(unique, "users_email_key") || IsUniqueViolation(unique, "other") {
		t.Fatal("unexpected unique violation match")
	}

	fk := &pgconn.PgError{Code: "23503", ConstraintName: "posts_category_id_fkey"}
	if err := TranslateError(fk, "post"); !apperror.IsNotFound(err) {
		t.Fatalf("expected NotFound for foreign key, got %v", err)
	}

	forbidden := apperror.NewForbiddenError("nope")
	if err := TranslateError(forbidden, "post"); !apperror.IsForbidden(err) {
		t.Fatalf("app errors must pass through, got %v", err)
	}

	err = TranslateError(errors.New("connection reset"), "post")
	if !apperror.Is(err, apperror.DatabaseError) {
		t.Fatalf("expected DatabaseError, got %v", err)
	}
	if apperror.FromError(err).ToResponse().Message == "connection reset" {
		t.Fatal("raw storage error leaked to client message")
	}
}
