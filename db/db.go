// Package db provides database connectivity, migrations, transactions and the
// scoped query builder for the blog platform.
// It owns the pgx connection pool handed to every store, and golang-migrate is
// driven from here for both the `migrate` command and AUTO_MIGRATE startup.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	// The postgres database driver and file source register themselves with
	// golang-migrate; lib/pq is the database/sql driver underneath.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/config"
)

// NewPool establishes the application connection pool and verifies it with a ping.
func NewPool(ctx context.Context, cfg config.PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, apperror.NewDatabaseError(fmt.Sprintf("error parsing DSN for database %s", cfg.DBName), err)
	}

	poolConfig.MaxConns = int32(cfg.MaxSize)
	poolConfig.MaxConnIdleTime = 10 * time.Minute
	poolConfig.MaxConnLifetime = 30 * time.Minute

	createCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(createCtx, poolConfig)
	if err != nil {
		return nil, apperror.NewDatabaseError(fmt.Sprintf("error creating pgxpool for database %s", cfg.DBName), err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, apperror.NewDatabaseError(fmt.Sprintf("error connecting to the database %s", cfg.DBName), err)
	}

	return pool, nil
}

// EnableExtensions enables the PostgreSQL extensions the schema relies on.
// pg_trgm backs the trigram indexes used by post search.
func EnableExtensions(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ext := range []string{"pg_trgm"} {
		execCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := pool.Exec(execCtx, fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS %s;", ext))
		cancel()
		if err != nil {
			return apperror.NewDatabaseError(fmt.Sprintf("failed to create extension %s", ext), err)
		}
	}
	return nil
}

// Migrator wraps golang-migrate for the migrations directory.
// Files are named {version}_{title}.up.sql / {version}_{title}.down.sql.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator opens the migration source and target database.
func NewMigrator(cfg config.PoolConfig, migrationsPath string) (*Migrator, error) {
	m, err := migrate.New("file://"+migrationsPath, cfg.DSN())
	if err != nil {
		return nil, apperror.NewMigrationError("failed to create migrator", err)
	}
	return &Migrator{m: m}, nil
}

// Up applies every pending migration. No pending migration is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return apperror.NewMigrationError("failed to run migrations", err)
	}
	return nil
}

// Down rolls back the given number of migrations.
func (mg *Migrator) Down(steps int) error {
	if steps < 1 {
		return apperror.NewMigrationError(fmt.Sprintf("steps must be positive, got %d", steps), nil)
	}
	if err := mg.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return apperror.NewMigrationError("failed to roll back migrations", err)
	}
	return nil
}

// Version reports the current schema version and whether it is dirty.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperror.NewMigrationError("failed to read schema version", err)
	}
	return v, dirty, nil
}

// Close releases the migration source and database handles.
func (mg *Migrator) Close() {
	if srcErr, dbErr := mg.m.Close(); srcErr != nil || dbErr != nil {
		if srcErr != nil {
			log.Printf("Warning: error closing migration source: %v", srcErr)
		}
		if dbErr != nil {
			log.Printf("Warning: error closing migration database instance: %v", dbErr)
		}
	}
}

// RunMigrations applies all pending migrations in one call.
func RunMigrations(cfg config.PoolConfig, migrationsPath string) error {
	mg, err := NewMigrator(cfg, migrationsPath)
	if err != nil {
		return err
	}
	defer mg.Close()
	return mg.Up()
}
