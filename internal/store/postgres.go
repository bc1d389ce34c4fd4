// Package store provides storage backends for HabitLens.
//
// This file implements a PostgreSQL-backed document store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/HabitLens/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// Upsert merges fields into the document with the jsonb concatenation operator.
func (s *PostgresStore) Upsert(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := encodeFields(fields)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, $4)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = documents.data || EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, query, collection, id, string(data), time.Now().UTC()); err != nil {
		slog.Error("PostgresStore Upsert failed", "error", err, "collection", collection, "id", id)
		return fmt.Errorf("failed to upsert %s/%s: %w", collection, id, err)
	}
	slog.Debug("PostgresStore Upsert succeeded", "collection", collection, "id", id)
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data::text FROM documents WHERE collection = $1 AND id = $2`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("PostgresStore Get not found", "collection", collection, "id", id)
		return nil, models.ErrNotFound
	}
	if err != nil {
		slog.Error("PostgresStore Get failed", "error", err, "collection", collection, "id", id)
		return nil, fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
	}
	return decodeDocument([]byte(data))
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id); err != nil {
		slog.Error("PostgresStore Delete failed", "error", err, "collection", collection, "id", id)
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	slog.Debug("PostgresStore Delete succeeded", "collection", collection, "id", id)
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
