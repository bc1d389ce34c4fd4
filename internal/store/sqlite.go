// Package store provides storage backends for HabitLens.
//
// This file implements an SQLite-backed document store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/BTreeMap/HabitLens/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully", "dir", dir)

	return &SQLiteStore{db: db}, nil
}

// Upsert merges fields into the document with json_patch.
func (s *SQLiteStore) Upsert(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := encodeFields(fields)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	query := `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (?, ?, json(?), ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			data = json_patch(documents.data, excluded.data),
			updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, collection, id, string(data), now, now); err != nil {
		slog.Error("SQLiteStore Upsert failed", "error", err, "collection", collection, "id", id)
		return fmt.Errorf("failed to upsert %s/%s: %w", collection, id, err)
	}
	slog.Debug("SQLiteStore Upsert succeeded", "collection", collection, "id", id)
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("SQLiteStore Get not found", "collection", collection, "id", id)
		return nil, models.ErrNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore Get failed", "error", err, "collection", collection, "id", id)
		return nil, fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
	}
	return decodeDocument([]byte(data))
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id); err != nil {
		slog.Error("SQLiteStore Delete failed", "error", err, "collection", collection, "id", id)
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	slog.Debug("SQLiteStore Delete succeeded", "collection", collection, "id", id)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	if err := s.db.Close(); err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
		return err
	}
	return nil
}
