// Package store provides storage backends for HabitLens.
//
// Every backend implements DocumentStore: documents are JSON objects keyed by
// (collection, id), written with upsert-merge and read by point lookup. Repository layers
// the typed profile, schedule, session and habit operations on top.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// DocumentStore is a key-value document interface keyed by (collection, id).
// Upsert merges the given top-level fields into the stored document, creating it if needed.
// Get returns models.ErrNotFound for a missing document. Writes are last-writer-wins.
type DocumentStore interface {
	Upsert(ctx context.Context, collection, id string, fields map[string]any) error
	Get(ctx context.Context, collection, id string) (map[string]any, error)
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType returns "postgres" for PostgreSQL URLs or key/value DSNs and "sqlite3" otherwise.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// New opens the backend matching the configured DSN. Without a DSN an in-memory store is used.
func New(opts ...Option) (DocumentStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	switch {
	case cfg.DSN == "":
		slog.Info("No database DSN configured, using in-memory store")
		return NewMemoryStore(), nil
	case DetectDSNType(cfg.DSN) == "postgres":
		return NewPostgresStore(opts...)
	default:
		return NewSQLiteStore(opts...)
	}
}

// encodeFields marshals fields into a JSON object.
func encodeFields(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

// decodeDocument unmarshals a stored JSON object.
func decodeDocument(data []byte) (map[string]any, error) {
	doc := map[string]any{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
