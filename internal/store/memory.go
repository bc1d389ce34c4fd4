package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/BTreeMap/HabitLens/internal/models"
)

// MemoryStore is an in-memory DocumentStore, used for tests and when no DSN is configured.
// Documents are kept as encoded JSON so callers never share maps with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Upsert(ctx context.Context, collection, id string, fields map[string]any) error {
	update, err := encodeFields(fields)
	if err != nil {
		return err
	}
	patch, err := decodeDocument(update)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.ErrStoreUnavailable
	}

	coll := s.docs[collection]
	if coll == nil {
		coll = make(map[string][]byte)
		s.docs[collection] = coll
	}
	doc, err := decodeDocument(coll[id])
	if err != nil {
		return err
	}
	for k, v := range patch {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	coll[id] = merged
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, models.ErrStoreUnavailable
	}
	data, ok := s.docs[collection][id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return decodeDocument(data)
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.ErrStoreUnavailable
	}
	delete(s.docs[collection], id)
	return nil
}

// Close marks the store unavailable. Later calls fail with models.ErrStoreUnavailable.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
