package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/productlens/ingest/internal/domain"
)

// MemoryStore is a thread-safe in-memory document store used for dry runs and tests
type MemoryStore struct {
	docs    map[string]map[string]interface{}
	indexes map[string]IndexSpec
	mutex   sync.RWMutex
}

// NewMemoryStore creates a new in-memory document store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:    make(map[string]map[string]interface{}),
		indexes: make(map[string]IndexSpec),
	}
}

// EnsureIndexes registers the product index set; repeated calls are no-ops
func (s *MemoryStore) EnsureIndexes(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, spec := range ProductIndexes {
		if _, exists := s.indexes[spec.Name]; !exists {
			s.indexes[spec.Name] = spec
		}
	}
	return nil
}

// UpsertBatch replaces or inserts each record keyed by id
func (s *MemoryStore) UpsertBatch(ctx context.Context, records []domain.CanonicalRecord) (*domain.UpsertResult, error) {
	result := &domain.UpsertResult{}

	for i := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		doc, err := toDocument(&records[i])
		if err != nil {
			result.Failed = append(result.Failed, domain.WriteError{ID: records[i].ID, Err: err})
			continue
		}

		s.mutex.Lock()
		s.docs[records[i].ID] = doc
		s.mutex.Unlock()
		result.Upserted++
	}

	return result, nil
}

// Get returns the stored document for id
func (s *MemoryStore) Get(id string) (map[string]interface{}, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	doc, ok := s.docs[id]
	return doc, ok
}

// IndexNames returns the provisioned index names
func (s *MemoryStore) IndexNames() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	names := make([]string, 0, len(s.indexes))
	for _, spec := range ProductIndexes {
		if _, ok := s.indexes[spec.Name]; ok {
			names = append(names, spec.Name)
		}
	}
	return names
}

// Size returns the number of stored documents
func (s *MemoryStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.docs)
}

// Clear removes all documents
func (s *MemoryStore) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.docs = make(map[string]map[string]interface{})
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}

// toDocument serializes the record to JSON and back so stored documents have
// the same shape a real document store would return
func toDocument(record *domain.CanonicalRecord) (map[string]interface{}, error) {
	data, err := encodeDocument(record)
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDocument, err)
	}
	return doc, nil
}
