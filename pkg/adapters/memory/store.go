package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Store implements ports.TreeStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Node
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Node),
	}
}

// Save keeps a deep copy of the tree.
func (s *Store) Save(ctx context.Context, key string, root *domain.Node) error {
	if key == "" {
		return domain.ErrInvalidKey
	}
	copied := root.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = copied
	return nil
}

// Load returns a copy so callers can't mutate the stored tree by pointer.
func (s *Store) Load(ctx context.Context, key string) (*domain.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	root, ok := s.data[key]
	if !ok {
		return nil, domain.ErrTreeNotFound
	}
	return root.Clone(), nil
}

// Delete removes the tree.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns the stored keys.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}
