package sessionstore

import (
	"context"
	"sync"
)

// MemoryStore keeps the session for the lifetime of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(_ context.Context, keys []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := s.values[key]; ok {
			out[key] = value
		}
	}
	return out, nil
}

func (s *MemoryStore) SetAll(_ context.Context, pairs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range pairs {
		s.values[key] = value
	}
	return nil
}

func (s *MemoryStore) RemoveAll(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}
