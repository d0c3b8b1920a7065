package allowlist

import (
	"context"
	"sort"
	"sync"

	"labtrail/internal/enforce"
)

// MemoryStore is the in-memory twin of the Postgres allow-list store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]enforce.AllowlistEntry
}

func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[string]enforce.AllowlistEntry)}
}

func key(entity, role string) string { return entity + "\x00" + role }

func (s *MemoryStore) IsAllowed(_ context.Context, entity, role string) (bool, error) {
	if role == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key(entity, role)]
	return ok, nil
}

func (s *MemoryStore) Add(_ context.Context, entry enforce.AllowlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key(entry.Entity, entry.Role)] = entry
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, entity, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key(entity, role))
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]enforce.AllowlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]enforce.AllowlistEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entity != out[j].Entity {
			return out[i].Entity < out[j].Entity
		}
		return out[i].Role < out[j].Role
	})
	return out, nil
}
