package memory

import (
	"context"
	"sort"
	"sync"

	"labtrail/internal/identity"
	"labtrail/pkg/platform/sentinel"
)

// Store is the in-memory twin of the Postgres identity store.
type Store struct {
	mu      sync.RWMutex
	byActor map[string]identity.Identity
	byCode  map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		byActor: make(map[string]identity.Identity),
		byCode:  make(map[string]struct{}),
	}
}

func (s *Store) Create(_ context.Context, ident identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byActor[ident.ActorID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byCode[ident.StableCode]; exists {
		return sentinel.ErrConflict
	}
	s.byActor[ident.ActorID] = ident
	s.byCode[ident.StableCode] = struct{}{}
	return nil
}

func (s *Store) Find(_ context.Context, actorID string) (identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.byActor[actorID]
	if !ok {
		return identity.Identity{}, sentinel.ErrNotFound
	}
	return ident, nil
}

func (s *Store) Update(_ context.Context, ident identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byActor[ident.ActorID]
	if !ok {
		return sentinel.ErrNotFound
	}
	// Stable code is immutable; keep the original no matter what the
	// caller passed.
	ident.StableCode = existing.StableCode
	ident.CreatedAt = existing.CreatedAt
	s.byActor[ident.ActorID] = ident
	return nil
}

func (s *Store) List(_ context.Context) ([]identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]identity.Identity, 0, len(s.byActor))
	for _, ident := range s.byActor {
		out = append(out, ident)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
