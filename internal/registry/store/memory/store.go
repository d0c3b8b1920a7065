package memory

import (
	"context"
	"sort"
	"sync"

	"labtrail/internal/registry"
	"labtrail/pkg/platform/sentinel"
)

// ReasonStore is the in-memory twin of the Postgres reason-code store.
type ReasonStore struct {
	mu    sync.RWMutex
	codes map[string]registry.ReasonCode
}

func NewReasonStore() *ReasonStore {
	return &ReasonStore{codes: make(map[string]registry.ReasonCode)}
}

func (s *ReasonStore) Upsert(_ context.Context, code registry.ReasonCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.Code] = code
	return nil
}

func (s *ReasonStore) Find(_ context.Context, code string) (registry.ReasonCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rc, ok := s.codes[code]
	if !ok {
		return registry.ReasonCode{}, sentinel.ErrNotFound
	}
	return rc, nil
}

func (s *ReasonStore) List(_ context.Context) ([]registry.ReasonCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]registry.ReasonCode, 0, len(s.codes))
	for _, rc := range s.codes {
		out = append(out, rc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *ReasonStore) SetActive(_ context.Context, code string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rc, ok := s.codes[code]
	if !ok {
		return sentinel.ErrNotFound
	}
	rc.Active = active
	s.codes[code] = rc
	return nil
}

// PolicyStore is the in-memory twin of the Postgres policy store.
type PolicyStore struct {
	mu       sync.RWMutex
	policies map[string]registry.EntityPolicy
}

func NewPolicyStore() *PolicyStore {
	return &PolicyStore{policies: make(map[string]registry.EntityPolicy)}
}

func (s *PolicyStore) Upsert(_ context.Context, policy registry.EntityPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[policy.EntityName] = policy
	return nil
}

func (s *PolicyStore) Find(_ context.Context, entityName string) (registry.EntityPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	policy, ok := s.policies[entityName]
	if !ok {
		return registry.EntityPolicy{}, sentinel.ErrNotFound
	}
	return policy, nil
}

func (s *PolicyStore) List(_ context.Context) ([]registry.EntityPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]registry.EntityPolicy, 0, len(s.policies))
	for _, policy := range s.policies {
		out = append(out, policy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityName < out[j].EntityName })
	return out, nil
}
