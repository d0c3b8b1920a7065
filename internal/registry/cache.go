package registry

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how stale a decision-time registry read may be.
// Administrative writes invalidate eagerly, so the TTL only matters when
// several instances share the cache.
const DefaultCacheTTL = 5 * time.Minute

const (
	reasonKeyPrefix = "labtrail:reason:"
	policyKeyPrefix = "labtrail:policy:"
)

// CachedReasonStore is a Redis read-through decorator over a ReasonStore.
// Validate sits on the write path of every guarded mutation, so the hot
// codes are served from cache. Cache failures fall back to the underlying
// store; the cache can never make a valid code look invalid or vice versa
// for longer than the TTL.
type CachedReasonStore struct {
	ReasonStore
	client *redis.Client
	ttl    time.Duration
}

func NewCachedReasonStore(store ReasonStore, client *redis.Client, ttl time.Duration) *CachedReasonStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedReasonStore{ReasonStore: store, client: client, ttl: ttl}
}

func (s *CachedReasonStore) Find(ctx context.Context, code string) (ReasonCode, error) {
	key := reasonKeyPrefix + code
	if raw, err := s.client.Get(ctx, key).Bytes(); err == nil {
		var rc ReasonCode
		if err := json.Unmarshal(raw, &rc); err == nil {
			return rc, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// Degrade to the source of truth on cache trouble.
		return s.ReasonStore.Find(ctx, code)
	}

	rc, err := s.ReasonStore.Find(ctx, code)
	if err != nil {
		return ReasonCode{}, err
	}
	if raw, err := json.Marshal(rc); err == nil {
		s.client.Set(ctx, key, raw, s.ttl)
	}
	return rc, nil
}

func (s *CachedReasonStore) Upsert(ctx context.Context, code ReasonCode) error {
	if err := s.ReasonStore.Upsert(ctx, code); err != nil {
		return err
	}
	s.client.Del(ctx, reasonKeyPrefix+code.Code)
	return nil
}

func (s *CachedReasonStore) SetActive(ctx context.Context, code string, active bool) error {
	if err := s.ReasonStore.SetActive(ctx, code, active); err != nil {
		return err
	}
	s.client.Del(ctx, reasonKeyPrefix+code)
	return nil
}

// CachedPolicyStore is the same read-through decorator for entity policies.
type CachedPolicyStore struct {
	PolicyStore
	client *redis.Client
	ttl    time.Duration
}

func NewCachedPolicyStore(store PolicyStore, client *redis.Client, ttl time.Duration) *CachedPolicyStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedPolicyStore{PolicyStore: store, client: client, ttl: ttl}
}

func (s *CachedPolicyStore) Find(ctx context.Context, entityName string) (EntityPolicy, error) {
	key := policyKeyPrefix + entityName
	if raw, err := s.client.Get(ctx, key).Bytes(); err == nil {
		var policy EntityPolicy
		if err := json.Unmarshal(raw, &policy); err == nil {
			return policy, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return s.PolicyStore.Find(ctx, entityName)
	}

	policy, err := s.PolicyStore.Find(ctx, entityName)
	if err != nil {
		return EntityPolicy{}, err
	}
	if raw, err := json.Marshal(policy); err == nil {
		s.client.Set(ctx, key, raw, s.ttl)
	}
	return policy, nil
}

func (s *CachedPolicyStore) Upsert(ctx context.Context, policy EntityPolicy) error {
	if err := s.PolicyStore.Upsert(ctx, policy); err != nil {
		return err
	}
	s.client.Del(ctx, policyKeyPrefix+policy.EntityName)
	return nil
}
