package registry

import "context"

// ReasonStore persists justification codes.
type ReasonStore interface {
	Upsert(ctx context.Context, code ReasonCode) error
	// Find returns the code regardless of its active flag; callers decide
	// whether inactive is acceptable. Missing codes yield sentinel.ErrNotFound.
	Find(ctx context.Context, code string) (ReasonCode, error)
	List(ctx context.Context) ([]ReasonCode, error)
	SetActive(ctx context.Context, code string, active bool) error
}

// PolicyStore persists regulated-entity policies.
type PolicyStore interface {
	Upsert(ctx context.Context, policy EntityPolicy) error
	Find(ctx context.Context, entityName string) (EntityPolicy, error)
	List(ctx context.Context) ([]EntityPolicy, error)
}
