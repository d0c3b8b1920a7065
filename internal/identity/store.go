package identity

import "context"

// Store persists identities. StableCode is written once at Create and never
// changed afterwards; Update refuses to touch it.
type Store interface {
	Create(ctx context.Context, ident Identity) error
	Find(ctx context.Context, actorID string) (Identity, error)
	// Update persists display name and redacted flag for an existing
	// identity. The stable code column is never part of the update.
	Update(ctx context.Context, ident Identity) error
	List(ctx context.Context) ([]Identity, error)
}
