package audit

import (
	"context"
	"time"
)

// Store is the append-only event log. Implementations must reject every
// mutation of an existing event; Append is the only write.
type Store interface {
	Append(ctx context.Context, event Event) error
	// ListByEntity returns all events for one entity instance, most
	// recent first.
	ListByEntity(ctx context.Context, entityName, entityID string) ([]Event, error)
	// ListSince returns events with occurred_at >= since, most recent
	// first, capped at limit (0 means no cap).
	ListSince(ctx context.Context, since time.Time, limit int) ([]Event, error)
	// ListBySourcePrefix returns events whose source starts with any of
	// the given prefixes, most recent first.
	ListBySourcePrefix(ctx context.Context, prefixes []string, limit int) ([]Event, error)
}
