package audit

import (
	"context"
	"log/slog"
	"time"
)

// SystemSourcePrefixes mark writes originating from automated jobs rather
// than a human actor. The enforcement layer consults the same list when
// normalizing system writes; SystemOperations filters by it.
var SystemSourcePrefixes = []string{"system:", "import:"}

// IsSystemSource reports whether a source tag carries a recognized system
// prefix. The tag alone never grants an exemption; see enforce.Interceptor.
func IsSystemSource(source string) bool {
	for _, prefix := range SystemSourcePrefixes {
		if len(source) >= len(prefix) && source[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// Service exposes the read side of the event log for reporting and UI
// collaborators. All writes go through the enforcement layer.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History returns the full event list for one entity instance, most recent
// first.
func (s *Service) History(ctx context.Context, entityName, entityID string) ([]Event, error) {
	return s.store.ListByEntity(ctx, entityName, entityID)
}

// RecentChanges returns events recorded within the trailing window.
func (s *Service) RecentChanges(ctx context.Context, window time.Duration, limit int) ([]Event, error) {
	since := time.Now().Add(-window)
	return s.store.ListSince(ctx, since, limit)
}

// SystemOperations returns events whose source carries a recognized system
// prefix.
func (s *Service) SystemOperations(ctx context.Context, limit int) ([]Event, error) {
	return s.store.ListBySourcePrefix(ctx, SystemSourcePrefixes, limit)
}

// Append persists one event inside the caller's transaction. Reserved for
// the enforcement layer; reporting callers have no write path.
func (s *Service) Append(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := s.store.Append(ctx, event); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "audit event appended",
		"entity", event.EntityName,
		"entity_id", event.EntityID,
		"action", string(event.Action),
		"source", event.Source,
		"log_type", "audit",
	)
	return nil
}
