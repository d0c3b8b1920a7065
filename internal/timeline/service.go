package timeline

import (
	"context"
	"time"

	"labtrail/internal/audit"
)

// Entry is one reconstructed timeline row for reporting and UI consumers.
type Entry struct {
	OccurredAt time.Time
	Action     audit.Action
	// Actor is the resolved display for the acting principal, computed
	// live so identity redaction applies retroactively.
	Actor         string
	ReasonCode    string
	ReasonDetail  string
	Source        string
	ChangeSummary string
}

// DisplayResolver resolves an actor id to its current display string.
// identity.Service satisfies it.
type DisplayResolver interface {
	ResolveDisplay(ctx context.Context, actorID string) (string, error)
}

// Service reconstructs deterministic per-entity timelines from the event
// log.
type Service struct {
	events   *audit.Service
	resolver DisplayResolver
	differ   *Differ
}

type Option func(*Service)

// WithExcludedFields overrides the store-managed fields dropped from
// change summaries.
func WithExcludedFields(fields []string) Option {
	return func(s *Service) { s.differ = NewDiffer(fields) }
}

func NewService(events *audit.Service, resolver DisplayResolver, opts ...Option) *Service {
	s := &Service{
		events:   events,
		resolver: resolver,
		differ:   NewDiffer(DefaultExcludedFields),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeline returns the full reconstructed history of one entity instance,
// most recent first. The change summaries are pure functions of the stored
// snapshots: identical stored data always renders identical strings.
func (s *Service) Timeline(ctx context.Context, entityName, entityID string) ([]Entry, error) {
	events, err := s.events.History(ctx, entityName, entityID)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(events))
	for _, event := range events {
		entry := Entry{
			OccurredAt:   event.OccurredAt,
			Action:       event.Action,
			Actor:        s.resolveActor(ctx, event),
			ReasonCode:   event.ReasonCode,
			ReasonDetail: event.ReasonDetail,
			Source:       event.Source,
		}
		switch event.Action {
		case audit.ActionUpdate, audit.ActionSoftDelete:
			entry.ChangeSummary = s.differ.Summarize(event.Before, event.After)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// resolveActor prefers the live identity record; events without an actor id
// (system operations) and actors the resolver no longer knows fall back to
// the stable code snapshot denormalized into the event.
func (s *Service) resolveActor(ctx context.Context, event audit.Event) string {
	if event.ActorID == "" {
		return event.ActorStableCode
	}
	display, err := s.resolver.ResolveDisplay(ctx, event.ActorID)
	if err != nil {
		// Unknown or unreachable identity: the denormalized stable code
		// still identifies the actor without exposing a name.
		return event.ActorStableCode
	}
	return display
}
