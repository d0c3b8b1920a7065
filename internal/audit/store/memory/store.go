package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"labtrail/internal/audit"
)

// Store is the in-memory twin of the Postgres event log, used in unit
// tests. It mirrors the append-only contract: events are deep-copied on
// write and on read, so no caller can alter a stored event.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, event audit.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, copyEvent(event))
	return nil
}

func (s *Store) ListByEntity(_ context.Context, entityName, entityID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.EntityName == entityName && e.EntityID == entityID {
			out = append(out, copyEvent(e))
		}
	}
	sortDescending(out)
	return out, nil
}

func (s *Store) ListSince(_ context.Context, since time.Time, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if !e.OccurredAt.Before(since) {
			out = append(out, copyEvent(e))
		}
	}
	sortDescending(out)
	return capped(out, limit), nil
}

func (s *Store) ListBySourcePrefix(_ context.Context, prefixes []string, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		for _, prefix := range prefixes {
			if strings.HasPrefix(e.Source, prefix) {
				out = append(out, copyEvent(e))
				break
			}
		}
	}
	sortDescending(out)
	return capped(out, limit), nil
}

// Len reports the number of stored events. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// All returns every stored event in append order. Test helper.
func (s *Store) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, copyEvent(e))
	}
	return out
}

// sortDescending orders newest first, breaking timestamp ties by id the
// same way the postgres store's ORDER BY does.
func sortDescending(events []audit.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].OccurredAt.After(events[j].OccurredAt)
		}
		return events[i].ID.String() > events[j].ID.String()
	})
}

func capped(events []audit.Event, limit int) []audit.Event {
	if limit > 0 && len(events) > limit {
		return events[:limit]
	}
	return events
}

func copyEvent(e audit.Event) audit.Event {
	e.Before = copySnapshot(e.Before)
	e.After = copySnapshot(e.After)
	return e
}

func copySnapshot(s audit.Snapshot) audit.Snapshot {
	if s == nil {
		return nil
	}
	out := make(audit.Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
