package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is the logical mutation kind recorded for a guarded write.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionSoftDelete Action = "soft_delete"
)

// Snapshot is a field-name to value map capturing a row before or after a
// guarded write. Values round-trip through JSON in the store, so typed
// values must tolerate JSON's number/string/bool/null domain.
type Snapshot map[string]any

// Event is one immutable audit record. Exactly one Event is appended per
// guarded write, in the same transaction; it is never updated or deleted
// afterwards (enforced in the store and again by a database trigger).
type Event struct {
	ID         uuid.UUID
	OccurredAt time.Time
	// ActorID is the external identity-provider id of the acting principal.
	// Empty for system-sourced writes after normalization.
	ActorID string
	// ActorStableCode is a denormalized snapshot of the actor's immutable
	// stable code, so the record survives later identity changes.
	ActorStableCode string
	Action          Action
	EntityName      string
	EntityID        string
	// Before is nil iff Action is create. After is nil iff Action is delete.
	Before       Snapshot
	After        Snapshot
	ReasonCode   string
	ReasonDetail string
	// Source is a free-text origin tag supplied by the caller, e.g.
	// "web:equipment-form" or "system:retention-sweep".
	Source string
}

// Validate checks the structural invariants that hold for every stored
// event. The store refuses to append an event that violates them.
func (e Event) Validate() error {
	switch e.Action {
	case ActionCreate:
		if e.Before != nil {
			return fmt.Errorf("create event must not carry a before snapshot")
		}
		if e.After == nil {
			return fmt.Errorf("create event requires an after snapshot")
		}
	case ActionDelete:
		if e.Before == nil {
			return fmt.Errorf("delete event requires a before snapshot")
		}
		if e.After != nil {
			return fmt.Errorf("delete event must not carry an after snapshot")
		}
	case ActionUpdate, ActionSoftDelete:
		if e.Before == nil || e.After == nil {
			return fmt.Errorf("%s event requires both snapshots", e.Action)
		}
	default:
		return fmt.Errorf("unknown action %q", e.Action)
	}
	if e.EntityName == "" {
		return fmt.Errorf("event requires an entity name")
	}
	if e.EntityID == "" {
		return fmt.Errorf("event requires an entity id")
	}
	return nil
}
