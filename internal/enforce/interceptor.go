package enforce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"labtrail/internal/audit"
	"labtrail/internal/audit/auditctx"
	"labtrail/internal/identity"
	"labtrail/internal/registry"
)

// Mutation describes one write against a regulated entity, as seen by the
// repository layer: the row before the write (nil on create) and after it
// (nil on hard delete).
type Mutation struct {
	Entity   string
	EntityID string
	Before   audit.Snapshot
	After    audit.Snapshot
}

// Interceptor is the synchronous policy gate on every write to a regulated
// entity. Guard runs inside the same transaction as the guarded write: on
// success it appends exactly one audit event and lets the write commit with
// it; on any failure the enclosing transaction rolls back and neither the
// write nor an event becomes visible.
type Interceptor struct {
	registry *registry.Service
	events   *audit.Service
	gate     *DeleteGate
	hooks    *HookTable
	logger   *slog.Logger
}

type InterceptorOption func(*Interceptor)

func WithLogger(logger *slog.Logger) InterceptorOption {
	return func(i *Interceptor) { i.logger = logger }
}

func NewInterceptor(reg *registry.Service, events *audit.Service, gate *DeleteGate, hooks *HookTable, opts ...InterceptorOption) *Interceptor {
	i := &Interceptor{
		registry: reg,
		events:   events,
		gate:     gate,
		hooks:    hooks,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Attach self-registers enforcement for one entity in the hook table. The
// fields slice declares the guarded table's columns so the compliance
// checker can verify soft-delete markers exist.
func (i *Interceptor) Attach(entity string, fields []string, deleteGateWired bool) {
	i.hooks.Register(registry.Wiring{
		Entity:          entity,
		DeleteGateWired: deleteGateWired,
		Fields:          fields,
	})
}

// Hooks exposes the self-registration table for the compliance checker.
func (i *Interceptor) Hooks() *HookTable { return i.hooks }

// SetContext validates and attaches the justification context to the
// transaction's context. A supplied reason code is validated pre-flight so
// bad justification is rejected before any write is attempted.
func (i *Interceptor) SetContext(ctx context.Context, ac auditctx.Context) (context.Context, error) {
	if ac.ReasonCode != "" {
		if _, err := i.registry.Validate(ctx, ac.ReasonCode); err != nil {
			return nil, &InvalidReasonCodeError{Code: ac.ReasonCode, cause: err}
		}
	}
	return auditctx.With(ctx, ac), nil
}

// Guard validates one mutation and appends its audit event. It must run in
// the same transaction as the write it guards.
func (i *Interceptor) Guard(ctx context.Context, m Mutation) error {
	start := time.Now()
	defer func() {
		guardDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	err := i.guard(ctx, m)
	if err != nil {
		guardDenialsTotal.WithLabelValues(denialCause(err)).Inc()
	}
	return err
}

func (i *Interceptor) guard(ctx context.Context, m Mutation) error {
	if m.Entity == "" || m.EntityID == "" {
		return fmt.Errorf("mutation requires entity name and id")
	}

	// An unregistered entity reaching the interceptor is a wiring bug;
	// absence of declared policy is treated as unauthorized, not as
	// implicitly allowed.
	policy, err := i.registry.PolicyFor(ctx, m.Entity)
	if err != nil {
		return err
	}

	action := classify(policy, m)
	ac, hasCtx := auditctx.From(ctx)

	if action == audit.ActionDelete {
		if err := i.gate.Authorize(ctx, m.Entity); err != nil {
			return err
		}
	}

	if !policy.AuditRequired {
		return nil
	}

	if ac.SystemPrincipal {
		return i.appendEvent(ctx, normalizeSystem(ac), action, m)
	}

	if action != audit.ActionCreate {
		if !hasCtx {
			return ErrContextMissing
		}
		if strings.TrimSpace(ac.ActorID) == "" {
			return ErrActorMissing
		}
		if policy.ReasonRequiredOnMutation && ac.ReasonCode == "" {
			return ErrReasonMissing
		}
	}

	if action == audit.ActionCreate && ac.ReasonCode == "" {
		ac.ReasonCode = registry.ReasonInitialEntry
	}

	if ac.ReasonCode != "" {
		rc, err := i.registry.Validate(ctx, ac.ReasonCode)
		if err != nil {
			return &InvalidReasonCodeError{Code: ac.ReasonCode, cause: err}
		}
		if rc.RequiresDetail && strings.TrimSpace(ac.ReasonDetail) == "" {
			return &DetailRequiredError{ReasonCode: rc.Code}
		}
	}

	return i.appendEvent(ctx, ac, action, m)
}

func (i *Interceptor) appendEvent(ctx context.Context, ac auditctx.Context, action audit.Action, m Mutation) error {
	event := audit.Event{
		ActorID:         ac.ActorID,
		ActorStableCode: ac.ActorStableCode,
		Action:          action,
		EntityName:      m.Entity,
		EntityID:        m.EntityID,
		Before:          m.Before,
		After:           m.After,
		ReasonCode:      ac.ReasonCode,
		ReasonDetail:    ac.ReasonDetail,
		Source:          ac.Source,
	}
	if err := i.events.Append(ctx, event); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	guardedWritesTotal.WithLabelValues(m.Entity, string(action)).Inc()
	return nil
}

// normalizeSystem rewrites the context for an authenticated service
// principal: the actor collapses to the SYSTEM sentinel and missing detail
// is synthesized from the source tag so the record stays self-describing.
func normalizeSystem(ac auditctx.Context) auditctx.Context {
	ac.ActorID = ""
	ac.ActorStableCode = identity.SystemStableCode
	if strings.TrimSpace(ac.ReasonDetail) == "" {
		ac.ReasonDetail = "system operation via " + ac.Source
	}
	return ac
}

// classify derives the logical action from the snapshot pair. SoftDelete is
// an update whose deletion marker transitions from unset to set, on an
// entity that declares soft-delete support.
func classify(policy registry.EntityPolicy, m Mutation) audit.Action {
	if m.Before == nil {
		return audit.ActionCreate
	}
	if m.After == nil {
		return audit.ActionDelete
	}
	if policy.SoftDeleteSupported {
		field := policy.MarkerField()
		if !markerSet(m.Before, field) && markerSet(m.After, field) {
			return audit.ActionSoftDelete
		}
	}
	return audit.ActionUpdate
}

// markerSet reports whether a deletion marker carries a "set" value; nil,
// empty string and false all read as unset.
func markerSet(s audit.Snapshot, field string) bool {
	v, ok := s[field]
	if !ok || v == nil {
		return false
	}
	switch value := v.(type) {
	case string:
		return value != ""
	case bool:
		return value
	}
	return true
}

func denialCause(err error) string {
	var (
		invalidReason    *InvalidReasonCodeError
		detailRequired   *DetailRequiredError
		deleteBlocked    *DeleteBlockedError
		deleteRestricted *DeleteRestrictedError
	)
	switch {
	case errors.Is(err, ErrActorMissing):
		return "actor_missing"
	case errors.Is(err, ErrReasonMissing):
		return "reason_missing"
	case errors.Is(err, ErrContextMissing):
		return "context_missing"
	case errors.As(err, &invalidReason):
		return "invalid_reason"
	case errors.As(err, &detailRequired):
		return "detail_required"
	case errors.As(err, &deleteBlocked):
		return "delete_blocked"
	case errors.As(err, &deleteRestricted):
		return "delete_restricted"
	}
	return "other"
}
