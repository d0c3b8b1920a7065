package enforce

import (
	"context"
	"log/slog"
	"strings"

	"labtrail/internal/audit/auditctx"
	"labtrail/internal/registry"
)

// AllowlistEntity is the registry name under which allow-list rows are
// themselves regulated, so grants and revocations land in the event log.
const AllowlistEntity = "delete_role_allowlist"

// AllowlistStore holds the role allow-list consulted for entities with the
// restricted hard-delete posture.
type AllowlistStore interface {
	IsAllowed(ctx context.Context, entity, role string) (bool, error)
	Add(ctx context.Context, entry AllowlistEntry) error
	Remove(ctx context.Context, entity, role string) error
	List(ctx context.Context) ([]AllowlistEntry, error)
}

// AllowlistEntry grants one role the right to hard-delete one entity.
type AllowlistEntry struct {
	Entity  string
	Role    string
	AddedBy string
}

// DeleteGate authorizes hard deletions ahead of the interceptor, keyed by
// the entity's declared posture. Default is denial: a deletion proceeds
// only with explicit, provable justification.
type DeleteGate struct {
	policies  *registry.Service
	allowlist AllowlistStore
	logger    *slog.Logger
}

type GateOption func(*DeleteGate)

func GateWithLogger(logger *slog.Logger) GateOption {
	return func(g *DeleteGate) { g.logger = logger }
}

func NewDeleteGate(policies *registry.Service, allowlist AllowlistStore, opts ...GateOption) *DeleteGate {
	g := &DeleteGate{policies: policies, allowlist: allowlist, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize decides whether a hard deletion of the entity may proceed at
// all. It runs synchronously inside the caller's transaction; any failure
// aborts the whole transaction.
//
// Blocked denies everyone, system principals included. RestrictedToRoles
// demands an allow-listed role AND non-empty reason detail; the detail
// requirement has no privileged or system exception. Unrestricted falls
// through to the interceptor's ordinary rules.
func (g *DeleteGate) Authorize(ctx context.Context, entityName string) error {
	policy, err := g.policies.PolicyFor(ctx, entityName)
	if err != nil {
		return err
	}

	switch policy.HardDeletePolicy {
	case registry.DeleteBlocked:
		g.logger.WarnContext(ctx, "hard delete rejected by blocked posture", "entity", entityName)
		return &DeleteBlockedError{Entity: entityName}

	case registry.DeleteRestrictedToRoles:
		ac, ok := auditctx.From(ctx)
		if !ok {
			return ErrContextMissing
		}
		allowed := false
		for _, role := range ac.Roles {
			ok, err := g.allowlist.IsAllowed(ctx, entityName, role)
			if err != nil {
				return err
			}
			if ok {
				allowed = true
				break
			}
		}
		if !allowed {
			g.logger.WarnContext(ctx, "hard delete rejected: role not allow-listed",
				"entity", entityName, "roles", ac.Roles)
			return &DeleteRestrictedError{Entity: entityName, Roles: ac.Roles}
		}
		// Detail must be explicit. Synthesized system detail does not
		// count; deletion needs a human-stated justification.
		if strings.TrimSpace(ac.ReasonDetail) == "" {
			return &DetailRequiredError{}
		}
		return nil

	case registry.DeleteUnrestricted:
		return nil
	}

	// Unknown posture reads as blocked.
	return &DeleteBlockedError{Entity: entityName}
}
