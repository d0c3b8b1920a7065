// Package auditctx carries the transaction-scoped audit context: who is
// acting, why, and from where. The context is explicit: it is set once per
// transaction by the caller (or HTTP middleware) and read by the
// enforcement layer; it never leaks across transactions because it travels
// on the context.Context that scopes the transaction itself.
package auditctx

import (
	"context"
)

// Context is the justification context for one guarded transaction.
type Context struct {
	// ActorID is the identity-provider id of the acting principal.
	ActorID string
	// ActorStableCode is the actor's immutable audit code, resolved at
	// context-set time and denormalized into every event.
	ActorStableCode string
	// ReasonCode references a registered justification code. Optional for
	// creates; mandatory for other mutations of regulated entities.
	ReasonCode string
	// ReasonDetail is free-text elaboration, mandatory when the reason
	// code requires it.
	ReasonDetail string
	// Source tags the origin of the write, e.g. "web:equipment-form".
	Source string
	// Roles are the caller's roles, used by the hard-delete gate for
	// RestrictedToRoles entities.
	Roles []string
	// SystemPrincipal marks an authenticated service principal. Only
	// trusted wiring sets it; the exemption from justification checks
	// binds to this flag, never to the caller-controlled Source string.
	SystemPrincipal bool
}

type ctxKey struct{}

var contextKey = ctxKey{}

// With attaches an audit context to ctx.
func With(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, contextKey, ac)
}

// From retrieves the audit context, reporting whether one was set.
func From(ctx context.Context) (Context, bool) {
	ac, ok := ctx.Value(contextKey).(Context)
	return ac, ok
}

// HasRole reports whether the context carries the given role.
func (c Context) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
