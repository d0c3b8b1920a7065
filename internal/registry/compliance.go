package registry

import (
	"context"
	"fmt"
	"sort"
)

// Inspector reports the enforcement wiring actually present at runtime.
// The interceptor layer implements it through self-registration, so the
// checker needs no reflection over the consuming service.
type Inspector interface {
	Wirings() []Wiring
}

// CheckCompliance reconciles declared policy against actual wiring. It is a
// pure function over its two inputs: no side effects, idempotent, and an
// empty result means fully compliant.
func CheckCompliance(policies []EntityPolicy, wirings []Wiring) []Drift {
	wired := make(map[string]Wiring, len(wirings))
	for _, w := range wirings {
		wired[w.Entity] = w
	}

	var drifts []Drift
	for _, p := range policies {
		w, ok := wired[p.EntityName]

		if p.AuditRequired && !ok {
			drifts = append(drifts, Drift{
				Entity:  p.EntityName,
				Problem: "audit required but no enforcement hook is wired",
			})
			continue
		}

		// An entity can skip event logging yet still declare a restrictive
		// delete posture or a soft-delete marker. With no wiring at all, w
		// is the zero Wiring and those checks fail below as they must.

		switch p.HardDeletePolicy {
		case DeleteBlocked, DeleteRestrictedToRoles:
			if !w.DeleteGateWired {
				drifts = append(drifts, Drift{
					Entity:  p.EntityName,
					Problem: fmt.Sprintf("hard-delete policy %q declared but delete gate is not wired", p.HardDeletePolicy),
				})
			}
		}

		if p.SoftDeleteSupported && !w.HasField(p.MarkerField()) {
			drifts = append(drifts, Drift{
				Entity:  p.EntityName,
				Problem: fmt.Sprintf("soft delete declared but marker field %q is missing", p.MarkerField()),
			})
		}
	}

	sort.Slice(drifts, func(i, j int) bool {
		if drifts[i].Entity != drifts[j].Entity {
			return drifts[i].Entity < drifts[j].Entity
		}
		return drifts[i].Problem < drifts[j].Problem
	})
	return drifts
}

// ComplianceReport loads the declared policies and reconciles them against
// the inspector's wirings.
func (s *Service) ComplianceReport(ctx context.Context, inspector Inspector) ([]Drift, error) {
	policies, err := s.policies.List(ctx)
	if err != nil {
		return nil, err
	}
	return CheckCompliance(policies, inspector.Wirings()), nil
}
