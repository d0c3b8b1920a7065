package registry

import "fmt"

// ReasonCode is a canonical, registry-validated justification category for
// a mutation of a regulated entity.
type ReasonCode struct {
	Code        string
	Label       string
	Description string
	// RequiresDetail forces free-text elaboration alongside the code.
	RequiresDetail bool
	Active         bool
}

// HardDeletePolicy is an entity's posture towards physical deletion.
type HardDeletePolicy string

const (
	// DeleteBlocked: hard deletion always fails; the only removal path is
	// a soft delete via update.
	DeleteBlocked HardDeletePolicy = "blocked"
	// DeleteRestrictedToRoles: hard deletion requires an allow-listed role
	// and non-empty reason detail, with no exception for privileged or
	// system callers.
	DeleteRestrictedToRoles HardDeletePolicy = "restricted_to_roles"
	// DeleteUnrestricted: hard deletion falls through to the ordinary
	// justification rules, still audited.
	DeleteUnrestricted HardDeletePolicy = "unrestricted"
)

func (p HardDeletePolicy) Valid() bool {
	switch p {
	case DeleteBlocked, DeleteRestrictedToRoles, DeleteUnrestricted:
		return true
	}
	return false
}

// DefaultDeleteMarkerField is the column a soft-deletable entity is
// expected to carry unless its policy names another.
const DefaultDeleteMarkerField = "deleted_at"

// EntityPolicy is the declared enforcement policy for one regulated entity.
type EntityPolicy struct {
	EntityName          string
	AuditRequired       bool
	HardDeletePolicy    HardDeletePolicy
	SoftDeleteSupported bool
	// ReasonRequiredOnMutation requires a justification code on every
	// update/delete; creates default to the initial-entry code.
	ReasonRequiredOnMutation bool
	// DeleteMarkerField is the soft-delete marker column. Empty means
	// DefaultDeleteMarkerField when SoftDeleteSupported is set.
	DeleteMarkerField string
}

// MarkerField resolves the effective soft-delete marker column.
func (p EntityPolicy) MarkerField() string {
	if p.DeleteMarkerField != "" {
		return p.DeleteMarkerField
	}
	return DefaultDeleteMarkerField
}

// Validate checks administrative input before a policy is stored.
func (p EntityPolicy) Validate() error {
	if p.EntityName == "" {
		return fmt.Errorf("entity name is required")
	}
	if !p.HardDeletePolicy.Valid() {
		return fmt.Errorf("unknown hard-delete policy %q", p.HardDeletePolicy)
	}
	return nil
}

// Wiring is one interceptor's self-declared presence: which entity it
// guards, whether its delete gate is attached, and which columns the
// guarded table actually has. The compliance checker cross-references this
// against the declared policies.
type Wiring struct {
	Entity          string
	DeleteGateWired bool
	Fields          []string
}

// HasField reports whether the wired table declares the given column.
func (w Wiring) HasField(name string) bool {
	for _, f := range w.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Drift is one declared-but-unwired mismatch surfaced by the compliance
// checker. It is a reporting value, not a transaction-aborting error.
type Drift struct {
	Entity  string
	Problem string
}

func (d Drift) String() string {
	return fmt.Sprintf("%s: %s", d.Entity, d.Problem)
}
