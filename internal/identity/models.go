package identity

import "time"

// SystemStableCode is the sentinel identity recorded for normalized
// system-sourced writes. It is reserved: provisioning can never assign it.
const SystemStableCode = "SYSTEM"

// Identity maps an external actor to an immutable stable code and a mutable
// display name. Audit events denormalize the stable code; display names are
// always resolved live, so renames and redaction are retroactively
// effective without touching any event row.
type Identity struct {
	// ActorID is the identity-provider id. Provisioning is keyed by it.
	ActorID string
	// StableCode is assigned once at provisioning and never reused, even
	// after the identity is redacted.
	StableCode  string
	DisplayName string
	Redacted    bool
	CreatedAt   time.Time
}

// Display renders the identity for audit output: the stable code alone when
// redacted or unnamed, otherwise "name (code)".
func (i Identity) Display() string {
	if i.Redacted || i.DisplayName == "" {
		return i.StableCode
	}
	return i.DisplayName + " (" + i.StableCode + ")"
}
