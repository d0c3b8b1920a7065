package enforce

import (
	"errors"
	"fmt"
)

// Enforcement failures are typed so callers can present a specific
// corrective message instead of a generic rejection. Every one of them
// aborts the enclosing transaction: no event is appended and the guarded
// write does not happen. None are retryable; the caller must re-collect
// justification from the end user and resubmit.

// ErrActorMissing: the audit context carries no actor for a mutation that
// requires one.
var ErrActorMissing = errors.New("audit context is missing an actor")

// ErrReasonMissing: the entity requires justification and no reason code
// was supplied.
var ErrReasonMissing = errors.New("audit context is missing a reason code")

// ErrContextMissing: no audit context was set on the transaction at all.
var ErrContextMissing = errors.New("no audit context set for this transaction")

// InvalidReasonCodeError: the supplied reason code is unknown or inactive.
type InvalidReasonCodeError struct {
	Code  string
	cause error
}

func (e *InvalidReasonCodeError) Error() string {
	return fmt.Sprintf("invalid reason code %q", e.Code)
}

func (e *InvalidReasonCodeError) Unwrap() error { return e.cause }

// DetailRequiredError: the reason code (or delete posture) demands free-text
// detail and none was supplied.
type DetailRequiredError struct {
	// ReasonCode is empty when the requirement comes from the hard-delete
	// posture rather than a specific code.
	ReasonCode string
}

func (e *DetailRequiredError) Error() string {
	if e.ReasonCode == "" {
		return "reason detail is required for this deletion"
	}
	return fmt.Sprintf("reason code %q requires detail", e.ReasonCode)
}

// DeleteBlockedError: the entity's posture forbids hard deletion outright.
type DeleteBlockedError struct {
	Entity string
}

func (e *DeleteBlockedError) Error() string {
	return fmt.Sprintf("hard deletion of %q is blocked; use soft delete", e.Entity)
}

// DeleteRestrictedError: the caller holds no allow-listed role for this
// entity's restricted deletions.
type DeleteRestrictedError struct {
	Entity string
	Roles  []string
}

func (e *DeleteRestrictedError) Error() string {
	return fmt.Sprintf("deletion of %q is restricted; caller roles %v are not allow-listed", e.Entity, e.Roles)
}
