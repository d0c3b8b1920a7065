package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: row does not exist in store
// - ErrConflict: unique constraint or concurrent write collision
//
// For justification/validation failures use pkg/domain-errors or the typed
// errors in internal/enforce.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
