package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	dErrors "labtrail/pkg/domain-errors"
	"labtrail/pkg/platform/sentinel"
)

// ReasonInitialEntry is the default justification for creates when the
// caller supplies none.
const ReasonInitialEntry = "initial_entry"

// Service is the administrative and decision-time surface over the two
// registries. Decision-time reads (Validate, PolicyFor) sit on the write
// path of every guarded mutation, so stores may be wrapped with the
// read-through cache in cache.go.
type Service struct {
	reasons  ReasonStore
	policies PolicyStore
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(reasons ReasonStore, policies PolicyStore, opts ...Option) *Service {
	s := &Service{reasons: reasons, policies: policies, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate resolves a reason code for use in a mutation. Unknown and
// inactive codes fail so callers can reject bad justification pre-flight,
// before any write is attempted.
func (s *Service) Validate(ctx context.Context, code string) (ReasonCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return ReasonCode{}, dErrors.New(dErrors.CodeValidation, "reason code is required")
	}
	rc, err := s.reasons.Find(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ReasonCode{}, dErrors.Newf(dErrors.CodeValidation, "unknown reason code %q", code)
		}
		return ReasonCode{}, dErrors.Wrap(err, dErrors.CodeInternal, "look up reason code")
	}
	if !rc.Active {
		return ReasonCode{}, dErrors.Newf(dErrors.CodeValidation, "reason code %q is inactive", code)
	}
	return rc, nil
}

// RegisterReason creates or updates a justification code.
func (s *Service) RegisterReason(ctx context.Context, rc ReasonCode) error {
	rc.Code = strings.TrimSpace(rc.Code)
	if rc.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "reason code is required")
	}
	if rc.Label == "" {
		return dErrors.New(dErrors.CodeValidation, "reason label is required")
	}
	rc.Active = true
	if err := s.reasons.Upsert(ctx, rc); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "register reason code")
	}
	s.logger.InfoContext(ctx, "reason code registered", "code", rc.Code, "requires_detail", rc.RequiresDetail)
	return nil
}

// DeactivateReason retires a code from future use. Historical events keep
// referencing it.
func (s *Service) DeactivateReason(ctx context.Context, code string) error {
	if err := s.reasons.SetActive(ctx, code, false); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "unknown reason code %q", code)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "deactivate reason code")
	}
	s.logger.InfoContext(ctx, "reason code deactivated", "code", code)
	return nil
}

// Reasons lists all registered codes, active and retired.
func (s *Service) Reasons(ctx context.Context) ([]ReasonCode, error) {
	return s.reasons.List(ctx)
}

// PolicyFor returns the declared policy for an entity. Entities without a
// registry entry are outside the regulated set.
func (s *Service) PolicyFor(ctx context.Context, entityName string) (EntityPolicy, error) {
	policy, err := s.policies.Find(ctx, entityName)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return EntityPolicy{}, dErrors.Newf(dErrors.CodeNotFound, "entity %q is not regulated", entityName)
		}
		return EntityPolicy{}, dErrors.Wrap(err, dErrors.CodeInternal, "look up entity policy")
	}
	return policy, nil
}

// UpsertPolicy registers or updates a regulated-entity policy.
func (s *Service) UpsertPolicy(ctx context.Context, policy EntityPolicy) error {
	if err := policy.Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid entity policy")
	}
	if err := s.policies.Upsert(ctx, policy); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "upsert entity policy")
	}
	s.logger.InfoContext(ctx, "entity policy upserted",
		"entity", policy.EntityName,
		"audit_required", policy.AuditRequired,
		"hard_delete_policy", string(policy.HardDeletePolicy),
	)
	return nil
}

// Policies lists every declared policy.
func (s *Service) Policies(ctx context.Context) ([]EntityPolicy, error) {
	return s.policies.List(ctx)
}
