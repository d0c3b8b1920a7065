package identity

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	dErrors "labtrail/pkg/domain-errors"
	"labtrail/pkg/platform/sentinel"
)

// Service provisions identities and resolves audit display strings.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provision creates an identity for a new actor, assigning a fresh stable
// code. Provisioning an already-known actor is a conflict; stable codes are
// frozen forever.
func (s *Service) Provision(ctx context.Context, actorID, displayName string) (Identity, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return Identity{}, dErrors.New(dErrors.CodeValidation, "actor id is required")
	}
	if _, err := s.store.Find(ctx, actorID); err == nil {
		return Identity{}, dErrors.Newf(dErrors.CodeConflict, "actor %q is already provisioned", actorID)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "look up identity")
	}

	// Retry on the store's unique constraint; codes are short enough that
	// a collision is possible, reuse is not.
	for attempt := 0; attempt < 3; attempt++ {
		code, err := newStableCode()
		if err != nil {
			return Identity{}, fmt.Errorf("generate stable code: %w", err)
		}
		ident := Identity{
			ActorID:     actorID,
			StableCode:  code,
			DisplayName: strings.TrimSpace(displayName),
			CreatedAt:   time.Now(),
		}
		err = s.store.Create(ctx, ident)
		if err == nil {
			s.logger.InfoContext(ctx, "identity provisioned", "stable_code", code)
			return ident, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "create identity")
		}
	}
	return Identity{}, dErrors.New(dErrors.CodeInternal, "could not assign a unique stable code")
}

// ResolveDisplay computes the current display string for an actor. It is
// always computed live from identity state, never from stored events, so
// redaction applies to the entire history at once.
func (s *Service) ResolveDisplay(ctx context.Context, actorID string) (string, error) {
	ident, err := s.store.Find(ctx, actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.Newf(dErrors.CodeNotFound, "unknown actor %q", actorID)
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "resolve display")
	}
	return ident.Display(), nil
}

// Rename changes the mutable display name. Historical events are untouched;
// they reference the stable code.
func (s *Service) Rename(ctx context.Context, actorID, displayName string) error {
	ident, err := s.store.Find(ctx, actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "unknown actor %q", actorID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "look up identity")
	}
	if ident.Redacted {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot rename a redacted identity")
	}
	ident.DisplayName = strings.TrimSpace(displayName)
	if err := s.store.Update(ctx, ident); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update identity")
	}
	return nil
}

// Redact pseudonymizes an actor: the display name collapses to the stable
// code and the redacted flag pins it there. No audit event row changes;
// because display is resolved live, redaction is retroactive across the
// whole history.
func (s *Service) Redact(ctx context.Context, actorID string) error {
	ident, err := s.store.Find(ctx, actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "unknown actor %q", actorID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "look up identity")
	}
	ident.DisplayName = ident.StableCode
	ident.Redacted = true
	if err := s.store.Update(ctx, ident); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "redact identity")
	}
	s.logger.InfoContext(ctx, "identity redacted", "stable_code", ident.StableCode)
	return nil
}

// Find returns the identity record for an actor.
func (s *Service) Find(ctx context.Context, actorID string) (Identity, error) {
	ident, err := s.store.Find(ctx, actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Identity{}, dErrors.Newf(dErrors.CodeNotFound, "unknown actor %q", actorID)
		}
		return Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "look up identity")
	}
	return ident, nil
}

// newStableCode builds an "A-XXXXXXXX" code from 5 random bytes. The store
// unique constraint guards against the rare collision.
func newStableCode() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "A-" + base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}
