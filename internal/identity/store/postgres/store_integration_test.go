//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"labtrail/internal/identity"
	"labtrail/internal/identity/store/postgres"
	"labtrail/pkg/platform/sentinel"
	"labtrail/pkg/testutil/containers"
)

type IdentityStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
}

func TestIdentityStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(IdentityStoreSuite))
}

func (s *IdentityStoreSuite) SetupSuite() {
	s.pg = containers.GetPostgres(s.T())
	s.store = postgres.NewStore(s.pg.DB)
}

func (s *IdentityStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Reset(context.Background()))
}

func newIdentity(actorID, stableCode, name string) identity.Identity {
	return identity.Identity{
		ActorID:     actorID,
		StableCode:  stableCode,
		DisplayName: name,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *IdentityStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	ident := newIdentity("user-5", "A-7Q2LX", "Priya Shah")

	s.Require().NoError(s.store.Create(ctx, ident))

	got, err := s.store.Find(ctx, "user-5")
	s.Require().NoError(err)
	s.Equal(ident, got)

	_, err = s.store.Find(ctx, "ghost")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *IdentityStoreSuite) TestUniqueConstraints() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newIdentity("user-5", "A-7Q2LX", "Priya Shah")))

	// Duplicate actor id.
	err := s.store.Create(ctx, newIdentity("user-5", "A-OTHER", "Someone"))
	s.ErrorIs(err, sentinel.ErrConflict)

	// Duplicate stable code.
	err = s.store.Create(ctx, newIdentity("user-6", "A-7Q2LX", "Someone"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *IdentityStoreSuite) TestUpdateNeverTouchesStableCode() {
	ctx := context.Background()
	ident := newIdentity("user-5", "A-7Q2LX", "Priya Shah")
	s.Require().NoError(s.store.Create(ctx, ident))

	ident.DisplayName = "A-7Q2LX"
	ident.Redacted = true
	// Even a hostile caller cannot rewrite the stored code via Update.
	ident.StableCode = "A-FORGED"
	s.Require().NoError(s.store.Update(ctx, ident))

	got, err := s.store.Find(ctx, "user-5")
	s.Require().NoError(err)
	s.Equal("A-7Q2LX", got.StableCode)
	s.True(got.Redacted)
	s.Equal("A-7Q2LX", got.DisplayName)
}
