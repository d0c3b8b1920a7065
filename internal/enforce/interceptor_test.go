package enforce_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"labtrail/internal/audit"
	"labtrail/internal/audit/auditctx"
	auditmem "labtrail/internal/audit/store/memory"
	"labtrail/internal/enforce"
	"labtrail/internal/enforce/store/allowlist"
	"labtrail/internal/identity"
	"labtrail/internal/registry"
	registrymem "labtrail/internal/registry/store/memory"
)

type InterceptorSuite struct {
	suite.Suite
	events      *auditmem.Store
	registry    *registry.Service
	allowlist   *allowlist.MemoryStore
	interceptor *enforce.Interceptor
}

func TestInterceptorSuite(t *testing.T) {
	suite.Run(t, new(InterceptorSuite))
}

func (s *InterceptorSuite) SetupTest() {
	ctx := context.Background()

	reasons := registrymem.NewReasonStore()
	policies := registrymem.NewPolicyStore()
	s.registry = registry.NewService(reasons, policies)

	for _, rc := range []registry.ReasonCode{
		{Code: "initial_entry", Label: "Initial entry", Active: true},
		{Code: "typo", Label: "Typo correction", Active: true},
		{Code: "equipment_fault", Label: "Equipment fault", RequiresDetail: true, Active: true},
		{Code: "obsolete", Label: "Obsolete", Active: false},
	} {
		s.Require().NoError(reasons.Upsert(ctx, rc))
	}

	s.Require().NoError(policies.Upsert(ctx, registry.EntityPolicy{
		EntityName:               "measurement",
		AuditRequired:            true,
		HardDeletePolicy:         registry.DeleteUnrestricted,
		ReasonRequiredOnMutation: true,
	}))
	s.Require().NoError(policies.Upsert(ctx, registry.EntityPolicy{
		EntityName:          "chemical",
		AuditRequired:       true,
		HardDeletePolicy:    registry.DeleteBlocked,
		SoftDeleteSupported: true,
	}))
	s.Require().NoError(policies.Upsert(ctx, registry.EntityPolicy{
		EntityName:       "scratchpad",
		AuditRequired:    false,
		HardDeletePolicy: registry.DeleteUnrestricted,
	}))

	s.events = auditmem.NewStore()
	s.allowlist = allowlist.NewMemory()
	gate := enforce.NewDeleteGate(s.registry, s.allowlist)
	s.interceptor = enforce.NewInterceptor(s.registry, audit.NewService(s.events), gate, enforce.NewHookTable())
}

func (s *InterceptorSuite) userCtx(ac auditctx.Context) context.Context {
	return auditctx.With(context.Background(), ac)
}

func (s *InterceptorSuite) TestCreateThenUpdate() {
	// A record is created, then corrected. Both writes must land in the
	// log with the right snapshots and justifications.
	ctx := s.userCtx(auditctx.Context{
		ActorID:         "user-7",
		ActorStableCode: "A-7Q2LX",
		Source:          "ui:measurements",
	})
	s.Require().NoError(s.interceptor.Guard(ctx, enforce.Mutation{
		Entity:   "measurement",
		EntityID: "m-1",
		After:    audit.Snapshot{"value": float64(83)},
	}))

	ctx = s.userCtx(auditctx.Context{
		ActorID:         "user-7",
		ActorStableCode: "A-7Q2LX",
		ReasonCode:      "typo",
		Source:          "ui:measurements",
	})
	s.Require().NoError(s.interceptor.Guard(ctx, enforce.Mutation{
		Entity:   "measurement",
		EntityID: "m-1",
		Before:   audit.Snapshot{"value": float64(83)},
		After:    audit.Snapshot{"value": float64(80)},
	}))

	all := s.events.All()
	s.Require().Len(all, 2)

	s.Equal(audit.ActionCreate, all[0].Action)
	s.Equal("initial_entry", all[0].ReasonCode)
	s.Nil(all[0].Before)
	s.Equal(audit.Snapshot{"value": float64(83)}, all[0].After)

	s.Equal(audit.ActionUpdate, all[1].Action)
	s.Equal("typo", all[1].ReasonCode)
	s.Equal(audit.Snapshot{"value": float64(83)}, all[1].Before)
	s.Equal(audit.Snapshot{"value": float64(80)}, all[1].After)
}

func (s *InterceptorSuite) TestUpdateRejections() {
	mutation := enforce.Mutation{
		Entity:   "measurement",
		EntityID: "m-1",
		Before:   audit.Snapshot{"value": float64(83)},
		After:    audit.Snapshot{"value": float64(80)},
	}

	s.Run("no audit context", func() {
		err := s.interceptor.Guard(context.Background(), mutation)
		s.ErrorIs(err, enforce.ErrContextMissing)
		s.Zero(s.events.Len())
	})

	s.Run("missing actor", func() {
		ctx := s.userCtx(auditctx.Context{ReasonCode: "typo", Source: "ui:measurements"})
		err := s.interceptor.Guard(ctx, mutation)
		s.ErrorIs(err, enforce.ErrActorMissing)
		s.Zero(s.events.Len())
	})

	s.Run("missing reason on reason-required entity", func() {
		ctx := s.userCtx(auditctx.Context{ActorID: "user-7", ActorStableCode: "A-7Q2LX", Source: "ui"})
		err := s.interceptor.Guard(ctx, mutation)
		s.ErrorIs(err, enforce.ErrReasonMissing)
		s.Zero(s.events.Len())
	})

	s.Run("unknown reason code", func() {
		ctx := s.userCtx(auditctx.Context{
			ActorID: "user-7", ActorStableCode: "A-7Q2LX",
			ReasonCode: "vibes", Source: "ui",
		})
		err := s.interceptor.Guard(ctx, mutation)
		var invalid *enforce.InvalidReasonCodeError
		s.ErrorAs(err, &invalid)
		s.Equal("vibes", invalid.Code)
		s.Zero(s.events.Len())
	})

	s.Run("inactive reason code", func() {
		ctx := s.userCtx(auditctx.Context{
			ActorID: "user-7", ActorStableCode: "A-7Q2LX",
			ReasonCode: "obsolete", Source: "ui",
		})
		err := s.interceptor.Guard(ctx, mutation)
		var invalid *enforce.InvalidReasonCodeError
		s.ErrorAs(err, &invalid)
		s.Zero(s.events.Len())
	})

	s.Run("detail-required code without detail", func() {
		ctx := s.userCtx(auditctx.Context{
			ActorID: "user-7", ActorStableCode: "A-7Q2LX",
			ReasonCode: "equipment_fault", Source: "ui",
		})
		err := s.interceptor.Guard(ctx, mutation)
		var detail *enforce.DetailRequiredError
		s.ErrorAs(err, &detail)
		s.Equal("equipment_fault", detail.ReasonCode)
		s.Zero(s.events.Len())
	})
}

func (s *InterceptorSuite) TestUnregisteredEntityFailsClosed() {
	ctx := s.userCtx(auditctx.Context{ActorID: "user-7", ActorStableCode: "A-7Q2LX", Source: "ui"})
	err := s.interceptor.Guard(ctx, enforce.Mutation{
		Entity:   "unknown_table",
		EntityID: "x-1",
		After:    audit.Snapshot{"a": float64(1)},
	})
	s.Error(err)
	s.Zero(s.events.Len())
}

func (s *InterceptorSuite) TestUnauditedEntitySkipsLogging() {
	ctx := s.userCtx(auditctx.Context{ActorID: "user-7", ActorStableCode: "A-7Q2LX", Source: "ui"})
	s.NoError(s.interceptor.Guard(ctx, enforce.Mutation{
		Entity:   "scratchpad",
		EntityID: "n-1",
		Before:   audit.Snapshot{"text": "a"},
		After:    audit.Snapshot{"text": "b"},
	}))
	s.Zero(s.events.Len())
}

func (s *InterceptorSuite) TestSoftDeleteClassification() {
	ctx := s.userCtx(auditctx.Context{
		ActorID: "user-2", ActorStableCode: "A-B00TS",
		ReasonCode: "typo", Source: "ui:chemicals",
	})

	s.Run("marker transition classifies as soft delete", func() {
		s.Require().NoError(s.interceptor.Guard(ctx, enforce.Mutation{
			Entity:   "chemical",
			EntityID: "c-1",
			Before:   audit.Snapshot{"deleted_at": nil, "name": "acetone"},
			After:    audit.Snapshot{"deleted_at": "2026-03-10T00:00:00Z", "name": "acetone"},
		}))
		all := s.events.All()
		s.Equal(audit.ActionSoftDelete, all[len(all)-1].Action)
	})

	s.Run("marker staying set stays an update", func() {
		s.Require().NoError(s.interceptor.Guard(ctx, enforce.Mutation{
			Entity:   "chemical",
			EntityID: "c-1",
			Before:   audit.Snapshot{"deleted_at": "2026-03-10T00:00:00Z", "name": "acetone"},
			After:    audit.Snapshot{"deleted_at": "2026-03-10T00:00:00Z", "name": "propanone"},
		}))
		all := s.events.All()
		s.Equal(audit.ActionUpdate, all[len(all)-1].Action)
	})
}

func (s *InterceptorSuite) TestSystemPrincipalNormalization() {
	ctx := s.userCtx(auditctx.Context{
		Source:          "import:batch-12",
		SystemPrincipal: true,
	})
	s.Require().NoError(s.interceptor.Guard(ctx, enforce.Mutation{
		Entity:   "measurement",
		EntityID: "m-9",
		Before:   audit.Snapshot{"value": float64(1)},
		After:    audit.Snapshot{"value": float64(2)},
	}))

	all := s.events.All()
	s.Require().Len(all, 1)
	s.Empty(all[0].ActorID)
	s.Equal(identity.SystemStableCode, all[0].ActorStableCode)
	s.Equal("system operation via import:batch-12", all[0].ReasonDetail)
	s.Equal("import:batch-12", all[0].Source)
}

func (s *InterceptorSuite) TestSystemDeleteStillGated() {
	// A blocked posture rejects system principals too.
	ctx := s.userCtx(auditctx.Context{Source: "system:retention", SystemPrincipal: true})
	err := s.interceptor.Guard(ctx, enforce.Mutation{
		Entity:   "chemical",
		EntityID: "c-2",
		Before:   audit.Snapshot{"name": "acetone"},
	})
	var blocked *enforce.DeleteBlockedError
	s.ErrorAs(err, &blocked)
	s.Zero(s.events.Len())
}

func (s *InterceptorSuite) TestSetContextValidatesReason() {
	_, err := s.interceptor.SetContext(context.Background(), auditctx.Context{
		ActorID: "user-7", ReasonCode: "vibes",
	})
	var invalid *enforce.InvalidReasonCodeError
	s.ErrorAs(err, &invalid)

	ctx, err := s.interceptor.SetContext(context.Background(), auditctx.Context{
		ActorID: "user-7", ReasonCode: "typo",
	})
	s.NoError(err)
	ac, ok := auditctx.From(ctx)
	s.True(ok)
	s.Equal("typo", ac.ReasonCode)
}

func (s *InterceptorSuite) TestAttachRegistersWiring() {
	s.interceptor.Attach("measurement", []string{"value", "unit"}, true)
	wirings := s.interceptor.Hooks().Wirings()
	s.Require().Len(wirings, 1)
	s.Equal("measurement", wirings[0].Entity)
	s.True(wirings[0].DeleteGateWired)
	s.Equal([]string{"value", "unit"}, wirings[0].Fields)
}

func (s *InterceptorSuite) TestDetachedHookSurfacesAsDrift() {
	// Decommissioning an enforcement hook must make the next compliance
	// report call the entity out instead of silently passing it.
	ctx := context.Background()
	s.interceptor.Attach("measurement", []string{"value", "unit"}, true)
	s.interceptor.Attach("chemical", []string{"name", "deleted_at"}, true)

	drifts, err := s.registry.ComplianceReport(ctx, s.interceptor.Hooks())
	s.Require().NoError(err)
	s.Empty(drifts)

	s.interceptor.Hooks().Unregister("chemical")

	drifts, err = s.registry.ComplianceReport(ctx, s.interceptor.Hooks())
	s.Require().NoError(err)
	s.Require().Len(drifts, 1)
	s.Equal("chemical", drifts[0].Entity)
	s.Contains(drifts[0].Problem, "no enforcement hook")
}
