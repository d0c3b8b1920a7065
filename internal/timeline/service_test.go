package timeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labtrail/internal/audit"
	auditmem "labtrail/internal/audit/store/memory"
	"labtrail/internal/identity"
	identitymem "labtrail/internal/identity/store/memory"
)

type failingResolver struct{}

func (failingResolver) ResolveDisplay(context.Context, string) (string, error) {
	return "", errors.New("identity store down")
}

func TestTimeline(t *testing.T) {
	ctx := context.Background()

	newFixture := func(t *testing.T) (*Service, *audit.Service, *identity.Service) {
		t.Helper()
		events := audit.NewService(auditmem.NewStore())
		identities := identity.NewService(identitymem.NewStore())
		return NewService(events, identities), events, identities
	}

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("reconstructs create then update with change summary", func(t *testing.T) {
		svc, events, identities := newFixture(t)

		ident, err := identities.Provision(ctx, "user-7", "Dana Reyes")
		require.NoError(t, err)

		require.NoError(t, events.Append(ctx, audit.Event{
			OccurredAt:      base,
			ActorID:         "user-7",
			ActorStableCode: ident.StableCode,
			Action:          audit.ActionCreate,
			EntityName:      "measurement",
			EntityID:        "m-1",
			After:           audit.Snapshot{"value": float64(83)},
			ReasonCode:      "initial_entry",
			Source:          "ui:measurements",
		}))
		require.NoError(t, events.Append(ctx, audit.Event{
			OccurredAt:      base.Add(time.Hour),
			ActorID:         "user-7",
			ActorStableCode: ident.StableCode,
			Action:          audit.ActionUpdate,
			EntityName:      "measurement",
			EntityID:        "m-1",
			Before:          audit.Snapshot{"value": float64(83)},
			After:           audit.Snapshot{"value": float64(80)},
			ReasonCode:      "typo",
			Source:          "ui:measurements",
		}))

		entries, err := svc.Timeline(ctx, "measurement", "m-1")
		require.NoError(t, err)
		require.Len(t, entries, 2)

		// Most recent first.
		assert.Equal(t, audit.ActionUpdate, entries[0].Action)
		assert.Equal(t, "value: 83 → 80", entries[0].ChangeSummary)
		assert.Equal(t, "typo", entries[0].ReasonCode)
		assert.Equal(t, "Dana Reyes ("+ident.StableCode+")", entries[0].Actor)

		assert.Equal(t, audit.ActionCreate, entries[1].Action)
		assert.Empty(t, entries[1].ChangeSummary)
		assert.Equal(t, "initial_entry", entries[1].ReasonCode)
	})

	t.Run("redaction applies retroactively without touching events", func(t *testing.T) {
		svc, events, identities := newFixture(t)

		ident, err := identities.Provision(ctx, "user-9", "Priya Shah")
		require.NoError(t, err)
		require.NoError(t, events.Append(ctx, audit.Event{
			OccurredAt:      base,
			ActorID:         "user-9",
			ActorStableCode: ident.StableCode,
			Action:          audit.ActionCreate,
			EntityName:      "sample",
			EntityID:        "s-1",
			After:           audit.Snapshot{"label": "S1"},
			ReasonCode:      "initial_entry",
			Source:          "ui:samples",
		}))

		entries, err := svc.Timeline(ctx, "sample", "s-1")
		require.NoError(t, err)
		assert.Equal(t, "Priya Shah ("+ident.StableCode+")", entries[0].Actor)

		require.NoError(t, identities.Redact(ctx, "user-9"))

		entries, err = svc.Timeline(ctx, "sample", "s-1")
		require.NoError(t, err)
		assert.Equal(t, ident.StableCode, entries[0].Actor)
	})

	t.Run("system events resolve to the stable code", func(t *testing.T) {
		svc, events, _ := newFixture(t)

		require.NoError(t, events.Append(ctx, audit.Event{
			OccurredAt:      base,
			ActorStableCode: identity.SystemStableCode,
			Action:          audit.ActionUpdate,
			EntityName:      "measurement",
			EntityID:        "m-2",
			Before:          audit.Snapshot{"value": float64(1)},
			After:           audit.Snapshot{"value": float64(2)},
			Source:          "import:batch-12",
			ReasonDetail:    "system operation via import:batch-12",
		}))

		entries, err := svc.Timeline(ctx, "measurement", "m-2")
		require.NoError(t, err)
		assert.Equal(t, identity.SystemStableCode, entries[0].Actor)
	})

	t.Run("resolver failure falls back to the stable code", func(t *testing.T) {
		events := audit.NewService(auditmem.NewStore())
		svc := NewService(events, failingResolver{})

		require.NoError(t, events.Append(ctx, audit.Event{
			OccurredAt:      base,
			ActorID:         "user-3",
			ActorStableCode: "A-XYZ12",
			Action:          audit.ActionCreate,
			EntityName:      "sample",
			EntityID:        "s-9",
			After:           audit.Snapshot{"label": "S9"},
			Source:          "ui:samples",
		}))

		entries, err := svc.Timeline(ctx, "sample", "s-9")
		require.NoError(t, err)
		assert.Equal(t, "A-XYZ12", entries[0].Actor)
	})

	t.Run("soft delete carries a change summary", func(t *testing.T) {
		svc, events, _ := newFixture(t)

		require.NoError(t, events.Append(ctx, audit.Event{
			OccurredAt:      base,
			ActorID:         "user-1",
			ActorStableCode: "A-AAAAA",
			Action:          audit.ActionSoftDelete,
			EntityName:      "chemical",
			EntityID:        "c-1",
			Before:          audit.Snapshot{"deleted_at": nil},
			After:           audit.Snapshot{"deleted_at": "2026-03-10T09:00:00Z"},
			ReasonCode:      "retention_expiry",
			ReasonDetail:    "retention window closed",
			Source:          "ui:chemicals",
		}))

		entries, err := svc.Timeline(ctx, "chemical", "c-1")
		require.NoError(t, err)
		assert.Equal(t, "deleted_at: null → 2026-03-10T09:00:00Z", entries[0].ChangeSummary)
	})
}
