package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labtrail/internal/audit"
)

func appendEvent(t *testing.T, s *Store, occurredAt time.Time, entityID, source string, after audit.Snapshot) {
	t.Helper()
	require.NoError(t, s.Append(context.Background(), audit.Event{
		OccurredAt:      occurredAt,
		ActorStableCode: "A-TEST1",
		Action:          audit.ActionCreate,
		EntityName:      "measurement",
		EntityID:        entityID,
		After:           after,
		Source:          source,
	}))
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("rejects invalid events", func(t *testing.T) {
		s := NewStore()
		err := s.Append(ctx, audit.Event{Action: audit.ActionCreate, EntityName: "m", EntityID: "1"})
		assert.Error(t, err)
		assert.Zero(t, s.Len())
	})

	t.Run("list by entity returns most recent first", func(t *testing.T) {
		s := NewStore()
		appendEvent(t, s, base, "m-1", "ui", audit.Snapshot{"v": float64(1)})
		appendEvent(t, s, base.Add(time.Hour), "m-1", "ui", audit.Snapshot{"v": float64(2)})
		appendEvent(t, s, base, "m-2", "ui", audit.Snapshot{"v": float64(3)})

		events, err := s.ListByEntity(ctx, "measurement", "m-1")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.True(t, events[0].OccurredAt.After(events[1].OccurredAt))
	})

	t.Run("list since applies window and limit", func(t *testing.T) {
		s := NewStore()
		appendEvent(t, s, base, "m-1", "ui", audit.Snapshot{"v": float64(1)})
		appendEvent(t, s, base.Add(time.Hour), "m-2", "ui", audit.Snapshot{"v": float64(2)})
		appendEvent(t, s, base.Add(2*time.Hour), "m-3", "ui", audit.Snapshot{"v": float64(3)})

		events, err := s.ListSince(ctx, base.Add(30*time.Minute), 0)
		require.NoError(t, err)
		assert.Len(t, events, 2)

		events, err = s.ListSince(ctx, base.Add(30*time.Minute), 1)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "m-3", events[0].EntityID)
	})

	t.Run("timestamp ties break on id descending", func(t *testing.T) {
		s := NewStore()
		low := uuid.MustParse("11111111-1111-1111-1111-111111111111")
		high := uuid.MustParse("eeeeeeee-eeee-eeee-eeee-eeeeeeeeeeee")
		for _, e := range []audit.Event{
			{ID: low, OccurredAt: base, ActorStableCode: "A-TEST1", Action: audit.ActionCreate, EntityName: "measurement", EntityID: "m-1", After: audit.Snapshot{"v": float64(1)}, Source: "ui"},
			{ID: high, OccurredAt: base, ActorStableCode: "A-TEST1", Action: audit.ActionUpdate, EntityName: "measurement", EntityID: "m-1", Before: audit.Snapshot{"v": float64(1)}, After: audit.Snapshot{"v": float64(2)}, Source: "ui"},
		} {
			require.NoError(t, s.Append(ctx, e))
		}

		events, err := s.ListByEntity(ctx, "measurement", "m-1")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, high, events[0].ID)
		assert.Equal(t, low, events[1].ID)
	})

	t.Run("list by source prefix", func(t *testing.T) {
		s := NewStore()
		appendEvent(t, s, base, "m-1", "ui:measurements", audit.Snapshot{"v": float64(1)})
		appendEvent(t, s, base, "m-2", "system:retention", audit.Snapshot{"v": float64(2)})
		appendEvent(t, s, base, "m-3", "import:batch-1", audit.Snapshot{"v": float64(3)})

		events, err := s.ListBySourcePrefix(ctx, audit.SystemSourcePrefixes, 0)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("stored events cannot be altered through returned copies", func(t *testing.T) {
		s := NewStore()
		snapshot := audit.Snapshot{"v": float64(1)}
		appendEvent(t, s, base, "m-1", "ui", snapshot)

		// Mutating the caller's snapshot after append changes nothing.
		snapshot["v"] = float64(999)

		events, err := s.ListByEntity(ctx, "measurement", "m-1")
		require.NoError(t, err)
		assert.Equal(t, float64(1), events[0].After["v"])

		// Mutating a returned copy changes nothing either.
		events[0].After["v"] = float64(42)
		again, err := s.ListByEntity(ctx, "measurement", "m-1")
		require.NoError(t, err)
		assert.Equal(t, float64(1), again[0].After["v"])
	})
}
