package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"labtrail/internal/audit"
)

func TestSummarize(t *testing.T) {
	d := NewDiffer(DefaultExcludedFields)

	t.Run("single numeric change", func(t *testing.T) {
		before := audit.Snapshot{"value": float64(83)}
		after := audit.Snapshot{"value": float64(80)}
		assert.Equal(t, "value: 83 → 80", d.Summarize(before, after))
	})

	t.Run("multiple changes sorted by field name", func(t *testing.T) {
		before := audit.Snapshot{"volume": float64(250), "concentration": 0.5}
		after := audit.Snapshot{"volume": float64(200), "concentration": 0.75}
		assert.Equal(t, "concentration: 0.5 → 0.75; volume: 250 → 200", d.Summarize(before, after))
	})

	t.Run("unchanged fields are dropped", func(t *testing.T) {
		before := audit.Snapshot{"name": "acetone", "value": float64(1)}
		after := audit.Snapshot{"name": "acetone", "value": float64(2)}
		assert.Equal(t, "value: 1 → 2", d.Summarize(before, after))
	})

	t.Run("fields outside the intersection are dropped", func(t *testing.T) {
		before := audit.Snapshot{"value": float64(1)}
		after := audit.Snapshot{"value": float64(1), "note": "added later"}
		assert.Equal(t, "", d.Summarize(before, after))
	})

	t.Run("excluded fields never appear", func(t *testing.T) {
		before := audit.Snapshot{"updated_at": "2024-01-01", "value": float64(1)}
		after := audit.Snapshot{"updated_at": "2024-06-01", "value": float64(2)}
		assert.Equal(t, "value: 1 → 2", d.Summarize(before, after))
	})

	t.Run("null values render as the null token", func(t *testing.T) {
		before := audit.Snapshot{"note": nil}
		after := audit.Snapshot{"note": "calibrated"}
		assert.Equal(t, "note: null → calibrated", d.Summarize(before, after))
	})

	t.Run("nil snapshot yields empty summary", func(t *testing.T) {
		assert.Equal(t, "", d.Summarize(nil, audit.Snapshot{"value": float64(1)}))
		assert.Equal(t, "", d.Summarize(audit.Snapshot{"value": float64(1)}, nil))
	})

	t.Run("deterministic across repeated runs", func(t *testing.T) {
		before := audit.Snapshot{"a": float64(1), "b": "x", "c": true}
		after := audit.Snapshot{"a": float64(2), "b": "y", "c": false}
		first := d.Summarize(before, after)
		for i := 0; i < 50; i++ {
			assert.Equal(t, first, d.Summarize(before, after))
		}
		assert.Equal(t, "a: 1 → 2; b: x → y; c: true → false", first)
	})
}

func TestCanonicalString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"string", "acetone", "acetone"},
		{"bool", true, "true"},
		{"integral float", float64(83), "83"},
		{"negative integral float", float64(-7), "-7"},
		{"fractional float", 0.75, "0.75"},
		{"int", 42, "42"},
		{"nested map", map[string]any{"b": float64(2), "a": float64(1)}, `{"a":1,"b":2}`},
		{"slice", []any{"x", float64(1)}, `["x",1]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalString(tt.in))
		})
	}
}
