package timeline

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"labtrail/internal/audit"
)

// NullToken is the canonical rendering of an absent or null value. One
// token, everywhere, so summaries never vary by how "nothing" was spelled.
const NullToken = "null"

// changeSeparator joins field changes; fieldArrow joins old and new values.
// Both are fixed: the summary string is compliance evidence and must be
// byte-identical across runs and tools for the same stored data.
const (
	changeSeparator = "; "
	fieldArrow      = " → "
)

// DefaultExcludedFields are store-managed columns whose churn carries no
// compliance meaning.
var DefaultExcludedFields = []string{"updated_at", "modified_at"}

// Differ renders deterministic change summaries from snapshot pairs.
type Differ struct {
	excluded map[string]struct{}
}

func NewDiffer(excludedFields []string) *Differ {
	excluded := make(map[string]struct{}, len(excludedFields))
	for _, f := range excludedFields {
		excluded[f] = struct{}{}
	}
	return &Differ{excluded: excluded}
}

// Summarize renders the change summary for a before/after pair:
// the field-name intersection minus excluded fields, keeping only fields
// whose canonical values differ, sorted lexicographically, joined as
// "field: before → after" pairs.
func (d *Differ) Summarize(before, after audit.Snapshot) string {
	if before == nil || after == nil {
		return ""
	}

	var fields []string
	for name := range before {
		if _, ok := after[name]; !ok {
			continue
		}
		if _, ok := d.excluded[name]; ok {
			continue
		}
		fields = append(fields, name)
	}
	sort.Strings(fields)

	var parts []string
	for _, name := range fields {
		oldValue := CanonicalString(before[name])
		newValue := CanonicalString(after[name])
		if oldValue == newValue {
			continue
		}
		parts = append(parts, name+": "+oldValue+fieldArrow+newValue)
	}
	return strings.Join(parts, changeSeparator)
}

// CanonicalString is the single stringification routine every snapshot
// value passes through. Snapshot values arrive from JSON storage, so the
// input domain is nil, bool, string, float64, and nested maps/slices.
func CanonicalString(v any) string {
	switch value := v.(type) {
	case nil:
		return NullToken
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		// JSON numbers decode as float64; render integral values without
		// a fractional part so 83 never prints as 83.000000.
		if value == math.Trunc(value) && math.Abs(value) < 1e15 {
			return strconv.FormatInt(int64(value), 10)
		}
		return strconv.FormatFloat(value, 'g', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	}
	// Composite values: encoding/json sorts map keys, so this stays
	// deterministic.
	raw, err := json.Marshal(v)
	if err != nil {
		return NullToken
	}
	return string(raw)
}
