// Package filter selects timeline records for display.
package filter

import (
	"path/filepath"

	"github.com/vitche/storage-timeline/pkg/timeline"
)

// Criteria defines filtering criteria for records.
// All filters are ANDed together - a record must match ALL criteria to pass.
type Criteria struct {
	SinceTimestampMs int64  // inclusive lower bound, 0 = no filter
	UntilTimestampMs int64  // inclusive upper bound, 0 = no filter
	ValueGlob        string // glob pattern for the value, empty = no filter
}

// Matches returns true if the record matches all filter criteria.
func (c *Criteria) Matches(r timeline.Record) bool {
	if c.SinceTimestampMs > 0 && r.Timestamp < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && r.Timestamp > c.UntilTimestampMs {
		return false
	}

	if c.ValueGlob != "" {
		matched, err := filepath.Match(c.ValueGlob, r.Value)
		if err != nil || !matched {
			return false
		}
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.SinceTimestampMs > 0 ||
		c.UntilTimestampMs > 0 ||
		c.ValueGlob != ""
}

// Apply returns the records that match, preserving order.
func (c *Criteria) Apply(records []timeline.Record) []timeline.Record {
	if !c.HasFilters() {
		return records
	}
	out := make([]timeline.Record, 0, len(records))
	for _, r := range records {
		if c.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}
