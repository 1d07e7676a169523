// Package timespec parses the time arguments accepted on the command line.
package timespec

import (
	"fmt"
	"strconv"
	"time"
)

// Parse converts a time specification into a Unix timestamp in milliseconds.
// Accepted forms:
//   - Go durations, relative to now: "1h", "30m", "1h30m" (1h means one hour ago)
//   - RFC3339 timestamps: "2025-10-29T13:00:00Z"
//   - raw Unix milliseconds: "1700000000000"
func Parse(spec string, now time.Time) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if ms, err := strconv.ParseInt(spec, 10, 64); err == nil && ms >= 0 {
		return ms, nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return now.Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use a duration like '1h30m', RFC3339 like '2025-10-29T13:00:00Z' or Unix milliseconds)", spec)
}

// ParseRange parses the --since and --until flags.
// Zero means "no bound" on that side. since must be before until when both are set.
func ParseRange(since, until string, now time.Time) (int64, int64, error) {
	var sinceMS, untilMS int64
	var err error

	if since != "" {
		sinceMS, err = Parse(since, now)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		untilMS, err = Parse(until, now)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if sinceMS > 0 && untilMS > 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("--since must be before --until")
	}

	return sinceMS, untilMS, nil
}
