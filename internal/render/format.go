// Package render writes timeline results for humans and for scripts.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vitche/storage-timeline/internal/filter"
	"github.com/vitche/storage-timeline/pkg/timeline"
)

// OutputFormat specifies how results are written.
type OutputFormat string

const (
	// OutputFormatDefault uses a table for records and indented JSON otherwise
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON writes the result as indented JSON
	OutputFormatJSON OutputFormat = "json"

	// OutputFormatJSONL writes one record per line
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSON, OutputFormatJSONL:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format: %s (valid: default, json, jsonl)", s)
	}
}

// Result writes a parse result in the requested format. Results that are not
// record lists are written as JSON whatever the format. Filters only apply to
// record lists.
func Result(w io.Writer, result timeline.Result, format OutputFormat, criteria *filter.Criteria, source string, now time.Time) error {
	records, err := result.Records()
	if err != nil {
		return FormatJSON(w, result)
	}
	if criteria != nil {
		records = criteria.Apply(records)
	}

	switch format {
	case OutputFormatJSONL:
		return FormatJSONL(w, records)
	case OutputFormatJSON:
		if criteria == nil || !criteria.HasFilters() {
			return FormatJSON(w, result)
		}
		data, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("failed to marshal records: %w", err)
		}
		return FormatJSON(w, data)
	default:
		FormatTable(w, records, source, now)
		return nil
	}
}

// FormatTable writes records as a table with TIMESTAMP, AGE and VALUE columns.
// Returns the number of records written.
func FormatTable(w io.Writer, records []timeline.Record, source string, now time.Time) int {
	if len(records) == 0 {
		fmt.Fprintf(w, "No records found in '%s'\n", source)
		return 0
	}

	fmt.Fprintf(w, "Records in '%s':\n\n", source)

	fmt.Fprintf(w, "%-24s %-8s %s\n", "TIMESTAMP", "AGE", "VALUE")
	fmt.Fprintf(w, "%-24s %-8s %s\n",
		"------------------------", "--------", "------------------------------------------------------------")

	for _, r := range records {
		fmt.Fprintf(w, "%-24s %-8s %s\n",
			formatTimestamp(r.Timestamp),
			formatAge(r.Timestamp, now),
			formatValue(r.Value),
		)
	}

	countMsg := "record"
	if len(records) != 1 {
		countMsg = "records"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(records), countMsg)

	return len(records)
}

// FormatJSONL writes each record as a compact JSON object on its own line.
func FormatJSONL(w io.Writer, records []timeline.Record) error {
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal record to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatJSON writes a JSON document indented, followed by a newline.
func FormatJSON(w io.Writer, doc []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return fmt.Errorf("failed to format JSON output: %w", err)
	}
	buf.WriteByte('\n')
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	return nil
}

// formatValue shows the first non-empty line of a value, truncated to 60
// characters. Empty values return "-".
func formatValue(value string) string {
	var firstLine string
	for _, line := range strings.Split(value, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			firstLine = trimmed
			break
		}
	}

	if firstLine == "" {
		return "-"
	}

	if len(firstLine) > 60 {
		return firstLine[:57] + "..."
	}
	return firstLine
}

// formatTimestamp renders Unix milliseconds as RFC3339 in UTC.
func formatTimestamp(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}
	return time.UnixMilli(timestampMs).UTC().Format(time.RFC3339)
}

// formatAge renders the distance from now like "2m ago". Future timestamps
// show "future".
func formatAge(timestampMs int64, now time.Time) string {
	if timestampMs == 0 {
		return "-"
	}

	diff := now.Sub(time.UnixMilli(timestampMs))

	switch {
	case diff < 0:
		return "future"
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
