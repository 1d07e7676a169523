package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitche/storage-timeline/internal/filter"
	"github.com/vitche/storage-timeline/pkg/timeline"
)

var now = time.Date(2025, 10, 29, 14, 0, 0, 0, time.UTC)

func TestParseOutputFormat(t *testing.T) {
	for _, valid := range []string{"default", "json", "jsonl"} {
		f, err := ParseOutputFormat(valid)
		require.NoError(t, err)
		assert.Equal(t, OutputFormat(valid), f)
	}

	_, err := ParseOutputFormat("yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format: yaml")
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"empty", "", "-"},
		{"whitespace only", "  \n\t\n", "-"},
		{"short", "21.5", "21.5"},
		{"first non-empty line", "\n  first\nsecond", "first"},
		{"truncated", strings.Repeat("x", 80), strings.Repeat("x", 57) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.value))
		})
	}
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "-", formatAge(0, now))
	assert.Equal(t, "30s ago", formatAge(now.Add(-30*time.Second).UnixMilli(), now))
	assert.Equal(t, "5m ago", formatAge(now.Add(-5*time.Minute).UnixMilli(), now))
	assert.Equal(t, "3h ago", formatAge(now.Add(-3*time.Hour).UnixMilli(), now))
	assert.Equal(t, "2d ago", formatAge(now.Add(-49*time.Hour).UnixMilli(), now))
	assert.Equal(t, "future", formatAge(now.Add(time.Hour).UnixMilli(), now))
}

func TestFormatTable(t *testing.T) {
	t.Run("empty records", func(t *testing.T) {
		var buf bytes.Buffer
		count := FormatTable(&buf, nil, "sample.ts-data", now)

		assert.Contains(t, buf.String(), "No records found in 'sample.ts-data'")
		assert.Equal(t, 0, count)
	})

	t.Run("single record", func(t *testing.T) {
		var buf bytes.Buffer
		records := []timeline.Record{{Timestamp: now.Add(-time.Minute).UnixMilli(), Value: "42"}}
		count := FormatTable(&buf, records, "sample.ts-data", now)

		output := buf.String()
		assert.Contains(t, output, "Records in 'sample.ts-data'")
		assert.Contains(t, output, "2025-10-29T13:59:00Z")
		assert.Contains(t, output, "1m ago")
		assert.Contains(t, output, "42")
		assert.Contains(t, output, "1 record found")
		assert.Equal(t, 1, count)
	})

	t.Run("multiple records", func(t *testing.T) {
		var buf bytes.Buffer
		records := []timeline.Record{{Timestamp: 1, Value: "a"}, {Timestamp: 2, Value: "b"}}
		count := FormatTable(&buf, records, "x", now)

		assert.Contains(t, buf.String(), "2 records found")
		assert.Equal(t, 2, count)
	})
}

func TestFormatJSONL(t *testing.T) {
	var buf bytes.Buffer
	records := []timeline.Record{{Timestamp: 1, Value: "a"}, {Timestamp: 2, Value: "line1\nline2"}}
	require.NoError(t, FormatJSONL(&buf, records))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var second timeline.Record
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "line1\nline2", second.Value)
}

func TestResult(t *testing.T) {
	records := timeline.Result(`[{"timestamp":1000,"value":"a"},{"timestamp":2000,"value":"b"}]`)

	t.Run("table for records", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Result(&buf, records, OutputFormatDefault, nil, "src", now))
		assert.Contains(t, buf.String(), "2 records found")
	})

	t.Run("filtered table", func(t *testing.T) {
		var buf bytes.Buffer
		criteria := &filter.Criteria{SinceTimestampMs: 1500}
		require.NoError(t, Result(&buf, records, OutputFormatDefault, criteria, "src", now))
		assert.Contains(t, buf.String(), "1 record found")
	})

	t.Run("json keeps the document", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Result(&buf, records, OutputFormatJSON, &filter.Criteria{}, "src", now))
		assert.JSONEq(t, string(records), buf.String())
	})

	t.Run("filtered json", func(t *testing.T) {
		var buf bytes.Buffer
		criteria := &filter.Criteria{UntilTimestampMs: 1500}
		require.NoError(t, Result(&buf, records, OutputFormatJSON, criteria, "src", now))
		assert.JSONEq(t, `[{"timestamp":1000,"value":"a"}]`, buf.String())
	})

	t.Run("non-record results fall back to json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Result(&buf, timeline.Result(`{"status":"ok"}`), OutputFormatDefault, nil, "src", now))
		assert.JSONEq(t, `{"status":"ok"}`, buf.String())
	})

	t.Run("invalid json", func(t *testing.T) {
		var buf bytes.Buffer
		err := Result(&buf, timeline.Result(`{`), OutputFormatDefault, nil, "src", now)
		assert.Error(t, err)
	})
}
