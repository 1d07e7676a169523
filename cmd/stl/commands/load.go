package commands

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/vitche/storage-timeline/internal/filter"
	"github.com/vitche/storage-timeline/internal/printer"
	"github.com/vitche/storage-timeline/internal/render"
	"github.com/vitche/storage-timeline/internal/timespec"
)

var (
	loadOutputFormat string
	loadSince        string
	loadUntil        string
	loadMatch        string
)

var loadCmd = &cobra.Command{
	Use:   "load LOCATION",
	Short: "Parse a binary timeline with the parser module",
	Long: `Fetch a binary storage timeline and decode it with the parser module.

LOCATION is a file path, an http(s):// URL or a redis:// key. The source is
picked from the scheme unless data.source is set in stl.yml.

Output Formats:
  default - Table with TIMESTAMP, AGE and VALUE columns
  json    - The parser result as indented JSON
  jsonl   - One record per line

Filters (record lists only):
  --since  - Records at or after this time
  --until  - Records at or before this time
  --match  - Records whose value matches a glob pattern

Examples:
  # Parse a local timeline
  stl load ./cpu.timeline

  # Parse a remote timeline, last hour only, as JSONL
  stl load https://storage.example.com/cpu.timeline --since=1h --output=jsonl

  # Parse a timeline stored in Redis
  REDIS_URL=redis://localhost:6379 stl load redis://timelines/cpu`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVarP(&loadOutputFormat, "output", "o", "default", "Output format: default, json or jsonl")
	loadCmd.Flags().StringVar(&loadSince, "since", "", "Show records after time (duration, RFC3339 or Unix ms)")
	loadCmd.Flags().StringVar(&loadUntil, "until", "", "Show records before time (duration, RFC3339 or Unix ms)")
	loadCmd.Flags().StringVar(&loadMatch, "match", "", "Filter by value (glob pattern)")

	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	location := args[0]

	format, err := render.ParseOutputFormat(loadOutputFormat)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: default, json, jsonl"})
	}

	now := time.Now()
	since, until, err := timespec.ParseRange(loadSince, loadUntil, now)
	if err != nil {
		return printer.Error("invalid time filter", err.Error(), nil)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sess, err := newSession(ctx, cfg, location)
	if err != nil {
		return printer.Explain(err)
	}
	defer sess.Close(ctx)

	result, err := sess.loader.Load(ctx, location)
	if err != nil {
		return printer.Explain(err)
	}
	log.Printf("[INFO] Parsed %s into %d bytes of JSON", location, len(result))

	criteria := &filter.Criteria{
		SinceTimestampMs: since,
		UntilTimestampMs: until,
		ValueGlob:        loadMatch,
	}
	return render.Result(cmd.OutOrStdout(), result, format, criteria, location, now)
}
