package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/vitche/storage-timeline/internal/printer"
	"github.com/vitche/storage-timeline/internal/render"
	"github.com/vitche/storage-timeline/internal/timespec"
	"github.com/vitche/storage-timeline/pkg/storage"
	"github.com/vitche/storage-timeline/pkg/timeline"
)

var (
	timelineOutputFormat string
	timelineTime         string
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Read and append timeline values on a storage service",
	Long: `Read and append timeline values on a storage service.

Timelines are addressed by SCHEMA and TIMELINE name. With --binary (or
storage.binary in stl.yml) reads ask for the compact binary encoding and
decode it locally with the parser module.`,
}

var timelineNumbersCmd = &cobra.Command{
	Use:   "numbers SCHEMA TIMELINE",
	Short: "Show all numeric values of a timeline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTimelineRead(cmd, args, (*storage.Timeline).AllNumbers)
	},
}

var timelineStringsCmd = &cobra.Command{
	Use:   "strings SCHEMA TIMELINE",
	Short: "Show all string values of a timeline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTimelineRead(cmd, args, (*storage.Timeline).AllStrings)
	},
}

var timelineDocumentsCmd = &cobra.Command{
	Use:   "documents SCHEMA TIMELINE",
	Short: "Show string values decoded as JSON documents",
	Args:  cobra.ExactArgs(2),
	RunE:  runTimelineDocuments,
}

var timelineAddNumberCmd = &cobra.Command{
	Use:     "add-number SCHEMA TIMELINE VALUE",
	Short:   "Append a number to a timeline",
	Example: `  stl timeline add-number metrics cpu 42.5 --time=5m`,
	Args:    cobra.ExactArgs(3),
	RunE:    runTimelineAddNumber,
}

var timelineAddStringCmd = &cobra.Command{
	Use:     "add-string SCHEMA TIMELINE VALUE",
	Short:   "Append a string to a timeline",
	Example: `  stl timeline add-string events deploy '{"version":"1.2.0"}'`,
	Args:    cobra.ExactArgs(3),
	RunE:    runTimelineAddString,
}

func init() {
	addStorageFlags(timelineCmd)

	for _, cmd := range []*cobra.Command{timelineNumbersCmd, timelineStringsCmd} {
		cmd.Flags().StringVarP(&timelineOutputFormat, "output", "o", "default", "Output format: default, json or jsonl")
	}
	for _, cmd := range []*cobra.Command{timelineAddNumberCmd, timelineAddStringCmd} {
		cmd.Flags().StringVar(&timelineTime, "time", "", "Value time (duration ago, RFC3339 or Unix ms; default: now, set by the service)")
	}

	timelineCmd.AddCommand(timelineNumbersCmd, timelineStringsCmd, timelineDocumentsCmd, timelineAddNumberCmd, timelineAddStringCmd)
	rootCmd.AddCommand(timelineCmd)
}

type timelineRead func(t *storage.Timeline, ctx context.Context) (timeline.Result, error)

func runTimelineRead(cmd *cobra.Command, args []string, read timelineRead) error {
	ctx := cmd.Context()

	format, err := render.ParseOutputFormat(timelineOutputFormat)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: default, json, jsonl"})
	}

	s, closeFn, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := read(s.Schema(args[0]).Timeline(args[1]), ctx)
	if err != nil {
		return printer.Explain(err)
	}

	source := fmt.Sprintf("%s/%s", args[0], args[1])
	return render.Result(cmd.OutOrStdout(), result, format, nil, source, time.Now())
}

func runTimelineDocuments(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, closeFn, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	docs, err := s.Schema(args[0]).Timeline(args[1]).AllDocuments(ctx)
	if err != nil {
		return printer.Explain(err)
	}

	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to marshal documents: %w", err)
	}
	return render.FormatJSON(cmd.OutOrStdout(), data)
}

func runTimelineAddNumber(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return printer.Error("invalid value", fmt.Sprintf("'%s' is not a number", args[2]), []string{"Use add-string for text values"})
	}
	return runTimelineAdd(cmd, args, func(t *storage.Timeline, ctx context.Context, at *int64) (timeline.Result, error) {
		return t.AddNumber(ctx, value, at)
	})
}

func runTimelineAddString(cmd *cobra.Command, args []string) error {
	return runTimelineAdd(cmd, args, func(t *storage.Timeline, ctx context.Context, at *int64) (timeline.Result, error) {
		return t.AddString(ctx, args[2], at)
	})
}

func runTimelineAdd(cmd *cobra.Command, args []string, add func(*storage.Timeline, context.Context, *int64) (timeline.Result, error)) error {
	ctx := cmd.Context()

	var at *int64
	if timelineTime != "" {
		ms, err := timespec.Parse(timelineTime, time.Now())
		if err != nil {
			return printer.Error("invalid --time", err.Error(), nil)
		}
		at = &ms
	}

	s, closeFn, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := add(s.Schema(args[0]).Timeline(args[1]), ctx, at)
	if err != nil {
		return printer.Explain(err)
	}
	log.Printf("[INFO] Appended %s to %s/%s", args[2], args[0], args[1])

	return render.FormatJSON(cmd.OutOrStdout(), result)
}
