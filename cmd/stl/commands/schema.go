package commands

import (
	"github.com/spf13/cobra"
	"github.com/vitche/storage-timeline/internal/printer"
	"github.com/vitche/storage-timeline/internal/render"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect schemas on a storage service",
}

var schemaListCmd = &cobra.Command{
	Use:     "list SCHEMA",
	Short:   "List the timelines in a schema",
	Example: `  stl schema list metrics --uri https://storage.example.com/api`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSchemaList,
}

func init() {
	addStorageFlags(schemaCmd)
	schemaCmd.AddCommand(schemaListCmd)
	rootCmd.AddCommand(schemaCmd)
}

func runSchemaList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, closeFn, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := s.Schema(args[0]).List(ctx)
	if err != nil {
		return printer.Explain(err)
	}
	return render.FormatJSON(cmd.OutOrStdout(), result)
}
