package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vitche/storage-timeline/internal/printer"
	"github.com/vitche/storage-timeline/internal/scaffold"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter stl.yml",
	Long: `Write a commented stl.yml into the current directory.

Use --force to replace an existing stl.yml.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Replace an existing stl.yml")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	if !forceInit {
		if err := scaffold.CheckExisting(wd); err != nil {
			return printer.Error("project already initialized", err.Error(), nil)
		}
	}

	if err := scaffold.Initialize(wd, forceInit); err != nil {
		return printer.Error("failed to initialize", err.Error(), nil)
	}

	printer.Success("Created stl.yml\n")
	printer.Info("\nNext steps:\n")
	printer.Info("  1. Run 'stl install' to download the parser module\n")
	printer.Info("  2. Run 'stl load <location>' to parse a timeline\n")
	return nil
}
