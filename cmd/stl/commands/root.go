package commands

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/vitche/storage-timeline/internal/config"
	"github.com/vitche/storage-timeline/internal/install"
	"github.com/vitche/storage-timeline/internal/printer"
)

var (
	version string
	commit  string
	date    string
)

var (
	configPath string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stl",
	Short: "stl - Storage timeline toolkit",
	Long: `stl reads storage timelines.

Binary timelines are decoded by the storage timeline parser, a WebAssembly
module run in-process. The module and the timelines can come from local
files, HTTP(S) URLs or Redis keys.

stl also talks to storage timeline services: listing schemas, reading
timelines and appending values.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetOutput(cmd.ErrOrStderr())
		} else {
			log.SetOutput(io.Discard)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to stl.yml (default: ./stl.yml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")
}

// loadConfig resolves --config, ./stl.yml and the environment.
func loadConfig() (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.Resolve(configPath, wd)
	if err != nil {
		return nil, printer.Error(
			"failed to load configuration",
			err.Error(),
			[]string{"Create a starter configuration with:\n  stl init --force"},
		)
	}
	return cfg, nil
}

// moduleDir is where `stl install` puts the parser module.
func moduleDir(cfg *config.Config) string {
	if cfg.Install.Dir != "" {
		return cfg.Install.Dir
	}
	dir, err := install.DefaultDir()
	if err != nil {
		log.Printf("[WARN] %v", err)
		return ""
	}
	return dir
}
