package commands

import (
	"github.com/spf13/cobra"
	"github.com/vitche/storage-timeline/internal/install"
	"github.com/vitche/storage-timeline/internal/printer"
	"github.com/vitche/storage-timeline/internal/transport"
	"github.com/vitche/storage-timeline/pkg/timeline"
)

var (
	installDir     string
	installBaseURL string
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Download the parser module for offline use",
	Long: `Download storage_timeline.wasm into the module directory.

When module.location is the bare default name and no such file exists in
the working directory, the installed copy is used instead.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installDir, "dir", "", "Module directory (default: install.dir or <user config dir>/stl)")
	installCmd.Flags().StringVar(&installBaseURL, "base-url", "", "Download base URL (default: install.base_url or the published module)")

	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := installDir
	if dir == "" {
		dir = moduleDir(cfg)
	}
	baseURL := installBaseURL
	if baseURL == "" {
		baseURL = cfg.Install.BaseURL
	}

	client, err := transport.BuildClient(cfg.HTTP.Timeout, cfg.HTTP.InsecureSkipVerify)
	if err != nil {
		return printer.Explain(err)
	}

	printer.Step("Downloading %s\n", install.ModuleURL(baseURL))
	path, err := install.Download(ctx, timeline.NewHTTPFetcher(client), baseURL, dir)
	if err != nil {
		return printer.Explain(err)
	}

	printer.Success("Installed parser module to %s\n", path)
	return nil
}
