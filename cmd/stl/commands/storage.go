package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/vitche/storage-timeline/internal/printer"
	"github.com/vitche/storage-timeline/internal/render"
	"github.com/vitche/storage-timeline/internal/transport"
	"github.com/vitche/storage-timeline/pkg/storage"
)

var (
	storageURI    string
	storageBinary bool
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect a storage service",
}

var storageListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List the schemas on a storage service",
	Example: `  stl storage list --uri https://storage.example.com/api`,
	Args:    cobra.NoArgs,
	RunE:    runStorageList,
}

func init() {
	addStorageFlags(storageCmd)
	storageCmd.AddCommand(storageListCmd)
	rootCmd.AddCommand(storageCmd)
}

func runStorageList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, closeFn, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := s.List(ctx)
	if err != nil {
		return printer.Explain(err)
	}
	return render.FormatJSON(cmd.OutOrStdout(), result)
}

// addStorageFlags registers the flags shared by every service command.
func addStorageFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&storageURI, "uri", "", "Storage service URI (default: storage.uri or STL_STORAGE_URI)")
	cmd.PersistentFlags().BoolVar(&storageBinary, "binary", false, "Request binary timelines and decode them with the parser module")
}

// openStorage builds a service client. In binary mode the parser module is
// initialized too and the returned close function releases it.
func openStorage(ctx context.Context) (*storage.Storage, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	uri := storageURI
	if uri == "" {
		uri = cfg.Storage.URI
	}
	if uri == "" {
		return nil, nil, printer.Error(
			"storage service not configured",
			"No storage service URI was given.",
			[]string{
				"Pass it on the command line:\n  --uri https://storage.example.com/api",
				"Set storage.uri in stl.yml",
				"Set the STL_STORAGE_URI environment variable",
			},
		)
	}

	client, err := transport.BuildClient(cfg.HTTP.Timeout, cfg.HTTP.InsecureSkipVerify)
	if err != nil {
		return nil, nil, printer.Explain(err)
	}
	opts := []storage.Option{storage.WithHTTPClient(client)}

	closeFn := func() {}
	if storageBinary || cfg.Storage.Binary {
		sess, err := newSession(ctx, cfg, "")
		if err != nil {
			return nil, nil, printer.Explain(err)
		}
		opts = append(opts, storage.WithParser(sess.loader))
		closeFn = func() { sess.Close(ctx) }
	}

	s, err := storage.New(uri, opts...)
	if err != nil {
		closeFn()
		return nil, nil, printer.Explain(err)
	}
	return s, closeFn, nil
}
