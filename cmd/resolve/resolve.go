package resolve

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/cmd/util"
	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/remote"
	"github.com/sidkik/davsync/pkg/sync"
	"github.com/sidkik/davsync/pkg/webdav"
)

// newClient is overridden in mock tests.
var newClient = webdav.New

// New creates a new `resolve` command.
func New() *cobra.Command {
	var flags util.ConfigFlags
	cobraCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the remote folder that `watch` would sync into",
		Run: func(cmd *cobra.Command, _ []string) {
			cfg, err := flags.Load()
			if err != nil {
				util.HandleFatalError(err)
			}

			if err := run(cmd.Context(), os.Stdout, cfg); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	flags.Register(cobraCmd)
	return cobraCmd
}

func run(ctx context.Context, out io.Writer, cfg config.Sync) error {
	target, err := sync.NewTarget(cfg.Host, sync.Credentials{
		User:     cfg.UserName,
		Password: cfg.Password,
	})
	if err != nil {
		return err
	}

	folder, err := remote.Resolve(ctx, newClient(target.ListingURL(), cfg.Timeout),
		cfg.Cartridge, cfg.IgnoreRemotes)
	if err != nil {
		return errors.WithContext(err, "resolve remote folder")
	}

	fmt.Fprintln(out, folder)
	fmt.Fprintln(out, webdav.Redact(target.WithFolder(folder).Root()))
	return nil
}
