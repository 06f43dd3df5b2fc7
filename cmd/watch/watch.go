package watch

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/cmd/util"
	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/errors"
)

// New creates a new `watch` command.
func New() *cobra.Command {
	var flags util.ConfigFlags
	cobraCmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync local changes to the WebDAV server",
		Long: `Watch the local directory, and upload every changed file to the remote
folder on the WebDAV server. Deleted files are deleted from the server.

Connected livereload clients are reloaded when one of the livereload files
changes.`,
		Run: func(_ *cobra.Command, _ []string) {
			cfg, err := flags.Load()
			if err != nil {
				util.HandleFatalError(err)
			}

			if err := run(cfg); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	flags.Register(cobraCmd)

	overrides := &flags.Overrides
	cobraCmd.Flags().StringVarP(&overrides.LocalPath, "path", "p", "",
		"The directory to watch. Defaults to the working directory.")
	cobraCmd.Flags().StringSliceVar(&overrides.IgnoredFiles, "ignore", nil,
		"Glob of files that are never synced. May be repeated.")
	cobraCmd.Flags().StringSliceVar(&overrides.LivereloadFiles, "livereload", nil,
		"Glob of files that reload the browser when they change. May be repeated.")
	cobraCmd.Flags().StringSliceVar(&overrides.Rewrites, "rewrite", nil,
		"Substring removed from every remote path. May be repeated.")
	cobraCmd.Flags().IntVar(&overrides.CustomPort, "port", 0,
		"Port of the livereload server.")
	cobraCmd.Flags().StringVar(&overrides.Watcher, "watcher", "",
		"File watcher backend: fsnotify or notify.")
	cobraCmd.Flags().DurationVar(&overrides.StabilityThreshold.Duration, "stability-threshold", 0,
		"How long a file must stay unchanged before it's synced.")
	cobraCmd.Flags().DurationVar(&overrides.PollInterval.Duration, "poll-interval", 0,
		"How often files that are being written are checked.")
	cobraCmd.Flags().IntVar(&overrides.Concurrency, "concurrency", 0,
		"Number of files uploaded in parallel when a directory is synced.")
	cobraCmd.Flags().StringVar(&overrides.LogFile, "log-file", "",
		"Also write logs to this file.")
	return cobraCmd
}

func run(cfg config.Sync) error {
	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return errors.WithContext(err, "open log file")
		}
		defer logFile.Close()
		log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pp := util.NewProgressPrinter(os.Stdout, "Looking for the remote folder..")
	go pp.Run()
	defer pp.StopWithPrint(util.ClearProgress)

	supervisor := NewSupervisor(cfg, log.StandardLogger(), progressWriter{pp, os.Stdout})
	return supervisor.Run(ctx)
}

// progressWriter stops the progress printer before the first status line is
// printed.
type progressWriter struct {
	pp  *util.ProgressPrinter
	out io.Writer
}

func (w progressWriter) Write(p []byte) (int, error) {
	w.pp.StopWithPrint(util.ClearProgress)
	return w.out.Write(p)
}
