package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/cmd/resolve"
	"github.com/sidkik/davsync/cmd/util"
	"github.com/sidkik/davsync/cmd/version"
	"github.com/sidkik/davsync/cmd/watch"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "DAVSYNC_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	log.SetFormatter(&log.TextFormatter{
		// Show the full timestamp rather than the time elapsed since davsync
		// started, so that syncs can be matched with the server's logs.
		FullTimestamp: true,
	})

	var verbose bool
	rootCmd := &cobra.Command{
		Use:          "davsync",
		Short:        "Sync a local directory to a WebDAV server as it changes",
		SilenceUsage: true,

		// Errors are printed by HandleFatalError.
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log debug events. Can also be enabled with "+verboseLogKey+"=true.")
	rootCmd.AddCommand(
		resolve.New(),
		version.New(),
		watch.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
