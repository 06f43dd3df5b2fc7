package version

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/pkg/version"
)

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of davsync.",
		Run: func(_ *cobra.Command, _ []string) {
			run(os.Stdout)
		},
	}
}

func run(out io.Writer) {
	fmt.Fprintf(out, "davsync version: %s\n", version.String())
	fmt.Fprintf(out, "go version:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
