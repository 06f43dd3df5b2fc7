package util

import (
	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/errors"
)

// ConfigFlags are the flags shared by the commands that connect to the
// server.
type ConfigFlags struct {
	Path      string
	Overrides config.File
}

// Register adds the flags to `cmd`.
func (f *ConfigFlags) Register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.Path, "config", "c", "",
		"Path to the config file. Defaults to "+config.DefaultPath+" if it exists.")
	flags.StringVarP(&f.Overrides.UserName, "username", "u", "", "WebDAV user name.")
	flags.StringVar(&f.Overrides.Password, "password", "",
		"WebDAV password. Prefer the "+config.PasswordEnvKey+" environment variable.")
	flags.StringVar(&f.Overrides.Host, "host", "",
		"WebDAV host, optionally with a scheme and a path to the folder that contains the cartridges.")
	flags.StringVar(&f.Overrides.Cartridge, "cartridge", "",
		"The remote folder to sync into. Defaults to the most recently modified folder.")
	flags.StringSliceVar(&f.Overrides.IgnoreRemotes, "ignore-remote", nil,
		"Remote folders whose names contain this string are never picked automatically.")
	flags.DurationVar(&f.Overrides.Timeout.Duration, "timeout", 0,
		"Timeout for each request to the server. Zero means no timeout.")
}

// Load parses the config file, merges the flags on top of it, and builds
// the session configuration.
func (f *ConfigFlags) Load() (config.Sync, error) {
	file, err := config.ParseFile(f.Path)
	if err != nil {
		return config.Sync{}, errors.WithContext(err, "parse config file")
	}
	return config.Build(config.Merge(file, f.Overrides))
}
