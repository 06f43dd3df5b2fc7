package config

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/davsync/pkg/errors"
)

// parseErrTemplate is shown when davsync.yaml isn't valid YAML, or doesn't
// match the File schema. The yaml library loses the position of the error,
// so only its message is passed on.
const parseErrTemplate = "Failed to parse the config file %q.\n" +
	"Check that every field is spelled like in `davsync.yaml` examples, and " +
	"that durations are strings such as \"2s\" or numbers of milliseconds.\n\n" +
	"Parser error:\n" +
	"%s"

const missingErrTemplate = "The config file doesn't exist at %q."

type versionedFile interface {
	getVersion() string
}

type incompatibleVersionError struct {
	path, exp, actual string
}

func (err incompatibleVersionError) Error() string {
	return err.FriendlyMessage()
}

func (err incompatibleVersionError) FriendlyMessage() string {
	return fmt.Sprintf("The config file %q has version %q, but this "+
		"version of davsync reads %q files.", err.path, err.actual, err.exp)
}

// parseConfig reads the YAML file at `path` into `config`. If the file
// doesn't exist and isn't `required`, `config` keeps its defaults.
func parseConfig(path string, config versionedFile, expVersion string, required bool) error {
	contents, err := afero.ReadFile(fs, path)
	switch {
	case os.IsNotExist(err) && required:
		return errors.NewFriendlyError(missingErrTemplate, path)
	case os.IsNotExist(err):
		return nil
	case err != nil:
		return errors.WithContext(err, "read config file")
	}

	if err := yaml.Unmarshal(contents, config); err != nil {
		return errors.NewFriendlyError(parseErrTemplate, path, err)
	}

	// The version is checked before unknown fields, since newer versions
	// may add fields.
	if config.getVersion() != expVersion {
		return incompatibleVersionError{path, expVersion, config.getVersion()}
	}

	err = yaml.UnmarshalStrict(contents, config, yaml.DisallowUnknownFields)
	if err != nil {
		return errors.NewFriendlyError(parseErrTemplate, path, err)
	}
	return nil
}
