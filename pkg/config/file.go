package config

import (
	"encoding/json"
	"time"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/sidkik/davsync/pkg/errors"
)

const (
	// DefaultPath is the config file that's used when no path is given. It's
	// optional, unlike files given explicitly.
	DefaultPath = "davsync.yaml"

	// InitialFileVersion is the first version of the davsync config file.
	// Config files that do not specify a version will default to this
	// version.
	InitialFileVersion = "v1alpha1"

	// SupportedFileVersion is the supported version of the config file of
	// the current davsync binary.
	SupportedFileVersion = "v1alpha1"
)

// File is the configuration read from the config file. Command line flags
// are parsed into the same struct, and merged on top of it.
type File struct {
	Version string `json:"version,omitempty"`

	UserName string `json:"userName,omitempty"`
	Password string `json:"password,omitempty"`
	Host     string `json:"host,omitempty"`

	// LocalPath is the directory that's watched. Defaults to the working
	// directory.
	LocalPath string `json:"localPath,omitempty"`

	// Cartridge is the remote folder to sync into. If it's not set, the most
	// recently modified folder on the server is used.
	Cartridge     string   `json:"cartridge,omitempty"`
	IgnoreRemotes []string `json:"ignoreRemotes,omitempty"`

	IgnoredFiles    []string `json:"ignoredFiles,omitempty"`
	LivereloadFiles []string `json:"livereloadFiles,omitempty"`
	CustomPort      int      `json:"customPort,omitempty"`
	Rewrites        []string `json:"rewrites,omitempty"`

	Watcher            string   `json:"watcher,omitempty"`
	StabilityThreshold Duration `json:"stabilityThreshold,omitempty"`
	PollInterval       Duration `json:"pollInterval,omitempty"`
	Concurrency        int      `json:"concurrency,omitempty"`
	Timeout            Duration `json:"timeout,omitempty"`

	LogFile string `json:"logFile,omitempty"`
}

func (f File) getVersion() string {
	return f.Version
}

// Duration is a time.Duration that's written in the config file either as a
// string such as "2s", or as a number of milliseconds.
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		parsed, err := time.ParseDuration(str)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	}

	var millis int64
	if err := json.Unmarshal(b, &millis); err != nil {
		return errors.New("duration must be a string or a number of milliseconds")
	}
	d.Duration = time.Duration(millis) * time.Millisecond
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// ParseFile parses the config file at `path`. If `path` is empty,
// DefaultPath is parsed if it exists.
func ParseFile(path string) (File, error) {
	optional := path == ""
	if optional {
		path = DefaultPath
	}

	path, err := homedirExpand(path)
	if err != nil {
		return File{}, errors.WithContext(err, "expand config path")
	}

	config := File{Version: InitialFileVersion}
	if err := parseConfig(path, &config, SupportedFileVersion, !optional); err != nil {
		return File{}, err
	}
	return config, nil
}

// Merge returns `base` with every field that's set in `overrides` replaced.
func Merge(base, overrides File) File {
	merged := base
	setString(&merged.UserName, overrides.UserName)
	setString(&merged.Password, overrides.Password)
	setString(&merged.Host, overrides.Host)
	setString(&merged.LocalPath, overrides.LocalPath)
	setString(&merged.Cartridge, overrides.Cartridge)
	setString(&merged.Watcher, overrides.Watcher)
	setString(&merged.LogFile, overrides.LogFile)

	setStrings(&merged.IgnoreRemotes, overrides.IgnoreRemotes)
	setStrings(&merged.IgnoredFiles, overrides.IgnoredFiles)
	setStrings(&merged.LivereloadFiles, overrides.LivereloadFiles)
	setStrings(&merged.Rewrites, overrides.Rewrites)

	if overrides.CustomPort != 0 {
		merged.CustomPort = overrides.CustomPort
	}
	if overrides.Concurrency != 0 {
		merged.Concurrency = overrides.Concurrency
	}
	if overrides.StabilityThreshold.Duration != 0 {
		merged.StabilityThreshold = overrides.StabilityThreshold
	}
	if overrides.PollInterval.Duration != 0 {
		merged.PollInterval = overrides.PollInterval
	}
	if overrides.Timeout.Duration != 0 {
		merged.Timeout = overrides.Timeout
	}
	return merged
}

func setString(field *string, override string) {
	if override != "" {
		*field = override
	}
}

func setStrings(field *[]string, override []string) {
	if len(override) != 0 {
		*field = override
	}
}
