package config

import (
	"path/filepath"
	"time"

	"github.com/sidkik/davsync/pkg/errors"
)

// PasswordEnvKey is the environment variable that supplies the password when
// it's not set in the config file or flags.
const PasswordEnvKey = "DAVSYNC_PASSWORD"

// Defaults for optional settings.
const (
	DefaultPort               = 35729
	DefaultWatcher            = WatcherFsnotify
	DefaultStabilityThreshold = 2 * time.Second
	DefaultPollInterval       = 100 * time.Millisecond
	DefaultConcurrency        = 8
)

// The supported watcher backends.
const (
	WatcherFsnotify = "fsnotify"
	WatcherNotify   = "notify"
)

// Sync is the configuration of a watch session. It's built once at startup,
// and never modified afterwards.
type Sync struct {
	UserName string
	Password string
	Host     string

	// LocalPath is the absolute path of the watched directory.
	LocalPath string

	Cartridge     string
	IgnoreRemotes []string

	// Ignored and Reload are paths relative to LocalPath.
	Ignored PathSet
	Reload  PathSet

	Port     int
	Rewrites []string

	Watcher            string
	StabilityThreshold time.Duration
	PollInterval       time.Duration
	Concurrency        int
	Timeout            time.Duration

	LogFile string
}

// Build validates the merged configuration, fills in defaults, and expands
// the file globs.
func Build(cfg File) (Sync, error) {
	if cfg.Password == "" {
		cfg.Password = getenv(PasswordEnvKey)
	}

	// The order matches what users are asked to fix first.
	for _, required := range []struct{ field, value string }{
		{"userName", cfg.UserName},
		{"host", cfg.Host},
		{"password", cfg.Password},
	} {
		if required.value == "" {
			return Sync{}, errors.MissingFieldError{Field: required.field}
		}
	}

	localPath, err := resolveLocalPath(cfg.LocalPath)
	if err != nil {
		return Sync{}, err
	}

	watcher := cfg.Watcher
	switch watcher {
	case "":
		watcher = DefaultWatcher
	case WatcherFsnotify, WatcherNotify:
	default:
		return Sync{}, errors.NewFriendlyError(
			"Unknown watcher %q. Supported watchers are %q and %q.",
			watcher, WatcherFsnotify, WatcherNotify)
	}

	if cfg.Concurrency < 0 {
		return Sync{}, errors.NewFriendlyError(
			"concurrency must be positive, but got %d.", cfg.Concurrency)
	}

	ignored, err := Expand(fs, localPath, cfg.IgnoredFiles)
	if err != nil {
		return Sync{}, errors.WithContext(err, "expand ignored files")
	}

	reload, err := Expand(fs, localPath, cfg.LivereloadFiles)
	if err != nil {
		return Sync{}, errors.WithContext(err, "expand livereload files")
	}

	return Sync{
		UserName:           cfg.UserName,
		Password:           cfg.Password,
		Host:               cfg.Host,
		LocalPath:          localPath,
		Cartridge:          cfg.Cartridge,
		IgnoreRemotes:      cfg.IgnoreRemotes,
		Ignored:            ignored,
		Reload:             reload,
		Port:               orDefault(cfg.CustomPort, DefaultPort),
		Rewrites:           cfg.Rewrites,
		Watcher:            watcher,
		StabilityThreshold: orDefaultDuration(cfg.StabilityThreshold.Duration, DefaultStabilityThreshold),
		PollInterval:       orDefaultDuration(cfg.PollInterval.Duration, DefaultPollInterval),
		Concurrency:        orDefault(cfg.Concurrency, DefaultConcurrency),
		Timeout:            cfg.Timeout.Duration,
		LogFile:            cfg.LogFile,
	}, nil
}

func resolveLocalPath(path string) (string, error) {
	if path == "" {
		wd, err := getWorkingDirectory()
		if err != nil {
			return "", errors.WithContext(err, "get working directory")
		}
		return wd, nil
	}

	path, err := homedirExpand(path)
	if err != nil {
		return "", errors.WithContext(err, "expand local path")
	}

	if !filepath.IsAbs(path) {
		wd, err := getWorkingDirectory()
		if err != nil {
			return "", errors.WithContext(err, "get working directory")
		}
		path = filepath.Join(wd, path)
	}
	return filepath.Clean(path), nil
}

func orDefault(value, def int) int {
	if value == 0 {
		return def
	}
	return value
}

func orDefaultDuration(value, def time.Duration) time.Duration {
	if value == 0 {
		return def
	}
	return value
}
