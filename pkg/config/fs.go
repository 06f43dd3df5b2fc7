package config

import (
	"os"

	"github.com/spf13/afero"
)

// fs is used for mock tests. It will be overridden by afero.NewMemMapFs()
// in the tests.
var fs = afero.NewOsFs()

// These are overridden in mock tests.
var (
	getWorkingDirectory = os.Getwd
	getenv              = os.Getenv
)
