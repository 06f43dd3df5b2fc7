package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "development", String())

	Version = "0.3.1"
	defer func() { Version = EmptyValue }()
	assert.Equal(t, "0.3.1", String())
}
