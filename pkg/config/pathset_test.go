package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	memFs := afero.NewMemMapFs()
	for _, path := range []string{
		"/w/a.js",
		"/w/b.css",
		"/w/cartridge/static/default/js/app.js",
		"/w/cartridge/static/default/js/vendor.js",
		"/w/cartridge/static/default/css/style.css",
		"/w/cartridge/templates/default/page.isml",
	} {
		require.NoError(t, memFs.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, afero.WriteFile(memFs, path, nil, 0644))
	}
	require.NoError(t, memFs.MkdirAll("/w/cartridge/empty", 0755))

	tests := []struct {
		name     string
		patterns []string
		exp      PathSet
	}{
		{
			name: "no patterns",
			exp:  PathSet{},
		},
		{
			name:     "exact file",
			patterns: []string{"a.js", "./b.css"},
			exp:      NewPathSet("a.js", "b.css"),
		},
		{
			name:     "star doesn't cross directories",
			patterns: []string{"*.js"},
			exp:      NewPathSet("a.js"),
		},
		{
			name:     "double star",
			patterns: []string{"cartridge/**.js"},
			exp: NewPathSet(
				"cartridge/static/default/js/app.js",
				"cartridge/static/default/js/vendor.js"),
		},
		{
			name:     "negation",
			patterns: []string{"cartridge/static/**", "!**/vendor.js"},
			exp: NewPathSet(
				"cartridge/static/default/js/app.js",
				"cartridge/static/default/css/style.css"),
		},
		{
			name:     "negation only removes earlier matches",
			patterns: []string{"!a.js", "a.js"},
			exp:      NewPathSet("a.js"),
		},
		{
			name:     "missing files are skipped",
			patterns: []string{"missing.js", "cartridge/empty"},
			exp:      PathSet{},
		},
		{
			name:     "alternatives",
			patterns: []string{"{a,b}.*"},
			exp:      NewPathSet("a.js", "b.css"),
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			set, err := Expand(memFs, "/w", test.patterns)
			require.NoError(t, err)
			assert.Equal(t, test.exp, set)
		})
	}
}

func TestExpandInvalidPattern(t *testing.T) {
	memFs := afero.NewMemMapFs()
	require.NoError(t, memFs.MkdirAll("/w", 0755))

	_, err := Expand(memFs, "/w", []string{"[a"})
	assert.Error(t, err)
}

func TestPathSet(t *testing.T) {
	set := NewPathSet("b.js", "a.js")
	assert.True(t, set.Contains("a.js"))
	assert.False(t, set.Contains("c.js"))
	assert.False(t, set.Contains("/a.js"))
	assert.Equal(t, []string{"a.js", "b.js"}, set.Sorted())
	assert.Nil(t, NewPathSet().Sorted())
}
