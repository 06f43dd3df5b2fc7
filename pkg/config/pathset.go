package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"

	"github.com/sidkik/davsync/pkg/errors"
)

// PathSet is a set of slash separated paths relative to the watch root.
type PathSet map[string]struct{}

// NewPathSet returns a PathSet containing `paths`.
func NewPathSet(paths ...string) PathSet {
	set := PathSet{}
	for _, path := range paths {
		set[path] = struct{}{}
	}
	return set
}

// Contains returns whether `path` is in the set.
func (s PathSet) Contains(path string) bool {
	_, ok := s[path]
	return ok
}

// Sorted returns the paths in the set in lexical order.
func (s PathSet) Sorted() []string {
	var paths []string
	for path := range s {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Expand returns the files under `root` that match `patterns`. Patterns are
// globs relative to `root`, and are applied in order. A pattern that starts
// with `!` removes its matches from the files matched so far.
// Only files that currently exist are returned.
func Expand(fs afero.Fs, root string, patterns []string) (PathSet, error) {
	set := PathSet{}
	if len(patterns) == 0 {
		return set, nil
	}

	type rule struct {
		negate bool
		glob   glob.Glob
	}

	var rules []rule
	for _, pattern := range patterns {
		negate := strings.HasPrefix(pattern, "!")
		pattern = strings.TrimPrefix(strings.TrimPrefix(pattern, "!"), "./")
		if pattern == "" {
			continue
		}

		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.NewFriendlyError("Invalid file pattern %q: %s", pattern, err)
		}
		rules = append(rules, rule{negate, g})
	}

	var files []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return errors.WithContext(err, "get relative path")
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.WithContext(err, "walk")
	}

	for _, rule := range rules {
		for _, file := range files {
			if !rule.glob.Match(file) {
				continue
			}

			if rule.negate {
				delete(set, file)
			} else {
				set[file] = struct{}{}
			}
		}
	}
	return set, nil
}
