package sync

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Mapper converts between local paths under the watch root, paths relative
// to the watch root, and destination URLs under the resolved target.
type Mapper struct {
	watchRoot  string
	targetRoot string

	// rewrites are substrings removed, in order, from the relative part of
	// every destination URL.
	rewrites []string
}

// NewMapper returns a Mapper for files under watchRoot that are synced into
// target.
func NewMapper(watchRoot string, target Target, rewrites []string) Mapper {
	var nonEmpty []string
	for _, rw := range rewrites {
		if rw != "" {
			nonEmpty = append(nonEmpty, rw)
		}
	}

	return Mapper{
		watchRoot:  filepath.Clean(watchRoot),
		targetRoot: target.Root(),
		rewrites:   nonEmpty,
	}
}

// WatchRoot returns the cleaned watch root.
func (m Mapper) WatchRoot() string {
	return m.watchRoot
}

// TargetRoot returns the URL of the resolved remote folder.
func (m Mapper) TargetRoot() string {
	return m.targetRoot
}

// ToRelative returns the path of `path` relative to the watch root. The
// watch root prefix is removed, followed by at most one leading separator.
// `path` must be within the watch root.
func (m Mapper) ToRelative(path string) string {
	rel := strings.TrimPrefix(path, m.watchRoot)
	if len(rel) > 0 && isSeparator(rel[0]) {
		rel = rel[1:]
	}
	return rel
}

// ToLocal returns the absolute local path for a path relative to the watch
// root.
func (m Mapper) ToLocal(rel string) string {
	return filepath.Join(m.watchRoot, filepath.FromSlash(rel))
}

// ToRemoteURL returns the destination URL for a path relative to the watch
// root. Components are always separated by exactly one slash.
func (m Mapper) ToRemoteURL(rel string) string {
	rel = joinURLPath(filepath.ToSlash(rel))
	for _, rw := range m.rewrites {
		rel = joinURLPath(strings.Replace(rel, rw, "", -1))
	}

	u, err := url.Parse(m.targetRoot)
	if err != nil {
		// The target root is always generated by Target.Root.
		panic(err)
	}
	u.Path = joinURLPath(u.Path, rel)
	u.RawPath = ""
	return u.String()
}

// RelativeToRoot returns the part of a destination URL after root, with one
// leading slash removed and unescaped. The boolean is false if dest isn't
// under root.
func RelativeToRoot(dest, root string) (string, bool) {
	root = strings.TrimSuffix(root, "/")
	if !strings.HasPrefix(dest, root) {
		return "", false
	}

	rel := strings.TrimPrefix(dest, root)
	switch {
	case rel == "":
	case rel[0] == '/':
		rel = rel[1:]
	default:
		// E.g. `https://h/Cartridge2/a.js` isn't under `https://h/Cartridge`.
		return "", false
	}

	unescaped, err := url.PathUnescape(rel)
	if err != nil {
		return "", false
	}
	return unescaped, true
}

// joinURLPath joins slash separated path components. Empty and `.`
// components are dropped, so the result has exactly one slash between each
// component, a leading slash, and no trailing slash. It returns the empty
// string if there are no components.
func joinURLPath(parts ...string) string {
	var segments []string
	for _, part := range parts {
		for _, segment := range strings.Split(part, "/") {
			if segment == "" || segment == "." {
				continue
			}
			segments = append(segments, segment)
		}
	}

	if len(segments) == 0 {
		return ""
	}
	return "/" + strings.Join(segments, "/")
}

func isSeparator(c byte) bool {
	return c == os.PathSeparator || c == '/'
}
