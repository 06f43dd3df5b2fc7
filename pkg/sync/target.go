package sync

import (
	"net/url"
	"strings"

	"github.com/sidkik/davsync/pkg/errors"
)

// Credentials are the basic auth credentials for the WebDAV server.
type Credentials struct {
	User     string
	Password string
}

// Target is the remote location that a watch session syncs into. The Folder
// is resolved once at startup, and a Target is never modified afterwards.
type Target struct {
	// BaseURL is the URL of the directory that contains the candidate
	// folders, without credentials.
	BaseURL     string
	Credentials Credentials

	// Folder is the name of the folder within BaseURL that files are synced
	// into. It's empty until the target is resolved.
	Folder string
}

// NewTarget creates an unresolved Target for the given host. The host may
// contain a path, e.g. `example.com/webdav/Cartridges`, and an explicit
// scheme. The scheme defaults to https.
func NewTarget(host string, creds Credentials) (Target, error) {
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	u, err := url.Parse(host)
	if err != nil {
		return Target{}, errors.WithContext(err, "parse host")
	}
	if u.Host == "" {
		return Target{}, errors.NewFriendlyError("Invalid host %q.", host)
	}

	u.User = nil
	u.Path = joinURLPath(u.Path)
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return Target{BaseURL: u.String(), Credentials: creds}, nil
}

// WithFolder returns a copy of the target that syncs into folder.
func (t Target) WithFolder(folder string) Target {
	t.Folder = folder
	return t
}

// ListingURL returns the URL of the directory listing that contains the
// candidate folders, with credentials.
func (t Target) ListingURL() string {
	return t.url("")
}

// Root returns the URL of the resolved folder, with credentials. Every
// destination URL of the session starts with it.
func (t Target) Root() string {
	return t.url(t.Folder)
}

func (t Target) url(folder string) string {
	u, err := url.Parse(t.BaseURL)
	if err != nil {
		// BaseURL is always constructed by NewTarget.
		panic(err)
	}

	if t.Credentials.User != "" || t.Credentials.Password != "" {
		u.User = url.UserPassword(t.Credentials.User, t.Credentials.Password)
	}
	u.Path = joinURLPath(u.Path, folder)
	return u.String()
}
