// Package remote picks the folder on the WebDAV server that a watch session
// syncs into.
package remote

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/webdav"
)

// ListingFetcher fetches the directory listing of the candidate folders.
type ListingFetcher interface {
	FetchListing(ctx context.Context) ([]webdav.ListingEntry, error)
}

// Resolve returns the name of the folder to sync into.
// If `explicit` is set, it's used as is, without any network calls.
// Otherwise, the most recently modified folder in the listing whose name
// doesn't contain any of the `exclude` strings is picked. If every folder is
// excluded, the least recently modified folder is returned.
func Resolve(ctx context.Context, fetcher ListingFetcher, explicit string,
	exclude []string) (string, error) {

	if folder := Normalize(explicit); folder != "" {
		return folder, nil
	}

	entries, err := fetcher.FetchListing(ctx)
	if err != nil {
		return "", errors.WithContext(err, "fetch listing")
	}

	entry, err := pick(entries, exclude)
	if err != nil {
		return "", err
	}
	return Normalize(entry.Name), nil
}

func pick(entries []webdav.ListingEntry, exclude []string) (webdav.ListingEntry, error) {
	if len(entries) == 0 {
		return webdav.ListingEntry{}, errors.ResolutionError{Reason: "the listing has no entries"}
	}

	sorted := append([]webdav.ListingEntry{}, entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastModified.After(sorted[j].LastModified)
	})

	for _, entry := range sorted[:len(sorted)-1] {
		if !isExcluded(entry.Name, exclude) {
			return entry, nil
		}
	}

	// The last entry is used even if it's excluded.
	return sorted[len(sorted)-1], nil
}

func isExcluded(name string, exclude []string) bool {
	for _, pattern := range exclude {
		if pattern != "" && strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

// Normalize removes all whitespace and slashes from a folder name.
func Normalize(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
}
