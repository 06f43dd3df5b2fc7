package webdav

import (
	"io"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sidkik/davsync/pkg/errors"
)

// ListingEntry is a single row of a remote directory listing.
type ListingEntry struct {
	Name         string
	LastModified time.Time
}

// timestampLayouts are tried in order when parsing the timestamp column.
var timestampLayouts = []string{
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02-Jan-2006 15:04",
}

// ParseListing extracts the entries of an HTML directory listing. Each table
// row contributes one entry: the name is the text of the first cell, and the
// timestamp comes from the <tt> element in the last cell. Rows without a
// <tt> element are accepted if the last cell's text is itself a timestamp.
// A timestamp that can't be parsed yields the zero time, which sorts last.
func ParseListing(r io.Reader) ([]ListingEntry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WithContext(err, "parse html")
	}

	var entries []ListingEntry
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			if entry, ok := parseRow(n); ok {
				entries = append(entries, entry)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return entries, nil
}

func parseRow(row *html.Node) (ListingEntry, bool) {
	var cells []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Td {
			cells = append(cells, c)
		}
	}
	if len(cells) == 0 {
		return ListingEntry{}, false
	}

	last := cells[len(cells)-1]
	var modified time.Time
	if tt := findElement(last, atom.Tt); tt != nil {
		modified, _ = parseTimestamp(textContent(tt))
	} else {
		var ok bool
		modified, ok = parseTimestamp(textContent(last))
		if !ok {
			return ListingEntry{}, false
		}
	}

	return ListingEntry{
		Name:         textContent(cells[0]),
		LastModified: modified,
	}, true
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}
