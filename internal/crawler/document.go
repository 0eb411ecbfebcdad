package crawler

import (
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed HTML page. The x/net/html tree is wrapped in goquery
// so rules can select elements with CSS selectors.
type Document struct {
	*goquery.Document

	// URL is the address the document was fetched from.
	URL string
}

// ParseDocument parses HTML from r. pageURL is recorded on the document and
// used as the base for relative references.
func ParseDocument(r io.Reader, pageURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	doc := goquery.NewDocumentFromNode(root)
	if u, err := url.Parse(pageURL); err == nil {
		doc.Url = u
	}

	return &Document{Document: doc, URL: pageURL}, nil
}

// Title returns the text of the first <title> element, trimmed.
func (d *Document) Title() string {
	if d == nil || d.Document == nil {
		return ""
	}
	return cleanTitle(d.Find("title").First().Text())
}

// ResolveTitle picks a display title for a page: the document title, else
// the last non-empty path segment of pageURL, else pageURL itself.
// Newlines are removed and the result is trimmed.
func ResolveTitle(doc *Document, pageURL string) string {
	if title := doc.Title(); title != "" {
		return title
	}

	if u, err := url.Parse(pageURL); err == nil {
		if segment := lastSegment(u.Path); segment != "" {
			return cleanTitle(segment)
		}
	}

	return cleanTitle(pageURL)
}

// LastPathSegment returns the final non-empty path segment of rawURL,
// or "" when the URL has no path.
func LastPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return lastSegment(u.Path)
}

func lastSegment(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		return unescaped
	}
	return base
}

// cleanTitle strips newlines and surrounding whitespace.
func cleanTitle(s string) string {
	s = strings.NewReplacer("\r", "", "\n", "").Replace(s)
	return strings.TrimSpace(s)
}

// ResolveReference resolves href against base and returns an absolute URL.
// Absolute hrefs are returned unchanged; an unparseable base or href is
// reported as ok == false.
func ResolveReference(base, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if ref.IsAbs() {
		return ref.String(), true
	}

	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return "", false
	}
	return b.ResolveReference(ref).String(), true
}
