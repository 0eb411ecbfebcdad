// Package crawler turns fetched HTML into a queryable document and pulls
// candidate links out of it for a walker rule.
//
// # Components
//
//   - Document: a parsed page wrapping goquery for CSS selection
//   - ExtractLinks: selects elements for a rule and collects href/src values
//   - ResolveTitle: picks a display title for a fetched page
//   - ResolveReference: turns a link into an absolute URL for fetching
//
// Links are returned verbatim. The URL string as written in the page is the
// page's identity in the store, so no normalization happens here.
//
// # Usage
//
//	doc, err := crawler.ParseDocument(resp.Body, "https://example.com/")
//	links, err := crawler.ExtractLinks(doc, rule)
package crawler
