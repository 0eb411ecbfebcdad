// Package walker drives a site crawl one step at a time.
//
// A step dequeues the next page, fetches it, and dispatches it to every
// rule whose URL pattern matches. Each rule names a processor:
//
//   - extract: collects links and enqueues pages not processed yet
//   - image: downloads linked resources and records them as leaf pages
//
// Processors receive an Agent carrying the site and its collaborators
// (store, fetcher, file writer).
//
// The Manager assumes it is the only walker of its site. Step refuses to
// run concurrently with itself, but two managers on the same site are not
// coordinated.
package walker
