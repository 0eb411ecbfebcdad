package model

import "time"

// ProcessorKind identifies which processor handles a rule.
// The set is closed: only the kinds declared below have implementations.
type ProcessorKind string

const (
	// ProcessorExtract extracts links from a document and enqueues them.
	ProcessorExtract ProcessorKind = "extract"

	// ProcessorImage downloads binary resources referenced by a document.
	ProcessorImage ProcessorKind = "image"
)

// ProcessorKinds lists every known processor kind in a stable order.
var ProcessorKinds = []ProcessorKind{ProcessorExtract, ProcessorImage}

// String returns the kind as stored in the database and configuration.
func (k ProcessorKind) String() string {
	return string(k)
}

// IsValid reports whether k is one of the declared processor kinds.
func (k ProcessorKind) IsValid() bool {
	for _, kind := range ProcessorKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// DefaultElementFilter selects every element carrying an href or src attribute.
const DefaultElementFilter = "[href],[src]"

// Rule is a walker rule. Rules belong to exactly one site and their order
// decides dispatch priority when several rules match the same URL.
type Rule struct {
	// Key is unique within the owning site.
	Key string

	// Position is the zero-based index of the rule in the configuration file.
	Position int

	// URLPattern is a regular expression searched (not fully matched)
	// against a page URL to decide whether this rule runs.
	URLPattern string

	// Processor is the processor kind invoked when the rule matches.
	Processor ProcessorKind

	// ElementFilter is a CSS selector choosing the elements whose href/src
	// attributes are collected. Empty means DefaultElementFilter.
	ElementFilter string

	// URLFilter optionally restricts extracted links. Empty keeps everything.
	URLFilter string

	// Priority is copied onto queue entries created by this rule.
	// Higher values are dequeued first.
	Priority int

	// AncestorGenerations is how many parent links the image processor walks
	// up from the current page to find the grouping page.
	AncestorGenerations int
}

// Selector returns the element filter, falling back to DefaultElementFilter.
func (r Rule) Selector() string {
	if r.ElementFilter == "" {
		return DefaultElementFilter
	}
	return r.ElementFilter
}

// Site is one crawl target.
type Site struct {
	ID    int64
	Key   string
	Title string

	// URL is the root URL used to seed the queue.
	URL string

	// Rules are kept in configuration order.
	Rules []Rule

	// Steps counts completed walk steps.
	Steps int64

	// ExtractCount and ImageCount count processor invocations.
	ExtractCount int64
	ImageCount   int64

	// ResetCount counts queue resets and page clears.
	ResetCount int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SiteDump is a read-only snapshot of a site used for display.
type SiteDump struct {
	Site  *Site
	Pages []*Page
	Queue []*QueueEntry
}

// PageByID returns the page with the given id from the dump, or nil.
func (d *SiteDump) PageByID(id int64) *Page {
	for _, p := range d.Pages {
		if p.ID == id {
			return p
		}
	}
	return nil
}
