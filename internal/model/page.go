package model

import (
	"fmt"
	"time"
)

// Page is one discovered URL within a site.
// (SiteID, URL) is unique: a second discovery of the same URL resolves to
// the same row.
type Page struct {
	ID     int64
	SiteID int64
	URL    string
	Title  string

	// RuleKey and Processor record the rule that produced or handled the
	// page. Both empty is the only "unprocessed" marker.
	RuleKey   string
	Processor ProcessorKind

	// ParentID references the page this one was discovered from.
	// Zero means no parent.
	ParentID int64

	// Digest is the sha3-256 hex digest of downloaded bytes.
	// Only set for pages created by the image processor.
	Digest string

	// Size is the number of downloaded bytes.
	Size int64

	// CapturedAt is the EXIF capture time of a downloaded image, if any.
	CapturedAt string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsProcessed reports whether a rule has claimed this page.
func (p *Page) IsProcessed() bool {
	return p.RuleKey != "" || p.Processor != ""
}

// HasParent reports whether the page records a parent.
func (p *Page) HasParent() bool {
	return p.ParentID != 0
}

// Stamp marks the page as handled by rule.
func (p *Page) Stamp(rule Rule) {
	p.RuleKey = rule.Key
	p.Processor = rule.Processor
}

// String renders the page for logs and trees.
func (p *Page) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("[%d] %s (title: %s)", p.ID, p.URL, p.Title)
}

// QueueEntry is a pending-processing marker for a page.
// Entries are ordered by Priority descending, then ID ascending.
type QueueEntry struct {
	ID        int64
	SiteID    int64
	PageID    int64
	Priority  int
	CreatedAt time.Time
}
