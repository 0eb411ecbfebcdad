package walker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/sitewalker/internal/crawler"
	"github.com/nao1215/sitewalker/internal/fetch"
	"github.com/nao1215/sitewalker/internal/filestore"
	"github.com/nao1215/sitewalker/internal/model"
)

// Store is the persistence a walk needs. All operations are scoped by site.
// *database.SiteDB implements it.
type Store interface {
	FindPageByURL(ctx context.Context, site *model.Site, url string) (*model.Page, error)
	FindPages(ctx context.Context, site *model.Site, urls []string) ([]*model.Page, error)
	FindPage(ctx context.Context, id int64) (*model.Page, error)
	FindAncestor(ctx context.Context, page *model.Page, generations int) (*model.Page, error)
	UpsertPage(ctx context.Context, site *model.Site, page *model.Page) (*model.Page, error)
	ClearPages(ctx context.Context, site *model.Site) error

	Enqueue(ctx context.Context, site *model.Site, page *model.Page, priority int) (*model.QueueEntry, error)
	Dequeue(ctx context.Context, site *model.Site, peek bool) (*model.QueueEntry, *model.Page, error)
	ClearQueue(ctx context.Context, site *model.Site) error

	IncrementSiteCounters(ctx context.Context, site *model.Site, steps, extract, image int64) error
	IncrementResetCount(ctx context.Context, site *model.Site) error
}

// Fetcher retrieves documents and binary resources. Implementations must
// pass every request through their rate limiter. *fetch.Client implements it.
type Fetcher interface {
	FetchDocument(ctx context.Context, url, referrer string) (*fetch.Document, error)
	FetchBytes(ctx context.Context, url, referrer string) (*fetch.Resource, error)
}

// FileWriter stores downloaded resources. *filestore.Store implements it.
type FileWriter interface {
	GroupDir(siteTitle, groupTitle string) string
	Save(dir, name, sourceURL string, data []byte) (*filestore.SaveResult, error)
}

// Agent is the per-site context handed to every processor call.
type Agent struct {
	Site    *model.Site
	Store   Store
	Fetcher Fetcher
	Files   FileWriter
	Logger  *slog.Logger
}

// NewAgent bundles a site with its collaborators. A nil logger discards output.
func NewAgent(site *model.Site, store Store, fetcher Fetcher, files FileWriter, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Agent{
		Site:    site,
		Store:   store,
		Fetcher: fetcher,
		Files:   files,
		Logger:  logger.With("site", site.Key),
	}
}

// ExtractLinks runs the link extractor for rule against doc.
func (a *Agent) ExtractLinks(doc *crawler.Document, rule model.Rule) ([]string, error) {
	return crawler.ExtractLinks(doc, rule)
}

// VirtualParent returns the ancestor used to group downloads for rule,
// or nil when the parent chain is too short.
func (a *Agent) VirtualParent(ctx context.Context, page *model.Page, rule model.Rule) (*model.Page, error) {
	return a.Store.FindAncestor(ctx, page, rule.AncestorGenerations)
}

// Referrer returns the absolute URL of page's stored parent, or "" for the root.
func (a *Agent) Referrer(ctx context.Context, page *model.Page) (string, error) {
	if !page.HasParent() {
		return "", nil
	}
	parent, err := a.Store.FindPage(ctx, page.ParentID)
	if err != nil {
		return "", fmt.Errorf("failed to load parent of %s: %w", page.URL, err)
	}
	if parent == nil {
		return "", nil
	}
	return a.AbsoluteURL(ctx, parent)
}

// AbsoluteURL resolves page's stored URL the way it was fetched: against
// its parent's absolute URL, recursively, with the site URL as the base
// above the first absolute ancestor.
func (a *Agent) AbsoluteURL(ctx context.Context, page *model.Page) (string, error) {
	chain := []string{page.URL}
	seen := map[int64]bool{page.ID: true}

	current := page
	for !isAbsolute(current.URL) && current.HasParent() && !seen[current.ParentID] {
		parent, err := a.Store.FindPage(ctx, current.ParentID)
		if err != nil {
			return "", fmt.Errorf("failed to load parent of %s: %w", current.URL, err)
		}
		if parent == nil {
			break
		}
		seen[parent.ID] = true
		chain = append(chain, parent.URL)
		current = parent
	}

	base := a.Site.URL
	for i := len(chain) - 1; i >= 0; i-- {
		if abs, ok := crawler.ResolveReference(base, chain[i]); ok {
			base = abs
		}
	}
	return base, nil
}

func isAbsolute(rawURL string) bool {
	_, ok := crawler.ResolveReference("", rawURL)
	return ok
}

// InsertRoot re-seeds the queue with the site's root page. The root is
// reset to unprocessed with no parent and titled after the site.
func (a *Agent) InsertRoot(ctx context.Context) (*model.Page, error) {
	root, err := a.Store.UpsertPage(ctx, a.Site, &model.Page{
		URL:   a.Site.URL,
		Title: a.Site.Title,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store root page: %w", err)
	}
	if _, err := a.Store.Enqueue(ctx, a.Site, root, 0); err != nil {
		return nil, fmt.Errorf("failed to enqueue root page: %w", err)
	}

	a.Logger.Debug("root page queued", "page", root.String())
	return root, nil
}
