package database

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitewalker/internal/model"
)

// Dump loads a site with all of its pages and queue entries for display.
// code is a site id or key, as accepted by FindSite.
func (sdb *SiteDB) Dump(ctx context.Context, code string) (*model.SiteDump, error) {
	site, err := sdb.FindSite(ctx, code)
	if err != nil {
		return nil, err
	}

	dump := &model.SiteDump{Site: site}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pages, err := sdb.ListPages(gctx, site)
		dump.Pages = pages
		return err
	})
	g.Go(func() error {
		queue, err := sdb.ListQueue(gctx, site)
		dump.Queue = queue
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return dump, nil
}
