package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/sitewalker/internal/config"
	"github.com/nao1215/sitewalker/internal/database"
	"github.com/nao1215/sitewalker/internal/fetch"
	"github.com/nao1215/sitewalker/internal/filestore"
	"github.com/nao1215/sitewalker/internal/model"
	"github.com/nao1215/sitewalker/internal/walker"
)

// addSite loads the site file at path and stores it.
func addSite(ctx context.Context, db *database.SiteDB, path string) (*model.Site, error) {
	sc, err := config.LoadSiteFile(path)
	if err != nil {
		return nil, err
	}
	site, err := db.UpsertSite(ctx, sc.Site())
	if err != nil {
		return nil, err
	}
	return site, nil
}

// resolveSite accepts a site file, a site key or a site id. A site file is
// stored first when upsert is set; otherwise only its key is used.
func resolveSite(ctx context.Context, db *database.SiteDB, arg string, upsert bool) (*model.Site, error) {
	if !config.IsSiteFile(arg) {
		return db.FindSite(ctx, arg)
	}
	if upsert {
		return addSite(ctx, db, arg)
	}
	sc, err := config.LoadSiteFile(arg)
	if err != nil {
		return nil, err
	}
	return db.FindSite(ctx, sc.Key)
}

// newManager wires a walker for site from the process configuration.
func newManager(cfg *config.Config, db *database.SiteDB, site *model.Site, logger *slog.Logger, opts ...walker.ManagerOption) (*walker.Manager, error) {
	client, err := fetch.NewClient(
		fetch.WithRequestInterval(cfg.RequestInterval),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithProxy(cfg.ProxyAddress),
		fetch.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	agent := walker.NewAgent(site, db, client, filestore.NewStore(cfg.DownloadDir), logger)
	return walker.NewManager(agent, opts...)
}
