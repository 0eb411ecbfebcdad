package walker

import (
	"context"
	"fmt"

	"github.com/nao1215/sitewalker/internal/crawler"
	"github.com/nao1215/sitewalker/internal/filestore"
	"github.com/nao1215/sitewalker/internal/model"
)

// fallbackName is used when neither the URL nor the response suggest a file name.
const fallbackName = "download"

// ImageProcessor downloads linked resources.
//
// Files are grouped in a directory named after the site title and the
// title of the virtual parent, the page rule.AncestorGenerations steps up
// from the current page. Each saved resource becomes a processed leaf page
// titled with its file name. A URL that already has a page is never
// downloaded again.
type ImageProcessor struct{}

// Exec implements Processor.
func (p *ImageProcessor) Exec(ctx context.Context, agent *Agent, page *model.Page, doc *crawler.Document, rule model.Rule) (model.ProcessorStat, error) {
	var stat model.ProcessorStat

	links, err := agent.ExtractLinks(doc, rule)
	if err != nil {
		return stat, err
	}
	stat.Link = len(links)
	if len(links) == 0 {
		return stat, nil
	}

	known, err := agent.Store.FindPages(ctx, agent.Site, links)
	if err != nil {
		return stat, err
	}
	exists := make(map[string]bool, len(known))
	for _, k := range known {
		exists[k.URL] = true
	}

	parent, err := agent.VirtualParent(ctx, page, rule)
	if err != nil {
		return stat, fmt.Errorf("failed to resolve virtual parent of %s: %w", page.URL, err)
	}
	groupTitle := ""
	if parent != nil {
		groupTitle = parent.Title
	}
	dir := agent.Files.GroupDir(agent.Site.Title, groupTitle)

	referrer := page.URL
	if doc != nil && doc.URL != "" {
		referrer = doc.URL
	}

	for _, link := range links {
		if exists[link] {
			stat.Skip++
			continue
		}

		res, err := agent.Fetcher.FetchBytes(ctx, link, referrer)
		if err != nil {
			return stat, fmt.Errorf("failed to download %s: %w", link, err)
		}

		saved, err := agent.Files.Save(dir, resourceName(link, res.SuggestedName), link, res.Bytes)
		if err != nil {
			return stat, err
		}
		stat.Download++

		child := &model.Page{
			URL:        link,
			Title:      saved.Name,
			ParentID:   page.ID,
			Digest:     filestore.Digest(res.Bytes),
			Size:       int64(len(res.Bytes)),
			CapturedAt: captureTime(res.Bytes),
		}
		child.Stamp(rule)
		if _, err := agent.Store.UpsertPage(ctx, agent.Site, child); err != nil {
			return stat, fmt.Errorf("failed to store %s: %w", link, err)
		}
		stat.Page++

		agent.Logger.Debug("downloaded",
			"rule", rule.Key,
			"url", link,
			"path", saved.Path,
			"written", saved.Written)
	}

	return stat, nil
}

// resourceName picks the file name for a downloaded resource: the last
// path segment of the link, else the name suggested by the response.
func resourceName(link, suggested string) string {
	if name := filestore.SanitizeName(crawler.LastPathSegment(link)); name != "" {
		return name
	}
	if name := filestore.SanitizeName(suggested); name != "" {
		return name
	}
	return fallbackName
}
