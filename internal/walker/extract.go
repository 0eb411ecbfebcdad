package walker

import (
	"context"
	"fmt"

	"github.com/nao1215/sitewalker/internal/crawler"
	"github.com/nao1215/sitewalker/internal/model"
)

// ExtractProcessor follows links. Every extracted URL that is not yet
// processed is stamped with the rule, parented to the current page and
// queued with the rule's priority.
//
// Stamping happens at enqueue time, so a URL is queued at most once by
// this processor no matter how many pages link to it.
type ExtractProcessor struct{}

// Exec implements Processor.
func (p *ExtractProcessor) Exec(ctx context.Context, agent *Agent, page *model.Page, doc *crawler.Document, rule model.Rule) (model.ProcessorStat, error) {
	var stat model.ProcessorStat

	links, err := agent.ExtractLinks(doc, rule)
	if err != nil {
		return stat, err
	}

	for _, link := range links {
		stat.Link++

		existing, err := agent.Store.FindPageByURL(ctx, agent.Site, link)
		if err != nil {
			return stat, fmt.Errorf("failed to look up %s: %w", link, err)
		}
		if existing != nil && existing.IsProcessed() {
			stat.Skip++
			continue
		}

		child := existing
		if child == nil {
			child = &model.Page{URL: link}
		}
		child.ParentID = page.ID
		child.Stamp(rule)

		stored, err := agent.Store.UpsertPage(ctx, agent.Site, child)
		if err != nil {
			return stat, fmt.Errorf("failed to store %s: %w", link, err)
		}
		stat.Page++

		if _, err := agent.Store.Enqueue(ctx, agent.Site, stored, rule.Priority); err != nil {
			return stat, fmt.Errorf("failed to enqueue %s: %w", link, err)
		}
		stat.Enqueue++

		agent.Logger.Debug("enqueued", "rule", rule.Key, "url", link, "priority", rule.Priority)
	}

	return stat, nil
}
