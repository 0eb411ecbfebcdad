package walker

import (
	"context"

	"github.com/nao1215/sitewalker/internal/crawler"
	"github.com/nao1215/sitewalker/internal/model"
)

// Processor handles one page for one matched rule.
// page is already persisted; doc is its parsed content.
type Processor interface {
	Exec(ctx context.Context, agent *Agent, page *model.Page, doc *crawler.Document, rule model.Rule) (model.ProcessorStat, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, agent *Agent, page *model.Page, doc *crawler.Document, rule model.Rule) (model.ProcessorStat, error)

// Exec calls f.
func (f ProcessorFunc) Exec(ctx context.Context, agent *Agent, page *model.Page, doc *crawler.Document, rule model.Rule) (model.ProcessorStat, error) {
	return f(ctx, agent, page, doc, rule)
}

// Registry maps processor kinds to implementations.
type Registry map[model.ProcessorKind]Processor

// DefaultRegistry returns a registry with every built-in processor.
func DefaultRegistry() Registry {
	return Registry{
		model.ProcessorExtract: &ExtractProcessor{},
		model.ProcessorImage:   &ImageProcessor{},
	}
}
