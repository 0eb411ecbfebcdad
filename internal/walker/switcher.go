package walker

import (
	"context"
	"fmt"
	"regexp"

	"github.com/nao1215/sitewalker/internal/crawler"
	"github.com/nao1215/sitewalker/internal/model"
)

// route is one compiled rule. processor is nil when the rule's kind has no
// registered implementation; that is reported when the rule matches.
type route struct {
	rule      model.Rule
	pattern   *regexp.Regexp
	processor Processor
}

// Switcher dispatches a page to every rule whose URL pattern matches,
// in configuration order.
type Switcher struct {
	routes []route
}

// NewSwitcher compiles rules against registry. An invalid URL pattern is
// an error; an unknown processor kind is not.
func NewSwitcher(rules []model.Rule, registry Registry) (*Switcher, error) {
	routes := make([]route, 0, len(rules))
	for _, rule := range rules {
		re, err := regexp.Compile(rule.URLPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid url pattern for rule %q: %w", rule.Key, err)
		}
		routes = append(routes, route{
			rule:      rule,
			pattern:   re,
			processor: registry[rule.Processor],
		})
	}
	return &Switcher{routes: routes}, nil
}

// Match returns the rules whose pattern is found in url, in order.
func (s *Switcher) Match(url string) []model.Rule {
	var rules []model.Rule
	for _, r := range s.routes {
		if r.pattern.MatchString(url) {
			rules = append(rules, r.rule)
		}
	}
	return rules
}

// Exec runs every matching rule against page and doc.
// The first failing processor stops the dispatch; the returned stat then
// covers the processors that ran, including the failed one's partial tally.
func (s *Switcher) Exec(ctx context.Context, agent *Agent, page *model.Page, doc *crawler.Document) (model.WalkerStat, error) {
	var stat model.WalkerStat

	for _, r := range s.routes {
		if !r.pattern.MatchString(page.URL) {
			continue
		}
		if r.processor == nil {
			return stat, &UnknownProcessorError{Rule: r.rule.Key, Kind: r.rule.Processor}
		}
		if err := ctx.Err(); err != nil {
			return stat, err
		}

		stat.Count(r.rule.Processor)
		ps, err := r.processor.Exec(ctx, agent, page, doc, r.rule)
		stat.MergeProcessor(ps)

		agent.Logger.Debug("processor finished",
			"rule", r.rule.Key,
			"processor", r.rule.Processor,
			"page", page.ID,
			"stat", ps.String())

		if err != nil {
			return stat, fmt.Errorf("rule %q: %w", r.rule.Key, err)
		}
	}

	return stat, nil
}
