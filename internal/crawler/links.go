package crawler

import (
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/sitewalker/internal/model"
)

// linkAttributes are read from every selected element, in this order.
var linkAttributes = []string{"href", "src"}

// ExtractLinks collects candidate URLs from doc for rule.
//
// Elements are chosen by the rule's selector; both href and src are read.
// The result keeps first-seen order and drops duplicates and empty values.
// When the rule has a URL filter, only links containing a match are kept.
// Links are returned exactly as written in the document.
func ExtractLinks(doc *Document, rule model.Rule) ([]string, error) {
	var filter *regexp.Regexp
	if rule.URLFilter != "" {
		re, err := regexp.Compile(rule.URLFilter)
		if err != nil {
			return nil, fmt.Errorf("invalid url filter for rule %q: %w", rule.Key, err)
		}
		filter = re
	}

	if doc == nil || doc.Document == nil {
		return nil, nil
	}

	seen := make(map[string]bool)
	links := make([]string, 0)
	doc.Find(rule.Selector()).Each(func(_ int, s *goquery.Selection) {
		for _, attr := range linkAttributes {
			v, ok := s.Attr(attr)
			if !ok || v == "" || seen[v] {
				continue
			}
			seen[v] = true
			if filter != nil && !filter.MatchString(v) {
				continue
			}
			links = append(links, v)
		}
	})

	return links, nil
}
