package config

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/andybalholm/cascadia"

	"github.com/nao1215/sitewalker/internal/model"
)

// MaxPriority is the largest queue priority a rule may declare.
const MaxPriority = 65535

// SiteConfig is the declarative definition of one crawl target.
type SiteConfig struct {
	// Key uniquely identifies the site. Loading a file with an existing key
	// updates that site instead of creating a new one.
	Key string `yaml:"key"`

	// Title is used for display and as the top-level download folder.
	Title string `yaml:"title"`

	// URL is the root page. It must be an absolute http(s) URL.
	URL string `yaml:"url"`

	// Walkers are the rules, in dispatch order.
	Walkers []RuleConfig `yaml:"walkers"`
}

// RuleConfig is one walker rule as written in the site file.
type RuleConfig struct {
	// Key is unique within the site.
	Key string `yaml:"key"`

	// URLPattern is a regular expression searched in page URLs.
	URLPattern string `yaml:"urlPattern"`

	// Processor is "extract" or "image".
	Processor string `yaml:"processor"`

	// ElementFilter is a CSS selector (default "[href],[src]").
	ElementFilter string `yaml:"elementFilter,omitempty"`

	// URLFilter is a regular expression extracted links must contain a match for.
	URLFilter string `yaml:"urlFilter,omitempty"`

	// Priority is the queue priority for enqueued pages (0-65535, default 0).
	Priority *int `yaml:"priority,omitempty"`

	// AncestorGenerations is how far the image processor walks up the parent
	// chain to pick the grouping folder (default 0, the current page).
	AncestorGenerations *int `yaml:"ancestorGenerations,omitempty"`
}

// Validate checks every field of the site definition and returns the first
// problem as a *ValidationError.
func (sc *SiteConfig) Validate() error {
	if sc.Key == "" {
		return invalid("key", "is required")
	}
	if sc.Title == "" {
		return invalid("title", "is required")
	}
	if sc.URL == "" {
		return invalid("url", "is required")
	}
	u, err := url.Parse(sc.URL)
	if err != nil {
		return invalid("url", "%v", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("url", "must be an absolute http or https URL")
	}

	if len(sc.Walkers) == 0 {
		return invalid("walkers", "at least one walker is required")
	}

	seen := make(map[string]bool, len(sc.Walkers))
	for i, w := range sc.Walkers {
		field := fmt.Sprintf("walkers[%d]", i)
		if err := w.validate(field); err != nil {
			return err
		}
		if seen[w.Key] {
			return invalid(field+".key", "duplicate key %q", w.Key)
		}
		seen[w.Key] = true
	}

	return nil
}

// validate checks a single rule. field is the rule's path for messages.
func (rc *RuleConfig) validate(field string) error {
	if rc.Key == "" {
		return invalid(field+".key", "is required")
	}
	if rc.URLPattern == "" {
		return invalid(field+".urlPattern", "is required")
	}
	if _, err := regexp.Compile(rc.URLPattern); err != nil {
		return invalid(field+".urlPattern", "%v", err)
	}
	if !model.ProcessorKind(rc.Processor).IsValid() {
		return invalid(field+".processor", "must be one of %v, got %q", model.ProcessorKinds, rc.Processor)
	}
	if rc.URLFilter != "" {
		if _, err := regexp.Compile(rc.URLFilter); err != nil {
			return invalid(field+".urlFilter", "%v", err)
		}
	}
	if rc.ElementFilter != "" {
		if _, err := cascadia.ParseGroup(rc.ElementFilter); err != nil {
			return invalid(field+".elementFilter", "%v", err)
		}
	}
	if rc.Priority != nil && (*rc.Priority < 0 || *rc.Priority > MaxPriority) {
		return invalid(field+".priority", "must be between 0 and %d", MaxPriority)
	}
	if rc.AncestorGenerations != nil && *rc.AncestorGenerations < 0 {
		return invalid(field+".ancestorGenerations", "must be non-negative")
	}
	return nil
}

// Rule converts the rule to its model form, applying defaults.
func (rc *RuleConfig) Rule(position int) model.Rule {
	rule := model.Rule{
		Key:           rc.Key,
		Position:      position,
		URLPattern:    rc.URLPattern,
		Processor:     model.ProcessorKind(rc.Processor),
		ElementFilter: rc.ElementFilter,
		URLFilter:     rc.URLFilter,
	}
	if rc.Priority != nil {
		rule.Priority = *rc.Priority
	}
	if rc.AncestorGenerations != nil {
		rule.AncestorGenerations = *rc.AncestorGenerations
	}
	return rule
}

// Site converts the definition to a model.Site with rules in file order.
// The returned site has no ID; the database assigns one on upsert.
func (sc *SiteConfig) Site() *model.Site {
	rules := make([]model.Rule, len(sc.Walkers))
	for i := range sc.Walkers {
		rules[i] = sc.Walkers[i].Rule(i)
	}
	return &model.Site{
		Key:   sc.Key,
		Title: sc.Title,
		URL:   sc.URL,
		Rules: rules,
	}
}
