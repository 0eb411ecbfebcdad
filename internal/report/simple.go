package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitewalker/internal/model"
)

// timeLayout is used for every timestamp in text output.
const timeLayout = "2006-01-02 15:04:05"

// SimpleWriter outputs plain text for terminal display.
type SimpleWriter struct {
	baseWriter

	// showPages controls whether the page tree is written.
	showPages bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithPages enables or disables the page tree.
func WithPages(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showPages = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showPages:  true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteSite implements Writer.
func (w *SimpleWriter) WriteSite(dump *model.SiteDump) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, dump.Site)
	w.writeRules(&sb, dump.Site.Rules)
	w.writeQueue(&sb, dump)
	if w.showPages {
		w.writePages(&sb, dump.Pages)
	}

	return io.WriteString(w.output, sb.String())
}

// WriteSites implements Writer.
func (w *SimpleWriter) WriteSites(sites []*model.Site) (int, error) {
	if len(sites) == 0 {
		return io.WriteString(w.output, "no sites registered\n")
	}

	var sb strings.Builder
	for _, s := range sites {
		fmt.Fprintf(&sb, "%d\t%s\t%s\t%s\tsteps: %d\n", s.ID, s.Key, s.Title, s.URL, s.Steps)
	}
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, site *model.Site) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "%s [%s]\n", site.Title, site.Key)
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	fmt.Fprintf(sb, "ID:        %d\n", site.ID)
	fmt.Fprintf(sb, "URL:       %s\n", site.URL)
	fmt.Fprintf(sb, "Steps:     %d\n", site.Steps)
	fmt.Fprintf(sb, "Workers:   { extract: %d, image: %d }\n", site.ExtractCount, site.ImageCount)
	fmt.Fprintf(sb, "Resets:    %d\n", site.ResetCount)
	if !site.UpdatedAt.IsZero() {
		fmt.Fprintf(sb, "Updated:   %s\n", site.UpdatedAt.Format(timeLayout))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeRules(sb *strings.Builder, rules []model.Rule) {
	fmt.Fprintf(sb, "Rules (%d)\n", len(rules))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	for _, r := range rules {
		fmt.Fprintf(sb, "  %-12s %-8s %s", r.Key, r.Processor, r.URLPattern)
		if r.Priority != 0 {
			fmt.Fprintf(sb, " priority=%d", r.Priority)
		}
		if r.AncestorGenerations != 0 {
			fmt.Fprintf(sb, " ancestors=%d", r.AncestorGenerations)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeQueue(sb *strings.Builder, dump *model.SiteDump) {
	fmt.Fprintf(sb, "Queue (%d)\n", len(dump.Queue))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	if len(dump.Queue) == 0 {
		sb.WriteString("  (empty)\n")
	}
	for _, e := range dump.Queue {
		fmt.Fprintf(sb, "  %5d  p=%-5d %s\n", e.ID, e.Priority, queueTarget(dump, e))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePages(sb *strings.Builder, pages []*model.Page) {
	fmt.Fprintf(sb, "Pages (%d)\n", len(pages))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	for _, n := range pageTree(pages) {
		sb.WriteString("  ")
		sb.WriteString(strings.Repeat("  ", n.depth))
		sb.WriteString(pageLabel(n.page))
		sb.WriteString("\n")
	}
}
