package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitewalker/internal/model"
)

// MarkdownWriter outputs sites in Markdown format for sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteSite implements Writer.
func (w *MarkdownWriter) WriteSite(dump *model.SiteDump) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, dump.Site)
	w.writeRules(md, dump.Site.Rules)
	w.writeQueue(md, dump)
	w.writePages(md, dump.Pages)

	return len(md.String()), md.Build()
}

// WriteSites implements Writer.
func (w *MarkdownWriter) WriteSites(sites []*model.Site) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Sites")
	md.PlainText("")

	rows := make([][]string, len(sites))
	for i, s := range sites {
		rows[i] = []string{
			strconv.FormatInt(s.ID, 10),
			"`" + s.Key + "`",
			s.Title,
			s.URL,
			strconv.FormatInt(s.Steps, 10),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Key", "Title", "URL", "Steps"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, site *model.Site) {
	md.H1(site.Title)
	md.PlainText("")

	rows := [][]string{
		{"Key", "`" + site.Key + "`"},
		{"ID", strconv.FormatInt(site.ID, 10)},
		{"URL", site.URL},
		{"Steps", strconv.FormatInt(site.Steps, 10)},
		{"Extract runs", strconv.FormatInt(site.ExtractCount, 10)},
		{"Image runs", strconv.FormatInt(site.ImageCount, 10)},
		{"Resets", strconv.FormatInt(site.ResetCount, 10)},
	}
	if !site.UpdatedAt.IsZero() {
		rows = append(rows, []string{"Updated", site.UpdatedAt.Format(timeLayout)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeRules(md *markdown.Markdown, rules []model.Rule) {
	md.H2("Rules")
	md.PlainText("")

	rows := make([][]string, len(rules))
	for i, r := range rules {
		rows[i] = []string{
			"`" + r.Key + "`",
			r.Processor.String(),
			"`" + r.URLPattern + "`",
			"`" + r.Selector() + "`",
			strconv.Itoa(r.Priority),
			strconv.Itoa(r.AncestorGenerations),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Key", "Processor", "URL pattern", "Elements", "Priority", "Ancestors"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeQueue(md *markdown.Markdown, dump *model.SiteDump) {
	md.H2("Queue")
	md.PlainText("")

	if len(dump.Queue) == 0 {
		md.Note("The queue is empty. Reset it to walk the site again.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(dump.Queue))
	for i, e := range dump.Queue {
		rows[i] = []string{
			strconv.FormatInt(e.ID, 10),
			strconv.Itoa(e.Priority),
			queueTarget(dump, e),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Entry", "Priority", "URL"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, pages []*model.Page) {
	md.H2("Pages")
	md.PlainText("")

	if len(pages) == 0 {
		md.PlainText("No pages stored.")
		md.PlainText("")
		return
	}

	w.writePieChart(md, pages)

	for _, n := range pageTree(pages) {
		md.PlainText(strings.Repeat("  ", n.depth) + "- " + pageLabel(n.page))
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of pages per processor.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, pages []*model.Page) {
	counts := processorCounts(pages)

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages by processor"),
		piechart.WithShowData(true),
	)
	for _, kind := range model.ProcessorKinds {
		if n := counts[kind]; n > 0 {
			chart.LabelAndIntValue(kind.String(), uint64(n))
		}
	}
	if n := counts[""]; n > 0 {
		chart.LabelAndIntValue("unprocessed", uint64(n))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}
