package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/nao1215/sitewalker/internal/model"
)

// Writer renders sites.
type Writer interface {
	// WriteSite outputs one site with its queue and page tree.
	WriteSite(dump *model.SiteDump) (int, error)

	// WriteSites outputs a one-line summary per site.
	WriteSites(sites []*model.Site) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// treeNode is a page positioned in the parent tree.
type treeNode struct {
	page  *model.Page
	depth int
}

// pageTree orders pages depth-first along their parent links. Pages whose
// parent is missing from the list are treated as roots. Siblings are
// ordered by id.
func pageTree(pages []*model.Page) []treeNode {
	byID := make(map[int64]*model.Page, len(pages))
	for _, p := range pages {
		byID[p.ID] = p
	}

	children := make(map[int64][]*model.Page)
	var roots []*model.Page
	for _, p := range pages {
		if _, ok := byID[p.ParentID]; p.HasParent() && ok && p.ParentID != p.ID {
			children[p.ParentID] = append(children[p.ParentID], p)
			continue
		}
		roots = append(roots, p)
	}

	byIDOrder := func(ps []*model.Page) {
		sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
	}
	byIDOrder(roots)
	for _, c := range children {
		byIDOrder(c)
	}

	nodes := make([]treeNode, 0, len(pages))
	visited := make(map[int64]bool, len(pages))
	var walk func(p *model.Page, depth int)
	walk = func(p *model.Page, depth int) {
		if visited[p.ID] {
			return
		}
		visited[p.ID] = true
		nodes = append(nodes, treeNode{page: p, depth: depth})
		for _, c := range children[p.ID] {
			walk(c, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}

	// Pages only reachable through a parent cycle.
	for _, p := range pages {
		if !visited[p.ID] {
			walk(p, 0)
		}
	}
	return nodes
}

// pageLabel describes a page in one line.
func pageLabel(p *model.Page) string {
	title := p.Title
	if title == "" {
		title = "-"
	}
	label := fmt.Sprintf("[%d] %s <%s>", p.ID, title, p.URL)
	if p.IsProcessed() {
		label += fmt.Sprintf(" %s:%s", p.Processor, p.RuleKey)
	}
	if p.Size > 0 {
		label += fmt.Sprintf(" %s", formatSize(p.Size))
	}
	return label
}

// queueTarget returns the URL of the queued page, or a placeholder.
func queueTarget(dump *model.SiteDump, e *model.QueueEntry) string {
	if p := dump.PageByID(e.PageID); p != nil {
		return p.URL
	}
	return fmt.Sprintf("(missing page %d)", e.PageID)
}

// processorCounts tallies pages by processor kind. Unprocessed pages are
// counted under "".
func processorCounts(pages []*model.Page) map[model.ProcessorKind]int {
	counts := make(map[model.ProcessorKind]int)
	for _, p := range pages {
		counts[p.Processor]++
	}
	return counts
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}
