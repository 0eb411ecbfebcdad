package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/sitewalker/internal/model"
)

// JSONWriter outputs sites as JSON for tool integration.
// The schema is defined by the view types below, not by model.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables indented output.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteSite implements Writer.
func (w *JSONWriter) WriteSite(dump *model.SiteDump) (int, error) {
	view := siteDumpView{
		Site:  newSiteView(dump.Site),
		Queue: make([]queueView, len(dump.Queue)),
		Pages: make([]pageView, len(dump.Pages)),
	}
	for i, e := range dump.Queue {
		view.Queue[i] = queueView{ID: e.ID, PageID: e.PageID, Priority: e.Priority, URL: queueTarget(dump, e)}
	}
	for i, p := range dump.Pages {
		view.Pages[i] = newPageView(p)
	}
	return w.writeJSON(view)
}

// WriteSites implements Writer.
func (w *JSONWriter) WriteSites(sites []*model.Site) (int, error) {
	views := make([]siteView, len(sites))
	for i, s := range sites {
		views[i] = newSiteView(s)
	}
	return w.writeJSON(views)
}

// writeJSON marshals v and writes it with a trailing newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

type siteDumpView struct {
	Site  siteView    `json:"site"`
	Queue []queueView `json:"queue"`
	Pages []pageView  `json:"pages"`
}

type ruleView struct {
	Key                 string `json:"key"`
	URLPattern          string `json:"urlPattern"`
	Processor           string `json:"processor"`
	ElementFilter       string `json:"elementFilter,omitempty"`
	URLFilter           string `json:"urlFilter,omitempty"`
	Priority            int    `json:"priority"`
	AncestorGenerations int    `json:"ancestorGenerations"`
}

type siteView struct {
	ID           int64      `json:"id"`
	Key          string     `json:"key"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	Rules        []ruleView `json:"rules,omitempty"`
	Steps        int64      `json:"steps"`
	ExtractCount int64      `json:"extractCount"`
	ImageCount   int64      `json:"imageCount"`
	ResetCount   int64      `json:"resetCount"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

func newSiteView(s *model.Site) siteView {
	v := siteView{
		ID:           s.ID,
		Key:          s.Key,
		Title:        s.Title,
		URL:          s.URL,
		Steps:        s.Steps,
		ExtractCount: s.ExtractCount,
		ImageCount:   s.ImageCount,
		ResetCount:   s.ResetCount,
	}
	for _, r := range s.Rules {
		v.Rules = append(v.Rules, ruleView{
			Key:                 r.Key,
			URLPattern:          r.URLPattern,
			Processor:           r.Processor.String(),
			ElementFilter:       r.ElementFilter,
			URLFilter:           r.URLFilter,
			Priority:            r.Priority,
			AncestorGenerations: r.AncestorGenerations,
		})
	}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		v.UpdatedAt = &t
	}
	return v
}

type queueView struct {
	ID       int64  `json:"id"`
	PageID   int64  `json:"pageId"`
	Priority int    `json:"priority"`
	URL      string `json:"url"`
}

type pageView struct {
	ID         int64  `json:"id"`
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	RuleKey    string `json:"rule,omitempty"`
	Processor  string `json:"processor,omitempty"`
	ParentID   int64  `json:"parentId,omitempty"`
	Digest     string `json:"digest,omitempty"`
	Size       int64  `json:"size,omitempty"`
	CapturedAt string `json:"capturedAt,omitempty"`
}

func newPageView(p *model.Page) pageView {
	return pageView{
		ID:         p.ID,
		URL:        p.URL,
		Title:      p.Title,
		RuleKey:    p.RuleKey,
		Processor:  p.Processor.String(),
		ParentID:   p.ParentID,
		Digest:     p.Digest,
		Size:       p.Size,
		CapturedAt: p.CapturedAt,
	}
}
