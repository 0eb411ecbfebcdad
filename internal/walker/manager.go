package walker

import (
	"context"
	"fmt"
	"sync"

	"github.com/nao1215/sitewalker/internal/crawler"
	"github.com/nao1215/sitewalker/internal/model"
)

// State is the lifecycle state of a Manager.
type State int

const (
	// StateIdle means no step is running.
	StateIdle State = iota

	// StateStepping means a step is running.
	StateStepping

	// StateError means the last step failed, possibly on an empty queue.
	// The next step may still run.
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStepping:
		return "stepping"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Manager walks one site step by step.
type Manager struct {
	agent    *Agent
	switcher *Switcher
	registry Registry
	peek     bool

	mu    sync.Mutex
	state State
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithPeek makes steps leave the dequeued entry in the queue.
// It is meant for debugging a single page repeatedly.
func WithPeek(peek bool) ManagerOption {
	return func(m *Manager) {
		m.peek = peek
	}
}

// WithRegistry replaces the processor registry.
func WithRegistry(registry Registry) ManagerOption {
	return func(m *Manager) {
		m.registry = registry
	}
}

// NewManager creates a Manager for agent's site.
func NewManager(agent *Agent, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		agent:    agent,
		registry: DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	switcher, err := NewSwitcher(agent.Site.Rules, m.registry)
	if err != nil {
		return nil, err
	}
	m.switcher = switcher
	return m, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// begin moves to StateStepping, failing if a step or reset is already running.
func (m *Manager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateStepping {
		return ErrStepInProgress
	}
	m.state = StateStepping
	return nil
}

// end records the outcome of a step. Every failure, an empty queue
// included, leaves the manager in StateError.
func (m *Manager) end(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = StateError
		return
	}
	m.state = StateIdle
}

// Step processes the next queued page.
//
// The entry is dequeued (or peeked), the page fetched and its title
// refreshed. An unprocessed page is stamped with its first matching rule
// before dispatch. After every matching processor has run the site's
// counters are updated. Any failure aborts the step; the dequeued entry is
// not restored.
func (m *Manager) Step(ctx context.Context) (stat model.WalkerStat, err error) {
	if err := m.begin(); err != nil {
		return stat, err
	}
	defer func() { m.end(err) }()

	agent := m.agent
	entry, page, err := agent.Store.Dequeue(ctx, agent.Site, m.peek)
	if err != nil {
		return stat, err
	}
	if entry == nil {
		return stat, ErrQueueEmpty
	}
	if page == nil {
		return stat, fmt.Errorf("%w: entry %d, page %d", ErrPageMissing, entry.ID, entry.PageID)
	}

	referrer, err := agent.Referrer(ctx, page)
	if err != nil {
		return stat, err
	}

	fetched, err := agent.Fetcher.FetchDocument(ctx, page.URL, referrer)
	if err != nil {
		return stat, fmt.Errorf("failed to fetch %s: %w", page.URL, err)
	}

	page.Title = crawler.ResolveTitle(fetched.Document, page.URL)
	if !page.IsProcessed() {
		if rules := m.switcher.Match(page.URL); len(rules) > 0 {
			page.Stamp(rules[0])
		}
	}
	page, err = agent.Store.UpsertPage(ctx, agent.Site, page)
	if err != nil {
		return stat, err
	}

	stat, err = m.switcher.Exec(ctx, agent, page, fetched.Document)
	if err != nil {
		return stat, err
	}

	if err := agent.Store.IncrementSiteCounters(ctx, agent.Site, 1, int64(stat.Extract), int64(stat.Image)); err != nil {
		return stat, err
	}

	agent.Logger.Info("step",
		"page", page.String(),
		"priority", entry.Priority,
		"stat", stat.String())
	return stat, nil
}

// Run performs up to times steps, stopping early on the first error or
// when ctx is done. onStep, if set, is called after each successful step
// with its 1-based index. The merged stat of the completed steps is
// returned; an empty queue ends the run with ErrQueueEmpty.
func (m *Manager) Run(ctx context.Context, times int, onStep func(i int, stat model.WalkerStat)) (model.WalkerStat, error) {
	var total model.WalkerStat
	for i := 1; i <= times; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		stat, err := m.Step(ctx)
		total.Merge(stat)
		if err != nil {
			return total, err
		}
		if onStep != nil {
			onStep(i, stat)
		}
	}
	return total, nil
}

// ResetQueue empties the site's queue and re-seeds it with the root page,
// which becomes unprocessed again. Other pages are kept.
func (m *Manager) ResetQueue(ctx context.Context) (err error) {
	if err := m.begin(); err != nil {
		return err
	}
	defer func() { m.end(err) }()

	if err := m.agent.Store.ClearQueue(ctx, m.agent.Site); err != nil {
		return err
	}
	return m.reseed(ctx)
}

// ClearPages deletes every page and queue entry of the site, then
// re-seeds the queue with the root page.
func (m *Manager) ClearPages(ctx context.Context) (err error) {
	if err := m.begin(); err != nil {
		return err
	}
	defer func() { m.end(err) }()

	if err := m.agent.Store.ClearPages(ctx, m.agent.Site); err != nil {
		return err
	}
	return m.reseed(ctx)
}

func (m *Manager) reseed(ctx context.Context) error {
	if _, err := m.agent.InsertRoot(ctx); err != nil {
		return err
	}
	return m.agent.Store.IncrementResetCount(ctx, m.agent.Site)
}
