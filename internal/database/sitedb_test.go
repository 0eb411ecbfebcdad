package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/nao1215/sitewalker/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*SiteDB, func()) {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return db, cleanup
}

// setupTestSite stores a site with one extract rule.
func setupTestSite(t *testing.T, db *SiteDB, key string) *model.Site {
	t.Helper()

	site, err := db.UpsertSite(context.Background(), &model.Site{
		Key:   key,
		Title: "Example " + key,
		URL:   "https://example.test/",
		Rules: []model.Rule{
			{Key: "links", URLPattern: ".*", Processor: model.ProcessorExtract},
		},
	})
	if err != nil {
		t.Fatalf("failed to upsert site: %v", err)
	}
	return site
}

// addPage stores an unprocessed page.
func addPage(t *testing.T, db *SiteDB, site *model.Site, url string) *model.Page {
	t.Helper()

	page, err := db.UpsertPage(context.Background(), site, &model.Page{URL: url})
	if err != nil {
		t.Fatalf("failed to upsert page %s: %v", url, err)
	}
	return page
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		dbPath := filepath.Join(dbDir, FileName)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("expected path %q, got %q", dbPath, db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Fatalf("expected ErrDatabaseNotFound, got %v", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created when CreateIfNotExists=false")
		}
	})

	t.Run("reopening keeps data", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		setupTestSite(t, db1, "persist")
		_ = db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db2.Close()

		if _, err := db2.FindSite(context.Background(), "persist"); err != nil {
			t.Errorf("expected stored site, got %v", err)
		}
	})
}

// TestUpsertSite tests site creation, update and lookup.
func TestUpsertSite(t *testing.T) {
	t.Parallel()

	t.Run("insert assigns id and keeps rule order", func(t *testing.T) {
		t.Parallel()
		db, cleanup := setupTestDB(t)
		defer cleanup()

		site, err := db.UpsertSite(context.Background(), &model.Site{
			Key:   "gallery",
			Title: "Gallery",
			URL:   "https://example.test/",
			Rules: []model.Rule{
				{Key: "b", URLPattern: "/b/", Processor: model.ProcessorImage, AncestorGenerations: 2},
				{Key: "a", URLPattern: "/a/", Processor: model.ProcessorExtract, Priority: 5, URLFilter: "x"},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if site.ID == 0 {
			t.Fatal("expected site id to be assigned")
		}
		if len(site.Rules) != 2 {
			t.Fatalf("expected 2 rules, got %d", len(site.Rules))
		}
		if site.Rules[0].Key != "b" || site.Rules[1].Key != "a" {
			t.Errorf("unexpected rule order %q, %q", site.Rules[0].Key, site.Rules[1].Key)
		}
		if site.Rules[0].AncestorGenerations != 2 || site.Rules[0].Processor != model.ProcessorImage {
			t.Errorf("unexpected first rule %+v", site.Rules[0])
		}
		if site.Rules[1].Priority != 5 || site.Rules[1].URLFilter != "x" {
			t.Errorf("unexpected second rule %+v", site.Rules[1])
		}
	})

	t.Run("same key updates site and replaces rules", func(t *testing.T) {
		t.Parallel()
		db, cleanup := setupTestDB(t)
		defer cleanup()
		ctx := context.Background()

		first := setupTestSite(t, db, "same")
		if err := db.IncrementSiteCounters(ctx, first, 1, 1, 0); err != nil {
			t.Fatalf("failed to increment counters: %v", err)
		}

		second, err := db.UpsertSite(ctx, &model.Site{
			Key:   "same",
			Title: "Renamed",
			URL:   "https://example.test/root",
			Rules: []model.Rule{
				{Key: "img", URLPattern: ".*", Processor: model.ProcessorImage},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if second.ID != first.ID {
			t.Errorf("expected id %d to be kept, got %d", first.ID, second.ID)
		}
		if second.Title != "Renamed" || second.URL != "https://example.test/root" {
			t.Errorf("site was not updated: %+v", second)
		}
		if len(second.Rules) != 1 || second.Rules[0].Key != "img" {
			t.Errorf("rules were not replaced: %+v", second.Rules)
		}
		if second.Steps != 1 || second.ExtractCount != 1 {
			t.Errorf("counters should survive upsert, got steps=%d extract=%d", second.Steps, second.ExtractCount)
		}
	})

	t.Run("find by id or key", func(t *testing.T) {
		t.Parallel()
		db, cleanup := setupTestDB(t)
		defer cleanup()
		ctx := context.Background()

		site := setupTestSite(t, db, "findme")

		byKey, err := db.FindSite(ctx, "findme")
		if err != nil || byKey.ID != site.ID {
			t.Errorf("find by key: got %v, %v", byKey, err)
		}
		byID, err := db.FindSite(ctx, strconv.FormatInt(site.ID, 10))
		if err != nil || byID.Key != "findme" {
			t.Errorf("find by id: got %v, %v", byID, err)
		}
		if len(byID.Rules) != 1 {
			t.Errorf("expected rules to be loaded, got %d", len(byID.Rules))
		}
	})

	t.Run("numeric key falls back to key lookup", func(t *testing.T) {
		t.Parallel()
		db, cleanup := setupTestDB(t)
		defer cleanup()

		setupTestSite(t, db, "2024")
		site, err := db.FindSite(context.Background(), "2024")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if site.Key != "2024" {
			t.Errorf("expected key 2024, got %q", site.Key)
		}
	})

	t.Run("unknown site returns ErrSiteNotFound", func(t *testing.T) {
		t.Parallel()
		db, cleanup := setupTestDB(t)
		defer cleanup()

		_, err := db.FindSite(context.Background(), "missing")
		if !errors.Is(err, ErrSiteNotFound) {
			t.Errorf("expected ErrSiteNotFound, got %v", err)
		}
	})
}

// TestListSites tests listing with counters.
func TestListSites(t *testing.T) {
	t.Parallel()
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	a := setupTestSite(t, db, "a")
	setupTestSite(t, db, "b")

	if err := db.IncrementSiteCounters(ctx, a, 2, 3, 1); err != nil {
		t.Fatalf("failed to increment counters: %v", err)
	}
	if err := db.IncrementResetCount(ctx, a); err != nil {
		t.Fatalf("failed to increment reset count: %v", err)
	}

	sites, err := db.ListSites(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sites) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(sites))
	}
	got := sites[0]
	if got.Key != "a" || got.Steps != 2 || got.ExtractCount != 3 || got.ImageCount != 1 || got.ResetCount != 1 {
		t.Errorf("unexpected counters %+v", got)
	}
	if a.Steps != 2 || a.ResetCount != 1 {
		t.Errorf("expected in-memory counters to follow, got %+v", a)
	}
	if len(sites[1].Rules) != 1 {
		t.Errorf("expected rules on listed site, got %d", len(sites[1].Rules))
	}
}

// TestUpsertPage tests page persistence and URL uniqueness.
func TestUpsertPage(t *testing.T) {
	t.Parallel()

	t.Run("same url resolves to one page", func(t *testing.T) {
		t.Parallel()
		db, cleanup := setupTestDB(t)
		defer cleanup()
		ctx := context.Background()
		site := setupTestSite(t, db, "s")

		p1 := addPage(t, db, site, "https://example.test/a")
		if _, err := db.Enqueue(ctx, site, p1, 0); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		p2 := addPage(t, db, site, "https://example.test/a")
		if _, err := db.Enqueue(ctx, site, p2, 0); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}

		if p1.ID != p2.ID {
			t.Errorf("expected same page id, got %d and %d", p1.ID, p2.ID)
		}
		pages, err := db.ListPages(ctx, site)
		if err != nil {
			t.Fatalf("failed to list pages: %v", err)
		}
		if len(pages) != 1 {
			t.Errorf("expected 1 page, got %d", len(pages))
		}
	})

	t.Run("unprocessed marker round trips as null", func(t *testing.T) {
		t.Parallel()
		db, cleanup := setupTestDB(t)
		defer cleanup()
		ctx := context.Background()
		site := setupTestSite(t, db, "s")

		root := addPage(t, db, site, "https://example.test/")
		if root.IsProcessed() || root.HasParent() || root.Title != "" {
			t.Errorf("expected bare page, got %+v", root)
		}

		child := &model.Page{URL: "https://example.test/c", ParentID: root.ID, Title: "c"}
		child.Stamp(site.Rules[0])
		stored, err := db.UpsertPage(ctx, site, child)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !stored.IsProcessed() || stored.RuleKey != "links" || stored.Processor != model.ProcessorExtract {
			t.Errorf("expected stamped page, got %+v", stored)
		}
		if stored.ParentID != root.ID || stored.SiteID != site.ID {
			t.Errorf("unexpected parent/site %+v", stored)
		}
		if stored.CreatedAt.IsZero() {
			t.Error("expected created_at to be parsed")
		}
	})

	t.Run("update by id", func(t *testing.T) {
		t.Parallel()
		db, cleanup := setupTestDB(t)
		defer cleanup()
		ctx := context.Background()
		site := setupTestSite(t, db, "s")

		page := addPage(t, db, site, "https://example.test/img.jpg")
		page.Title = "img.jpg"
		page.Digest = "abc"
		page.Size = 42
		page.CapturedAt = "2020:01:02 03:04:05"
		updated, err := db.UpsertPage(ctx, site, page)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.ID != page.ID || updated.Title != "img.jpg" || updated.Size != 42 ||
			updated.Digest != "abc" || updated.CapturedAt != "2020:01:02 03:04:05" {
			t.Errorf("unexpected update result %+v", updated)
		}
	})

	t.Run("update of unknown id returns ErrPageNotFound", func(t *testing.T) {
		t.Parallel()
		db, cleanup := setupTestDB(t)
		defer cleanup()
		site := setupTestSite(t, db, "s")

		_, err := db.UpsertPage(context.Background(), site, &model.Page{ID: 999, URL: "https://example.test/"})
		if !errors.Is(err, ErrPageNotFound) {
			t.Errorf("expected ErrPageNotFound, got %v", err)
		}
	})

	t.Run("urls are unique per site only", func(t *testing.T) {
		t.Parallel()
		db, cleanup := setupTestDB(t)
		defer cleanup()
		ctx := context.Background()
		s1 := setupTestSite(t, db, "one")
		s2 := setupTestSite(t, db, "two")

		p1 := addPage(t, db, s1, "https://example.test/")
		p2 := addPage(t, db, s2, "https://example.test/")
		if p1.ID == p2.ID {
			t.Error("expected distinct pages per site")
		}
		missing, err := db.FindPageByURL(ctx, s1, "https://example.test/nope")
		if err != nil || missing != nil {
			t.Errorf("expected nil, nil for unknown url, got %v, %v", missing, err)
		}
	})
}

// TestFindPages tests the batch existence check.
func TestFindPages(t *testing.T) {
	t.Parallel()
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	site := setupTestSite(t, db, "s")

	addPage(t, db, site, "https://example.test/a")
	addPage(t, db, site, "https://example.test/b")

	pages, err := db.FindPages(ctx, site, []string{
		"https://example.test/a",
		"https://example.test/x",
		"https://example.test/b",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("expected 2 known pages, got %d", len(pages))
	}

	pages, err = db.FindPages(ctx, site, nil)
	if err != nil || len(pages) != 0 {
		t.Errorf("expected no pages for empty input, got %v, %v", pages, err)
	}
}

// TestFindAncestor tests virtual-parent resolution.
func TestFindAncestor(t *testing.T) {
	t.Parallel()
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	site := setupTestSite(t, db, "s")

	root := addPage(t, db, site, "https://example.test/")
	mid, err := db.UpsertPage(ctx, site, &model.Page{URL: "https://example.test/m", ParentID: root.ID})
	if err != nil {
		t.Fatalf("failed to upsert page: %v", err)
	}
	leaf, err := db.UpsertPage(ctx, site, &model.Page{URL: "https://example.test/m/l", ParentID: mid.ID})
	if err != nil {
		t.Fatalf("failed to upsert page: %v", err)
	}

	tests := []struct {
		name        string
		generations int
		want        int64
	}{
		{"zero returns page itself", 0, leaf.ID},
		{"one returns parent", 1, mid.ID},
		{"two returns root", 2, root.ID},
		{"longer than chain returns nil", 3, 0},
		{"far longer than chain returns nil", 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.FindAncestor(ctx, leaf, tt.generations)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want == 0 {
				if got != nil {
					t.Errorf("expected nil, got %v", got)
				}
				return
			}
			if got == nil || got.ID != tt.want {
				t.Errorf("expected page %d, got %v", tt.want, got)
			}
		})
	}
}

// TestQueueOrdering tests priority and FIFO ordering.
func TestQueueOrdering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		priorities []int
		wantURLs   []string
	}{
		{"higher priority first when inserted last", []int{1, 5}, []string{"/p1", "/p0"}},
		{"higher priority first when inserted first", []int{5, 1}, []string{"/p0", "/p1"}},
		{"equal priorities are FIFO", []int{3, 3, 3}, []string{"/p0", "/p1", "/p2"}},
		{"mixed", []int{0, 7, 0, 7}, []string{"/p1", "/p3", "/p0", "/p2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db, cleanup := setupTestDB(t)
			defer cleanup()
			ctx := context.Background()
			site := setupTestSite(t, db, "q")

			for i, p := range tt.priorities {
				page := addPage(t, db, site, "https://example.test/p"+strconv.Itoa(i))
				if _, err := db.Enqueue(ctx, site, page, p); err != nil {
					t.Fatalf("failed to enqueue: %v", err)
				}
			}

			listed, err := db.ListQueue(ctx, site)
			if err != nil {
				t.Fatalf("failed to list queue: %v", err)
			}
			if len(listed) != len(tt.wantURLs) {
				t.Fatalf("expected %d entries, got %d", len(tt.wantURLs), len(listed))
			}

			for i, want := range tt.wantURLs {
				entry, page, err := db.Dequeue(ctx, site, false)
				if err != nil {
					t.Fatalf("failed to dequeue: %v", err)
				}
				if entry == nil || page == nil {
					t.Fatalf("dequeue %d returned empty queue", i)
				}
				if page.URL != "https://example.test"+want {
					t.Errorf("dequeue %d: expected %s, got %s", i, want, page.URL)
				}
				if entry.ID != listed[i].ID {
					t.Errorf("dequeue %d does not follow ListQueue order", i)
				}
			}
		})
	}
}

// TestDequeue tests peek, drain and empty behavior.
func TestDequeue(t *testing.T) {
	t.Parallel()

	t.Run("empty queue returns nil", func(t *testing.T) {
		t.Parallel()
		db, cleanup := setupTestDB(t)
		defer cleanup()
		site := setupTestSite(t, db, "s")

		entry, page, err := db.Dequeue(context.Background(), site, false)
		if err != nil || entry != nil || page != nil {
			t.Errorf("expected nil, nil, nil, got %v, %v, %v", entry, page, err)
		}
	})

	t.Run("peek leaves the entry in place", func(t *testing.T) {
		t.Parallel()
		db, cleanup := setupTestDB(t)
		defer cleanup()
		ctx := context.Background()
		site := setupTestSite(t, db, "s")

		page := addPage(t, db, site, "https://example.test/")
		queued, err := db.Enqueue(ctx, site, page, 9)
		if err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		if queued.Priority != 9 || queued.PageID != page.ID {
			t.Errorf("unexpected entry %+v", queued)
		}

		for range 3 {
			entry, _, err := db.Dequeue(ctx, site, true)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if entry == nil || entry.ID != queued.ID {
				t.Fatalf("expected peek to return entry %d, got %v", queued.ID, entry)
			}
		}
	})

	t.Run("dequeue then peek is empty after drain", func(t *testing.T) {
		t.Parallel()
		db, cleanup := setupTestDB(t)
		defer cleanup()
		ctx := context.Background()
		site := setupTestSite(t, db, "s")

		page := addPage(t, db, site, "https://example.test/")
		if _, err := db.Enqueue(ctx, site, page, 0); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		if entry, _, err := db.Dequeue(ctx, site, false); err != nil || entry == nil {
			t.Fatalf("expected an entry, got %v, %v", entry, err)
		}
		entry, page, err := db.Dequeue(ctx, site, true)
		if err != nil || entry != nil || page != nil {
			t.Errorf("expected empty peek after drain, got %v, %v, %v", entry, page, err)
		}
	})

	t.Run("queues are per site", func(t *testing.T) {
		t.Parallel()
		db, cleanup := setupTestDB(t)
		defer cleanup()
		ctx := context.Background()
		s1 := setupTestSite(t, db, "one")
		s2 := setupTestSite(t, db, "two")

		if _, err := db.Enqueue(ctx, s1, addPage(t, db, s1, "https://example.test/"), 0); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		entry, _, err := db.Dequeue(ctx, s2, false)
		if err != nil || entry != nil {
			t.Errorf("expected other site's queue to be empty, got %v, %v", entry, err)
		}
	})
}

// TestClear tests queue and page clearing.
func TestClear(t *testing.T) {
	t.Parallel()
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	site := setupTestSite(t, db, "s")
	other := setupTestSite(t, db, "other")

	for _, u := range []string{"https://example.test/a", "https://example.test/b"} {
		if _, err := db.Enqueue(ctx, site, addPage(t, db, site, u), 0); err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
	}
	if _, err := db.Enqueue(ctx, other, addPage(t, db, other, "https://example.test/a"), 0); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	if err := db.ClearQueue(ctx, site); err != nil {
		t.Fatalf("failed to clear queue: %v", err)
	}
	queue, err := db.ListQueue(ctx, site)
	if err != nil || len(queue) != 0 {
		t.Errorf("expected empty queue, got %d, %v", len(queue), err)
	}
	pages, err := db.ListPages(ctx, site)
	if err != nil || len(pages) != 2 {
		t.Errorf("ClearQueue must keep pages, got %d, %v", len(pages), err)
	}

	if err := db.ClearPages(ctx, site); err != nil {
		t.Fatalf("failed to clear pages: %v", err)
	}
	pages, err = db.ListPages(ctx, site)
	if err != nil || len(pages) != 0 {
		t.Errorf("expected no pages, got %d, %v", len(pages), err)
	}

	otherQueue, err := db.ListQueue(ctx, other)
	if err != nil || len(otherQueue) != 1 {
		t.Errorf("other site's queue must survive, got %d, %v", len(otherQueue), err)
	}
}

// TestDump tests the display snapshot.
func TestDump(t *testing.T) {
	t.Parallel()
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	site := setupTestSite(t, db, "dump")

	root := addPage(t, db, site, "https://example.test/")
	if _, err := db.Enqueue(ctx, site, root, 0); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}

	dump, err := db.Dump(ctx, "dump")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dump.Site.ID != site.ID || len(dump.Pages) != 1 || len(dump.Queue) != 1 {
		t.Errorf("unexpected dump %+v", dump)
	}
	if dump.PageByID(dump.Queue[0].PageID) == nil {
		t.Error("expected queued page to be in the dump")
	}

	if _, err := db.Dump(ctx, "nope"); !errors.Is(err, ErrSiteNotFound) {
		t.Errorf("expected ErrSiteNotFound, got %v", err)
	}
}

// TestParseTimestamp tests the SQLite timestamp parser.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-01-02 03:04:05", want},
		{"2024-01-02T03:04:05Z", want},
		{"2024-01-02T03:04:05", want},
		{"not a time", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, expected %v", tt.input, got, tt.want)
			}
		})
	}
}
