package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/sitewalker/internal/model"
)

const pageColumns = `id, site_id, url, title, rule_key, processor, parent_id, digest, size, captured_at, created_at, updated_at`

// findPagesChunk bounds the number of bound parameters in one IN clause.
const findPagesChunk = 500

// FindPageByURL returns the page with the given URL, or nil when the site
// has no such page.
func (sdb *SiteDB) FindPageByURL(ctx context.Context, site *model.Site, url string) (*model.Page, error) {
	row := sdb.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE site_id = ? AND url = ?`, site.ID, url)
	return scanPageRow(row)
}

// FindPage returns the page with the given id, or nil when it does not exist.
func (sdb *SiteDB) FindPage(ctx context.Context, id int64) (*model.Page, error) {
	row := sdb.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)
	return scanPageRow(row)
}

// FindPages returns the stored pages whose URL is in urls.
// The result is in no particular order and omits unknown URLs.
func (sdb *SiteDB) FindPages(ctx context.Context, site *model.Site, urls []string) ([]*model.Page, error) {
	var pages []*model.Page
	for start := 0; start < len(urls); start += findPagesChunk {
		end := min(start+findPagesChunk, len(urls))
		chunk := urls[start:end]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, site.ID)
		for _, u := range chunk {
			args = append(args, u)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")

		rows, err := sdb.db.QueryContext(ctx,
			`SELECT `+pageColumns+` FROM pages WHERE site_id = ? AND url IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query pages: %w", err)
		}
		found, err := scanPages(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, found...)
	}
	return pages, nil
}

// FindAncestor walks generations parent links up from page.
// Zero generations returns page itself. A chain that ends early, or a
// dangling parent id, yields nil.
func (sdb *SiteDB) FindAncestor(ctx context.Context, page *model.Page, generations int) (*model.Page, error) {
	current := page
	for range generations {
		if current == nil || !current.HasParent() {
			return nil, nil
		}
		parent, err := sdb.FindPage(ctx, current.ParentID)
		if err != nil {
			return nil, err
		}
		current = parent
	}
	return current, nil
}

// UpsertPage stores page and returns the persisted row.
// A page with an id is updated in place; otherwise the (site, URL) pair
// decides between insert and update, so a URL never gets two rows.
func (sdb *SiteDB) UpsertPage(ctx context.Context, site *model.Site, page *model.Page) (*model.Page, error) {
	if site.ID == 0 {
		return nil, ErrNoSiteID
	}

	if page.ID != 0 {
		result, err := sdb.db.ExecContext(ctx, `
		UPDATE pages SET
			url = ?,
			title = ?,
			rule_key = ?,
			processor = ?,
			parent_id = ?,
			digest = ?,
			size = ?,
			captured_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND site_id = ?
		`,
			page.URL,
			nullString(page.Title),
			nullString(page.RuleKey),
			nullString(string(page.Processor)),
			nullInt64(page.ParentID),
			page.Digest,
			page.Size,
			page.CapturedAt,
			page.ID,
			site.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update page: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to update page: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %d", ErrPageNotFound, page.ID)
		}
		return sdb.FindPage(ctx, page.ID)
	}

	_, err := sdb.db.ExecContext(ctx, `
	INSERT INTO pages (site_id, url, title, rule_key, processor, parent_id, digest, size, captured_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(site_id, url) DO UPDATE SET
		title = excluded.title,
		rule_key = excluded.rule_key,
		processor = excluded.processor,
		parent_id = excluded.parent_id,
		digest = excluded.digest,
		size = excluded.size,
		captured_at = excluded.captured_at,
		updated_at = CURRENT_TIMESTAMP
	`,
		site.ID,
		page.URL,
		nullString(page.Title),
		nullString(page.RuleKey),
		nullString(string(page.Processor)),
		nullInt64(page.ParentID),
		page.Digest,
		page.Size,
		page.CapturedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert page: %w", err)
	}
	return sdb.FindPageByURL(ctx, site, page.URL)
}

// ClearPages deletes the site's queue entries and pages in one transaction.
func (sdb *SiteDB) ClearPages(ctx context.Context, site *model.Site) error {
	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue WHERE site_id = ?`, site.ID); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE site_id = ?`, site.ID); err != nil {
		return fmt.Errorf("failed to clear pages: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	return nil
}

// ListPages returns every page of the site ordered by id.
func (sdb *SiteDB) ListPages(ctx context.Context, site *model.Site) ([]*model.Page, error) {
	rows, err := sdb.db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE site_id = ? ORDER BY id`, site.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return scanPages(rows)
}

// scanPageRow scans a single row, mapping sql.ErrNoRows to nil, nil.
func scanPageRow(row *sql.Row) (*model.Page, error) {
	page, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return page, nil
}

// scanPages drains and closes rows.
func scanPages(rows *sql.Rows) ([]*model.Page, error) {
	defer rows.Close()

	var pages []*model.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

func scanPage(s rowScanner) (*model.Page, error) {
	var page model.Page
	var title, ruleKey, processor sql.NullString
	var parentID sql.NullInt64
	var createdAt, updatedAt string

	err := s.Scan(
		&page.ID,
		&page.SiteID,
		&page.URL,
		&title,
		&ruleKey,
		&processor,
		&parentID,
		&page.Digest,
		&page.Size,
		&page.CapturedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	page.Title = title.String
	page.RuleKey = ruleKey.String
	page.Processor = model.ProcessorKind(processor.String)
	page.ParentID = parentID.Int64
	page.CreatedAt = parseTimestamp(createdAt)
	page.UpdatedAt = parseTimestamp(updatedAt)
	return &page, nil
}
