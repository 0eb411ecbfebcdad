package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nao1215/sitewalker/internal/model"
)

const queueColumns = `id, site_id, page_id, priority, created_at`

// Enqueue appends a queue entry for page. It never deduplicates: the same
// page may be queued several times.
func (sdb *SiteDB) Enqueue(ctx context.Context, site *model.Site, page *model.Page, priority int) (*model.QueueEntry, error) {
	if site.ID == 0 {
		return nil, ErrNoSiteID
	}

	result, err := sdb.db.ExecContext(ctx,
		`INSERT INTO queue (site_id, page_id, priority) VALUES (?, ?, ?)`,
		site.ID, page.ID, priority)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue page: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue page: %w", err)
	}

	row := sdb.db.QueryRowContext(ctx, `SELECT `+queueColumns+` FROM queue WHERE id = ?`, id)
	entry, err := scanQueueEntry(row)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue entry: %w", err)
	}
	return entry, nil
}

// Dequeue returns the highest priority entry (oldest first among equals)
// together with its page. Unless peek is set the entry is removed in the
// same transaction. An empty queue returns nil, nil, nil.
func (sdb *SiteDB) Dequeue(ctx context.Context, site *model.Site, peek bool) (*model.QueueEntry, *model.Page, error) {
	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	row := tx.QueryRowContext(ctx, `
	SELECT `+queueColumns+` FROM queue
	WHERE site_id = ?
	ORDER BY priority DESC, id ASC
	LIMIT 1
	`, site.ID)
	entry, err := scanQueueEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read queue head: %w", err)
	}

	pageRow := tx.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, entry.PageID)
	page, err := scanPage(pageRow)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("failed to get queued page: %w", err)
	}

	if !peek {
		if _, err := tx.ExecContext(ctx, `DELETE FROM queue WHERE id = ?`, entry.ID); err != nil {
			return nil, nil, fmt.Errorf("failed to delete queue entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit dequeue: %w", err)
	}
	return entry, page, nil
}

// ClearQueue removes every queue entry of the site.
func (sdb *SiteDB) ClearQueue(ctx context.Context, site *model.Site) error {
	if _, err := sdb.db.ExecContext(ctx, `DELETE FROM queue WHERE site_id = ?`, site.ID); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

// ListQueue returns the site's queue in dequeue order.
func (sdb *SiteDB) ListQueue(ctx context.Context, site *model.Site) ([]*model.QueueEntry, error) {
	rows, err := sdb.db.QueryContext(ctx, `
	SELECT `+queueColumns+` FROM queue
	WHERE site_id = ?
	ORDER BY priority DESC, id ASC
	`, site.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	defer rows.Close()

	var entries []*model.QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanQueueEntry(s rowScanner) (*model.QueueEntry, error) {
	var entry model.QueueEntry
	var createdAt string
	if err := s.Scan(&entry.ID, &entry.SiteID, &entry.PageID, &entry.Priority, &createdAt); err != nil {
		return nil, err
	}
	entry.CreatedAt = parseTimestamp(createdAt)
	return &entry, nil
}
