package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/nao1215/sitewalker/internal/model"
)

const siteColumns = `id, key, title, url, steps, extract_count, image_count, reset_count, created_at, updated_at`

// UpsertSite inserts a site or updates the one with the same key.
// The site's rules are replaced in configuration order inside the same
// transaction. Counters are never touched by an upsert.
func (sdb *SiteDB) UpsertSite(ctx context.Context, site *model.Site) (*model.Site, error) {
	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	_, err = tx.ExecContext(ctx, `
	INSERT INTO sites (key, title, url)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		title = excluded.title,
		url = excluded.url,
		updated_at = CURRENT_TIMESTAMP
	`, site.Key, site.Title, site.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert site: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM sites WHERE key = ?`, site.Key).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to read site id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM rules WHERE site_id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete rules: %w", err)
	}

	for i, r := range site.Rules {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO rules (site_id, position, key, url_pattern, processor, element_filter, url_filter, priority, ancestor_generations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, i, r.Key, r.URLPattern, string(r.Processor), r.ElementFilter, r.URLFilter, r.Priority, r.AncestorGenerations)
		if err != nil {
			return nil, fmt.Errorf("failed to insert rule %q: %w", r.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit site: %w", err)
	}

	return sdb.findSite(ctx, `WHERE id = ?`, id)
}

// FindSite looks a site up by numeric id or by key. A numeric code that
// matches no id is retried as a key. ErrSiteNotFound is returned when
// neither matches.
func (sdb *SiteDB) FindSite(ctx context.Context, code string) (*model.Site, error) {
	if id, err := strconv.ParseInt(code, 10, 64); err == nil {
		site, err := sdb.findSite(ctx, `WHERE id = ?`, id)
		if err == nil || !errors.Is(err, ErrSiteNotFound) {
			return site, err
		}
	}
	return sdb.findSite(ctx, `WHERE key = ?`, code)
}

// ListSites returns every site ordered by id, rules included.
func (sdb *SiteDB) ListSites(ctx context.Context) ([]*model.Site, error) {
	rows, err := sdb.db.QueryContext(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []*model.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, site := range sites {
		if site.Rules, err = sdb.loadRules(ctx, site.ID); err != nil {
			return nil, err
		}
	}
	return sites, nil
}

// IncrementSiteCounters adds the given deltas to the site's step and
// processor counters and mirrors the new totals into site.
func (sdb *SiteDB) IncrementSiteCounters(ctx context.Context, site *model.Site, steps, extract, image int64) error {
	if site.ID == 0 {
		return ErrNoSiteID
	}
	_, err := sdb.db.ExecContext(ctx, `
	UPDATE sites SET
		steps = steps + ?,
		extract_count = extract_count + ?,
		image_count = image_count + ?,
		updated_at = CURRENT_TIMESTAMP
	WHERE id = ?
	`, steps, extract, image, site.ID)
	if err != nil {
		return fmt.Errorf("failed to update site counters: %w", err)
	}
	site.Steps += steps
	site.ExtractCount += extract
	site.ImageCount += image
	return nil
}

// IncrementResetCount records one queue reset or page clear.
func (sdb *SiteDB) IncrementResetCount(ctx context.Context, site *model.Site) error {
	if site.ID == 0 {
		return ErrNoSiteID
	}
	_, err := sdb.db.ExecContext(ctx, `
	UPDATE sites SET reset_count = reset_count + 1, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?
	`, site.ID)
	if err != nil {
		return fmt.Errorf("failed to update reset count: %w", err)
	}
	site.ResetCount++
	return nil
}

// findSite loads one site and its rules using the given WHERE clause.
func (sdb *SiteDB) findSite(ctx context.Context, where string, arg any) (*model.Site, error) {
	row := sdb.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites `+where, arg)
	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", ErrSiteNotFound, arg)
	}
	if err != nil {
		return nil, err
	}

	if site.Rules, err = sdb.loadRules(ctx, site.ID); err != nil {
		return nil, err
	}
	return site, nil
}

// loadRules returns a site's rules in configuration order.
func (sdb *SiteDB) loadRules(ctx context.Context, siteID int64) ([]model.Rule, error) {
	rows, err := sdb.db.QueryContext(ctx, `
	SELECT position, key, url_pattern, processor, element_filter, url_filter, priority, ancestor_generations
	FROM rules
	WHERE site_id = ?
	ORDER BY position
	`, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []model.Rule
	for rows.Next() {
		var r model.Rule
		var processor string
		err := rows.Scan(
			&r.Position,
			&r.Key,
			&r.URLPattern,
			&processor,
			&r.ElementFilter,
			&r.URLFilter,
			&r.Priority,
			&r.AncestorGenerations,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		r.Processor = model.ProcessorKind(processor)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func scanSite(s rowScanner) (*model.Site, error) {
	var site model.Site
	var createdAt, updatedAt string
	err := s.Scan(
		&site.ID,
		&site.Key,
		&site.Title,
		&site.URL,
		&site.Steps,
		&site.ExtractCount,
		&site.ImageCount,
		&site.ResetCount,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan site: %w", err)
	}
	site.CreatedAt = parseTimestamp(createdAt)
	site.UpdatedAt = parseTimestamp(updatedAt)
	return &site, nil
}
