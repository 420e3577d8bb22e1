package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fwojciec/sitewatch"
)

// Compile-time interface verification.
var _ sitewatch.SiteService = (*SiteService)(nil)

// SiteService implements sitewatch.SiteService using SQLite.
type SiteService struct {
	db *DB
}

// NewSiteService creates a new SiteService.
func NewSiteService(db *DB) *SiteService {
	return &SiteService{db: db}
}

const siteColumns = "id, url, name, css_selector, last_hash, last_checked, last_change, enabled"

// CreateSite creates a new site with an ID derived from its URL.
func (s *SiteService) CreateSite(ctx context.Context, site *sitewatch.Site) error {
	if err := site.Validate(); err != nil {
		return err
	}
	site.ID = sitewatch.NewSiteID(site.URL)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM sites WHERE id = ? OR url = ?", site.ID, site.URL).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return sitewatch.Errorf(sitewatch.ECONFLICT, "site already exists: %s", site.URL)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sites (id, url, name, css_selector, last_hash, last_checked, last_change, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, site.ID, site.URL, site.Name, site.CSSSelector, site.LastHash,
		formatTime(site.LastChecked), formatTime(site.LastChange), site.Enabled,
		time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	return tx.Commit()
}

// FindSiteByID retrieves a site by ID.
func (s *SiteService) FindSiteByID(ctx context.Context, id string) (*sitewatch.Site, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+siteColumns+" FROM sites WHERE id = ?", id)
	site, err := scanSite(row)
	if err == sql.ErrNoRows {
		return nil, sitewatch.Errorf(sitewatch.ENOTFOUND, "site not found")
	}
	if err != nil {
		return nil, err
	}
	return site, nil
}

// FindSites retrieves sites matching the filter in creation order.
func (s *SiteService) FindSites(ctx context.Context, filter sitewatch.SiteFilter) ([]*sitewatch.Site, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + siteColumns + " FROM sites WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.URL != nil {
		query.WriteString(" AND url = ?")
		args = append(args, *filter.URL)
	}
	if filter.Enabled != nil {
		query.WriteString(" AND enabled = ?")
		args = append(args, *filter.Enabled)
	}

	query.WriteString(" ORDER BY rowid ASC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sites := []*sitewatch.Site{}
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}

	return sites, rows.Err()
}

// UpdateSite writes only the columns named in upd, so concurrent updates of
// different fields do not overwrite each other.
func (s *SiteService) UpdateSite(ctx context.Context, id string, upd sitewatch.SiteUpdate) (*sitewatch.Site, error) {
	if upd.Name != nil && *upd.Name == "" {
		return nil, sitewatch.Errorf(sitewatch.EINVALID, "site name required")
	}

	var set []string
	var args []any
	if upd.Name != nil {
		set = append(set, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.CSSSelector != nil {
		set = append(set, "css_selector = ?")
		args = append(args, *upd.CSSSelector)
	}
	if upd.Enabled != nil {
		set = append(set, "enabled = ?")
		args = append(args, *upd.Enabled)
	}
	if upd.LastHash != nil {
		set = append(set, "last_hash = ?")
		args = append(args, *upd.LastHash)
	}
	if upd.LastChecked != nil {
		set = append(set, "last_checked = ?")
		args = append(args, formatTime(*upd.LastChecked))
	}
	if upd.LastChange != nil {
		set = append(set, "last_change = ?")
		args = append(args, formatTime(*upd.LastChange))
	}
	if len(set) == 0 {
		return s.FindSiteByID(ctx, id)
	}

	args = append(args, id)
	result, err := s.db.ExecContext(ctx, "UPDATE sites SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, sitewatch.Errorf(sitewatch.ENOTFOUND, "site not found")
	}

	return s.FindSiteByID(ctx, id)
}

// DeleteSite permanently removes a site along with its snapshot and changes.
func (s *SiteService) DeleteSite(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sites WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return sitewatch.Errorf(sitewatch.ENOTFOUND, "site not found")
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSite(row scanner) (*sitewatch.Site, error) {
	var site sitewatch.Site
	var lastChecked, lastChange string

	if err := row.Scan(&site.ID, &site.URL, &site.Name, &site.CSSSelector, &site.LastHash,
		&lastChecked, &lastChange, &site.Enabled); err != nil {
		return nil, err
	}

	var err error
	if site.LastChecked, err = parseRFC3339(lastChecked, "last_checked"); err != nil {
		return nil, err
	}
	if site.LastChange, err = parseRFC3339(lastChange, "last_change"); err != nil {
		return nil, err
	}

	return &site, nil
}
