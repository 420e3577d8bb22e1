package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/fwojciec/sitewatch"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ sitewatch.ChangeService = (*ChangeService)(nil)

// ChangeService implements sitewatch.ChangeService using SQLite.
type ChangeService struct {
	db *DB
}

// NewChangeService creates a new ChangeService.
func NewChangeService(db *DB) *ChangeService {
	return &ChangeService{db: db}
}

// CreateChange appends a change record with a generated ID.
func (s *ChangeService) CreateChange(ctx context.Context, change *sitewatch.Change) error {
	if err := change.Validate(); err != nil {
		return err
	}

	change.ID = uuid.New().String()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO changes (id, site_id, url, diff, detected_at)
		VALUES (?, ?, ?, ?, ?)
	`, change.ID, change.SiteID, change.URL, change.Diff, change.DetectedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return sitewatch.Errorf(sitewatch.ESTORAGE, "record change %s: %v", change.SiteID, err)
	}
	return nil
}

// FindChanges retrieves changes matching the filter, newest first.
func (s *ChangeService) FindChanges(ctx context.Context, filter sitewatch.ChangeFilter) ([]*sitewatch.Change, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, site_id, url, diff, detected_at FROM changes WHERE 1=1")

	if filter.SiteID != nil {
		query.WriteString(" AND site_id = ?")
		args = append(args, *filter.SiteID)
	}

	query.WriteString(" ORDER BY detected_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, 0)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []*sitewatch.Change{}
	for rows.Next() {
		var change sitewatch.Change
		var detectedAt string

		if err := rows.Scan(&change.ID, &change.SiteID, &change.URL, &change.Diff, &detectedAt); err != nil {
			return nil, err
		}
		if change.DetectedAt, err = parseRFC3339(detectedAt, "detected_at"); err != nil {
			return nil, err
		}
		changes = append(changes, &change)
	}

	return changes, rows.Err()
}

// DeleteChanges removes all changes recorded for siteID.
func (s *ChangeService) DeleteChanges(ctx context.Context, siteID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM changes WHERE site_id = ?", siteID)
	return err
}
