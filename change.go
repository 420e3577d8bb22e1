package sitewatch

import (
	"context"
	"time"
)

// Change is an append-only record of a detected content change.
type Change struct {
	ID         string    `json:"id"`
	SiteID     string    `json:"site_id"`
	URL        string    `json:"url"`
	Diff       string    `json:"diff"`
	DetectedAt time.Time `json:"timestamp"`
}

// Validate returns an error if the change contains invalid fields.
func (c *Change) Validate() error {
	if c.SiteID == "" {
		return Errorf(EINVALID, "change site ID required")
	}
	if c.DetectedAt.IsZero() {
		return Errorf(EINVALID, "change timestamp required")
	}
	return nil
}

// ChangeService represents a service for recording detected changes.
type ChangeService interface {
	// CreateChange appends a change record. The ID is generated.
	CreateChange(ctx context.Context, change *Change) error

	// FindChanges retrieves changes matching the filter, newest first.
	FindChanges(ctx context.Context, filter ChangeFilter) ([]*Change, error)

	// DeleteChanges removes all changes recorded for siteID.
	DeleteChanges(ctx context.Context, siteID string) error
}

// ChangeFilter represents a filter for FindChanges.
type ChangeFilter struct {
	SiteID *string `json:"siteId"`

	Limit int `json:"limit"`
}
