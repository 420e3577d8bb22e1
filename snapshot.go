package sitewatch

import "context"

// SnapshotStore persists the last normalized content observed for each site.
// Each site has a single current snapshot; saving replaces it entirely.
type SnapshotStore interface {
	// SaveSnapshot durably replaces the snapshot for siteID.
	SaveSnapshot(ctx context.Context, siteID, content string) error

	// FindSnapshot returns the snapshot for siteID.
	// Returns an empty string if no snapshot was ever saved.
	FindSnapshot(ctx context.Context, siteID string) (string, error)

	// DeleteSnapshot removes the snapshot for siteID, if any.
	DeleteSnapshot(ctx context.Context, siteID string) error
}
