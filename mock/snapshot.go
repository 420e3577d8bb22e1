package mock

import (
	"context"

	"github.com/fwojciec/sitewatch"
)

var _ sitewatch.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore is a mock implementation of sitewatch.SnapshotStore.
type SnapshotStore struct {
	SaveSnapshotFn   func(ctx context.Context, siteID, content string) error
	FindSnapshotFn   func(ctx context.Context, siteID string) (string, error)
	DeleteSnapshotFn func(ctx context.Context, siteID string) error
}

func (s *SnapshotStore) SaveSnapshot(ctx context.Context, siteID, content string) error {
	return s.SaveSnapshotFn(ctx, siteID, content)
}

func (s *SnapshotStore) FindSnapshot(ctx context.Context, siteID string) (string, error) {
	return s.FindSnapshotFn(ctx, siteID)
}

func (s *SnapshotStore) DeleteSnapshot(ctx context.Context, siteID string) error {
	return s.DeleteSnapshotFn(ctx, siteID)
}
