package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/sitewatch"
)

// Ensure LoggingSnapshotStore implements sitewatch.SnapshotStore.
var _ sitewatch.SnapshotStore = (*LoggingSnapshotStore)(nil)

// LoggingSnapshotStore wraps a SnapshotStore with debug logging of writes.
type LoggingSnapshotStore struct {
	next   sitewatch.SnapshotStore
	logger *slog.Logger
}

// NewLoggingSnapshotStore creates a new LoggingSnapshotStore.
func NewLoggingSnapshotStore(next sitewatch.SnapshotStore, logger *slog.Logger) *LoggingSnapshotStore {
	return &LoggingSnapshotStore{next: next, logger: logger}
}

// SaveSnapshot delegates to the wrapped store and logs the write.
func (s *LoggingSnapshotStore) SaveSnapshot(ctx context.Context, siteID, content string) error {
	begin := time.Now()
	err := s.next.SaveSnapshot(ctx, siteID, content)
	s.logger.Debug("save snapshot",
		"site", siteID,
		"bytes", len(content),
		"duration", time.Since(begin),
		"err", err,
	)
	return err
}

// FindSnapshot delegates to the wrapped store.
func (s *LoggingSnapshotStore) FindSnapshot(ctx context.Context, siteID string) (string, error) {
	return s.next.FindSnapshot(ctx, siteID)
}

// DeleteSnapshot delegates to the wrapped store.
func (s *LoggingSnapshotStore) DeleteSnapshot(ctx context.Context, siteID string) error {
	return s.next.DeleteSnapshot(ctx, siteID)
}
