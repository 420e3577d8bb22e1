package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/sitewatch"
)

// Compile-time interface verification.
var _ sitewatch.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore implements sitewatch.SnapshotStore using SQLite.
// Each row carries an xxHash checksum of its content that is verified on read.
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// checksum computes xxHash of content and returns it as hex.
func checksum(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// SaveSnapshot replaces the snapshot for siteID.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, siteID, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (site_id, content, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(site_id) DO UPDATE SET
			content = excluded.content,
			checksum = excluded.checksum,
			updated_at = excluded.updated_at
	`, siteID, content, checksum(content), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return sitewatch.Errorf(sitewatch.ESTORAGE, "save snapshot %s: %v", siteID, err)
	}
	return nil
}

// FindSnapshot returns the snapshot for siteID, or "" if none was saved.
func (s *SnapshotStore) FindSnapshot(ctx context.Context, siteID string) (string, error) {
	var content, sum string
	err := s.db.QueryRowContext(ctx, "SELECT content, checksum FROM snapshots WHERE site_id = ?", siteID).Scan(&content, &sum)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", sitewatch.Errorf(sitewatch.ESTORAGE, "load snapshot %s: %v", siteID, err)
	}
	if checksum(content) != sum {
		return "", sitewatch.Errorf(sitewatch.ESTORAGE, "snapshot %s is corrupt: checksum mismatch", siteID)
	}
	return content, nil
}

// DeleteSnapshot removes the snapshot for siteID, if any.
func (s *SnapshotStore) DeleteSnapshot(ctx context.Context, siteID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE site_id = ?", siteID); err != nil {
		return sitewatch.Errorf(sitewatch.ESTORAGE, "delete snapshot %s: %v", siteID, err)
	}
	return nil
}
