package fs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fwojciec/sitewatch"
)

// Ensure SnapshotStore implements sitewatch.SnapshotStore at compile time.
var _ sitewatch.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore keeps one text file per site under dir, named <siteID>.txt.
// Saves are atomic: a crash during a save leaves the previous snapshot intact.
type SnapshotStore struct {
	dir string
}

// NewSnapshotStore creates a SnapshotStore rooted at dir.
// The directory is created on first save.
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{dir: dir}
}

func (s *SnapshotStore) path(siteID string) string {
	return filepath.Join(s.dir, siteID+".txt")
}

// SaveSnapshot atomically replaces the snapshot file for siteID.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, siteID, content string) error {
	if err := validID(siteID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := WriteFile(s.path(siteID), []byte(content)); err != nil {
		return sitewatch.Errorf(sitewatch.ESTORAGE, "save snapshot %s: %v", siteID, err)
	}
	return nil
}

// FindSnapshot returns the snapshot for siteID, or "" if none was saved.
func (s *SnapshotStore) FindSnapshot(ctx context.Context, siteID string) (string, error) {
	if err := validID(siteID); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path(siteID))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", sitewatch.Errorf(sitewatch.ESTORAGE, "load snapshot %s: %v", siteID, err)
	}
	return string(data), nil
}

// DeleteSnapshot removes the snapshot file for siteID, if any.
func (s *SnapshotStore) DeleteSnapshot(ctx context.Context, siteID string) error {
	if err := validID(siteID); err != nil {
		return err
	}
	if err := os.Remove(s.path(siteID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return sitewatch.Errorf(sitewatch.ESTORAGE, "delete snapshot %s: %v", siteID, err)
	}
	return nil
}
