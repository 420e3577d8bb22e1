package fs

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fwojciec/sitewatch"
	"github.com/google/uuid"
)

// Ensure ChangeLog implements sitewatch.ChangeService at compile time.
var _ sitewatch.ChangeService = (*ChangeLog)(nil)

// historyTimeFormat is the timestamp layout used in history file names.
const historyTimeFormat = "20060102_150405"

// ChangeLog stores each change as a JSON file under dir, named
// <siteID>_<YYYYMMDD_HHMMSS>.json.
type ChangeLog struct {
	dir string
}

// NewChangeLog creates a ChangeLog rooted at dir.
func NewChangeLog(dir string) *ChangeLog {
	return &ChangeLog{dir: dir}
}

// CreateChange writes change to its own history file and assigns its ID.
func (l *ChangeLog) CreateChange(ctx context.Context, change *sitewatch.Change) error {
	if err := change.Validate(); err != nil {
		return err
	}
	if err := validID(change.SiteID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	change.ID = uuid.New().String()

	data, err := json.MarshalIndent(change, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return sitewatch.Errorf(sitewatch.ESTORAGE, "create history directory: %v", err)
	}

	// Two changes within the same second get a disambiguating suffix.
	base := change.SiteID + "_" + change.DetectedAt.UTC().Format(historyTimeFormat)
	name := base + ".json"
	if _, err := os.Stat(filepath.Join(l.dir, name)); err == nil {
		name = base + "_" + change.ID[:8] + ".json"
	}

	if err := WriteFile(filepath.Join(l.dir, name), data); err != nil {
		return sitewatch.Errorf(sitewatch.ESTORAGE, "write change %s: %v", change.SiteID, err)
	}
	return nil
}

// FindChanges reads history files matching the filter, newest first.
func (l *ChangeLog) FindChanges(ctx context.Context, filter sitewatch.ChangeFilter) ([]*sitewatch.Change, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*sitewatch.Change{}, nil
	} else if err != nil {
		return nil, sitewatch.Errorf(sitewatch.ESTORAGE, "read history: %v", err)
	}

	changes := []*sitewatch.Change{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		if filter.SiteID != nil && !strings.HasPrefix(name, *filter.SiteID+"_") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(filepath.Join(l.dir, name))
		if err != nil {
			return nil, sitewatch.Errorf(sitewatch.ESTORAGE, "read change %s: %v", name, err)
		}
		var change sitewatch.Change
		if err := json.Unmarshal(data, &change); err != nil {
			return nil, sitewatch.Errorf(sitewatch.ESTORAGE, "decode change %s: %v", name, err)
		}
		changes = append(changes, &change)
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].DetectedAt.After(changes[j].DetectedAt)
	})
	if filter.Limit > 0 && len(changes) > filter.Limit {
		changes = changes[:filter.Limit]
	}
	return changes, nil
}

// DeleteChanges removes every history file for siteID.
func (l *ChangeLog) DeleteChanges(ctx context.Context, siteID string) error {
	if err := validID(siteID); err != nil {
		return err
	}
	matches, err := filepath.Glob(filepath.Join(l.dir, siteID+"_*.json"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return sitewatch.Errorf(sitewatch.ESTORAGE, "delete change: %v", err)
		}
	}
	return nil
}
