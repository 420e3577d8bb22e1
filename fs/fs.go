// Package fs implements sitewatch storage on the local filesystem.
package fs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/sitewatch"
)

// validID reports whether id is usable as a file name component.
func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.Contains(id, "_") {
		return sitewatch.Errorf(sitewatch.EINVALID, "invalid site ID %q", id)
	}
	return nil
}

// WriteFile atomically replaces the file at path with data, creating parent
// directories as needed. The data is written to a temporary file in the same
// directory, synced and renamed over path, so readers see either the old or
// the new content and never a partial write.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
