package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Archive keeps a copy of every exported report under a base directory and prunes copies
// older than its retention.
type Archive struct {
	baseDir   string
	retention time.Duration
	now       func() time.Time
}

// NewArchive ensures baseDir exists. A zero retention keeps files forever.
func NewArchive(baseDir string, retention time.Duration) (*Archive, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("archive directory is empty")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &Archive{baseDir: baseDir, retention: retention, now: time.Now}, nil
}

// Save writes data to filename under the base directory, replacing an earlier copy, and
// returns the stored path.
func (a *Archive) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(a.baseDir, filepath.Base(filename))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write archived report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("store archived report: %w", err)
	}
	return path, nil
}

// Prune removes archived files last modified before now minus the retention and returns
// their names.
func (a *Archive) Prune() ([]string, error) {
	if a.retention <= 0 {
		return nil, nil
	}
	cutoff := a.now().Add(-a.retention)
	entries, err := os.ReadDir(a.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	deleted := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return deleted, fmt.Errorf("stat archived report: %w", err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.baseDir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return deleted, fmt.Errorf("prune archived report: %w", err)
		}
		deleted = append(deleted, entry.Name())
	}
	return deleted, nil
}
