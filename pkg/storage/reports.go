package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ReportDir persists generated reports under a base directory.
type ReportDir struct {
	baseDir string
	now     func() time.Time
}

// NewReportDir ensures the base directory exists and returns a handle.
func NewReportDir(baseDir string) (*ReportDir, error) {
	if baseDir == "" {
		baseDir = "./reports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports directory: %w", err)
	}
	return &ReportDir{baseDir: baseDir, now: time.Now}, nil
}

// Save atomically writes data to name and returns the full path.
func (d *ReportDir) Save(name string, data []byte) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid report name %q", name)
	}
	tmp, err := os.CreateTemp(d.baseDir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return "", fmt.Errorf("write report file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close report file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod report file: %w", err)
	}
	path := d.Path(name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("publish report file: %w", err)
	}
	return path, nil
}

// Prune removes reports older than maxAge and returns their names.
func (d *ReportDir) Prune(maxAge time.Duration) ([]string, error) {
	entries, err := os.ReadDir(d.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	cutoff := d.now().Add(-maxAge)
	removed := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return removed, fmt.Errorf("stat report %s: %w", entry.Name(), err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(d.Path(entry.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove report %s: %w", entry.Name(), err)
		}
		removed = append(removed, entry.Name())
	}
	return removed, nil
}

// Path returns where name is stored.
func (d *ReportDir) Path(name string) string {
	return filepath.Join(d.baseDir, name)
}
