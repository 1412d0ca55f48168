package logging

import (
	"os"
	"path/filepath"
	"time"
)

// Cleaner removes run logs older than the retention period.
type Cleaner struct {
	baseDir       string
	retentionDays int
}

// NewCleaner creates a new Cleaner with the specified base directory and retention period.
func NewCleaner(baseDir string, retentionDays int) *Cleaner {
	return &Cleaner{baseDir: baseDir, retentionDays: retentionDays}
}

// Cleanup removes log files older than the retention period and cleans up
// empty directories. Returns the number of files deleted.
func (c *Cleaner) Cleanup() (int, error) {
	threshold := time.Now().AddDate(0, 0, -c.retentionDays)
	var deleted int

	err := filepath.WalkDir(c.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(threshold) {
			if err := os.Remove(path); err == nil {
				deleted++
			}
		}
		return nil
	})

	c.cleanEmptyDirs()

	return deleted, err
}

// cleanEmptyDirs removes empty directories within the base directory.
// Multiple passes, since removing a directory may leave its parent empty.
func (c *Cleaner) cleanEmptyDirs() {
	for {
		removedAny := false
		filepath.WalkDir(c.baseDir, func(path string, d os.DirEntry, err error) error {
			if err != nil || !d.IsDir() || path == c.baseDir {
				return nil
			}
			entries, _ := os.ReadDir(path)
			if len(entries) == 0 {
				if os.Remove(path) == nil {
					removedAny = true
				}
			}
			return nil
		})
		if !removedAny {
			break
		}
	}
}
