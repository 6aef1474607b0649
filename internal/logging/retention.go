package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneLogs removes run logs in dir older than retentionDays and returns how
// many were removed. The day is read from the shutter-YYYY-MM-DD.log name;
// names that do not parse fall back to the file's modification time. current
// is never removed, and retentionDays <= 0 disables pruning.
func PruneLogs(logger *slog.Logger, dir string, retentionDays int, current string) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	if current != "" {
		if abs, err := filepath.Abs(current); err == nil {
			current = abs
		}
	}

	matches, err := filepath.Glob(filepath.Join(dir, LogFilePattern))
	if err != nil {
		return 0
	}
	removed := 0
	for _, path := range matches {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if path == current {
			continue
		}
		day, ok := logDay(filepath.Base(path))
		if !ok {
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			day = info.ModTime()
		}
		if !day.Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}

// logDay parses the date out of a LogFileName result. The end of that day
// is returned so a log is kept for the full retention window.
func logDay(name string) (time.Time, bool) {
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, "shutter-"), ".log")
	day, err := time.ParseInLocation("2006-01-02", stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return day.AddDate(0, 0, 1), true
}
