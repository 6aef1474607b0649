package placement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"shutter/internal/fileutil"
	"shutter/internal/logging"
	"shutter/internal/services"
)

const maxTrashAttempts = 10000

// Trash moves duplicate files aside without overwriting anything already in
// the trash directory.
type Trash struct {
	dir     string
	enabled bool
	dryRun  bool
	logger  *slog.Logger
}

// NewTrash constructs a Trash. A disabled or dry-run Trash only logs.
func NewTrash(dir string, enabled, dryRun bool, logger *slog.Logger) *Trash {
	return &Trash{
		dir:     strings.TrimSpace(dir),
		enabled: enabled,
		dryRun:  dryRun,
		logger:  logging.NewComponentLogger(logger, "trash"),
	}
}

// Active reports whether Move actually moves files.
func (t *Trash) Active() bool {
	return t != nil && t.enabled && !t.dryRun && t.dir != ""
}

// Dir returns the trash directory.
func (t *Trash) Dir() string {
	return t.dir
}

// Move relocates path into the trash directory and returns the new location.
// It returns "" and no error when the trash is inactive.
func (t *Trash) Move(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if t == nil {
		return "", nil
	}
	logger := logging.WithContext(services.WithSource(ctx, path), t.logger)
	if !t.Active() {
		reason := "disabled"
		if t.dryRun {
			reason = "dry_run"
		}
		logger.Info("trash skipped", logging.String("reason", reason))
		return "", nil
	}
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "trash", "ensure trash dir", t.dir, err)
	}

	name := filepath.Base(path)
	for attempt := 0; attempt < maxTrashAttempts; attempt++ {
		target := filepath.Join(t.dir, trashName(name, attempt))
		_, err := fileutil.MoveNoReplace(path, target)
		if err == nil {
			logger.Info("moved to trash",
				logging.String(logging.FieldEventType, "trashed"),
				logging.String(logging.FieldDestination, target),
			)
			return target, nil
		}
		if errors.Is(err, fileutil.ErrTargetExists) {
			continue
		}
		return "", moveError("move to trash", path, err)
	}
	return "", moveError("move to trash", path, fmt.Errorf("exhausted trash filename slots in %s", t.dir))
}

// trashName returns name for attempt 0 and name-N.ext afterwards.
func trashName(name string, attempt int) string {
	if attempt == 0 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), attempt, ext)
}
