package duplicates

import (
	"context"
	"errors"
	"os"
	"time"

	"shutter/internal/logging"
	"shutter/internal/services"
)

// PathError pairs a path with the error encountered while handling it.
type PathError struct {
	Path string
	Err  error
}

// PruneSummary reports a Prune pass.
type PruneSummary struct {
	Checked int
	Removed int
	Errors  []PathError
	Elapsed time.Duration
}

// Prune deletes index rows whose file no longer exists. Files that cannot be
// stat'ed for any other reason are kept and reported. In dry-run mode rows are
// counted but not deleted.
func (r *Resolver) Prune(ctx context.Context) (summary PruneSummary, err error) {
	started := time.Now()
	defer func() { summary.Elapsed = time.Since(started) }()

	ctx = services.WithStage(ctx, "prune")
	logger := logging.WithContext(ctx, r.logger)

	paths, err := r.store.Paths(ctx)
	if err != nil {
		return summary, err
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Checked++
		_, statErr := os.Stat(path)
		if statErr == nil {
			continue
		}
		if !errors.Is(statErr, os.ErrNotExist) {
			summary.Errors = append(summary.Errors, PathError{Path: path, Err: statErr})
			continue
		}
		if r.opts.DryRun {
			summary.Removed++
			logger.Info("stale index entry found", logging.String(logging.FieldSource, path), logging.Bool("dry_run", true))
			continue
		}
		if _, err := r.store.Delete(ctx, path); err != nil {
			summary.Errors = append(summary.Errors, PathError{Path: path, Err: err})
			continue
		}
		summary.Removed++
		logger.Debug("stale index entry removed", logging.String(logging.FieldSource, path))
	}

	logger.Info("prune complete",
		logging.String(logging.FieldEventType, "prune_complete"),
		logging.Int("entries_checked", summary.Checked),
		logging.Int("entries_removed", summary.Removed),
		logging.Int("errors", len(summary.Errors)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return summary, nil
}
