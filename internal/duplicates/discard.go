package duplicates

import (
	"context"
	"errors"

	"shutter/internal/logging"
	"shutter/internal/placement"
	"shutter/internal/services"
)

// DiscardOutcome is what happened to one redundant path.
type DiscardOutcome struct {
	Path      string
	Keep      string
	TrashedTo string
	Size      int64
	Err       error
}

// DiscardSummary reports a Discard pass.
type DiscardSummary struct {
	Outcomes   []DiscardOutcome
	Moved      int
	MovedBytes int64
	Errors     []PathError
}

// Discard sends every non-kept member of every group to trash and drops its
// index row. Members whose stat failed are left alone. An inactive trash
// (disabled or dry-run) only logs, and the index is left untouched.
func (r *Resolver) Discard(ctx context.Context, report Report, trash *placement.Trash) (DiscardSummary, error) {
	ctx = services.WithStage(ctx, "duplicates")
	logger := logging.WithContext(ctx, r.logger)

	var summary DiscardSummary
	for _, group := range report.Groups {
		for _, m := range group.Redundant() {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			outcome := DiscardOutcome{Path: m.Path, Keep: group.Keep, Size: m.Size}
			if m.Err != nil {
				outcome.Err = m.Err
				summary.Outcomes = append(summary.Outcomes, outcome)
				continue
			}
			dest, err := trash.Move(ctx, m.Path)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return summary, err
				}
				outcome.Err = err
				summary.Errors = append(summary.Errors, PathError{Path: m.Path, Err: err})
				summary.Outcomes = append(summary.Outcomes, outcome)
				continue
			}
			outcome.TrashedTo = dest
			if dest != "" {
				summary.Moved++
				summary.MovedBytes += m.Size
				if _, err := r.store.Delete(ctx, m.Path); err != nil {
					outcome.Err = err
					summary.Errors = append(summary.Errors, PathError{Path: m.Path, Err: err})
				}
			}
			summary.Outcomes = append(summary.Outcomes, outcome)
		}
	}

	logger.Info("duplicates discarded",
		logging.String(logging.FieldEventType, "duplicates_discarded"),
		logging.Int("files_moved", summary.Moved),
		logging.Int64("moved_bytes", summary.MovedBytes),
		logging.Int("errors", len(summary.Errors)),
		logging.Bool("trash_active", trash.Active()),
	)
	return summary, nil
}
